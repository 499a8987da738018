package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/userbook/internal/apperror"
	"github.com/sakif/userbook/internal/model"
	"github.com/sakif/userbook/internal/worker"
)

// =========================================================================
// TEST DOUBLES
// =========================================================================
//
// mockUserRepo keeps rows in a slice, in insertion order, like the real
// table. Failure fields let a test make one method return an error.

type mockUserRepo struct {
	mu     sync.Mutex
	users  []model.User
	nextID int64

	findErr   error
	insertErr error
	listErr   error

	// beforeInsert runs inside InsertIfAbsent before the existence check.
	// Tests use it to simulate a concurrent writer winning the race.
	beforeInsert func(m *mockUserRepo)
}

func newMockRepo() *mockUserRepo {
	return &mockUserRepo{}
}

func (m *mockUserRepo) FindByName(_ context.Context, name string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Name == name {
			found := u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user", name)
}

func (m *mockUserRepo) InsertIfAbsent(_ context.Context, user *model.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if m.beforeInsert != nil {
		m.beforeInsert(m)
	}
	for _, u := range m.users {
		if u.Name == user.Name {
			return false, nil
		}
	}
	m.insertLocked(user)
	return true, nil
}

func (m *mockUserRepo) insertLocked(user *model.User) {
	m.nextID++
	user.ID = m.nextID
	m.users = append(m.users, *user)
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

// inlineRunner runs the job on the calling goroutine.
type inlineRunner struct {
	err error
}

func (r inlineRunner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(ctx)
}

type fakeRecorder struct {
	created, found int
}

func (f *fakeRecorder) ObserveGetOrCreate(created bool) {
	if created {
		f.created++
	} else {
		f.found++
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a clock that reports t until advanced.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func newTestService(repo *mockUserRepo) (*UserService, *fixedClock, *fakeRecorder) {
	clock := &fixedClock{t: time.Date(2024, time.March, 4, 9, 5, 7, 0, time.Local)}
	rec := &fakeRecorder{}
	s := NewUserService(repo, inlineRunner{}, rec, testLogger())
	s.now = clock.now
	return s, clock, rec
}

// =========================================================================
// GET OR CREATE TESTS
// =========================================================================

func TestGetOrCreate_CreatesOnEmptyStore(t *testing.T) {
	s, clock, rec := newTestService(newMockRepo())

	user, created, err := s.GetOrCreate(context.Background(), "Ann", "1 Oak St")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if !created {
		t.Error("created = false, want true")
	}
	want := model.User{
		ID:          1,
		Name:        "Ann",
		Address:     "1 Oak St",
		DateCreated: model.FormatDateCreated(clock.t),
	}
	if *user != want {
		t.Errorf("user = %+v, want %+v", *user, want)
	}
	if rec.created != 1 || rec.found != 0 {
		t.Errorf("recorder = %+v, want 1 created", *rec)
	}
}

func TestGetOrCreate_IdempotentByName(t *testing.T) {
	s, clock, rec := newTestService(newMockRepo())
	ctx := context.Background()

	first, _, err := s.GetOrCreate(ctx, "Ann", "1 Oak St")
	if err != nil {
		t.Fatalf("first GetOrCreate() error = %v", err)
	}

	// Time moves on; the second call must not refresh date_created.
	clock.t = clock.t.Add(time.Hour)

	second, created, err := s.GetOrCreate(ctx, "Ann", "2 Elm St")
	if err != nil {
		t.Fatalf("second GetOrCreate() error = %v", err)
	}

	if created {
		t.Error("second call created = true, want false")
	}
	if second.ID != first.ID {
		t.Errorf("ID = %d, want %d", second.ID, first.ID)
	}
	if second.Address != "1 Oak St" {
		t.Errorf("Address = %q, want first call's %q", second.Address, "1 Oak St")
	}
	if second.DateCreated != first.DateCreated {
		t.Errorf("DateCreated = %q, want unchanged %q", second.DateCreated, first.DateCreated)
	}
	if rec.created != 1 || rec.found != 1 {
		t.Errorf("recorder = %+v, want 1 created, 1 found", *rec)
	}
}

func TestGetOrCreate_LostInsertRaceReturnsWinner(t *testing.T) {
	repo := newMockRepo()
	repo.beforeInsert = func(m *mockUserRepo) {
		// Another request inserted "Ann" between our lookup and our insert.
		m.insertLocked(&model.User{Name: "Ann", Address: "winner", DateCreated: "2024-01-01 00:00:00.000000000"})
		m.beforeInsert = nil
	}
	s, _, rec := newTestService(repo)

	user, created, err := s.GetOrCreate(context.Background(), "Ann", "loser")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if created {
		t.Error("created = true, want false after losing the race")
	}
	if user.Address != "winner" {
		t.Errorf("Address = %q, want %q", user.Address, "winner")
	}
	if len(repo.users) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.users))
	}
	if rec.found != 1 {
		t.Errorf("recorder = %+v, want 1 found", *rec)
	}
}

func TestGetOrCreate_Errors(t *testing.T) {
	dbDown := errors.New("database is locked")

	tests := []struct {
		name    string
		setup   func(*mockUserRepo)
		runner  inlineRunner
		wantErr error
	}{
		{
			name:    "lookup fails",
			setup:   func(m *mockUserRepo) { m.findErr = dbDown },
			wantErr: dbDown,
		},
		{
			name:    "insert fails",
			setup:   func(m *mockUserRepo) { m.insertErr = dbDown },
			wantErr: dbDown,
		},
		{
			name:    "runner rejects",
			setup:   func(m *mockUserRepo) {},
			runner:  inlineRunner{err: worker.ErrPoolClosed},
			wantErr: worker.ErrPoolClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			tt.setup(repo)
			rec := &fakeRecorder{}
			s := NewUserService(repo, tt.runner, rec, testLogger())

			user, _, err := s.GetOrCreate(context.Background(), "Ann", "1 Oak St")

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, apperror.ErrNotFound) {
				t.Error("storage failure must not surface as ErrNotFound")
			}
			if user != nil {
				t.Errorf("user = %+v, want nil", user)
			}
			if rec.created+rec.found != 0 {
				t.Errorf("recorder observed a failed call: %+v", *rec)
			}
		})
	}
}

func TestGetOrCreate_NilRecorder(t *testing.T) {
	s := NewUserService(newMockRepo(), inlineRunner{}, nil, testLogger())

	if _, _, err := s.GetOrCreate(context.Background(), "Ann", "1 Oak St"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
}

func TestGetOrCreate_OnWorkerPool(t *testing.T) {
	pool := worker.New(worker.Config{Size: 2}, testLogger())
	pool.Start()
	defer pool.Stop()

	repo := newMockRepo()
	s := NewUserService(repo, pool, nil, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.GetOrCreate(context.Background(), "Same", "addr"); err != nil {
				t.Errorf("GetOrCreate() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(repo.users) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.users))
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestList_RoundTrip(t *testing.T) {
	s, _, _ := newTestService(newMockRepo())
	ctx := context.Background()

	created, _, err := s.GetOrCreate(ctx, "Ann", "1 Oak St")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	users, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 || users[0] != *created {
		t.Errorf("List() = %+v, want [%+v]", users, *created)
	}
}

func TestList_Error(t *testing.T) {
	repo := newMockRepo()
	repo.listErr = errors.New("disk I/O error")
	s := NewUserService(repo, inlineRunner{}, nil, testLogger())

	users, err := s.List(context.Background())

	if !errors.Is(err, repo.listErr) {
		t.Errorf("List() error = %v, want %v", err, repo.listErr)
	}
	if users != nil {
		t.Errorf("List() = %v, want nil on error", users)
	}
}
