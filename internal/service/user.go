// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → orchestrates, owns the clock, offloads blocking work
//	Repository (Data layer)  → reads/writes to the database
//
// Neither the service nor the repository imports net/http. The handler maps
// the errors returned here (apperror sentinels or anything else) onto
// status codes.
//
// BLOCKING WORK:
// Every repository call is submitted to a worker pool through the Runner
// interface, never run on the request goroutine directly. The pool bounds
// how many blocking database calls are in flight at once.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/userbook/internal/apperror"
	"github.com/sakif/userbook/internal/model"
	"github.com/sakif/userbook/internal/repository"
)

// Runner executes blocking work off the calling goroutine.
// *worker.Pool satisfies it.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recorder observes get-or-create outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveGetOrCreate(created bool)
}

// UserService handles business logic for users.
type UserService struct {
	repo     repository.UserRepository
	runner   Runner
	recorder Recorder
	logger   *slog.Logger

	// now is the clock used for date_created. Tests replace it.
	now func() time.Time
}

// NewUserService creates a new UserService. recorder may be nil.
func NewUserService(repo repository.UserRepository, runner Runner, recorder Recorder, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		runner:   runner,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrCreate returns the user called name, creating it with address if
// no such user exists. The bool reports whether a row was created.
//
// FOUND PATH:
// The stored row is returned unchanged. The supplied address is discarded
// and date_created keeps its original value. The call is idempotent by
// name only.
//
// CREATE PATH:
//  1. Render date_created from the local clock.
//  2. InsertIfAbsent: one atomic statement, so a concurrent caller with the
//     same new name cannot produce a second row.
//  3. Re-read by name. Whether we won or lost the insert race, this is the
//     row every caller agrees on.
//
// No input validation is applied: an empty name is a name like any other.
func (s *UserService) GetOrCreate(ctx context.Context, name, address string) (*model.User, bool, error) {
	var (
		user    *model.User
		created bool
	)

	err := s.runner.Do(ctx, func(ctx context.Context) error {
		found, err := s.repo.FindByName(ctx, name)
		if err == nil {
			user = found
			return nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		candidate := &model.User{
			Name:        name,
			Address:     address,
			DateCreated: model.FormatDateCreated(s.now()),
		}
		inserted, err := s.repo.InsertIfAbsent(ctx, candidate)
		if err != nil {
			return err
		}

		stored, err := s.repo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		user = stored
		created = inserted
		return nil
	})
	if err != nil {
		s.logger.Error("failed to get or create user",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("getting or creating user: %w", err)
	}

	if s.recorder != nil {
		s.recorder.ObserveGetOrCreate(created)
	}

	if created {
		s.logger.Info("user created",
			slog.Int64("id", user.ID),
			slog.String("name", user.Name),
		)
	} else {
		s.logger.Debug("user found",
			slog.Int64("id", user.ID),
			slog.String("name", user.Name),
		)
	}

	return user, created, nil
}

// List returns every user. No pagination: the result is unbounded.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	var users []model.User

	err := s.runner.Do(ctx, func(ctx context.Context) error {
		var err error
		users, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return users, nil
}
