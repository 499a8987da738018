package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/userbook/internal/apperror"
	"github.com/sakif/userbook/internal/model"
	"github.com/sakif/userbook/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// FindByName returns the row whose name matches exactly.
//
// ORDER BY id:
// Names are not UNIQUE at the schema level, and files written by older,
// non-atomic writers can hold duplicates. ORDER BY id makes the choice
// deterministic: the oldest row wins. InsertIfAbsent never creates a
// duplicate, so on files written only by this service there is at most one.
func (db *DB) FindByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, address, date_created
		 FROM users WHERE name = ?
		 ORDER BY id LIMIT 1`,
		name,
	).Scan(&u.ID, &u.Name, &u.Address, &u.DateCreated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", name)
		}
		return nil, fmt.Errorf("sqlite: finding user %q: %w", name, err)
	}

	return &u, nil
}

// InsertIfAbsent inserts user unless a row with the same name exists.
//
// WHY ONE STATEMENT?
// A separate "SELECT then INSERT" lets two concurrent callers both miss the
// lookup and both insert. Here the existence check and the insert are the
// same statement. SQLite takes the write lock before an INSERT starts
// reading, so no other writer can slip in between the NOT EXISTS and the
// insert. Whoever loses the race sees RowsAffected() == 0.
//
// user.DateCreated must already be set; the repository does not own the clock.
func (db *DB) InsertIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, address, date_created)
		 SELECT ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM users WHERE name = ?)`,
		user.Name,
		user.Address,
		user.DateCreated,
		user.Name,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting user %q: %w", user.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: reading rows affected for %q: %w", user.Name, err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("sqlite: reading id for %q: %w", user.Name, err)
	}
	user.ID = id

	return true, nil
}

// List returns every user in storage-default order.
//
// There is deliberately no ORDER BY and no LIMIT. The slice is initialised
// non-nil so an empty table encodes as [] rather than null.
//
// ALWAYS CLOSE ROWS:
// *sql.Rows pins a pooled connection until it is closed. The defer returns
// the connection on every path, including a Scan error halfway through.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, address, date_created FROM users`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Address, &u.DateCreated); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}

	// rows.Err() reports errors that ended iteration early.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}
