// Package model defines the data structures used throughout the application.
package model

import "time"

// DateCreatedLayout is the fixed layout for User.DateCreated.
//
// WHY A STRING AND NOT time.Time?
// The column is TEXT and existing database files already hold values in this
// layout. Keeping the rendered string as the source of truth means a row
// read back from storage is byte-for-byte what was written, so clients can
// compare date_created across calls without worrying about time zones or
// precision being normalised on the way through.
//
// The layout is locale-naive (no zone suffix) and rendered from the server's
// local wall clock.
const DateCreatedLayout = "2006-01-02 15:04:05.000000000"

// User is a row in the users table.
//
// ID is assigned by storage (INTEGER PRIMARY KEY AUTOINCREMENT) and never
// changes. Name is the find-or-create key. Rows are never updated, so
// Address and DateCreated always hold whatever the first successful create
// supplied.
type User struct {
	ID          int64  `json:"id"           db:"id"`
	Name        string `json:"name"         db:"name"`
	Address     string `json:"address"      db:"address"`
	DateCreated string `json:"date_created" db:"date_created"`
}

// FormatDateCreated renders t in local time using DateCreatedLayout.
func FormatDateCreated(t time.Time) string {
	return t.Local().Format(DateCreatedLayout)
}
