// Package models defines the domain types for Thoughts.
package models

import (
	"strconv"
	"time"
)

// Entry is one stored note.
//
// ID is the stable handle assigned by the backend: the slash-separated path
// relative to the entries root for the file backend, the decimal row id for
// the SQLite backend.
type Entry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Favorite   bool      `json:"favorite"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Date formats the creation date as MM-DD-YYYY in local time.
func (e Entry) Date() string {
	return e.CreatedAt.Local().Format("01-02-2006")
}

// Time formats the creation time of day as hh:mmpm in local time.
func (e Entry) Time() string {
	return e.CreatedAt.Local().Format("03:04pm")
}

// NumericID returns the ID as an integer when the backend assigns numeric ids.
func (e Entry) NumericID() (int64, bool) {
	n, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
