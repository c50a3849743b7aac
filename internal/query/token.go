// Package query implements the search language typed into the single input line:
// a tokenizer, a single-pass parser producing predicates, and an evaluator
// that filters and orders entries.
package query

import (
	"fmt"
	"time"
)

// Kind tags the variant held by a Token.
type Kind uint8

// Operand kinds carry a value; the remaining kinds are keyword markers.
const (
	Boolean Kind = iota
	String
	DateLit

	Favorite
	Before
	During
	After
	Contains
	InTitle
	StartsWith
	ID
)

var kindNames = [...]string{
	Boolean:    "Boolean",
	String:     "String",
	DateLit:    "Date",
	Favorite:   "Favorite",
	Before:     "Before",
	During:     "During",
	After:      "After",
	Contains:   "Contains",
	InTitle:    "InTitle",
	StartsWith: "StartsWith",
	ID:         "Id",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// keywords maps the literal marker chunks to their kinds. InTitle has no
// literal marker.
var keywords = map[string]Kind{
	"favorite:":   Favorite,
	"before:":     Before,
	"during:":     During,
	"after:":      After,
	"contains:":   Contains,
	"startswith:": StartsWith,
	"id:":         ID,
}

// Token is one classified chunk of a query. Only the field matching Kind is set.
type Token struct {
	Kind Kind
	Bool bool
	Text string
	Date Date
}

func (t Token) String() string {
	switch t.Kind {
	case Boolean:
		return fmt.Sprintf("Boolean(%t)", t.Bool)
	case String:
		return fmt.Sprintf("String(%q)", t.Text)
	case DateLit:
		return "Date(" + t.Date.String() + ")"
	default:
		return t.Kind.String()
	}
}

// Date is a calendar date without time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y-m-d as a real calendar date.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Compare returns -1, 0 or +1 as d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", int(d.Month), d.Day, d.Year)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
