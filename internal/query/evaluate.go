package query

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/thoughts/internal/models"
)

// Evaluate keeps the entries matching every predicate and returns them sorted
// ascending by creation time. Entries with equal timestamps keep their input
// order. The input slice is not modified.
func Evaluate(entries []models.Entry, preds []Predicate) []models.Entry {
	out := slices.Clone(entries)
	for _, p := range preds {
		out = slices.DeleteFunc(out, func(e models.Entry) bool {
			return !p.Match(e)
		})
	}
	slices.SortStableFunc(out, func(a, b models.Entry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// Search tokenizes, parses and evaluates q against entries.
func Search(entries []models.Entry, q string) []models.Entry {
	return Evaluate(entries, Parse(Tokenize(q)))
}

// Match reports whether e satisfies p. An operand of the wrong kind never matches.
func (p Predicate) Match(e models.Entry) bool {
	switch p.Op {
	case Favorite:
		return p.Operand.Kind == Boolean && e.Favorite == p.Operand.Bool

	case Contains:
		return p.Operand.Kind == String && containsFold(e.Body, p.Operand.Text)

	case InTitle:
		return p.Operand.Kind == String && containsFold(e.Title, p.Operand.Text)

	case StartsWith:
		return p.Operand.Kind == String &&
			strings.HasPrefix(strings.ToLower(e.Title), strings.ToLower(p.Operand.Text))

	case Before, During, After:
		if p.Operand.Kind != DateLit {
			return false
		}
		c := entryDate(e).Compare(p.Operand.Date)
		switch p.Op {
		case Before:
			return c < 0
		case During:
			return c == 0
		default:
			return c > 0
		}

	case ID:
		return p.Operand.Kind == String && matchID(e, p.Operand.Text)
	}
	return false
}

func entryDate(e models.Entry) Date {
	return DateOf(e.CreatedAt.In(time.Local))
}

// matchID parses the operand as the entry's identifier type: numeric ids
// compare as integers, path ids compare as text.
func matchID(e models.Entry, operand string) bool {
	if id, ok := e.NumericID(); ok {
		n, err := strconv.ParseInt(operand, 10, 64)
		return err == nil && n == id
	}
	return operand == e.ID
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
