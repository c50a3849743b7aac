package query

import (
	"strconv"
	"strings"
	"time"
)

var dateSeparators = []string{"-", "/", "."}

// Tokenize splits q on ASCII whitespace and classifies each chunk on its own.
// Order and duplicates are preserved.
func Tokenize(q string) []Token {
	chunks := strings.FieldsFunc(q, isASCIISpace)
	tokens := make([]Token, 0, len(chunks))
	for _, chunk := range chunks {
		tokens = append(tokens, classify(chunk))
	}
	return tokens
}

func classify(chunk string) Token {
	if kind, ok := keywords[chunk]; ok {
		return Token{Kind: kind}
	}
	switch chunk {
	case "true":
		return Token{Kind: Boolean, Bool: true}
	case "false":
		return Token{Kind: Boolean, Bool: false}
	}
	if d, ok := parseDate(chunk); ok {
		return Token{Kind: DateLit, Date: d}
	}
	return Token{Kind: String, Text: chunk}
}

// parseDate accepts month-day-year with one of the separators. Chunks that
// split into three integers but name no real day are not dates.
func parseDate(chunk string) (Date, bool) {
	for _, sep := range dateSeparators {
		parts := strings.Split(chunk, sep)
		if len(parts) != 3 {
			continue
		}
		var nums [3]int
		valid := true
		for i, p := range parts {
			n, err := strconv.ParseInt(p, 10, 32)
			if err != nil {
				valid = false
				break
			}
			nums[i] = int(n)
		}
		if !valid {
			continue
		}
		if d, ok := NewDate(nums[2], time.Month(nums[0]), nums[1]); ok {
			return d, true
		}
	}
	return Date{}, false
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
