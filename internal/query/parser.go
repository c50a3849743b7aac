package query

import "strconv"

// Predicate is a resolved (operator, operand) filter pair.
type Predicate struct {
	Op      Kind
	Operand Token
}

func (p Predicate) String() string {
	return "(" + p.Op.String() + ", " + p.Operand.String() + ")"
}

// cursor walks a token sequence once. A consumed token is never revisited.
type cursor struct {
	tokens []Token
	pos    int
}

func (c *cursor) peek() (Token, bool) {
	if c.pos >= len(c.tokens) {
		return Token{}, false
	}
	return c.tokens[c.pos], true
}

func (c *cursor) next() (Token, bool) {
	t, ok := c.peek()
	if ok {
		c.pos++
	}
	return t, ok
}

// Parse turns tokens into predicates in one left-to-right pass. It never
// fails: operands of the wrong kind are dropped and a trailing keyword with
// no operand ends parsing with what has been collected so far.
func Parse(tokens []Token) []Predicate {
	c := &cursor{tokens: tokens}
	var out []Predicate

	for {
		lead, ok := c.next()
		if !ok {
			return out
		}

		switch lead.Kind {
		case Favorite:
			operand, ok := c.next()
			if !ok {
				return out
			}
			if operand.Kind == Boolean {
				out = append(out, Predicate{Op: Favorite, Operand: operand})
			}

		case Before, During, After:
			operand, ok := c.next()
			if !ok {
				return out
			}
			if operand.Kind == DateLit {
				out = append(out, Predicate{Op: lead.Kind, Operand: operand})
			}

		case Contains:
			operand, ok := c.next()
			if !ok {
				return out
			}
			if operand.Kind == String {
				out = append(out, Predicate{Op: Contains, Operand: operand})
			}

		case StartsWith, ID:
			operand, ok := c.next()
			if !ok {
				return out
			}
			out = append(out, Predicate{Op: lead.Kind, Operand: operand})

		case String, InTitle:
			// Bare text filters on the title.
			out = append(out, Predicate{Op: InTitle, Operand: lead})

		case Boolean:
			// A stray true/false is searched for as literal text.
			out = append(out, Predicate{
				Op:      Contains,
				Operand: Token{Kind: String, Text: strconv.FormatBool(lead.Bool)},
			})

		case DateLit:
			// Standalone dates carry no operator.
		}
	}
}
