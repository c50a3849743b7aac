package mcpserver

// QuerySyntax describes the query language accepted by search_entries.
const QuerySyntax = `# Thoughts Query Syntax

A query is a whitespace-separated list of words. Every clause must match for
an entry to be returned; results are ordered oldest first.

## Clauses

| Clause                   | Matches entries                                    |
|--------------------------|----------------------------------------------------|
| ` + "`favorite: true`" + `         | marked favorite (` + "`false`" + ` for the rest)              |
| ` + "`before: MM-DD-YYYY`" + `     | created strictly before the date                   |
| ` + "`during: MM-DD-YYYY`" + `     | created on the date                                |
| ` + "`after: MM-DD-YYYY`" + `      | created strictly after the date                    |
| ` + "`contains: word`" + `         | whose body contains the word (case-insensitive)    |
| ` + "`startswith: word`" + `       | whose title starts with the word                   |
| ` + "`id: 12`" + `                 | with exactly this identifier                       |
| ` + "`word`" + `                   | whose title contains the word (case-insensitive)   |

Dates may use ` + "`-`" + `, ` + "`/`" + ` or ` + "`.`" + ` as separators and are compared in local time.
A bare ` + "`true`" + ` or ` + "`false`" + ` searches the body for that word.

## Forgiving parsing

Queries never fail. A keyword without a usable operand ends the query, and
everything before it still applies:

- ` + "`hello favorite:`" + ` is the same as ` + "`hello`" + `.
- ` + "`before: soon`" + ` matches every entry.
- An empty query matches every entry.
`
