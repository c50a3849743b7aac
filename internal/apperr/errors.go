// Package apperr defines the error taxonomy shared by the store and its callers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	ErrNotAFile             = errors.New("not a file")
	ErrUnreadableTitle      = errors.New("unreadable title")
	ErrMalformedFrontmatter = errors.New("malformed frontmatter: unterminated block")
	ErrFrontmatterParse     = errors.New("frontmatter parse error")
	ErrMetadataUnavailable  = errors.New("metadata unavailable")
	ErrBackupIO             = errors.New("backup failed")
)

// FrontmatterParseError reports a terminated frontmatter block whose content
// could not be decoded.
type FrontmatterParseError struct {
	Err error
}

func (e *FrontmatterParseError) Error() string {
	return ErrFrontmatterParse.Error() + ": " + e.Err.Error()
}

func (e *FrontmatterParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFrontmatterParse) match without losing the cause.
func (e *FrontmatterParseError) Is(target error) bool {
	return target == ErrFrontmatterParse
}
