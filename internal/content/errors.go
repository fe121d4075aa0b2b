package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedFrontMatter = errors.New("content: front matter block is missing or malformed")
	ErrInvalidDate          = errors.New("content: filename does not encode a valid calendar date")
	ErrInvalidSlug          = errors.New("content: slug contains invalid characters")
	ErrDuplicateSlug        = errors.New("content: duplicate slug")
	ErrContentDirUnreadable = errors.New("content: content directory is not readable")
)

// DuplicateSlugError reports two source documents competing for one permalink.
type DuplicateSlugError struct {
	Slug    string
	Sources []string
}

func (e *DuplicateSlugError) Error() string {
	if e == nil {
		return ErrDuplicateSlug.Error()
	}
	slug := strings.TrimSpace(e.Slug)
	if len(e.Sources) > 0 {
		return fmt.Sprintf("%s: slug=%s sources=%s", ErrDuplicateSlug.Error(), slug, strings.Join(e.Sources, ","))
	}
	return fmt.Sprintf("%s: slug=%s", ErrDuplicateSlug.Error(), slug)
}

func (e *DuplicateSlugError) Unwrap() error {
	return ErrDuplicateSlug
}

// ParseError annotates a per-document failure with its source path so build
// diagnostics can point at the offending file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "content: parse error"
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
