package models

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrUnknownRepo ErrorType = iota
	ErrAlreadyDefined
	ErrUnknownRepoType
	ErrMissingAttribute
	ErrDownload
	ErrUpload
	ErrInvalidCommand
	ErrStore
	ErrServe
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrUnknownRepo:
		return "UnknownRepo"
	case ErrAlreadyDefined:
		return "AlreadyDefined"
	case ErrUnknownRepoType:
		return "UnknownRepoType"
	case ErrMissingAttribute:
		return "MissingAttribute"
	case ErrDownload:
		return "Download"
	case ErrUpload:
		return "Upload"
	case ErrInvalidCommand:
		return "InvalidCommand"
	case ErrStore:
		return "Store"
	case ErrServe:
		return "Serve"
	default:
		return "Unknown"
	}
}

// RepoError represents an error raised while working with a repository
type RepoError struct {
	Type      ErrorType
	Repo      string
	Attribute string
	Err       error
}

// Error implements the error interface
func (e *RepoError) Error() string {
	switch {
	case e.Type == ErrMissingAttribute:
		return fmt.Sprintf("[%s] missing attribute %q on repository %q", e.Type, e.Attribute, e.Repo)
	case e.Repo != "" && e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Repo, e.Err)
	case e.Repo != "":
		return fmt.Sprintf("[%s] %s", e.Type, e.Repo)
	default:
		return fmt.Sprintf("[%s] %v", e.Type, e.Err)
	}
}

// Unwrap returns the wrapped error
func (e *RepoError) Unwrap() error {
	return e.Err
}

// NewError is a shorthand for a RepoError without an attribute
func NewError(t ErrorType, repo string, err error) *RepoError {
	return &RepoError{Type: t, Repo: repo, Err: err}
}

// MissingAttribute reports that a required attribute is not set
func MissingAttribute(repo, attribute string) *RepoError {
	return &RepoError{Type: ErrMissingAttribute, Repo: repo, Attribute: attribute}
}

// IsErrorType reports whether any RepoError in err's chain has type t
func IsErrorType(err error, t ErrorType) bool {
	var repoErr *RepoError
	for err != nil {
		if !errors.As(err, &repoErr) {
			return false
		}
		if repoErr.Type == t {
			return true
		}
		err = repoErr.Err
	}
	return false
}
