package dbxfiles

import (
	"fmt"
	"strings"
	"time"
)

// Error is a type that allows for error constants below
type Error string

// Error returns a string representation of the error
func (e Error) Error() string { return string(e) }

const (
	// ErrNotFound - the path (or one of the paths) does not exist
	ErrNotFound = Error("path not found")

	// ErrMalformedPath - the service rejected the shape of the path
	ErrMalformedPath = Error("malformed path")

	// ErrConflict - something already exists where the call wanted to write
	ErrConflict = Error("conflict")

	// ErrInvalidRevision - the revision does not belong to the path
	ErrInvalidRevision = Error("invalid revision")

	// ErrReset - the listing cursor is expired or belongs to another listing and must be discarded
	ErrReset = Error("cursor reset")

	// ErrNotFile - a file was expected but the path is a folder
	ErrNotFile = Error("not a file")

	// ErrNotFolder - a folder was expected but the path is a file
	ErrNotFolder = Error("not a folder")

	// ErrRestrictedContent - the content cannot be accessed for legal reasons
	ErrRestrictedContent = Error("restricted content")

	// ErrNoWritePermission - the user cannot write to the target
	ErrNoWritePermission = Error("no write permission")

	// ErrInsufficientSpace - the account has no room left for the write
	ErrInsufficientSpace = Error("insufficient space")

	// ErrDisallowedName - the service does not allow the name
	ErrDisallowedName = Error("disallowed name")

	// ErrTooManyWriteOperations - concurrent writes in the namespace collided; retry later
	ErrTooManyWriteOperations = Error("too many write operations")

	// ErrUnsupportedContent - no preview or thumbnail can be produced for the file
	ErrUnsupportedContent = Error("unsupported content")

	// ErrAuth - the credentials were rejected
	ErrAuth = Error("authentication failed")

	// ErrRateLimit - the caller is being rate limited
	ErrRateLimit = Error("rate limited")

	// ErrHTTP - the service returned a failure that has no more specific meaning, or the exchange failed
	ErrHTTP = Error("http error")

	// ErrInvalidArgument - the call was rejected locally and never sent
	ErrInvalidArgument = Error("invalid argument")

	// ErrDecode - the service returned a payload this client does not understand
	ErrDecode = Error("unrecognized response")

	// ErrExecutorRequired - a Client needs an Executor
	ErrExecutorRequired = Error("an executor is required")
)

// ErrorContext is the information shared by every service-reported error.
type ErrorContext struct {
	// Op is the route that failed, ie: files/copy
	Op string
	// Paths are the path arguments of the call, in argument order.
	Paths []string
	// StatusCode is the HTTP status of the failed response.
	StatusCode int
	// Summary is the service's error_summary, when present.
	Summary string
	// Tags is the tag path walked through the error payload, outermost first.
	Tags []string
	// Reason is the most specific sub-reason under the matched tag, ie: "file" for a conflict with a file.
	Reason string
}

func (c ErrorContext) describe(kind Error) string {
	var b strings.Builder
	b.WriteString(c.Op)
	if len(c.Paths) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(c.Paths, " -> "))
	}
	b.WriteString(": ")
	b.WriteString(kind.Error())
	if c.Reason != "" {
		b.WriteString(" (")
		b.WriteString(c.Reason)
		b.WriteString(")")
	}
	switch {
	case c.Summary != "":
		b.WriteString(" [")
		b.WriteString(c.Summary)
		b.WriteString("]")
	case len(c.Tags) > 0:
		b.WriteString(" [")
		b.WriteString(strings.Join(c.Tags, "/"))
		b.WriteString("]")
	}
	return b.String()
}

// Tag returns the tag path as the service spells it, ie: path/conflict/file
func (c ErrorContext) Tag() string {
	return strings.Join(c.Tags, "/")
}

// NotFoundError is returned when a path does not resolve to anything.
type NotFoundError struct{ ErrorContext }

func (e *NotFoundError) Error() string        { return e.describe(ErrNotFound) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedPathError is returned when the service rejects a path's shape.
type MalformedPathError struct{ ErrorContext }

func (e *MalformedPathError) Error() string        { return e.describe(ErrMalformedPath) }
func (e *MalformedPathError) Is(target error) bool { return target == ErrMalformedPath }

// FileConflictError is returned when a write collides with an existing entry. Reason holds the kind of
// entry in the way: file, folder or file_ancestor.
type FileConflictError struct{ ErrorContext }

func (e *FileConflictError) Error() string        { return e.describe(ErrConflict) }
func (e *FileConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidRevisionError is returned by restore when the revision is not one of the path's revisions.
type InvalidRevisionError struct{ ErrorContext }

func (e *InvalidRevisionError) Error() string        { return e.describe(ErrInvalidRevision) }
func (e *InvalidRevisionError) Is(target error) bool { return target == ErrInvalidRevision }

// ResetError is returned by list_folder/continue when the cursor can no longer be used. The listing
// has to be restarted with ListFolder.
type ResetError struct{ ErrorContext }

func (e *ResetError) Error() string        { return e.describe(ErrReset) }
func (e *ResetError) Is(target error) bool { return target == ErrReset }

// NotFileError is returned when a file operation targets a folder.
type NotFileError struct{ ErrorContext }

func (e *NotFileError) Error() string        { return e.describe(ErrNotFile) }
func (e *NotFileError) Is(target error) bool { return target == ErrNotFile }

// NotFolderError is returned when a folder operation targets a file.
type NotFolderError struct{ ErrorContext }

func (e *NotFolderError) Error() string        { return e.describe(ErrNotFolder) }
func (e *NotFolderError) Is(target error) bool { return target == ErrNotFolder }

// RestrictedContentError is returned when the content is blocked from the operation.
type RestrictedContentError struct{ ErrorContext }

func (e *RestrictedContentError) Error() string        { return e.describe(ErrRestrictedContent) }
func (e *RestrictedContentError) Is(target error) bool { return target == ErrRestrictedContent }

// NoWritePermissionError is returned when the user cannot write at the target path.
type NoWritePermissionError struct{ ErrorContext }

func (e *NoWritePermissionError) Error() string        { return e.describe(ErrNoWritePermission) }
func (e *NoWritePermissionError) Is(target error) bool { return target == ErrNoWritePermission }

// InsufficientSpaceError is returned when the account is full.
type InsufficientSpaceError struct{ ErrorContext }

func (e *InsufficientSpaceError) Error() string        { return e.describe(ErrInsufficientSpace) }
func (e *InsufficientSpaceError) Is(target error) bool { return target == ErrInsufficientSpace }

// DisallowedNameError is returned when the service refuses a file or folder name.
type DisallowedNameError struct{ ErrorContext }

func (e *DisallowedNameError) Error() string        { return e.describe(ErrDisallowedName) }
func (e *DisallowedNameError) Is(target error) bool { return target == ErrDisallowedName }

// TooManyWriteOperationsError is returned when concurrent writes in the same namespace collided.
type TooManyWriteOperationsError struct{ ErrorContext }

func (e *TooManyWriteOperationsError) Error() string { return e.describe(ErrTooManyWriteOperations) }
func (e *TooManyWriteOperationsError) Is(target error) bool {
	return target == ErrTooManyWriteOperations
}

// UnsupportedContentError is returned by preview and thumbnail routes when nothing can be rendered.
type UnsupportedContentError struct{ ErrorContext }

func (e *UnsupportedContentError) Error() string        { return e.describe(ErrUnsupportedContent) }
func (e *UnsupportedContentError) Is(target error) bool { return target == ErrUnsupportedContent }

// AuthError is returned for 401 responses. Reason holds the service's tag, ie: expired_access_token
type AuthError struct{ ErrorContext }

func (e *AuthError) Error() string        { return e.describe(ErrAuth) }
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// RateLimitError is returned for 429 responses.
type RateLimitError struct {
	ErrorContext
	// RetryAfter is how long the service asked the caller to wait, zero when it did not say.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := e.describe(ErrRateLimit)
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s, retry after %s", msg, e.RetryAfter)
	}
	return msg
}
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimit }

// HTTPError is the catch-all failure: a status or payload with no more specific meaning, or a
// transport failure (StatusCode 0, Err set).
type HTTPError struct {
	ErrorContext
	// Body is the raw response body, kept so no information is lost.
	Body []byte
	// Err is the transport failure, if the exchange itself failed.
	Err error
}

func (e *HTTPError) Error() string {
	msg := e.describe(ErrHTTP)
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	case e.Summary == "" && len(e.Tags) == 0 && len(e.Body) > 0:
		return fmt.Sprintf("%s (status %d): %s", msg, e.StatusCode, strings.TrimSpace(string(e.Body)))
	default:
		return fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
}
func (e *HTTPError) Is(target error) bool { return target == ErrHTTP }
func (e *HTTPError) Unwrap() error        { return e.Err }

// ArgumentError is returned, before anything is sent, when a call's arguments are invalid.
type ArgumentError struct {
	// Op is the route the call was meant for.
	Op string
	// Option is the offending option name, empty when the problem is not an option.
	Option string
	// Message says what is wrong.
	Message string
}

func (e *ArgumentError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("%s: %s %q: %s", e.Op, ErrInvalidArgument, e.Option, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvalidArgument, e.Message)
}
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// DecodeError is returned when a successful response cannot be mapped onto the result model, for
// instance an entry with an unknown .tag.
type DecodeError struct {
	// Op is the route whose result failed to decode.
	Op string
	// Tag is the offending discriminator, if that was the problem.
	Tag string
	// Err is the underlying failure.
	Err error
}

func (e *DecodeError) Error() string {
	msg := ErrDecode.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Tag != "" {
		msg = fmt.Sprintf("%s: tag %q", msg, e.Tag)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
func (e *DecodeError) Unwrap() error        { return e.Err }
