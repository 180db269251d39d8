package dbxfiles

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// maxTagDepth bounds the walk through nested error unions.
const maxTagDepth = 16

// ErrorRule maps a tag path pattern onto an error constructor.
//
// Patterns are "/"-joined tags as they appear in the error payload, outermost first. A "*" segment matches
// any single tag and a trailing "**" matches whatever is left, including nothing. The tags matched by "**"
// become the error's Reason.
type ErrorRule struct {
	Pattern string
	New     func(ErrorContext) error
}

// ErrorTable is an ordered list of rules; the first matching rule wins.
type ErrorTable []ErrorRule

// Extend returns a new table that tries rules before the ones in t.
func (t ErrorTable) Extend(rules ...ErrorRule) ErrorTable {
	out := make(ErrorTable, 0, len(rules)+len(t))
	out = append(out, rules...)
	return append(out, t...)
}

// Lookup returns the first rule matching tags and the tags left over for Reason.
func (t ErrorTable) Lookup(tags []string) (ErrorRule, []string, bool) {
	for _, rule := range t {
		if rest, ok := matchPattern(rule.Pattern, tags); ok {
			return rule, rest, true
		}
	}
	return ErrorRule{}, nil, false
}

func matchPattern(pattern string, tags []string) ([]string, bool) {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if seg == "**" && i == len(segments)-1 {
			return tags[i:], true
		}
		if i >= len(tags) {
			return nil, false
		}
		if seg != "*" && seg != tags[i] {
			return nil, false
		}
	}
	if len(tags) != len(segments) {
		return nil, false
	}
	return nil, true
}

func rule(pattern string, fn func(ErrorContext) error) ErrorRule {
	return ErrorRule{Pattern: pattern, New: fn}
}

func newNotFound(c ErrorContext) error        { return &NotFoundError{c} }
func newMalformedPath(c ErrorContext) error   { return &MalformedPathError{c} }
func newConflict(c ErrorContext) error        { return &FileConflictError{c} }
func newNotFile(c ErrorContext) error         { return &NotFileError{c} }
func newNotFolder(c ErrorContext) error       { return &NotFolderError{c} }
func newRestricted(c ErrorContext) error      { return &RestrictedContentError{c} }
func newNoWrite(c ErrorContext) error         { return &NoWritePermissionError{c} }
func newNoSpace(c ErrorContext) error         { return &InsufficientSpaceError{c} }
func newDisallowed(c ErrorContext) error      { return &DisallowedNameError{c} }
func newTooManyWrites(c ErrorContext) error   { return &TooManyWriteOperationsError{c} }
func newInvalidRevision(c ErrorContext) error { return &InvalidRevisionError{c} }
func newReset(c ErrorContext) error           { return &ResetError{c} }
func newUnsupported(c ErrorContext) error     { return &UnsupportedContentError{c} }

// BaseErrors applies to every route that has an error union.
var BaseErrors = ErrorTable{
	rule("*/not_found", newNotFound),
	rule("*/malformed_path", newMalformedPath),
	rule("*/conflict/**", newConflict),
	rule("*/not_file", newNotFile),
	rule("*/not_folder", newNotFolder),
	rule("*/restricted_content", newRestricted),
	rule("*/no_write_permission", newNoWrite),
	rule("*/insufficient_space", newNoSpace),
	rule("*/disallowed_name", newDisallowed),
	rule("*/too_many_write_operations", newTooManyWrites),
	rule("too_many_write_operations", newTooManyWrites),
	rule("insufficient_space", newNoSpace),
}

var routeErrors = map[string]ErrorTable{
	routeRestore:            BaseErrors.Extend(rule("invalid_revision", newInvalidRevision)),
	routeListFolderContinue: BaseErrors.Extend(rule("reset", newReset)),
	routeGetThumbnail:       BaseErrors.Extend(unsupportedRules...),
	routeGetPreview:         BaseErrors.Extend(unsupportedRules...),
	routeListFolderLongpoll: nil,
}

var unsupportedRules = []ErrorRule{
	rule("unsupported_extension", newUnsupported),
	rule("unsupported_image", newUnsupported),
	rule("unsupported_content", newUnsupported),
	rule("conversion_error", newUnsupported),
	rule("in_progress", newUnsupported),
}

// ErrorsFor returns the table used for route. Routes with no error union, like
// files/list_folder/longpoll, get a nil table and every failure becomes an *HTTPError.
func ErrorsFor(route string) ErrorTable {
	if table, ok := routeErrors[route]; ok {
		return table
	}
	return BaseErrors
}

type errorBody struct {
	Summary    string          `json:"error_summary"`
	Error      json.RawMessage `json:"error"`
	RetryAfter *float64        `json:"retry_after"`
}

// DecodeErrorResponse turns a failed response into one typed error. 401 becomes *AuthError and 429
// *RateLimitError whatever the table says; a 5xx status, a body that is not a JSON error union, or a
// tag path the table does not know becomes *HTTPError carrying the status and the raw body.
func DecodeErrorResponse(op string, paths []string, status int, body []byte, rules ErrorTable) error {
	c := ErrorContext{Op: op, Paths: paths, StatusCode: status}

	var payload errorBody
	structured := json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0
	if structured {
		c.Summary = strings.TrimSpace(payload.Summary)
		c.Tags = tagPath(payload.Error)
	}

	if rules == nil || status >= http.StatusInternalServerError {
		return &HTTPError{ErrorContext: c, Body: body}
	}

	switch status {
	case http.StatusUnauthorized:
		c.Reason = strings.Join(c.Tags, "/")
		return &AuthError{c}
	case http.StatusTooManyRequests:
		c.Reason = strings.Join(c.Tags, "/")
		return &RateLimitError{ErrorContext: c, RetryAfter: retryAfter(payload)}
	}

	if !structured || len(c.Tags) == 0 {
		return &HTTPError{ErrorContext: c, Body: body}
	}

	matched, rest, ok := rules.Lookup(c.Tags)
	if !ok {
		return &HTTPError{ErrorContext: c, Body: body}
	}
	c.Reason = strings.Join(rest, "/")
	return matched.New(c)
}

// tagPath follows ".tag" through the union, descending into the member named by each tag. Struct members
// are inlined next to their ".tag", so when no field is named after the tag the walk continues through
// "reason" (upload and rate limit errors) in the same object.
func tagPath(node json.RawMessage) []string {
	var tags []string
	for len(tags) < maxTagDepth {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(node, &obj); err != nil {
			break
		}

		var tag string
		if raw, ok := obj[".tag"]; ok && json.Unmarshal(raw, &tag) == nil && tag != "" {
			tags = append(tags, tag)
			if next, ok := obj[tag]; ok {
				node = next
				continue
			}
		}

		reason, ok := obj["reason"]
		if !ok {
			break
		}
		node = reason
	}
	return tags
}

func retryAfter(payload errorBody) time.Duration {
	seconds := payload.RetryAfter
	if seconds == nil && len(payload.Error) > 0 {
		var nested struct {
			RetryAfter *float64 `json:"retry_after"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil {
			seconds = nested.RetryAfter
		}
	}
	if seconds == nil || *seconds <= 0 {
		return 0
	}
	return time.Duration(*seconds * float64(time.Second))
}

func transportError(op string, paths []string, err error) error {
	return &HTTPError{ErrorContext: ErrorContext{Op: op, Paths: paths}, Err: err}
}
