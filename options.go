package dbxfiles

import (
	"errors"
	"fmt"
	"time"
)

// Option is a named argument of a files call. Each route accepts a fixed set of names; anything else
// fails with an *ArgumentError before a request is made.
type Option struct {
	name  string
	value any
}

// Name returns the wire name of the option, ie: include_deleted
func (o Option) Name() string { return o.name }

// Value returns the JSON value sent for the option.
func (o Option) Value() any { return o.value }

// RawOption builds an option from a wire name and value. It is still checked against the route's
// recognized options.
func RawOption(name string, value any) Option {
	return Option{name: name, value: value}
}

// IncludeMediaInfo asks for photo and video media info on files.
func IncludeMediaInfo(include bool) Option { return Option{"include_media_info", include} }

// IncludeDeleted asks for Deleted entries instead of not_found errors for removed paths.
func IncludeDeleted(include bool) Option { return Option{"include_deleted", include} }

// IncludeHasExplicitSharedMembers asks whether files have members shared with them explicitly.
func IncludeHasExplicitSharedMembers(include bool) Option {
	return Option{"include_has_explicit_shared_members", include}
}

// Recursive lists every descendant of the folder, not just its children.
func Recursive(recursive bool) Option { return Option{"recursive", recursive} }

// Autorename lets the service pick a free name instead of failing with a conflict.
func Autorename(autorename bool) Option { return Option{"autorename", autorename} }

// Mute keeps the service from notifying the user's devices about an upload.
func Mute(mute bool) Option { return Option{"mute", mute} }

// ClientModified records the caller's modification time for an upload. Sub-second precision is dropped.
func ClientModified(t time.Time) Option {
	return Option{"client_modified", t.UTC().Format(timestampLayout)}
}

// WriteModeAdd never overwrites; an existing file is a conflict (or a rename with Autorename).
func WriteModeAdd() Option { return Option{"mode", map[string]any{".tag": "add"}} }

// WriteModeOverwrite replaces whatever is at the path.
func WriteModeOverwrite() Option { return Option{"mode", map[string]any{".tag": "overwrite"}} }

// WriteModeUpdate overwrites only if the current revision is rev.
func WriteModeUpdate(rev string) Option {
	return Option{"mode", map[string]any{".tag": "update", "update": rev}}
}

// ImageFormat is the encoding of a thumbnail.
type ImageFormat string

const (
	ImageJPEG ImageFormat = "jpeg"
	ImagePNG  ImageFormat = "png"
)

// ImageSize is the bounding box of a thumbnail.
type ImageSize string

const (
	SizeW32H32     ImageSize = "w32h32"
	SizeW64H64     ImageSize = "w64h64"
	SizeW128H128   ImageSize = "w128h128"
	SizeW256H256   ImageSize = "w256h256"
	SizeW480H320   ImageSize = "w480h320"
	SizeW640H480   ImageSize = "w640h480"
	SizeW960H640   ImageSize = "w960h640"
	SizeW1024H768  ImageSize = "w1024h768"
	SizeW2048H1536 ImageSize = "w2048h1536"
)

// ThumbnailFormat sets the thumbnail encoding. The service defaults to jpeg.
func ThumbnailFormat(format ImageFormat) Option { return Option{"format", string(format)} }

// ThumbnailSize sets the thumbnail size. The service defaults to w64h64.
func ThumbnailSize(size ImageSize) Option { return Option{"size", string(size)} }

// SearchScope selects what a search looks at.
type SearchScope string

const (
	ScopeFilename           SearchScope = "filename"
	ScopeFilenameAndContent SearchScope = "filename_and_content"
	ScopeDeletedFilename    SearchScope = "deleted_filename"
)

// SearchStart skips the first start matches.
func SearchStart(start uint64) Option { return Option{"start", start} }

// SearchMaxResults caps the number of matches in one page, 1 to 1000.
func SearchMaxResults(n uint64) Option { return Option{"max_results", n} }

// SearchMode selects what the search looks at.
func SearchMode(scope SearchScope) Option { return Option{"mode", string(scope)} }

// RevisionLimit caps the number of revisions returned, 1 to 100.
func RevisionLimit(n uint64) Option { return Option{"limit", n} }

const timestampLayout = "2006-01-02T15:04:05Z"

type checker func(any) error

type recognized map[string]checker

var (
	metadataOptions = recognized{
		"include_media_info":                  isBool,
		"include_deleted":                     isBool,
		"include_has_explicit_shared_members": isBool,
	}
	listFolderOptions = recognized{
		"recursive":                           isBool,
		"include_media_info":                  isBool,
		"include_deleted":                     isBool,
		"include_has_explicit_shared_members": isBool,
	}
	thumbnailOptions = recognized{
		"format": isOneOf(ImageJPEG, ImagePNG),
		"size": isOneOf(SizeW32H32, SizeW64H64, SizeW128H128, SizeW256H256, SizeW480H320, SizeW640H480,
			SizeW960H640, SizeW1024H768, SizeW2048H1536),
	}
	relocationOptions = recognized{
		"autorename": isBool,
	}
	uploadOptions = recognized{
		"mode":            isWriteMode,
		"autorename":      isBool,
		"client_modified": isTimestamp,
		"mute":            isBool,
	}
	searchOptions = recognized{
		"start":       isUint(0, 0),
		"max_results": isUint(1, 1000),
		"mode":        isOneOf(ScopeFilename, ScopeFilenameAndContent, ScopeDeletedFilename),
	}
	revisionOptions = recognized{
		"limit": isUint(1, 100),
	}
	noOptions = recognized{}
)

var routeOptions = map[string]recognized{
	routeGetMetadata:               metadataOptions,
	routeGetThumbnail:              thumbnailOptions,
	routeListFolder:                listFolderOptions,
	routeListFolderGetLatestCursor: listFolderOptions,
	routeCopy:                      relocationOptions,
	routeMove:                      relocationOptions,
	routeCreateFolder:              relocationOptions,
	routeUpload:                    uploadOptions,
	routeUploadSessionFinish:       uploadOptions,
	routeSearch:                    searchOptions,
	routeListRevisions:             revisionOptions,
}

// buildArgs merges opts into base after checking each against route's recognized set.
func buildArgs(route string, base map[string]any, opts []Option) (map[string]any, error) {
	allowed, ok := routeOptions[route]
	if !ok {
		allowed = noOptions
	}

	args := make(map[string]any, len(base)+len(opts))
	for k, v := range base {
		args[k] = v
	}
	for _, opt := range opts {
		check, ok := allowed[opt.name]
		if !ok {
			return nil, &ArgumentError{Op: route, Option: opt.name, Message: "not a recognized option"}
		}
		if err := check(opt.value); err != nil {
			return nil, &ArgumentError{Op: route, Option: opt.name, Message: err.Error()}
		}
		args[opt.name] = opt.value
	}
	return args, nil
}

func isBool(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("must be a bool, got %T", v)
	}
	return nil
}

func isOneOf[T ~string](values ...T) checker {
	return func(v any) error {
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case T:
			s = string(x)
		default:
			return fmt.Errorf("must be a string, got %T", v)
		}
		for _, allowed := range values {
			if s == string(allowed) {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %v", s, values)
	}
}

// isUint accepts any non-negative integer within [lo, hi]; hi of 0 means unbounded.
func isUint(lo, hi uint64) checker {
	return func(v any) error {
		var n uint64
		switch x := v.(type) {
		case uint64:
			n = x
		case uint:
			n = uint64(x)
		case uint32:
			n = uint64(x)
		case int:
			if x < 0 {
				return fmt.Errorf("must not be negative, got %d", x)
			}
			n = uint64(x)
		case int64:
			if x < 0 {
				return fmt.Errorf("must not be negative, got %d", x)
			}
			n = uint64(x)
		case int32:
			if x < 0 {
				return fmt.Errorf("must not be negative, got %d", x)
			}
			n = uint64(x)
		default:
			return fmt.Errorf("must be an integer, got %T", v)
		}
		if n < lo || (hi > 0 && n > hi) {
			return fmt.Errorf("%d is out of range", n)
		}
		return nil
	}
}

func isTimestamp(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("must be a timestamp string, got %T", v)
	}
	if _, err := time.Parse(timestampLayout, s); err != nil {
		return fmt.Errorf("must look like %s: %w", timestampLayout, err)
	}
	return nil
}

func isWriteMode(v any) error {
	switch x := v.(type) {
	case string:
		if x == "add" || x == "overwrite" {
			return nil
		}
		return fmt.Errorf("%q is not a write mode", x)
	case map[string]any:
		switch x[".tag"] {
		case "add", "overwrite":
			return nil
		case "update":
			if rev, ok := x["update"].(string); ok && rev != "" {
				return nil
			}
			return errors.New("update mode needs a revision")
		}
		return fmt.Errorf("%v is not a write mode", x[".tag"])
	default:
		return fmt.Errorf("must be a write mode, got %T", v)
	}
}
