package dbxfiles

import (
	"encoding/json"
	"errors"
	"time"
)

var errMissingCursor = errors.New("listing has no cursor")

// ListFolderResult is one page of a folder listing.
type ListFolderResult struct {
	// Entries are in the order the service returned them.
	Entries []Metadata
	// Cursor continues the listing, or watches it for changes once HasMore is false. Never empty.
	Cursor string
	// HasMore reports whether ListFolderContinue(Cursor) has more entries right now.
	HasMore bool
}

// ListFolderLongpollResult is the outcome of a long-poll.
type ListFolderLongpollResult struct {
	// Changes reports whether the listing behind the cursor changed.
	Changes bool
	// Backoff is how long the service asks the caller to wait before polling again, zero if it did not say.
	Backoff time.Duration
}

// ListFolderGetLatestCursorResult carries a change watermark for a folder.
type ListFolderGetLatestCursorResult struct {
	Cursor string
}

// MatchType says which part of an entry matched a search.
type MatchType string

const (
	MatchFilename MatchType = "filename"
	MatchContent  MatchType = "content"
	MatchBoth     MatchType = "both"
)

// SearchMatch is one search hit.
type SearchMatch struct {
	Resource  Metadata
	MatchType MatchType
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Matches []SearchMatch
	// More reports whether another page exists; pass Start to SearchStart to fetch it.
	More  bool
	Start uint64
}

// ListRevisionsResult lists the revisions of a file, newest first.
type ListRevisionsResult struct {
	// IsDeleted reports whether the file is currently deleted.
	IsDeleted bool
	// ServerDeleted is when the file was deleted, nil if it was not.
	ServerDeleted *time.Time
	Entries       []*File
}

// GetTemporaryLinkResult is a short-lived direct download link.
type GetTemporaryLinkResult struct {
	File *File
	Link string
}

// UploadSessionCursor locates the end of the data sent so far in an upload session.
type UploadSessionCursor struct {
	SessionID string `json:"session_id"`
	Offset    uint64 `json:"offset"`
}

func unmarshalResult(op string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func decodeEntries(op string, raw []json.RawMessage) ([]Metadata, error) {
	entries := make([]Metadata, 0, len(raw))
	for _, r := range raw {
		md, err := decodeMetadata(op, r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, md)
	}
	return entries, nil
}

func decodeListFolder(op string, raw []byte) (*ListFolderResult, error) {
	var wire struct {
		Entries []json.RawMessage `json:"entries"`
		Cursor  string            `json:"cursor"`
		HasMore bool              `json:"has_more"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}
	if wire.Cursor == "" {
		return nil, &DecodeError{Op: op, Err: errMissingCursor}
	}
	entries, err := decodeEntries(op, wire.Entries)
	if err != nil {
		return nil, err
	}
	return &ListFolderResult{Entries: entries, Cursor: wire.Cursor, HasMore: wire.HasMore}, nil
}

func decodeLongpoll(op string, raw []byte) (*ListFolderLongpollResult, error) {
	var wire struct {
		Changes bool    `json:"changes"`
		Backoff *uint64 `json:"backoff"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}
	result := &ListFolderLongpollResult{Changes: wire.Changes}
	if wire.Backoff != nil {
		result.Backoff = time.Duration(*wire.Backoff) * time.Second
	}
	return result, nil
}

func decodeLatestCursor(op string, raw []byte) (*ListFolderGetLatestCursorResult, error) {
	var wire struct {
		Cursor string `json:"cursor"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}
	if wire.Cursor == "" {
		return nil, &DecodeError{Op: op, Err: errMissingCursor}
	}
	return &ListFolderGetLatestCursorResult{Cursor: wire.Cursor}, nil
}

func decodeSearch(op string, raw []byte) (*SearchResult, error) {
	var wire struct {
		Matches []struct {
			MatchType struct {
				Tag string `json:".tag"`
			} `json:"match_type"`
			Metadata json.RawMessage `json:"metadata"`
		} `json:"matches"`
		More  bool   `json:"more"`
		Start uint64 `json:"start"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}

	result := &SearchResult{More: wire.More, Start: wire.Start, Matches: make([]SearchMatch, 0, len(wire.Matches))}
	for _, m := range wire.Matches {
		kind := MatchType(m.MatchType.Tag)
		switch kind {
		case MatchFilename, MatchContent, MatchBoth:
		default:
			return nil, &DecodeError{Op: op, Tag: m.MatchType.Tag, Err: errors.New("unknown match type")}
		}
		md, err := decodeMetadata(op, m.Metadata)
		if err != nil {
			return nil, err
		}
		result.Matches = append(result.Matches, SearchMatch{Resource: md, MatchType: kind})
	}
	return result, nil
}

func decodeRevisions(op string, raw []byte) (*ListRevisionsResult, error) {
	var wire struct {
		IsDeleted     bool              `json:"is_deleted"`
		ServerDeleted *time.Time        `json:"server_deleted"`
		Entries       []json.RawMessage `json:"entries"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}

	result := &ListRevisionsResult{
		IsDeleted:     wire.IsDeleted,
		ServerDeleted: wire.ServerDeleted,
		Entries:       make([]*File, 0, len(wire.Entries)),
	}
	for _, r := range wire.Entries {
		file, err := decodeFile(op, r)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, file)
	}
	return result, nil
}

func decodeTemporaryLink(op string, raw []byte) (*GetTemporaryLinkResult, error) {
	var wire struct {
		Metadata json.RawMessage `json:"metadata"`
		Link     string          `json:"link"`
	}
	if err := unmarshalResult(op, raw, &wire); err != nil {
		return nil, err
	}
	if wire.Link == "" {
		return nil, &DecodeError{Op: op, Err: errors.New("temporary link is empty")}
	}
	file, err := decodeFile(op, wire.Metadata)
	if err != nil {
		return nil, err
	}
	return &GetTemporaryLinkResult{File: file, Link: wire.Link}, nil
}

func decodeFolder(op string, raw []byte) (*Folder, error) {
	md, err := decodeMetadata(op, addTag(raw, TagFolder))
	if err != nil {
		return nil, err
	}
	folder, ok := md.(*Folder)
	if !ok {
		return nil, &DecodeError{Op: op, Tag: string(md.Tag()), Err: ErrNotFolder}
	}
	return folder, nil
}

// addTag supplies a ".tag" for routes whose result type is fixed and which therefore omit it.
func addTag(raw []byte, tag Tag) []byte {
	raw = unwrapMetadata(raw)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	if _, ok := obj[".tag"]; ok {
		return raw
	}
	obj[".tag"], _ = json.Marshal(string(tag))
	out, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return out
}
