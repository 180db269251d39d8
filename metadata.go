package dbxfiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Tag is the discriminator the service puts in ".tag" to say which kind of entry a payload describes.
type Tag string

const (
	// TagFile marks a File entry.
	TagFile Tag = "file"
	// TagFolder marks a Folder entry.
	TagFolder Tag = "folder"
	// TagDeleted marks a Deleted entry.
	TagDeleted Tag = "deleted"
)

var (
	errMissingTag  = errors.New("missing .tag")
	errMissingName = errors.New("entry has no name")
	errUnknownTag  = errors.New("unknown entry kind")
)

// Metadata is one entry of the files namespace. It is implemented by *File, *Folder and *Deleted only;
// callers type-switch on the concrete value:
//
//	switch m := md.(type) {
//	case *dbxfiles.File:
//		fmt.Println(m.Size)
//	case *dbxfiles.Folder, *dbxfiles.Deleted:
//	}
type Metadata interface {
	// Tag returns the entry's discriminator.
	Tag() Tag
	// Base returns the fields every kind of entry shares.
	Base() Entry

	isMetadata()
}

// Entry holds the fields shared by all kinds of Metadata.
type Entry struct {
	// Name is the last path component, never empty.
	Name string `json:"name"`
	// PathLower is the lowercased full path, when the caller can see it.
	PathLower string `json:"path_lower,omitempty"`
	// PathDisplay is the cased full path, when the caller can see it.
	PathDisplay string `json:"path_display,omitempty"`
	// ID is the stable identifier of the resource. Deleted entries carry none.
	ID string `json:"id,omitempty"`
}

// File describes a file.
type File struct {
	Entry
	Size                     uint64    `json:"size"`
	ContentHash              string    `json:"content_hash,omitempty"`
	Rev                      string    `json:"rev"`
	ServerModified           time.Time `json:"server_modified"`
	ClientModified           time.Time `json:"client_modified"`
	IsDownloadable           bool      `json:"is_downloadable"`
	HasExplicitSharedMembers bool      `json:"has_explicit_shared_members,omitempty"`
}

// Folder describes a folder.
type Folder struct {
	Entry
	SharedFolderID string `json:"shared_folder_id,omitempty"`
}

// Deleted describes a path that used to hold something and is now empty. It is only returned when
// include_deleted was asked for.
type Deleted struct {
	Entry
}

func (f *File) Tag() Tag    { return TagFile }
func (f *File) Base() Entry { return f.Entry }
func (*File) isMetadata()   {}

func (f *Folder) Tag() Tag    { return TagFolder }
func (f *Folder) Base() Entry { return f.Entry }
func (*Folder) isMetadata()   {}

func (d *Deleted) Tag() Tag    { return TagDeleted }
func (d *Deleted) Base() Entry { return d.Entry }
func (*Deleted) isMetadata()   {}

// DecodeMetadata decodes one tagged entry payload. A missing or unrecognized ".tag", or an entry
// without a name, is a *DecodeError.
func DecodeMetadata(raw []byte) (Metadata, error) {
	return decodeMetadata("", raw)
}

// DecodeFile decodes a file payload. Routes that can only return a file omit ".tag"; when a tag is
// present it has to be "file".
func DecodeFile(raw []byte) (*File, error) {
	return decodeFile("", raw)
}

func decodeMetadata(op string, raw []byte) (Metadata, error) {
	raw = unwrapMetadata(raw)

	tag, err := readTag(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	if tag == nil {
		return nil, &DecodeError{Op: op, Err: errMissingTag}
	}

	switch Tag(*tag) {
	case TagFile:
		file, err := decodeFile(op, raw)
		if err != nil {
			return nil, err
		}
		return file, nil
	case TagFolder:
		folder := &Folder{}
		if err := decodeEntry(raw, folder, &folder.Entry); err != nil {
			return nil, &DecodeError{Op: op, Tag: *tag, Err: err}
		}
		return folder, nil
	case TagDeleted:
		deleted := &Deleted{}
		if err := decodeEntry(raw, deleted, &deleted.Entry); err != nil {
			return nil, &DecodeError{Op: op, Tag: *tag, Err: err}
		}
		return deleted, nil
	default:
		return nil, &DecodeError{Op: op, Tag: *tag, Err: errUnknownTag}
	}
}

func decodeFile(op string, raw []byte) (*File, error) {
	raw = unwrapMetadata(raw)

	tag, err := readTag(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	if tag != nil && Tag(*tag) != TagFile {
		return nil, &DecodeError{Op: op, Tag: *tag, Err: ErrNotFile}
	}

	// is_downloadable is omitted by older routes; files are downloadable unless told otherwise
	file := &File{IsDownloadable: true}
	if err := decodeEntry(raw, file, &file.Entry); err != nil {
		return nil, &DecodeError{Op: op, Tag: string(TagFile), Err: err}
	}
	return file, nil
}

func decodeEntry(raw []byte, into any, entry *Entry) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return err
	}
	if entry.Name == "" {
		return errMissingName
	}
	return nil
}

func readTag(raw []byte) (*string, error) {
	var head struct {
		Tag *string `json:".tag"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	return head.Tag, nil
}

// unwrapMetadata strips the {"metadata": {...}} envelope v2 relocation, delete and create_folder
// results put around the entry.
func unwrapMetadata(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return raw
	}
	inner, ok := envelope["metadata"]
	if !ok || len(envelope) != 1 {
		return raw
	}
	return inner
}
