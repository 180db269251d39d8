package dropbox

import (
	"context"
	"io"

	"github.com/c2fo/dbxfiles"
)

// Client is the part of *dbxfiles.Client this backend calls.
type Client interface {
	GetMetadata(ctx context.Context, path string, opts ...dbxfiles.Option) (dbxfiles.Metadata, error)
	ListFolderAll(ctx context.Context, path string, fn func(dbxfiles.Metadata) error, opts ...dbxfiles.Option) (string, error)
	Download(ctx context.Context, path string, sink io.Writer, opts ...dbxfiles.Option) (*dbxfiles.File, error)
	UploadLarge(ctx context.Context, path string, content io.Reader, opts ...dbxfiles.Option) (*dbxfiles.File, error)
	Copy(ctx context.Context, from, to string, opts ...dbxfiles.Option) (dbxfiles.Metadata, error)
	Move(ctx context.Context, from, to string, opts ...dbxfiles.Option) (dbxfiles.Metadata, error)
	Delete(ctx context.Context, path string, opts ...dbxfiles.Option) (dbxfiles.Metadata, error)
}

var _ Client = (*dbxfiles.Client)(nil)
