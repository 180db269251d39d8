package dropbox

import (
	"os"

	"github.com/c2fo/dbxfiles"
)

// EnvAccessToken is read when no access token option is given.
const EnvAccessToken = "VFS_DROPBOX_ACCESS_TOKEN"

// Options holds configuration options for the Dropbox FileSystem.
type Options struct {
	// AccessToken is the OAuth2 access token. Without it the VFS_DROPBOX_ACCESS_TOKEN and then the
	// DROPBOX_ACCESS_TOKEN environment variables are tried.
	AccessToken string

	// ChunkSize is the upload session piece size used when a written file is committed on Close.
	ChunkSize int

	// TempDir is the directory for the temp files that buffer reads and writes.
	TempDir string
}

// NewOptions creates Options with default values.
func NewOptions() Options {
	return Options{
		ChunkSize: dbxfiles.DefaultChunkSize,
		TempDir:   os.TempDir(),
	}
}
