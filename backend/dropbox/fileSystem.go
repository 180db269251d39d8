package dropbox

import (
	"errors"
	"os"
	"path"
	"sync"

	"github.com/c2fo/vfs/v7"
	"github.com/c2fo/vfs/v7/backend"
	"github.com/c2fo/vfs/v7/options"
	"github.com/c2fo/vfs/v7/utils"
	"github.com/c2fo/vfs/v7/utils/authority"

	"github.com/c2fo/dbxfiles"
	"github.com/c2fo/dbxfiles/transport"
)

// Scheme defines the file system type.
const Scheme = "dbx"

const name = "Dropbox"

var (
	errFileSystemRequired = errors.New("non-nil dropbox.FileSystem pointer is required")
	errNameRequired       = errors.New("non-empty string for name is required")
)

// FileSystem implements vfs.FileSystem for Dropbox.
type FileSystem struct {
	mu      sync.Mutex
	client  Client
	options Options
}

// NewFileSystem initializer for FileSystem struct.
func NewFileSystem(opts ...options.NewFileSystemOption[FileSystem]) *FileSystem {
	fs := &FileSystem{
		options: NewOptions(),
	}

	options.ApplyOptions(fs, opts...)

	return fs
}

// Retry returns the default no-op retrier.
//
// Deprecated: This method is deprecated and will be removed in a future release.
func (fs *FileSystem) Retry() vfs.Retry {
	return vfs.DefaultRetryer()
}

// NewFile function returns the Dropbox implementation of vfs.File.
func (fs *FileSystem) NewFile(authorityStr, name string, opts ...options.NewFileOption) (vfs.File, error) {
	if fs == nil {
		return nil, errFileSystemRequired
	}

	if name == "" {
		return nil, errNameRequired
	}

	if err := utils.ValidateAbsoluteFilePath(name); err != nil {
		return nil, err
	}

	loc, err := fs.NewLocation(authorityStr, utils.EnsureTrailingSlash(path.Dir(name)))
	if err != nil {
		return nil, err
	}

	return loc.NewFile(path.Base(name), opts...)
}

// NewLocation function returns the Dropbox implementation of vfs.Location.
func (fs *FileSystem) NewLocation(authorityStr, name string) (vfs.Location, error) {
	if fs == nil {
		return nil, errFileSystemRequired
	}

	if name == "" {
		return nil, errNameRequired
	}

	if err := utils.ValidateAbsoluteLocationPath(name); err != nil {
		return nil, err
	}

	// one namespace per token, the authority is kept only so URIs round trip
	auth, err := authority.NewAuthority(utils.RemoveTrailingSlash(authorityStr))
	if err != nil {
		return nil, err
	}

	return &Location{
		fileSystem: fs,
		path:       utils.EnsureTrailingSlash(path.Clean(name)),
		authority:  auth,
	}, nil
}

// Name returns "Dropbox"
func (fs *FileSystem) Name() string {
	return name
}

// Scheme returns "dbx" as the initial part of a file URI ie: dbx://
func (fs *FileSystem) Scheme() string {
	return Scheme
}

// Client returns the client set with WithClient, or builds one from the access token on first use.
func (fs *FileSystem) Client() (Client, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.client != nil {
		return fs.client, nil
	}

	token := fs.options.AccessToken
	if token == "" {
		token = os.Getenv(EnvAccessToken)
	}

	client, err := transport.NewClient(token, dbxfiles.WithChunkSize(fs.options.ChunkSize))
	if err != nil {
		return nil, err
	}
	fs.client = client

	return fs.client, nil
}

func init() {
	backend.Register(Scheme, NewFileSystem())
}
