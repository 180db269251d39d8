package dropbox

import (
	"github.com/c2fo/vfs/v7/options"
)

const (
	optionNameAccessToken = "accessToken"
	optionNameChunkSize   = "chunkSize"
	optionNameTempDir     = "tempDir"
	optionNameClient      = "client"
)

// WithAccessToken sets the OAuth2 access token for Dropbox API authentication.
func WithAccessToken(token string) options.NewFileSystemOption[FileSystem] {
	return &accessTokenOpt{token: token}
}

type accessTokenOpt struct {
	token string
}

func (o *accessTokenOpt) Apply(fs *FileSystem) {
	fs.options.AccessToken = o.token
}

func (o *accessTokenOpt) NewFileSystemOptionName() string {
	return optionNameAccessToken
}

// WithChunkSize sets the upload session piece size. Files no bigger than one piece go up in a single
// request. Ignored when WithClient is used.
func WithChunkSize(size int) options.NewFileSystemOption[FileSystem] {
	return &chunkSizeOpt{size: size}
}

type chunkSizeOpt struct {
	size int
}

func (o *chunkSizeOpt) Apply(fs *FileSystem) {
	fs.options.ChunkSize = o.size
}

func (o *chunkSizeOpt) NewFileSystemOptionName() string {
	return optionNameChunkSize
}

// WithTempDir sets the directory for temporary files used during read/write operations.
// Defaults to os.TempDir() if not specified.
func WithTempDir(dir string) options.NewFileSystemOption[FileSystem] {
	return &tempDirOpt{dir: dir}
}

type tempDirOpt struct {
	dir string
}

func (o *tempDirOpt) Apply(fs *FileSystem) {
	fs.options.TempDir = o.dir
}

func (o *tempDirOpt) NewFileSystemOptionName() string {
	return optionNameTempDir
}

// WithClient sets the client the file system calls, ie: a *dbxfiles.Client built over a custom executor.
func WithClient(client Client) options.NewFileSystemOption[FileSystem] {
	return &clientOpt{client: client}
}

type clientOpt struct {
	client Client
}

func (o *clientOpt) Apply(fs *FileSystem) {
	fs.client = o.client
}

func (o *clientOpt) NewFileSystemOptionName() string {
	return optionNameClient
}
