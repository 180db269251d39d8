// Package dropbox implements vfs.FileSystem for Dropbox on top of a dbxfiles.Client.
//
// # Usage
//
// Rely on github.com/c2fo/vfs/v7/backend
//
//	import(
//	    "github.com/c2fo/vfs/v7/backend"
//	    "github.com/c2fo/dbxfiles/backend/dropbox"
//	)
//
//	func UseFs() error {
//	    fs := backend.Backend(dropbox.Scheme)
//	    ...
//	}
//
// Or call directly:
//
//	import "github.com/c2fo/dbxfiles/backend/dropbox"
//
//	func DoSomething() error {
//	    fs := dropbox.NewFileSystem(
//	        dropbox.WithAccessToken("your-oauth-token"),
//	    )
//	    location, err := fs.NewLocation("", "/path/to/folder/")
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// A client built elsewhere, ie: over transport.NewSDKExecutor, is passed with WithClient.
//
// # Authentication
//
// Without WithAccessToken or WithClient the token comes from VFS_DROPBOX_ACCESS_TOKEN, then from
// DROPBOX_ACCESS_TOKEN.
//
// # Limitations
//
// No range reads: the whole file is downloaded into a temp file on the first Read or Seek.
//
// No appends: writes are buffered in a temp file and uploaded on Close, overwriting the file. Content
// bigger than the chunk size goes up through an upload session.
//
// Paths are case-insensitive but case-preserving. /path/File.txt and /path/file.txt are the same file.
//
// Touch on an existing file downloads and re-uploads it with a new client modification time.
//
// # URI Format
//
//	dbx:///path/to/file.txt
//	dbx:///path/to/folder/
//
// The authority is always empty as Dropbox uses a single namespace per access token.
package dropbox
