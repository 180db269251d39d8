/*
Package dbxfiles is a client for the files namespace of the Dropbox HTTP API: copy, move, delete, create folder,
download, upload, metadata, search, revisions and restore, and folder listing with cursors and long-poll change
notification.

Philosophy

Dropbox answers almost every call with a tagged union. A path may be a file, a folder or a deleted entry, a listing
interleaves all three, and errors nest several unions deep:

	{"error_summary": "to/conflict/file/..", "error": {".tag": "to", "to": {".tag": "conflict", "conflict": {".tag": "file"}}}}

This package does the mediation and nothing else. It turns method calls into requests, the results into a closed set
of Go types (Metadata is a *File, a *Folder or a *Deleted, never anything else), and the error unions into typed
errors callers can branch on with errors.Is and errors.As. Sending the request is the job of an Executor; the
transport package provides one on net/http and one on the Dropbox SDK.

Usage

	client, err := transport.NewClient(os.Getenv("DROPBOX_ACCESS_TOKEN"))
	if err != nil {
		return err
	}

	md, err := client.GetMetadata(ctx, "/Homework/math/Prime_Numbers.txt")
	switch {
	case errors.Is(err, dbxfiles.ErrNotFound):
		// nothing there
	case err != nil:
		return err
	}

	switch m := md.(type) {
	case *dbxfiles.File:
		fmt.Println(m.Size, m.Rev)
	case *dbxfiles.Folder:
		fmt.Println("folder", m.PathDisplay)
	}

Options

Each call accepts a fixed set of options, ie: IncludeDeleted and Recursive for ListFolder, ThumbnailFormat and
ThumbnailSize for GetThumbnail. An option the call does not recognize, or a value of the wrong type, fails with an
*ArgumentError before anything is sent.

Listing and watching

ListFolder always returns a cursor, even on the last page. Page with ListFolderContinue while HasMore is set, then
keep the final cursor and pass it to ListFolderLongpoll to block until something changes. A cursor that has expired
fails ListFolderContinue with *ResetError; ListFolderLongpoll cannot tell a bad cursor apart from any other failure
and reports *HTTPError. Nothing retries on its own: honour ListFolderLongpollResult.Backoff and
RateLimitError.RetryAfter yourself, or use the dbxevents package.

The backend/dropbox package puts a Client behind vfs.FileSystem so Dropbox can be used wherever vfs is.

Errors

	NotFoundError              path/not_found and friends
	MalformedPathError         the path's shape was rejected
	FileConflictError          something is in the way; Reason is file, folder or file_ancestor
	InvalidRevisionError       Restore with a revision that is not the file's
	ResetError                 ListFolderContinue with a stale cursor
	AuthError, RateLimitError  401 and 429
	HTTPError                  everything else, including transport failures; Body keeps the raw payload
	ArgumentError              rejected locally, never sent
	DecodeError                a successful response that could not be understood
*/
package dbxfiles
