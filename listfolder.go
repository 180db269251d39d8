package dbxfiles

import (
	"context"
	"fmt"
	"time"
)

// Long-poll timeouts the service accepts.
const (
	MinLongpollTimeout = 30 * time.Second
	MaxLongpollTimeout = 480 * time.Second
)

// ListFolder returns the first page of the folder at path. Use "" for the root. The result always carries a
// cursor: keep paging with ListFolderContinue while HasMore is set, then hold on to the last cursor to watch
// for changes with ListFolderLongpoll.
func (c *Client) ListFolder(ctx context.Context, path string, opts ...Option) (*ListFolderResult, error) {
	args, err := buildArgs(routeListFolder, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeListFolder, args, path), decodeListFolder)
}

// ListFolderContinue returns the page after cursor. A cursor that expired or belongs to another listing
// fails with *ResetError; restart with ListFolder.
func (c *Client) ListFolderContinue(ctx context.Context, cursor string) (*ListFolderResult, error) {
	if err := requirePath(routeListFolderContinue, "cursor", cursor); err != nil {
		return nil, err
	}
	args := map[string]any{"cursor": cursor}
	return rpc(ctx, c, rpcCall(routeListFolderContinue, args), decodeListFolder)
}

// ListFolderLongpoll blocks until the listing behind cursor changes or timeout passes. A zero timeout
// lets the service pick (30s); anything else must be between MinLongpollTimeout and MaxLongpollTimeout.
//
// The call goes to the notify host without credentials. The service does not tell a bad cursor from
// any other failure here, so every failure is an *HTTPError, never a *ResetError.
func (c *Client) ListFolderLongpoll(ctx context.Context, cursor string, timeout time.Duration) (*ListFolderLongpollResult, error) {
	if err := requirePath(routeListFolderLongpoll, "cursor", cursor); err != nil {
		return nil, err
	}

	args := map[string]any{"cursor": cursor}
	if timeout != 0 {
		if timeout < MinLongpollTimeout || timeout > MaxLongpollTimeout {
			return nil, &ArgumentError{
				Op:      routeListFolderLongpoll,
				Option:  "timeout",
				Message: fmt.Sprintf("%s is outside %s..%s", timeout, MinLongpollTimeout, MaxLongpollTimeout),
			}
		}
		args["timeout"] = uint64(timeout / time.Second)
	}

	cl := call{route: routeListFolderLongpoll, host: HostNotify, style: StyleRPC, noAuth: true, args: args}
	return rpc(ctx, c, cl, decodeLongpoll)
}

// ListFolderGetLatestCursor returns a cursor for the folder at path without listing it, for callers that
// only want to hear about changes from now on. It takes the same options as ListFolder.
func (c *Client) ListFolderGetLatestCursor(ctx context.Context, path string, opts ...Option) (*ListFolderGetLatestCursorResult, error) {
	args, err := buildArgs(routeListFolderGetLatestCursor, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeListFolderGetLatestCursor, args, path), decodeLatestCursor)
}

// ListFolderAll walks every page of the folder at path, calling fn for each entry in order, and returns
// the final cursor. An error from fn stops the walk and is returned as is.
func (c *Client) ListFolderAll(ctx context.Context, path string, fn func(Metadata) error, opts ...Option) (string, error) {
	page, err := c.ListFolder(ctx, path, opts...)
	if err != nil {
		return "", err
	}
	return c.walk(ctx, page, fn)
}

// ListFolderContinueAll is ListFolderAll starting from cursor.
func (c *Client) ListFolderContinueAll(ctx context.Context, cursor string, fn func(Metadata) error) (string, error) {
	page, err := c.ListFolderContinue(ctx, cursor)
	if err != nil {
		return "", err
	}
	return c.walk(ctx, page, fn)
}

func (c *Client) walk(ctx context.Context, page *ListFolderResult, fn func(Metadata) error) (string, error) {
	for {
		for _, entry := range page.Entries {
			if err := fn(entry); err != nil {
				return "", err
			}
		}
		if !page.HasMore {
			return page.Cursor, nil
		}

		var err error
		if page, err = c.ListFolderContinue(ctx, page.Cursor); err != nil {
			return "", err
		}
	}
}
