package dbxfiles

import (
	"context"
)

// Copy copies the file or folder at from to to and returns the metadata of the copy.
func (c *Client) Copy(ctx context.Context, from, to string, opts ...Option) (Metadata, error) {
	return c.relocate(ctx, routeCopy, from, to, opts)
}

// Move moves the file or folder at from to to and returns its metadata at the new location.
func (c *Client) Move(ctx context.Context, from, to string, opts ...Option) (Metadata, error) {
	return c.relocate(ctx, routeMove, from, to, opts)
}

func (c *Client) relocate(ctx context.Context, route, from, to string, opts []Option) (Metadata, error) {
	if err := requirePath(route, "from_path", from); err != nil {
		return nil, err
	}
	if err := requirePath(route, "to_path", to); err != nil {
		return nil, err
	}
	args, err := buildArgs(route, map[string]any{"from_path": from, "to_path": to}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(route, args, from, to), decodeMetadata)
}

// Delete removes the file or folder at path, folders with everything under them. The metadata returned
// describes the entry as it was before it was removed.
func (c *Client) Delete(ctx context.Context, path string, opts ...Option) (Metadata, error) {
	if err := requirePath(routeDelete, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeDelete, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeDelete, args, path), decodeMetadata)
}

// CreateFolder creates a folder at path.
func (c *Client) CreateFolder(ctx context.Context, path string, opts ...Option) (*Folder, error) {
	if err := requirePath(routeCreateFolder, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeCreateFolder, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeCreateFolder, args, path), decodeFolder)
}

// GetMetadata returns the metadata of the entry at path. A removed path fails with *NotFoundError unless
// IncludeDeleted(true) is passed, in which case a *Deleted comes back.
func (c *Client) GetMetadata(ctx context.Context, path string, opts ...Option) (Metadata, error) {
	if err := requirePath(routeGetMetadata, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeGetMetadata, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeGetMetadata, args, path), decodeMetadata)
}

// GetTemporaryLink returns a direct link to the file's content, valid for four hours.
func (c *Client) GetTemporaryLink(ctx context.Context, path string) (*GetTemporaryLinkResult, error) {
	if err := requirePath(routeGetTemporaryLink, "path", path); err != nil {
		return nil, err
	}
	args := map[string]any{"path": path}
	return rpc(ctx, c, rpcCall(routeGetTemporaryLink, args, path), decodeTemporaryLink)
}

// ListRevisions returns the revisions of the file at path, newest first.
func (c *Client) ListRevisions(ctx context.Context, path string, opts ...Option) (*ListRevisionsResult, error) {
	if err := requirePath(routeListRevisions, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeListRevisions, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeListRevisions, args, path), decodeRevisions)
}

// Restore puts revision rev back at path. A rev that is not one of path's revisions fails with
// *InvalidRevisionError.
func (c *Client) Restore(ctx context.Context, path, rev string) (*File, error) {
	if err := requirePath(routeRestore, "path", path); err != nil {
		return nil, err
	}
	if err := requirePath(routeRestore, "rev", rev); err != nil {
		return nil, err
	}
	args := map[string]any{"path": path, "rev": rev}
	return rpc(ctx, c, rpcCall(routeRestore, args, path), decodeFile)
}

// Search looks for entries under path matching query. Use "" for path to search the whole account.
func (c *Client) Search(ctx context.Context, query, path string, opts ...Option) (*SearchResult, error) {
	if err := requirePath(routeSearch, "query", query); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeSearch, map[string]any{"path": path, "query": query}, opts)
	if err != nil {
		return nil, err
	}
	return rpc(ctx, c, rpcCall(routeSearch, args, path), decodeSearch)
}
