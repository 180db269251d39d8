package dbxfiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

var errNoContent = errors.New("download response carried no content")

// Download streams the content of the file at path into sink, in order, and returns the file's metadata
// once every byte has been written. A failure while streaming fails the whole call; no metadata is returned
// for a partial download. A nil sink discards the content.
func (c *Client) Download(ctx context.Context, path string, sink io.Writer, opts ...Option) (*File, error) {
	return c.download(ctx, routeDownload, path, sink, opts)
}

// GetPreview streams a PDF or HTML preview of the file at path into sink. Files that cannot be previewed
// fail with *UnsupportedContentError.
func (c *Client) GetPreview(ctx context.Context, path string, sink io.Writer, opts ...Option) (*File, error) {
	return c.download(ctx, routeGetPreview, path, sink, opts)
}

// GetThumbnail streams a thumbnail of the image at path into sink. See ThumbnailFormat and ThumbnailSize.
func (c *Client) GetThumbnail(ctx context.Context, path string, sink io.Writer, opts ...Option) (*File, error) {
	return c.download(ctx, routeGetThumbnail, path, sink, opts)
}

func (c *Client) download(ctx context.Context, route, path string, sink io.Writer, opts []Option) (*File, error) {
	if err := requirePath(route, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(route, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatch(ctx, call{route: route, host: HostContent, style: StyleDownload, args: args, paths: []string{path}})
	if err != nil {
		return nil, err
	}
	if resp.Content == nil {
		return nil, transportError(route, []string{path}, errNoContent)
	}
	defer func() { _ = resp.Content.Close() }()

	file, err := decodeFile(route, resp.Body)
	if err != nil {
		c.log(ctx).Warn().Err(err).Str("route", route).Msg("could not decode result")
		return nil, err
	}

	if sink == nil {
		sink = io.Discard
	}
	w := &sinkWriter{w: sink}
	n, err := io.CopyBuffer(w, resp.Content, make([]byte, c.chunkSize))
	switch {
	case w.err != nil:
		return nil, fmt.Errorf("%s %s: writing content: %w", route, path, w.err)
	case err != nil:
		return nil, transportError(route, []string{path}, err)
	}

	c.log(ctx).Debug().Str("route", route).Str("path", path).Int64("bytes", n).Msg("content streamed")
	return file, nil
}

// sinkWriter remembers write failures so they can be told apart from read failures.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Upload writes content to path in a single request. The service caps single uploads at 150MB; use
// UploadLarge for anything bigger.
func (c *Client) Upload(ctx context.Context, path string, content io.Reader, opts ...Option) (*File, error) {
	if err := requirePath(routeUpload, "path", path); err != nil {
		return nil, err
	}
	args, err := buildArgs(routeUpload, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	return c.upload(ctx, path, args, content)
}

func (c *Client) upload(ctx context.Context, path string, args map[string]any, content io.Reader) (*File, error) {
	if content == nil {
		content = bytes.NewReader(nil)
	}
	cl := call{route: routeUpload, host: HostContent, style: StyleUpload, args: args, body: content, paths: []string{path}}
	return rpc(ctx, c, cl, decodeFile)
}

// UploadLarge writes content to path through an upload session, ChunkSize bytes per request. Content
// that fits in one chunk is sent with a plain upload. Options are those of Upload.
func (c *Client) UploadLarge(ctx context.Context, path string, content io.Reader, opts ...Option) (*File, error) {
	if err := requirePath(routeUploadSessionFinish, "path", path); err != nil {
		return nil, err
	}
	commit, err := buildArgs(routeUploadSessionFinish, map[string]any{"path": path}, opts)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = bytes.NewReader(nil)
	}

	current, next := make([]byte, c.chunkSize), make([]byte, c.chunkSize)
	n, last, err := readChunk(content, current)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading content: %w", routeUploadSessionStart, path, err)
	}
	if last {
		return c.upload(ctx, path, commit, bytes.NewReader(current[:n]))
	}
	chunk := current[:n]

	var cursor UploadSessionCursor
	for {
		m, last, err := readChunk(content, next)
		if err != nil {
			return nil, fmt.Errorf("%s %s: reading content: %w", routeUploadSessionAppend, path, err)
		}

		switch {
		case cursor.SessionID == "" && last && m == 0:
			return c.upload(ctx, path, commit, bytes.NewReader(chunk))
		case cursor.SessionID == "":
			if cursor.SessionID, err = c.startSession(ctx, path, chunk); err != nil {
				return nil, err
			}
		case last && m == 0:
			return c.finishSession(ctx, path, cursor, commit, chunk)
		default:
			if err := c.appendSession(ctx, path, cursor, chunk); err != nil {
				return nil, err
			}
		}
		cursor.Offset += uint64(len(chunk))

		if last {
			return c.finishSession(ctx, path, cursor, commit, next[:m])
		}
		current, next = next, current
		chunk = current[:m]
	}
}

// readChunk fills buf from r. last reports that r is exhausted.
func readChunk(r io.Reader, buf []byte) (n int, last bool, err error) {
	n, err = io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, true, nil
	case err != nil:
		return n, false, err
	}
	return n, false, nil
}

func (c *Client) startSession(ctx context.Context, path string, chunk []byte) (string, error) {
	cl := call{
		route: routeUploadSessionStart,
		host:  HostContent,
		style: StyleUpload,
		args:  map[string]any{"close": false},
		body:  bytes.NewReader(chunk),
		paths: []string{path},
	}
	return rpc(ctx, c, cl, func(op string, raw []byte) (string, error) {
		var wire struct {
			SessionID string `json:"session_id"`
		}
		if err := unmarshalResult(op, raw, &wire); err != nil {
			return "", err
		}
		if wire.SessionID == "" {
			return "", &DecodeError{Op: op, Err: errors.New("upload session has no id")}
		}
		return wire.SessionID, nil
	})
}

func (c *Client) appendSession(ctx context.Context, path string, cursor UploadSessionCursor, chunk []byte) error {
	cl := call{
		route: routeUploadSessionAppend,
		host:  HostContent,
		style: StyleUpload,
		args:  map[string]any{"cursor": cursor, "close": false},
		body:  bytes.NewReader(chunk),
		paths: []string{path},
	}
	resp, err := c.dispatch(ctx, cl)
	if err != nil {
		return err
	}
	if resp.Content != nil {
		_ = resp.Content.Close()
	}
	return nil
}

func (c *Client) finishSession(ctx context.Context, path string, cursor UploadSessionCursor, commit map[string]any, chunk []byte) (*File, error) {
	cl := call{
		route: routeUploadSessionFinish,
		host:  HostContent,
		style: StyleUpload,
		args:  map[string]any{"cursor": cursor, "commit": commit},
		body:  bytes.NewReader(chunk),
		paths: []string{path},
	}
	return rpc(ctx, c, cl, decodeFile)
}
