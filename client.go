package dbxfiles

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/c2fo/vfs/v7/options"
)

const (
	routeCopy                      = "files/copy"
	routeCreateFolder              = "files/create_folder"
	routeDelete                    = "files/delete"
	routeDownload                  = "files/download"
	routeGetMetadata               = "files/get_metadata"
	routeGetPreview                = "files/get_preview"
	routeGetTemporaryLink          = "files/get_temporary_link"
	routeGetThumbnail              = "files/get_thumbnail"
	routeListFolder                = "files/list_folder"
	routeListFolderContinue        = "files/list_folder/continue"
	routeListFolderLongpoll        = "files/list_folder/longpoll"
	routeListFolderGetLatestCursor = "files/list_folder/get_latest_cursor"
	routeListRevisions             = "files/list_revisions"
	routeMove                      = "files/move"
	routeRestore                   = "files/restore"
	routeSearch                    = "files/search"
	routeUpload                    = "files/upload"
	routeUploadSessionStart        = "files/upload_session/start"
	routeUploadSessionAppend       = "files/upload_session/append_v2"
	routeUploadSessionFinish       = "files/upload_session/finish"
)

// DefaultChunkSize is the copy buffer for downloads and the piece size for UploadLarge.
const DefaultChunkSize = 4 * 1024 * 1024

var errNoResponse = errors.New("executor returned neither a response nor an error")

// Client maps files calls onto an Executor and decodes what comes back. It keeps no per-call state and
// is safe for concurrent use.
type Client struct {
	executor  Executor
	logger    zerolog.Logger
	chunkSize int
}

// NewClient builds a Client. WithExecutor is required; transport.NewClient wires a default HTTP executor.
func NewClient(opts ...options.NewFileSystemOption[Client]) (*Client, error) {
	c := &Client{
		logger:    zerolog.Nop(),
		chunkSize: DefaultChunkSize,
	}

	options.ApplyOptions(c, opts...)

	if c.executor == nil {
		return nil, ErrExecutorRequired
	}
	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}
	return c, nil
}

// ChunkSize returns the size of the pieces UploadLarge sends.
func (c *Client) ChunkSize() int {
	return c.chunkSize
}

// call describes one dispatch.
type call struct {
	route  string
	host   Host
	style  Style
	noAuth bool
	paths  []string
	args   map[string]any
	body   io.Reader
}

func rpcCall(route string, args map[string]any, paths ...string) call {
	return call{route: route, host: HostAPI, style: StyleRPC, args: args, paths: paths}
}

// log prefers a logger carried by ctx over the client's own.
func (c *Client) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.logger
}

// dispatch executes cl and returns the successful response. Failures come back already decoded into the
// error taxonomy.
func (c *Client) dispatch(ctx context.Context, cl call) (*Response, error) {
	log := c.log(ctx).With().Str("route", cl.route).Strs("paths", cl.paths).Logger()

	if cl.args == nil {
		cl.args = map[string]any{}
	}
	req := &Request{
		Route:  cl.route,
		Host:   cl.host,
		Style:  cl.style,
		NoAuth: cl.noAuth,
		Args:   cl.args,
		Body:   cl.body,
	}

	start := time.Now()
	resp, err := c.executor.Execute(ctx, req)
	if err == nil && resp == nil {
		err = errNoResponse
	}
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return nil, transportError(cl.route, cl.paths, err)
	}

	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request complete")

	if !resp.IsSuccess() {
		if resp.Content != nil {
			_ = resp.Content.Close()
		}
		return nil, DecodeErrorResponse(cl.route, cl.paths, resp.StatusCode, resp.Body, ErrorsFor(cl.route))
	}
	return resp, nil
}

// rpc dispatches cl and decodes the JSON result.
func rpc[T any](ctx context.Context, c *Client, cl call, decode func(string, []byte) (T, error)) (T, error) {
	var zero T
	resp, err := c.dispatch(ctx, cl)
	if err != nil {
		return zero, err
	}
	if resp.Content != nil {
		_ = resp.Content.Close()
	}

	result, err := decode(cl.route, resp.Body)
	if err != nil {
		c.log(ctx).Warn().Err(err).Str("route", cl.route).Msg("could not decode result")
		return zero, err
	}
	return result, nil
}

func requirePath(route, name, value string) error {
	if value == "" {
		return &ArgumentError{Op: route, Option: name, Message: "must not be empty"}
	}
	return nil
}
