package dbxfiles

import (
	"context"
	"io"
)

// Host identifies which Dropbox API host a route is served from.
type Host string

const (
	// HostAPI serves RPC routes such as files/get_metadata.
	HostAPI Host = "api"
	// HostContent serves upload and download routes.
	HostContent Host = "content"
	// HostNotify serves files/list_folder/longpoll.
	HostNotify Host = "notify"
)

// Style describes how arguments and results travel on the wire for a route.
type Style string

const (
	// StyleRPC routes carry JSON arguments in the body and return a JSON body.
	StyleRPC Style = "rpc"
	// StyleUpload routes carry JSON arguments in a header and raw bytes in the body.
	StyleUpload Style = "upload"
	// StyleDownload routes carry JSON arguments in a header and return the JSON result in a
	// header alongside a byte stream.
	StyleDownload Style = "download"
)

// Request is one logical call against the files namespace.
type Request struct {
	// Route is the logical endpoint name, ie: files/list_folder/continue
	Route string

	// Host is the API host serving Route.
	Host Host

	// Style is the argument/result encoding of Route.
	Style Style

	// NoAuth is set for routes that must be called without credentials (long-poll).
	NoAuth bool

	// Args are the JSON arguments of the call. Never nil.
	Args map[string]any

	// Body is the upload content for StyleUpload routes, nil otherwise.
	Body io.Reader
}

// Response is what came back from the service for a Request. A non-2xx response is still a Response;
// an Executor only returns an error when the exchange itself failed.
type Response struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Body is the JSON result (RPC and upload styles), the JSON result carried in the response header
	// (download style), or the raw error payload when StatusCode is not 2xx.
	Body []byte

	// Content is the byte stream of a successful download-style call. The caller owns it and must
	// close it. Nil for other styles and for failures.
	Content io.ReadCloser
}

// Executor performs a Request. Implementations own transport, TLS, credentials and request signing.
// They must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

// Execute calls f(ctx, req).
func (f ExecutorFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// IsSuccess reports whether the response carries a result rather than an error payload.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
