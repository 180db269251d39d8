package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf16"

	"golang.org/x/oauth2"

	"github.com/c2fo/vfs/v7/options"

	"github.com/c2fo/dbxfiles"
)

const (
	apiURL     = "https://api.dropboxapi.com/2"
	contentURL = "https://content.dropboxapi.com/2"
	notifyURL  = "https://notify.dropboxapi.com/2"

	headerArg    = "Dropbox-API-Arg"
	headerResult = "Dropbox-API-Result"

	defaultUserAgent = "dbxfiles/1.0"
)

var (
	errTokenSourceRequired = errors.New("a token source is required for authenticated routes")
	errUnknownHost         = errors.New("unknown host")
	errUnknownStyle        = errors.New("unknown route style")
)

// HTTPExecutor sends requests to the Dropbox HTTP API with net/http.
type HTTPExecutor struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	baseURLs   map[dbxfiles.Host]string
	userAgent  string
}

// NewHTTPExecutor builds an HTTPExecutor aimed at the production hosts.
func NewHTTPExecutor(opts ...options.NewFileSystemOption[HTTPExecutor]) *HTTPExecutor {
	e := &HTTPExecutor{
		httpClient: http.DefaultClient,
		baseURLs: map[dbxfiles.Host]string{
			dbxfiles.HostAPI:     apiURL,
			dbxfiles.HostContent: contentURL,
			dbxfiles.HostNotify:  notifyURL,
		},
		userAgent: defaultUserAgent,
	}

	options.ApplyOptions(e, opts...)

	return e
}

// Execute implements dbxfiles.Executor. A non-2xx answer is returned as a Response; only a failure to
// exchange the request is an error.
func (e *HTTPExecutor) Execute(ctx context.Context, req *dbxfiles.Request) (*dbxfiles.Response, error) {
	httpReq, err := e.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", req.Route, err)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if success && req.Style == dbxfiles.StyleDownload {
		return &dbxfiles.Response{
			StatusCode: resp.StatusCode,
			Body:       []byte(resp.Header.Get(headerResult)),
			Content:    resp.Body,
		}, nil
	}

	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response failed: %w", req.Route, err)
	}
	return &dbxfiles.Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (e *HTTPExecutor) newRequest(ctx context.Context, req *dbxfiles.Request) (*http.Request, error) {
	base, ok := e.baseURLs[req.Host]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", req.Route, errUnknownHost, req.Host)
	}

	args := req.Args
	if args == nil {
		args = map[string]any{}
	}
	arg, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal arguments failed: %w", req.Route, err)
	}

	headers := map[string]string{
		"User-Agent": e.userAgent,
	}
	var body io.Reader
	switch req.Style {
	case dbxfiles.StyleRPC:
		body = bytes.NewReader(arg)
		headers["Content-Type"] = "application/json"
	case dbxfiles.StyleUpload:
		body = req.Body
		if body == nil {
			body = http.NoBody
		}
		headers["Content-Type"] = "application/octet-stream"
		headers[headerArg] = headerSafeJSON(arg)
	case dbxfiles.StyleDownload:
		headers[headerArg] = headerSafeJSON(arg)
	default:
		return nil, fmt.Errorf("%s: %w %q", req.Route, errUnknownStyle, req.Style)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "/")+"/"+req.Route, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request failed: %w", req.Route, err)
	}
	for header, value := range headers {
		httpReq.Header.Set(header, value)
	}

	// long-poll must go out without credentials
	if !req.NoAuth {
		if e.tokens == nil {
			return nil, fmt.Errorf("%s: %w", req.Route, errTokenSourceRequired)
		}
		token, err := e.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: obtaining token failed: %w", req.Route, err)
		}
		token.SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

// headerSafeJSON escapes everything outside printable ASCII so the JSON can travel in an HTTP header.
func headerSafeJSON(b []byte) string {
	var sb strings.Builder
	for _, r := range string(b) {
		switch {
		case r < 0x7f:
			sb.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String()
}
