package transport

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"

	"github.com/c2fo/dbxfiles"
)

// SDKExecutor sends requests through the Dropbox SDK's generic route executor, reusing its configuration
// (logging, team member selection, custom http.Client).
//
// The SDK does not take a context: a request already in flight cannot be cancelled.
type SDKExecutor struct {
	sdk *dropbox.Context
}

// NewSDKExecutor builds an SDKExecutor from an SDK configuration.
func NewSDKExecutor(config dropbox.Config) *SDKExecutor {
	sdk := dropbox.NewContext(config)
	return &SDKExecutor{sdk: &sdk}
}

// Execute implements dbxfiles.Executor. Error responses reported by the SDK are handed back as Responses
// so the status and body reach the error decoder.
func (e *SDKExecutor) Execute(ctx context.Context, req *dbxfiles.Request) (*dbxfiles.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Style == dbxfiles.StyleUpload {
		body = req.Body
	}

	result, content, err := e.sdk.Execute(sdkRequest(req), body)
	if err != nil {
		if resp, ok := sdkErrorResponse(err); ok {
			return resp, nil
		}
		return nil, err
	}
	return &dbxfiles.Response{StatusCode: 200, Body: result, Content: content}, nil
}

// sdkRequest splits "files/list_folder/continue" into namespace "files" and route "list_folder/continue".
func sdkRequest(req *dbxfiles.Request) dropbox.Request {
	namespace, route, found := strings.Cut(req.Route, "/")
	if !found {
		namespace, route = "files", req.Route
	}

	auth := "user"
	if req.NoAuth {
		auth = "noauth"
	}

	args := req.Args
	if args == nil {
		args = map[string]any{}
	}

	return dropbox.Request{
		Host:      string(req.Host),
		Namespace: namespace,
		Route:     route,
		Auth:      auth,
		Style:     string(req.Style),
		Arg:       args,
	}
}

func sdkErrorResponse(err error) (*dbxfiles.Response, bool) {
	var internal dropbox.SDKInternalError
	if errors.As(err, &internal) {
		return &dbxfiles.Response{StatusCode: internal.StatusCode, Body: []byte(internal.Content)}, true
	}
	var internalPtr *dropbox.SDKInternalError
	if errors.As(err, &internalPtr) && internalPtr != nil {
		return &dbxfiles.Response{StatusCode: internalPtr.StatusCode, Body: []byte(internalPtr.Content)}, true
	}
	return nil, false
}
