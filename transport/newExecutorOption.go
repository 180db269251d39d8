package transport

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/c2fo/vfs/v7/options"

	"github.com/c2fo/dbxfiles"
)

const (
	optionNameHTTPClient  = "httpClient"
	optionNameTokenSource = "tokenSource"
	optionNameBaseURL     = "baseURL"
	optionNameUserAgent   = "userAgent"
)

// WithHTTPClient sets the http.Client requests go through. Leave its Timeout at zero, or above the
// long-poll timeout plus the service's jitter, and cancel through the context instead.
func WithHTTPClient(client *http.Client) options.NewFileSystemOption[HTTPExecutor] {
	return &httpClientOpt{client: client}
}

type httpClientOpt struct {
	client *http.Client
}

func (o *httpClientOpt) Apply(e *HTTPExecutor) {
	e.httpClient = o.client
}

func (o *httpClientOpt) NewFileSystemOptionName() string {
	return optionNameHTTPClient
}

// WithTokenSource sets where bearer tokens come from. Use a refreshing source for short-lived tokens.
func WithTokenSource(tokens oauth2.TokenSource) options.NewFileSystemOption[HTTPExecutor] {
	return &tokenSourceOpt{tokens: tokens}
}

// WithAccessToken uses a fixed access token.
func WithAccessToken(token string) options.NewFileSystemOption[HTTPExecutor] {
	return &tokenSourceOpt{tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}

type tokenSourceOpt struct {
	tokens oauth2.TokenSource
}

func (o *tokenSourceOpt) Apply(e *HTTPExecutor) {
	e.tokens = o.tokens
}

func (o *tokenSourceOpt) NewFileSystemOptionName() string {
	return optionNameTokenSource
}

// WithBaseURL points one host at another URL, ie: an httptest.Server. The URL includes the API version
// prefix, ie: https://api.dropboxapi.com/2
func WithBaseURL(host dbxfiles.Host, url string) options.NewFileSystemOption[HTTPExecutor] {
	return &baseURLOpt{host: host, url: url}
}

type baseURLOpt struct {
	host dbxfiles.Host
	url  string
}

func (o *baseURLOpt) Apply(e *HTTPExecutor) {
	e.baseURLs[o.host] = o.url
}

func (o *baseURLOpt) NewFileSystemOptionName() string {
	return optionNameBaseURL
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) options.NewFileSystemOption[HTTPExecutor] {
	return &userAgentOpt{agent: agent}
}

type userAgentOpt struct {
	agent string
}

func (o *userAgentOpt) Apply(e *HTTPExecutor) {
	e.userAgent = o.agent
}

func (o *userAgentOpt) NewFileSystemOptionName() string {
	return optionNameUserAgent
}
