package transport

import (
	"errors"
	"os"

	"github.com/c2fo/vfs/v7/options"

	"github.com/c2fo/dbxfiles"
)

// EnvAccessToken is read by NewClient when no token is passed.
const EnvAccessToken = "DROPBOX_ACCESS_TOKEN"

var errAccessTokenRequired = errors.New("access token is required for Dropbox authentication")

// NewClient returns a dbxfiles.Client talking to the production API with a fixed access token. An empty
// token falls back to the DROPBOX_ACCESS_TOKEN environment variable. Client options are applied after the
// executor, so WithExecutor in opts wins.
func NewClient(token string, opts ...options.NewFileSystemOption[dbxfiles.Client]) (*dbxfiles.Client, error) {
	if token == "" {
		token = os.Getenv(EnvAccessToken)
	}
	if token == "" {
		return nil, errAccessTokenRequired
	}

	executor := NewHTTPExecutor(WithAccessToken(token))
	all := append([]options.NewFileSystemOption[dbxfiles.Client]{dbxfiles.WithExecutor(executor)}, opts...)
	return dbxfiles.NewClient(all...)
}
