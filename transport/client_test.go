package transport

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/c2fo/dbxfiles"
)

type NewClientTestSuite struct {
	suite.Suite
}

func (s *NewClientTestSuite) TestToken() {
	tests := []struct {
		name    string
		token   string
		env     string
		wantErr error
	}{
		{name: "explicit token", token: "explicit"},
		{name: "environment fallback", env: "from-env"},
		{name: "explicit wins over environment", token: "explicit", env: "from-env"},
		{name: "no token anywhere", wantErr: errAccessTokenRequired},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.T().Setenv(EnvAccessToken, tt.env)

			client, err := NewClient(tt.token, dbxfiles.WithChunkSize(1024))
			if tt.wantErr != nil {
				s.Nil(client)
				s.ErrorIs(err, tt.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Require().NotNil(client)
			s.Equal(1024, client.ChunkSize(), "client options are still applied")
		})
	}
}

func TestNewClient(t *testing.T) {
	suite.Run(t, new(NewClientTestSuite))
}
