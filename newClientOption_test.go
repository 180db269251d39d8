package dbxfiles

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/c2fo/vfs/v7/options"
)

type NewClientOptionTestSuite struct {
	suite.Suite
}

func (s *NewClientOptionTestSuite) TestOptions() {
	executor := ExecutorFunc(func(context.Context, *Request) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	})
	logger := zerolog.New(zerolog.NewTestWriter(s.T()))

	tests := []struct {
		name         string
		opt          options.NewFileSystemOption[Client]
		expectedName string
		validate     func(*Client)
	}{
		{
			name:         "WithExecutor",
			opt:          WithExecutor(executor),
			expectedName: optionNameExecutor,
			validate: func(c *Client) {
				s.NotNil(c.executor)
			},
		},
		{
			name:         "WithLogger",
			opt:          WithLogger(logger),
			expectedName: optionNameLogger,
			validate: func(c *Client) {
				s.Equal(logger, c.logger)
			},
		},
		{
			name:         "WithChunkSize",
			opt:          WithChunkSize(8 * 1024 * 1024),
			expectedName: optionNameChunkSize,
			validate: func(c *Client) {
				s.Equal(8*1024*1024, c.chunkSize)
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			c := &Client{logger: zerolog.Nop(), chunkSize: DefaultChunkSize}

			tt.opt.Apply(c)
			tt.validate(c)

			s.Equal(tt.expectedName, tt.opt.NewFileSystemOptionName())
		})
	}
}

func TestNewClientOptionTestSuite(t *testing.T) {
	suite.Run(t, new(NewClientOptionTestSuite))
}
