package dbxfiles

import (
	"github.com/rs/zerolog"

	"github.com/c2fo/vfs/v7/options"
)

const (
	optionNameExecutor  = "executor"
	optionNameLogger    = "logger"
	optionNameChunkSize = "chunkSize"
)

// WithExecutor sets the Executor that carries requests to the service.
func WithExecutor(executor Executor) options.NewFileSystemOption[Client] {
	return &executorOpt{executor: executor}
}

type executorOpt struct {
	executor Executor
}

func (o *executorOpt) Apply(c *Client) {
	c.executor = o.executor
}

func (o *executorOpt) NewFileSystemOptionName() string {
	return optionNameExecutor
}

// WithLogger sets the logger used when the call's context carries none.
// Default is a disabled logger.
func WithLogger(logger zerolog.Logger) options.NewFileSystemOption[Client] {
	return &loggerOpt{logger: logger}
}

type loggerOpt struct {
	logger zerolog.Logger
}

func (o *loggerOpt) Apply(c *Client) {
	c.logger = o.logger
}

func (o *loggerOpt) NewFileSystemOptionName() string {
	return optionNameLogger
}

// WithChunkSize sets the download copy buffer and the UploadLarge piece size.
// Default is 4MB.
func WithChunkSize(size int) options.NewFileSystemOption[Client] {
	return &chunkSizeOpt{size: size}
}

type chunkSizeOpt struct {
	size int
}

func (o *chunkSizeOpt) Apply(c *Client) {
	c.chunkSize = o.size
}

func (o *chunkSizeOpt) NewFileSystemOptionName() string {
	return optionNameChunkSize
}
