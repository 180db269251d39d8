// Package dbxevents implements a vfsevents.Watcher for a Dropbox folder using listing cursors and long-poll.
package dbxevents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/c2fo/vfs/contrib/vfsevents"

	"github.com/c2fo/dbxfiles"
)

// Scheme is the URI scheme of emitted events, ie: dbx:///Homework/math/Prime_Numbers.txt
const Scheme = "dbx"

const defaultErrorDelay = 10 * time.Second

var (
	errNilClient      = errors.New("client cannot be nil")
	errAlreadyRunning = errors.New("watcher is already running")
)

// fileState is what the watcher remembers about a file between cycles.
type fileState struct {
	display     string
	rev         string
	contentHash string
}

// Watcher implements the vfsevents.Watcher interface for a Dropbox folder.
//
// Start lists the folder once to learn what is already there, then blocks in list_folder/longpoll until the
// service reports a change and reads the change with list_folder/continue. New files are EventCreated, files
// whose revision or content hash changed are EventModified, and deleted files (including those under a
// deleted folder) are EventDeleted. Folders produce no events. When the cursor is reset the folder is listed
// again and reconciled with what the watcher knew.
type Watcher struct {
	client     *dbxfiles.Client
	path       string
	recursive  bool
	timeout    time.Duration
	errorDelay time.Duration
	logger     zerolog.Logger

	cancel  context.CancelFunc
	mu      sync.Mutex
	startMu sync.Mutex // serializes Start without holding mu through the initial listing
	wg      sync.WaitGroup

	// owned by the watch goroutine once Start returns
	files  map[string]fileState
	cursor string
}

// Option is a functional option for configuring a Watcher.
type Option func(*Watcher)

// WithRecursive watches the whole tree under the path rather than its direct children.
func WithRecursive() Option {
	return func(w *Watcher) {
		w.recursive = true
	}
}

// WithLongpollTimeout sets how long each long-poll may block, between dbxfiles.MinLongpollTimeout and
// dbxfiles.MaxLongpollTimeout. Default lets the service decide (30 seconds).
func WithLongpollTimeout(timeout time.Duration) Option {
	return func(w *Watcher) {
		w.timeout = timeout
	}
}

// WithErrorDelay sets how long to wait after a failed cycle before polling again. Default is 10 seconds.
func WithErrorDelay(delay time.Duration) Option {
	return func(w *Watcher) {
		w.errorDelay = delay
	}
}

// WithLogger sets the logger. Default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher initializes a Watcher for path. An empty path watches the root of the account (or app folder).
func NewWatcher(client *dbxfiles.Client, path string, opts ...Option) (*Watcher, error) {
	if client == nil {
		return nil, errNilClient
	}

	w := &Watcher{
		client:     client,
		path:       path,
		errorDelay: defaultErrorDelay,
		logger:     zerolog.Nop(),
		files:      make(map[string]fileState),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.timeout != 0 && (w.timeout < dbxfiles.MinLongpollTimeout || w.timeout > dbxfiles.MaxLongpollTimeout) {
		return nil, fmt.Errorf("longpoll timeout must be between %v and %v, got %v",
			dbxfiles.MinLongpollTimeout, dbxfiles.MaxLongpollTimeout, w.timeout)
	}

	return w, nil
}

// Start lists the folder and begins watching it for changes, triggering handler on events. The initial listing
// happens before Start returns, so a missing folder or a bad token fails Start itself. Watching stops when ctx
// is done or Stop is called; a Stop during the initial listing cancels it.
func (w *Watcher) Start(
	ctx context.Context,
	handler vfsevents.HandlerFunc,
	errHandler vfsevents.ErrorHandlerFunc,
	opts ...vfsevents.StartOption) error {
	w.startMu.Lock()
	defer w.startMu.Unlock()

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return errAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	config := &vfsevents.StartConfig{}
	for _, opt := range opts {
		opt(config)
	}

	// a force-stopped goroutine may still be winding down
	w.wg.Wait()

	w.files = make(map[string]fileState)
	if err := w.sync(ctx, nil, nil); err != nil {
		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
		cancel()
		return fmt.Errorf("listing %q: %w", w.path, err)
	}

	wrappedHandler := handler
	if config.EventFilter != nil {
		wrappedHandler = func(event vfsevents.Event) {
			if config.EventFilter(event) {
				handler(event)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if ctx.Err() != nil {
		w.cancel = nil
		cancel()
		return fmt.Errorf("watcher stopped while listing %q: %w", w.path, ctx.Err())
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx, wrappedHandler, errHandler, config)
	}()

	return nil
}

func (w *Watcher) run(
	ctx context.Context,
	handler vfsevents.HandlerFunc,
	errHandler vfsevents.ErrorHandlerFunc,
	config *vfsevents.StartConfig) {
	status := vfsevents.WatcherStatus{Running: true, StartTime: time.Now()}
	report := func() {
		if config.StatusCallback != nil {
			config.StatusCallback(status)
		}
	}
	report()

	for ctx.Err() == nil {
		wait, err := w.cycle(ctx, handler, config, &status)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			status.LastError = err
			status.ConsecutiveErrors++
			report()
			w.logger.Error().Err(err).Str("path", w.path).Msg("watch cycle failed")
			errHandler(err)
			wait = max(wait, w.errorDelay)
			var limited *dbxfiles.RateLimitError
			if errors.As(err, &limited) {
				wait = max(wait, limited.RetryAfter)
			}
		default:
			status.ConsecutiveErrors = 0
			report()
		}
		if !sleep(ctx, wait) {
			break
		}
	}

	status.Running = false
	report()
}

// cycle waits for a change behind the cursor and applies it. It returns how long the service asked to wait
// before polling again.
func (w *Watcher) cycle(
	ctx context.Context,
	handler vfsevents.HandlerFunc,
	config *vfsevents.StartConfig,
	status *vfsevents.WatcherStatus) (time.Duration, error) {
	var poll *dbxfiles.ListFolderLongpollResult
	err := w.retry(ctx, config, status, func() error {
		var err error
		poll, err = w.client.ListFolderLongpoll(ctx, w.cursor, w.timeout)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("waiting for changes: %w", err)
	}

	if poll.Changes {
		err = w.retry(ctx, config, status, func() error {
			return w.catchUp(ctx, handler, status)
		})
		if err != nil {
			return poll.Backoff, fmt.Errorf("reading changes: %w", err)
		}
	}
	return poll.Backoff, nil
}

// catchUp applies every entry behind the cursor and advances it. A reset cursor falls back to a full listing.
func (w *Watcher) catchUp(ctx context.Context, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) error {
	cursor, err := w.client.ListFolderContinueAll(ctx, w.cursor, func(md dbxfiles.Metadata) error {
		w.apply(md, handler, status)
		return nil
	})

	var reset *dbxfiles.ResetError
	if errors.As(err, &reset) {
		w.logger.Warn().Str("path", w.path).Msg("cursor reset, listing folder again")
		return w.sync(ctx, handler, status)
	}
	if err != nil {
		return err
	}

	w.cursor = cursor
	return nil
}

// sync lists the folder and reconciles it with the known files. handler is nil while seeding.
func (w *Watcher) sync(ctx context.Context, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) error {
	var opts []dbxfiles.Option
	if w.recursive {
		opts = append(opts, dbxfiles.Recursive(true))
	}

	var listed []*dbxfiles.File
	cursor, err := w.client.ListFolderAll(ctx, w.path, func(md dbxfiles.Metadata) error {
		if f, ok := md.(*dbxfiles.File); ok {
			listed = append(listed, f)
		}
		return nil
	}, opts...)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(listed))
	for _, f := range listed {
		current[keyOf(f.Entry)] = struct{}{}
		w.applyFile(f, handler, status)
	}

	var gone []string
	for key := range w.files {
		if _, ok := current[key]; !ok {
			gone = append(gone, key)
		}
	}
	w.forget(gone, handler, status)

	w.cursor = cursor
	return nil
}

func (w *Watcher) apply(md dbxfiles.Metadata, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) {
	switch m := md.(type) {
	case *dbxfiles.File:
		w.applyFile(m, handler, status)
	case *dbxfiles.Deleted:
		w.applyDeleted(m, handler, status)
	}
}

func (w *Watcher) applyFile(f *dbxfiles.File, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) {
	key := keyOf(f.Entry)
	prev, known := w.files[key]
	w.files[key] = fileState{display: f.PathDisplay, rev: f.Rev, contentHash: f.ContentHash}

	if handler == nil {
		return
	}

	event := vfsevents.Event{
		URI:       uri(f.PathDisplay),
		Metadata:  fileMetadata(f),
		Timestamp: f.ServerModified.Unix(),
	}
	switch {
	case !known:
		event.Type = vfsevents.EventCreated
	case prev.rev != f.Rev || prev.contentHash != f.ContentHash:
		event.Type = vfsevents.EventModified
	default:
		return
	}
	emit(handler, status, event)
}

// applyDeleted forgets the entry and everything known beneath it. A deleted entry the watcher never saw as a
// file (a folder, or a file created and deleted between two polls) produces no event of its own.
func (w *Watcher) applyDeleted(d *dbxfiles.Deleted, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) {
	key := keyOf(d.Entry)
	prefix := key + "/"

	var gone []string
	for known := range w.files {
		if known == key || strings.HasPrefix(known, prefix) {
			gone = append(gone, known)
		}
	}
	w.forget(gone, handler, status)
}

func (w *Watcher) forget(keys []string, handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus) {
	sort.Strings(keys)
	for _, key := range keys {
		state := w.files[key]
		delete(w.files, key)
		if handler == nil {
			continue
		}
		emit(handler, status, vfsevents.Event{
			URI:       uri(state.display),
			Type:      vfsevents.EventDeleted,
			Metadata:  map[string]string{"rev": state.rev},
			Timestamp: time.Now().Unix(),
		})
	}
}

// retry runs op, retrying transient failures when retry is enabled.
func (w *Watcher) retry(
	ctx context.Context,
	config *vfsevents.StartConfig,
	status *vfsevents.WatcherStatus,
	op func() error) error {
	err := op()
	if err == nil || !config.RetryConfig.Enabled {
		return err
	}

	for attempt := 0; attempt < config.RetryConfig.MaxRetries; attempt++ {
		if ctx.Err() != nil || !isRetryable(err, config.RetryConfig) {
			return err
		}

		backoff := vfsevents.CalculateBackoff(attempt, config.RetryConfig)
		var limited *dbxfiles.RateLimitError
		if errors.As(err, &limited) && limited.RetryAfter > backoff {
			backoff = limited.RetryAfter
		}

		status.RetryAttempts++
		status.ConsecutiveErrors++
		status.LastError = err
		status.LastRetryTime = time.Now()
		if config.StatusCallback != nil {
			config.StatusCallback(*status)
		}
		w.logger.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("retrying")

		if !sleep(ctx, backoff) {
			return err
		}
		if err = op(); err == nil {
			status.ConsecutiveErrors = 0
			return nil
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", config.RetryConfig.MaxRetries, err)
}

// isRetryable adds rate limiting and failed exchanges to the generic transient error checks. Long-poll has no
// error union, so its 429 arrives as an *HTTPError.
func isRetryable(err error, config vfsevents.RetryConfig) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, dbxfiles.ErrRateLimit) {
		return true
	}
	var httpErr *dbxfiles.HTTPError
	if errors.As(err, &httpErr) &&
		(httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests || httpErr.Err != nil) {
		return true
	}
	return vfsevents.IsRetryableError(err, config)
}

// Stop stops watching. Unless forced, it waits up to the timeout (default 30 seconds) for the watch goroutine
// to exit.
func (w *Watcher) Stop(opts ...vfsevents.StopOption) error {
	config := &vfsevents.StopConfig{
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()

	if config.Force {
		return nil
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(config.Timeout):
		return fmt.Errorf("timeout waiting for watcher to stop after %v", config.Timeout)
	}
}

func emit(handler vfsevents.HandlerFunc, status *vfsevents.WatcherStatus, event vfsevents.Event) {
	handler(event)
	if status != nil {
		status.EventsProcessed++
		status.LastEventTime = time.Now()
	}
}

func keyOf(e dbxfiles.Entry) string {
	if e.PathLower != "" {
		return e.PathLower
	}
	return strings.ToLower(e.PathDisplay)
}

func uri(path string) string {
	return Scheme + "://" + path
}

func fileMetadata(f *dbxfiles.File) map[string]string {
	md := map[string]string{
		"id":             f.ID,
		"rev":            f.Rev,
		"size":           strconv.FormatUint(f.Size, 10),
		"contentHash":    f.ContentHash,
		"serverModified": f.ServerModified.UTC().Format(time.RFC3339),
	}
	for k, v := range md {
		if v == "" {
			delete(md, k)
		}
	}
	return md
}

// sleep waits for d or until ctx is done, reporting whether the wait ran its course.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
