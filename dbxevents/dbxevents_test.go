package dbxevents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/c2fo/vfs/contrib/vfsevents"

	"github.com/c2fo/dbxfiles"
)

type step func(ctx context.Context, req *dbxfiles.Request) (*dbxfiles.Response, error)

// scriptedExecutor answers each route from its own queue. The last step of a queue repeats.
type scriptedExecutor struct {
	mu    sync.Mutex
	steps map[string][]step
	calls []string
}

func newScript() *scriptedExecutor {
	return &scriptedExecutor{steps: make(map[string][]step)}
}

func (s *scriptedExecutor) on(route string, steps ...step) *scriptedExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[route] = append(s.steps[route], steps...)
	return s
}

func (s *scriptedExecutor) Execute(ctx context.Context, req *dbxfiles.Request) (*dbxfiles.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.Route)
	queue := s.steps[req.Route]
	if len(queue) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("unexpected call to %s", req.Route)
	}
	next := queue[0]
	if len(queue) > 1 {
		s.steps[req.Route] = queue[1:]
	}
	s.mu.Unlock()
	return next(ctx, req)
}

func (s *scriptedExecutor) count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == route {
			n++
		}
	}
	return n
}

func reply(body string) step {
	return func(context.Context, *dbxfiles.Request) (*dbxfiles.Response, error) {
		return &dbxfiles.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	}
}

func fail(status int, body string) step {
	return func(context.Context, *dbxfiles.Request) (*dbxfiles.Response, error) {
		return &dbxfiles.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

func block(ctx context.Context, _ *dbxfiles.Request) (*dbxfiles.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func file(display, rev, hash string) string {
	name := display[strings.LastIndex(display, "/")+1:]
	return fmt.Sprintf(`{".tag": "file", "name": %q, "path_lower": %q, "path_display": %q, "id": "id:%s",
		"rev": %q, "content_hash": %q, "size": 7, "server_modified": "2026-03-01T10:00:00Z",
		"client_modified": "2026-03-01T10:00:00Z"}`,
		name, strings.ToLower(display), display, rev, rev, hash)
}

func deleted(display string) string {
	name := display[strings.LastIndex(display, "/")+1:]
	return fmt.Sprintf(`{".tag": "deleted", "name": %q, "path_lower": %q, "path_display": %q}`,
		name, strings.ToLower(display), display)
}

func folder(display string) string {
	name := display[strings.LastIndex(display, "/")+1:]
	return fmt.Sprintf(`{".tag": "folder", "name": %q, "path_lower": %q, "path_display": %q, "id": "id:%s"}`,
		name, strings.ToLower(display), display, name)
}

func page(cursor string, hasMore bool, entries ...string) string {
	return fmt.Sprintf(`{"entries": [%s], "cursor": %q, "has_more": %t}`, strings.Join(entries, ","), cursor, hasMore)
}

const (
	routeList     = "files/list_folder"
	routeContinue = "files/list_folder/continue"
	routeLongpoll = "files/list_folder/longpoll"
)

func newTestWatcher(t *testing.T, script *scriptedExecutor, opts ...Option) *Watcher {
	t.Helper()
	client, err := dbxfiles.NewClient(dbxfiles.WithExecutor(script))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	w, err := NewWatcher(client, "/Watched", opts...)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	return w
}

type recorder struct {
	mu     sync.Mutex
	events []vfsevents.Event
}

func (r *recorder) handle(e vfsevents.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) summary() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type.String()+" "+e.URI)
	}
	return out
}

func TestNewWatcher(t *testing.T) {
	is := is.New(t)

	_, err := NewWatcher(nil, "/Watched")
	is.True(errors.Is(err, errNilClient))

	client, err := dbxfiles.NewClient(dbxfiles.WithExecutor(newScript()))
	is.NoErr(err)

	_, err = NewWatcher(client, "/Watched", WithLongpollTimeout(10*time.Second))
	is.True(err != nil) // below the service minimum

	_, err = NewWatcher(client, "/Watched", WithLongpollTimeout(10*time.Minute))
	is.True(err != nil) // above the service maximum

	w, err := NewWatcher(client, "/Watched", WithLongpollTimeout(time.Minute), WithRecursive(), WithErrorDelay(time.Second))
	is.NoErr(err)
	is.Equal(w.timeout, time.Minute)
	is.True(w.recursive)
	is.Equal(w.errorDelay, time.Second)
}

func TestCatchUp(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false,
			file("/Watched/a.txt", "0001", "h1"),
			file("/Watched/b.txt", "0002", "h2"),
			folder("/Watched/sub"),
		))).
		on(routeContinue, reply(page("c2", false,
			file("/Watched/a.txt", "0003", "h3"),
			file("/Watched/b.txt", "0002", "h2"),
			file("/Watched/c.txt", "0004", "h4"),
			deleted("/Watched/b.txt"),
			deleted("/Watched/never-seen"),
			folder("/Watched/new-folder"),
		)))
	w := newTestWatcher(t, script)

	is.NoErr(w.sync(context.Background(), nil, nil))
	is.Equal(w.cursor, "c1")
	is.Equal(len(w.files), 2) // folders are not tracked

	rec := &recorder{}
	status := &vfsevents.WatcherStatus{}
	is.NoErr(w.catchUp(context.Background(), rec.handle, status))

	is.Equal(rec.summary(), []string{
		"Modified dbx:///Watched/a.txt",
		"Created dbx:///Watched/c.txt",
		"Deleted dbx:///Watched/b.txt",
	})
	is.Equal(w.cursor, "c2")
	is.Equal(status.EventsProcessed, int64(3))

	created := rec.events[1]
	is.Equal(created.Metadata["rev"], "0004")
	is.Equal(created.Metadata["contentHash"], "h4")
	is.Equal(created.Metadata["size"], "7")
	is.Equal(created.Timestamp, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Unix())
	is.Equal(rec.events[2].Metadata["rev"], "0002")
}

func TestDeletedFolderForgetsItsFiles(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false,
			file("/Watched/docs/a.txt", "0001", "h1"),
			file("/Watched/docs/sub/b.txt", "0002", "h2"),
			file("/Watched/docs-old.txt", "0003", "h3"),
		))).
		on(routeContinue, reply(page("c2", false, deleted("/Watched/docs"))))
	w := newTestWatcher(t, script, WithRecursive())

	is.NoErr(w.sync(context.Background(), nil, nil))

	rec := &recorder{}
	is.NoErr(w.catchUp(context.Background(), rec.handle, &vfsevents.WatcherStatus{}))

	is.Equal(rec.summary(), []string{
		"Deleted dbx:///Watched/docs/a.txt",
		"Deleted dbx:///Watched/docs/sub/b.txt",
	})
	_, kept := w.files["/watched/docs-old.txt"]
	is.True(kept) // a sibling sharing the prefix is not beneath the folder
}

func TestResetRelists(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList,
			reply(page("c1", false,
				file("/Watched/a.txt", "0001", "h1"),
				file("/Watched/b.txt", "0002", "h2"),
			)),
			reply(page("c9", false,
				file("/Watched/a.txt", "0001", "h1"),
				file("/Watched/c.txt", "0005", "h5"),
			)),
		).
		on(routeContinue, fail(http.StatusConflict, `{"error_summary": "reset/..", "error": {".tag": "reset"}}`))
	w := newTestWatcher(t, script)

	is.NoErr(w.sync(context.Background(), nil, nil))

	rec := &recorder{}
	is.NoErr(w.catchUp(context.Background(), rec.handle, &vfsevents.WatcherStatus{}))

	is.Equal(rec.summary(), []string{
		"Created dbx:///Watched/c.txt",
		"Deleted dbx:///Watched/b.txt",
	})
	is.Equal(w.cursor, "c9")
	is.Equal(script.count(routeList), 2)
}

func TestStartFailsWhenListingFails(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, fail(http.StatusConflict, `{"error_summary": "path/not_found/..", "error": {".tag": "path", "path": {".tag": "not_found"}}}`))
	w := newTestWatcher(t, script)

	err := w.Start(context.Background(), func(vfsevents.Event) {}, func(error) {})
	is.True(errors.Is(err, dbxfiles.ErrNotFound))

	is.NoErr(w.Stop()) // stopping a watcher that never started is fine
}

func TestStopDuringInitialListing(t *testing.T) {
	is := is.New(t)

	script := newScript().on(routeList, block)
	w := newTestWatcher(t, script)

	started := make(chan error, 1)
	go func() {
		started <- w.Start(context.Background(), func(vfsevents.Event) {}, func(error) {})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for script.count(routeList) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop(vfsevents.WithTimeout(5 * time.Second)) }()

	select {
	case err := <-stopped:
		is.NoErr(err)
	case <-time.After(time.Second):
		t.Fatal("Stop waited on the initial listing")
	}

	select {
	case err := <-started:
		is.True(errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	is.True(w.cancel == nil)
}

func TestStartAndStop(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false, file("/Watched/a.txt", "0001", "h1")))).
		on(routeLongpoll, reply(`{"changes": true}`), block).
		on(routeContinue, reply(page("c2", false, file("/Watched/new.txt", "0002", "h2"))))
	w := newTestWatcher(t, script, WithLongpollTimeout(dbxfiles.MinLongpollTimeout))

	events := make(chan vfsevents.Event, 10)
	errs := make(chan error, 10)
	var statusMu sync.Mutex
	var statuses []vfsevents.WatcherStatus

	err := w.Start(context.Background(),
		func(e vfsevents.Event) { events <- e },
		func(err error) { errs <- err },
		vfsevents.WithStatusCallback(func(s vfsevents.WatcherStatus) {
			statusMu.Lock()
			defer statusMu.Unlock()
			statuses = append(statuses, s)
		}),
	)
	is.NoErr(err)

	err = w.Start(context.Background(), func(vfsevents.Event) {}, func(error) {})
	is.True(errors.Is(err, errAlreadyRunning))

	select {
	case e := <-events:
		is.Equal(e.Type, vfsevents.EventCreated)
		is.Equal(e.URI, "dbx:///Watched/new.txt")
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	// wait for the second long-poll so Stop interrupts a blocked call
	deadline := time.Now().Add(5 * time.Second)
	for script.count(routeLongpoll) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	is.NoErr(w.Stop(vfsevents.WithTimeout(5 * time.Second)))
	is.Equal(len(errs), 0) // cancellation is not reported as an error

	statusMu.Lock()
	defer statusMu.Unlock()
	is.True(len(statuses) >= 2)
	is.True(statuses[0].Running)
	is.True(!statuses[len(statuses)-1].Running)
}

func TestEventFilter(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false))).
		on(routeLongpoll, reply(`{"changes": true}`), block).
		on(routeContinue, reply(page("c2", false,
			file("/Watched/skip.tmp", "0001", "h1"),
			file("/Watched/keep.txt", "0002", "h2"),
		)))
	w := newTestWatcher(t, script)

	events := make(chan vfsevents.Event, 10)
	is.NoErr(w.Start(context.Background(),
		func(e vfsevents.Event) { events <- e },
		func(error) {},
		vfsevents.WithEventFilter(func(e vfsevents.Event) bool { return !strings.HasSuffix(e.URI, ".tmp") }),
	))
	defer func() { is.NoErr(w.Stop()) }()

	select {
	case e := <-events:
		is.Equal(e.URI, "dbx:///Watched/keep.txt")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestCycleHonoursBackoff(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false))).
		on(routeLongpoll, reply(`{"changes": false, "backoff": 60}`))
	w := newTestWatcher(t, script)
	is.NoErr(w.sync(context.Background(), nil, nil))

	wait, err := w.cycle(context.Background(), func(vfsevents.Event) {}, &vfsevents.StartConfig{}, &vfsevents.WatcherStatus{})
	is.NoErr(err)
	is.Equal(wait, time.Minute)
	is.Equal(script.count(routeContinue), 0) // nothing changed, nothing read
}

func TestCycleRetries(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false))).
		on(routeLongpoll,
			fail(http.StatusServiceUnavailable, "upstream unavailable"),
			fail(http.StatusTooManyRequests, `{"error_summary": "too_many_requests/..", "error": {"reason": {".tag": "too_many_requests"}}}`),
			reply(`{"changes": false}`),
		)
	w := newTestWatcher(t, script)
	is.NoErr(w.sync(context.Background(), nil, nil))

	config := &vfsevents.StartConfig{RetryConfig: vfsevents.RetryConfig{
		Enabled:        true,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}}
	status := &vfsevents.WatcherStatus{}

	_, err := w.cycle(context.Background(), func(vfsevents.Event) {}, config, status)
	is.NoErr(err)
	is.Equal(status.RetryAttempts, int64(2))
	is.Equal(status.ConsecutiveErrors, int64(0))
	is.Equal(script.count(routeLongpoll), 3)
}

func TestCycleDoesNotRetryPermanentErrors(t *testing.T) {
	is := is.New(t)

	script := newScript().
		on(routeList, reply(page("c1", false))).
		on(routeLongpoll, fail(http.StatusBadRequest, "Error in call to API function \"files/list_folder/longpoll\": Invalid \"cursor\" parameter"))
	w := newTestWatcher(t, script)
	is.NoErr(w.sync(context.Background(), nil, nil))

	config := &vfsevents.StartConfig{RetryConfig: vfsevents.RetryConfig{
		Enabled:        true,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  2,
	}}

	_, err := w.cycle(context.Background(), func(vfsevents.Event) {}, config, &vfsevents.WatcherStatus{})
	is.True(errors.Is(err, dbxfiles.ErrHTTP)) // a bad cursor is not worth retrying
	is.Equal(script.count(routeLongpoll), 1)
}

func TestIsRetryable(t *testing.T) {
	enabled := vfsevents.RetryConfig{Enabled: true}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: &dbxfiles.RateLimitError{}, want: true},
		{name: "server error", err: &dbxfiles.HTTPError{ErrorContext: dbxfiles.ErrorContext{StatusCode: 502}}, want: true},
		{name: "transport failure", err: &dbxfiles.HTTPError{Err: errors.New("EOF")}, want: true},
		{name: "long-poll rate limited", err: &dbxfiles.HTTPError{ErrorContext: dbxfiles.ErrorContext{StatusCode: 429}}, want: true},
		{name: "bad request", err: &dbxfiles.HTTPError{ErrorContext: dbxfiles.ErrorContext{StatusCode: 400}}, want: false},
		{name: "not found", err: &dbxfiles.NotFoundError{}, want: false},
		{name: "cancelled", err: &dbxfiles.HTTPError{Err: context.Canceled}, want: false},
		{name: "generic network failure", err: errors.New("connection reset by peer"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(isRetryable(tt.err, enabled), tt.want)
		})
	}
}
