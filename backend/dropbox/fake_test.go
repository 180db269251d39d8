package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c2fo/dbxfiles"
)

var fakeEpoch = time.Date(2020, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeEntry struct {
	display        string
	folder         bool
	data           []byte
	rev            int
	serverModified time.Time
	clientModified time.Time
}

// fakeDropbox is an in-memory files namespace answering dbxfiles requests the way the service does.
type fakeDropbox struct {
	mu       sync.Mutex
	entries  map[string]*fakeEntry
	sessions map[string][]byte
	revs     int
	pageSize int
	routes   []string
	fail     map[string]*dbxfiles.Response
}

func newFakeDropbox() *fakeDropbox {
	return &fakeDropbox{
		entries:  map[string]*fakeEntry{},
		sessions: map[string][]byte{},
		fail:     map[string]*dbxfiles.Response{},
	}
}

func (d *fakeDropbox) put(p, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.write(p, []byte(content), time.Time{})
}

func (d *fakeDropbox) mkdir(p string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parents(p)
	d.entries[strings.ToLower(p)] = &fakeEntry{display: p, folder: true}
}

func (d *fakeDropbox) content(p string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[strings.ToLower(p)]
	if !ok || e.folder {
		return "", false
	}
	return string(e.data), true
}

func (d *fakeDropbox) entry(p string) *fakeEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries[strings.ToLower(p)]
}

func (d *fakeDropbox) called() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.routes...)
}

func (d *fakeDropbox) write(p string, data []byte, clientModified time.Time) *fakeEntry {
	d.parents(p)
	d.revs++
	modified := fakeEpoch.Add(time.Duration(d.revs) * time.Second)
	if clientModified.IsZero() {
		clientModified = modified
	}
	e := &fakeEntry{display: p, data: data, rev: d.revs, serverModified: modified, clientModified: clientModified}
	d.entries[strings.ToLower(p)] = e
	return e
}

func (d *fakeDropbox) parents(p string) {
	for dir := path.Dir(p); dir != "/" && dir != "."; dir = path.Dir(dir) {
		if _, ok := d.entries[strings.ToLower(dir)]; !ok {
			d.entries[strings.ToLower(dir)] = &fakeEntry{display: dir, folder: true}
		}
	}
}

func (d *fakeDropbox) Execute(_ context.Context, req *dbxfiles.Request) (*dbxfiles.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes = append(d.routes, req.Route)
	if resp, ok := d.fail[req.Route]; ok {
		return resp, nil
	}

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
	}

	switch req.Route {
	case "files/get_metadata":
		e, ok := d.entries[key(req.Args["path"])]
		if !ok {
			return lookupError("path", "not_found"), nil
		}
		return ok200(metadataJSON(e)), nil
	case "files/list_folder":
		return d.listFolder(key(req.Args["path"]), 0), nil
	case "files/list_folder/continue":
		folder, offset, _ := strings.Cut(req.Args["cursor"].(string), "|")
		n, err := strconv.Atoi(offset)
		if err != nil {
			return lookupError("path", "malformed_path"), nil
		}
		return d.listFolder(folder, n), nil
	case "files/download":
		e, ok := d.entries[key(req.Args["path"])]
		if !ok {
			return lookupError("path", "not_found"), nil
		}
		if e.folder {
			return lookupError("path", "not_file"), nil
		}
		return &dbxfiles.Response{
			StatusCode: http.StatusOK,
			Body:       metadataJSON(e),
			Content:    io.NopCloser(bytes.NewReader(e.data)),
		}, nil
	case "files/upload":
		if resp := d.commit(req.Args, body); resp != nil {
			return resp, nil
		}
		return uploadConflict(), nil
	case "files/upload_session/start":
		id := fmt.Sprintf("session-%d", len(d.sessions)+1)
		d.sessions[id] = body
		return ok200([]byte(`{"session_id": "` + id + `"}`)), nil
	case "files/upload_session/append_v2":
		var cursor dbxfiles.UploadSessionCursor
		remarshal(req.Args["cursor"], &cursor)
		d.sessions[cursor.SessionID] = append(d.sessions[cursor.SessionID], body...)
		return ok200([]byte("null")), nil
	case "files/upload_session/finish":
		var cursor dbxfiles.UploadSessionCursor
		remarshal(req.Args["cursor"], &cursor)
		var commit map[string]any
		remarshal(req.Args["commit"], &commit)
		if resp := d.commit(commit, append(d.sessions[cursor.SessionID], body...)); resp != nil {
			return resp, nil
		}
		return conflictError("path"), nil
	case "files/copy", "files/move":
		return d.relocate(req), nil
	case "files/delete":
		k := key(req.Args["path"])
		e, ok := d.entries[k]
		if !ok {
			return lookupError("path_lookup", "not_found"), nil
		}
		for other := range d.entries {
			if other == k || strings.HasPrefix(other, k+"/") {
				delete(d.entries, other)
			}
		}
		return ok200(envelope(e)), nil
	}
	return &dbxfiles.Response{StatusCode: http.StatusBadRequest, Body: []byte("unknown route " + req.Route)}, nil
}

func (d *fakeDropbox) listFolder(folder string, offset int) *dbxfiles.Response {
	if folder != "" {
		e, ok := d.entries[folder]
		if !ok {
			return lookupError("path", "not_found")
		}
		if !e.folder {
			return lookupError("path", "not_folder")
		}
	}

	var children []string
	for k := range d.entries {
		parent := path.Dir(k)
		if parent == "/" {
			parent = ""
		}
		if parent == folder {
			children = append(children, k)
		}
	}
	sort.Strings(children)

	end := len(children)
	if d.pageSize > 0 && offset+d.pageSize < end {
		end = offset + d.pageSize
	}

	entries := []json.RawMessage{}
	for _, k := range children[offset:end] {
		entries = append(entries, metadataJSON(d.entries[k]))
	}
	page, _ := json.Marshal(map[string]any{
		"entries":  entries,
		"cursor":   folder + "|" + strconv.Itoa(end),
		"has_more": end < len(children),
	})
	return ok200(page)
}

// commit returns nil when the write conflicts; upload and finish report that in different shapes.
func (d *fakeDropbox) commit(args map[string]any, data []byte) *dbxfiles.Response {
	p, _ := args["path"].(string)
	mode := "add"
	if m, ok := args["mode"].(map[string]any); ok {
		mode, _ = m[".tag"].(string)
	}
	if e, ok := d.entries[strings.ToLower(p)]; ok && (mode == "add" || e.folder) {
		return nil
	}

	var clientModified time.Time
	if s, ok := args["client_modified"].(string); ok {
		clientModified, _ = time.Parse(time.RFC3339, s)
	}
	return ok200(metadataJSON(d.write(p, data, clientModified)))
}

func (d *fakeDropbox) relocate(req *dbxfiles.Request) *dbxfiles.Response {
	from, _ := req.Args["from_path"].(string)
	to, _ := req.Args["to_path"].(string)
	src, ok := d.entries[strings.ToLower(from)]
	if !ok {
		return lookupError("from_lookup", "not_found")
	}
	if _, ok := d.entries[strings.ToLower(to)]; ok {
		return conflictError("to")
	}

	var moved *fakeEntry
	if src.folder {
		moved = &fakeEntry{display: to, folder: true}
		d.parents(to)
		d.entries[strings.ToLower(to)] = moved
	} else {
		moved = d.write(to, append([]byte(nil), src.data...), src.clientModified)
	}
	if req.Route == "files/move" {
		delete(d.entries, strings.ToLower(from))
	}
	return ok200(envelope(moved))
}

func key(v any) string {
	s, _ := v.(string)
	return strings.ToLower(s)
}

func metadataJSON(e *fakeEntry) []byte {
	md := map[string]any{
		"name":         path.Base(e.display),
		"path_lower":   strings.ToLower(e.display),
		"path_display": e.display,
		"id":           "id:" + strings.ToLower(e.display),
	}
	if e.folder {
		md[".tag"] = "folder"
	} else {
		md[".tag"] = "file"
		md["rev"] = fmt.Sprintf("%09x", e.rev)
		md["size"] = len(e.data)
		md["server_modified"] = e.serverModified.Format(time.RFC3339)
		md["client_modified"] = e.clientModified.UTC().Format(time.RFC3339)
		md["is_downloadable"] = true
	}
	raw, _ := json.Marshal(md)
	return raw
}

func envelope(e *fakeEntry) []byte {
	return []byte(`{"metadata": ` + string(metadataJSON(e)) + `}`)
}

func remarshal(in, out any) {
	raw, _ := json.Marshal(in)
	_ = json.Unmarshal(raw, out)
}

func ok200(body []byte) *dbxfiles.Response {
	return &dbxfiles.Response{StatusCode: http.StatusOK, Body: body}
}

func lookupError(member, reason string) *dbxfiles.Response {
	body := fmt.Sprintf(`{"error_summary": "%[1]s/%[2]s/..", "error": {".tag": "%[1]s", "%[1]s": {".tag": "%[2]s"}}}`,
		member, reason)
	return &dbxfiles.Response{StatusCode: http.StatusConflict, Body: []byte(body)}
}

// uploadError puts the write failure beside the "path" tag, as files/upload does.
func uploadError(reason string) *dbxfiles.Response {
	body := fmt.Sprintf(`{"error_summary": "path/%[1]s/..", "error": {".tag": "path", "reason": {".tag": "%[1]s"}, "upload_session_id": "pid_upload_session:fake"}}`,
		reason)
	return &dbxfiles.Response{StatusCode: http.StatusConflict, Body: []byte(body)}
}

func uploadConflict() *dbxfiles.Response {
	body := `{"error_summary": "path/conflict/file/..", "error": {".tag": "path", "reason": {".tag": "conflict", "conflict": {".tag": "file"}}, "upload_session_id": "pid_upload_session:fake"}}`
	return &dbxfiles.Response{StatusCode: http.StatusConflict, Body: []byte(body)}
}

func conflictError(member string) *dbxfiles.Response {
	body := fmt.Sprintf(`{"error_summary": "%[1]s/conflict/file/..", "error": {".tag": "%[1]s", "%[1]s": {".tag": "conflict", "conflict": {".tag": "file"}}}}`,
		member)
	return &dbxfiles.Response{StatusCode: http.StatusConflict, Body: []byte(body)}
}
