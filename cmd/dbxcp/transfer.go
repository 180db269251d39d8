package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"

	"github.com/c2fo/vfs/v7"
	_ "github.com/c2fo/vfs/v7/backend/all" // register all backends
	"github.com/c2fo/vfs/v7/vfssimple"

	"github.com/c2fo/dbxfiles"
	"github.com/c2fo/dbxfiles/dbxevents"
)

var (
	errNoDropboxEndpoint = errors.New("one of SOURCE or TARGET must be a dbx:// URI")
	errEmptyDropboxPath  = errors.New("dbx:// URI has no path")
)

// endpoint is either a Dropbox path or a vfs URI.
type endpoint struct {
	dropbox bool
	path    string // dropbox path, ie: /Reports/report.csv
	uri     string // vfs URI, ie: file:///tmp/report.csv
}

func (e endpoint) String() string {
	if e.dropbox {
		return dbxevents.Scheme + "://" + e.path
	}
	return e.uri
}

func checkArgs(a1, a2 string) error {
	if a1 == "" || a2 == "" {
		return errors.New("dbxcp requires 2 non-empty arguments")
	}
	return nil
}

// parseEndpoint turns an argument into an endpoint. Relative and ~ paths are local files.
func parseEndpoint(arg string) (endpoint, error) {
	expanded, err := homedir.Expand(arg)
	if err != nil {
		return endpoint{}, err
	}

	u, err := url.Parse(expanded)
	if err != nil {
		return endpoint{}, err
	}

	switch {
	case u.Scheme == dbxevents.Scheme:
		// dbx:///a/b.txt is canonical; dbx://a/b.txt is read the same way
		p := u.Path
		if u.Host != "" {
			p = "/" + u.Host + p
		}
		if p == "" || p == "/" {
			return endpoint{}, fmt.Errorf("%q: %w", arg, errEmptyDropboxPath)
		}
		return endpoint{dropbox: true, path: p}, nil
	case u.IsAbs():
		return endpoint{uri: expanded}, nil
	default:
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return endpoint{}, err
		}
		return endpoint{uri: "file://" + filepath.ToSlash(abs)}, nil
	}
}

type transfer struct {
	client     *dbxfiles.Client
	out        io.Writer
	overwrite  bool
	autorename bool
}

func (t *transfer) run(ctx context.Context, src, dst endpoint) error {
	fmt.Fprintf(t.out, "Copying %s to %s\n", color.CyanString(src.String()), color.CyanString(dst.String()))

	var (
		file *dbxfiles.File
		err  error
	)
	switch {
	case src.dropbox && dst.dropbox:
		file, err = t.copyWithin(ctx, src.path, dst.path)
	case src.dropbox:
		file, err = t.download(ctx, src.path, dst.uri)
	case dst.dropbox:
		file, err = t.upload(ctx, src.uri, dst.path)
	default:
		return errNoDropboxEndpoint
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(t.out, "%s %s (%d bytes, rev %s)\n",
		color.GreenString("Copied"), file.PathDisplay, file.Size, file.Rev)
	return nil
}

func (t *transfer) copyWithin(ctx context.Context, from, to string) (*dbxfiles.File, error) {
	src, err := t.client.GetMetadata(ctx, from)
	if err != nil {
		return nil, err
	}
	if _, ok := src.(*dbxfiles.File); !ok {
		return nil, fmt.Errorf("%s is a %s, only files can be copied: %w", from, src.Tag(), dbxfiles.ErrNotFile)
	}

	md, err := t.client.Copy(ctx, from, to, dbxfiles.Autorename(t.autorename))
	if err != nil {
		return nil, err
	}
	file, ok := md.(*dbxfiles.File)
	if !ok {
		return nil, fmt.Errorf("%s copied as a %s: %w", to, md.Tag(), dbxfiles.ErrNotFile)
	}
	return file, nil
}

func (t *transfer) download(ctx context.Context, from, to string) (file *dbxfiles.File, err error) {
	target, err := vfssimple.NewFile(to)
	if err != nil {
		return nil, err
	}
	defer closeFile(target, &err)

	return t.client.Download(ctx, from, target)
}

func (t *transfer) upload(ctx context.Context, from, to string) (file *dbxfiles.File, err error) {
	source, err := vfssimple.NewFile(from)
	if err != nil {
		return nil, err
	}
	defer closeFile(source, &err)

	mode := dbxfiles.WriteModeAdd()
	if t.overwrite {
		mode = dbxfiles.WriteModeOverwrite()
	}
	return t.client.UploadLarge(ctx, to, source, mode, dbxfiles.Autorename(t.autorename))
}

// closeFile closes f and keeps the first error. Closing commits a written vfs.File.
func closeFile(f vfs.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing %s: %w", f.URI(), cerr)
	}
}
