package dropbox

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"

	"github.com/c2fo/vfs/v7"
	"github.com/c2fo/vfs/v7/options"
	"github.com/c2fo/vfs/v7/utils"
	"github.com/c2fo/vfs/v7/utils/authority"

	"github.com/c2fo/dbxfiles"
)

var (
	errLocationRequired = errors.New("non-nil dropbox.Location pointer is required")
	errPathRequired     = errors.New("non-empty string for path is required")
)

// Location implements the vfs.Location interface for Dropbox.
type Location struct {
	fileSystem *FileSystem
	path       string
	authority  authority.Authority
}

// List returns the names of the files directly in the location. Folders are left out, and a location
// that does not exist lists nothing.
func (l *Location) List() ([]string, error) {
	client, err := l.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	names := []string{}
	// list_folder wants "" for the root and no trailing slash elsewhere
	_, err = client.ListFolderAll(context.Background(), strings.TrimSuffix(l.path, "/"), func(md dbxfiles.Metadata) error {
		if file, ok := md.(*dbxfiles.File); ok {
			names = append(names, file.Name)
		}
		return nil
	})
	if errors.Is(err, dbxfiles.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	return names, nil
}

// ListByPrefix returns the names of files that start with prefix. A prefix holding a "/", ie:
// "subdir/report", lists files starting with "report" in subdir.
func (l *Location) ListByPrefix(prefix string) ([]string, error) {
	if strings.Contains(prefix, "/") {
		subLoc, err := l.NewLocation(path.Dir(prefix) + "/")
		if err != nil {
			return nil, err
		}
		return subLoc.ListByPrefix(path.Base(prefix))
	}

	return l.filter(func(name string) bool { return strings.HasPrefix(name, prefix) })
}

// ListByRegex returns a list of file names matching the given regex.
func (l *Location) ListByRegex(regex *regexp.Regexp) ([]string, error) {
	return l.filter(regex.MatchString)
}

func (l *Location) filter(keep func(string) bool) ([]string, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}

	var filtered []string
	for _, name := range all {
		if keep(name) {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// Volume returns the authority as a string.
//
// Deprecated: Use Authority instead.
func (l *Location) Volume() string {
	return l.Authority().String()
}

// Authority returns the authority for this location. It is always empty for Dropbox.
func (l *Location) Authority() authority.Authority {
	return l.authority
}

// Path returns the path of the location.
func (l *Location) Path() string {
	return utils.EnsureLeadingSlash(utils.EnsureTrailingSlash(l.path))
}

// Exists checks if the location exists. Dropbox keeps folders only while something is in them or they
// were created explicitly, so an emptied folder may not exist.
func (l *Location) Exists() (bool, error) {
	checkPath := strings.TrimSuffix(l.path, "/")
	if checkPath == "" {
		return true, nil
	}

	client, err := l.fileSystem.Client()
	if err != nil {
		return false, utils.WrapExistsError(err)
	}

	md, err := client.GetMetadata(context.Background(), checkPath)
	if errors.Is(err, dbxfiles.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, utils.WrapExistsError(err)
	}

	return md.Tag() == dbxfiles.TagFolder, nil
}

// NewLocation creates a new Location relative to the current one.
func (l *Location) NewLocation(relativePath string) (vfs.Location, error) {
	if l == nil {
		return nil, errLocationRequired
	}

	if relativePath == "" {
		return nil, errPathRequired
	}

	if err := utils.ValidateRelativeLocationPath(relativePath); err != nil {
		return nil, err
	}

	return &Location{
		fileSystem: l.fileSystem,
		path:       utils.EnsureTrailingSlash(path.Join(l.path, relativePath)),
		authority:  l.authority,
	}, nil
}

// ChangeDir updates the location's path to the given relative path.
//
// Deprecated: Use NewLocation instead.
func (l *Location) ChangeDir(relativePath string) error {
	if l == nil {
		return errLocationRequired
	}

	newLoc, err := l.NewLocation(relativePath)
	if err != nil {
		return err
	}

	*l = *newLoc.(*Location)
	return nil
}

// NewFile creates a new File at the location.
func (l *Location) NewFile(relFilePath string, opts ...options.NewFileOption) (vfs.File, error) {
	if l == nil {
		return nil, errLocationRequired
	}

	if relFilePath == "" {
		return nil, errPathRequired
	}

	if err := utils.ValidateRelativeFilePath(relFilePath); err != nil {
		return nil, err
	}

	newLocation, err := l.NewLocation(utils.EnsureTrailingSlash(path.Dir(relFilePath)))
	if err != nil {
		return nil, err
	}

	return &File{
		location: newLocation.(*Location),
		path:     path.Join(l.path, relFilePath),
		opts:     opts,
	}, nil
}

// DeleteFile deletes a file at the location.
func (l *Location) DeleteFile(fileName string, opts ...options.DeleteOption) error {
	file, err := l.NewFile(fileName)
	if err != nil {
		return err
	}

	return file.Delete(opts...)
}

// FileSystem returns the underlying FileSystem.
func (l *Location) FileSystem() vfs.FileSystem {
	return l.fileSystem
}

// URI returns the location's URI.
func (l *Location) URI() string {
	return utils.GetLocationURI(l)
}

// String returns the location's URI as a string.
func (l *Location) String() string {
	return l.URI()
}
