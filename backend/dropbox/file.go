package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/c2fo/vfs/v7"
	"github.com/c2fo/vfs/v7/options"
	"github.com/c2fo/vfs/v7/utils"

	"github.com/c2fo/dbxfiles"
)

var errSeekNonExistent = errors.New("cannot seek on non-existent file")

// File implements vfs.File for Dropbox.
//
// Dropbox has no range reads and no appends, so the whole file is downloaded into a temp file on the
// first Read or Seek, and writes go to a temp file that is uploaded on Close.
type File struct {
	location *Location
	path     string
	opts     []options.NewFileOption

	cursorPos   int64
	seekCalled  bool
	readCalled  bool
	writeCalled bool
	readEOFSeen bool

	tempFileRead  *os.File
	tempFileWrite *os.File
}

// LastModified returns the server modification time of the file.
func (f *File) LastModified() (*time.Time, error) {
	md, err := f.metadata()
	if err != nil {
		return nil, utils.WrapLastModifiedError(err)
	}
	return &md.ServerModified, nil
}

// Name returns the base name of the file.
func (f *File) Name() string {
	return path.Base(f.path)
}

// Path returns the full path of the file.
func (f *File) Path() string {
	return utils.EnsureLeadingSlash(f.path)
}

// Exists checks if the file exists. A folder at the path is not a file.
func (f *File) Exists() (bool, error) {
	_, err := f.metadata()
	switch {
	case errors.Is(err, dbxfiles.ErrNotFound), errors.Is(err, dbxfiles.ErrNotFile):
		return false, nil
	case err != nil:
		return false, utils.WrapExistsError(err)
	}
	return true, nil
}

// Size returns the size of the file in bytes.
func (f *File) Size() (uint64, error) {
	md, err := f.metadata()
	if err != nil {
		return 0, utils.WrapSizeError(err)
	}
	return md.Size, nil
}

// metadata returns the file's entry, or an error wrapping dbxfiles.ErrNotFile when the path is a folder.
func (f *File) metadata() (*dbxfiles.File, error) {
	client, err := f.location.fileSystem.Client()
	if err != nil {
		return nil, err
	}

	md, err := client.GetMetadata(context.Background(), f.path)
	if err != nil {
		return nil, err
	}

	file, ok := md.(*dbxfiles.File)
	if !ok {
		return nil, fmt.Errorf("%s is a %s: %w", f.path, md.Tag(), dbxfiles.ErrNotFile)
	}
	return file, nil
}

// Location returns the file's location.
func (f *File) Location() vfs.Location {
	return f.location
}

// URI returns the file's URI.
func (f *File) URI() string {
	return utils.GetFileURI(f)
}

// String returns the file's URI as a string.
func (f *File) String() string {
	return f.URI()
}

// Read implements io.Reader for the file.
func (f *File) Read(p []byte) (n int, err error) {
	if f.readEOFSeen {
		return 0, io.EOF
	}

	// unwritten content is read back from the write buffer
	if f.tempFileWrite != nil {
		if _, err := f.tempFileWrite.Seek(f.cursorPos, io.SeekStart); err != nil {
			return 0, utils.WrapReadError(err)
		}

		n, err := f.tempFileWrite.Read(p)
		f.cursorPos += int64(n)
		f.readCalled = true

		if err != nil && !errors.Is(err, io.EOF) {
			return n, utils.WrapReadError(err)
		}
		if errors.Is(err, io.EOF) {
			f.readEOFSeen = true
		}
		return n, err
	}

	if err := f.ensureTempFileRead(); err != nil {
		return 0, utils.WrapReadError(err)
	}

	n, err = f.tempFileRead.Read(p)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return 0, utils.WrapReadError(err)
		}
		f.readEOFSeen = true
	}

	f.cursorPos += int64(n)
	f.readCalled = true

	return n, err
}

// ensureTempFileRead downloads the file into a temp file and positions it at the cursor.
func (f *File) ensureTempFileRead() error {
	if f.tempFileRead != nil {
		return nil
	}

	client, err := f.location.fileSystem.Client()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.location.fileSystem.options.TempDir, "vfs-dropbox-read-*")
	if err != nil {
		return err
	}

	if _, err := client.Download(context.Background(), f.path, tmp); err != nil {
		removeTemp(tmp)
		return err
	}

	if _, err := tmp.Seek(f.cursorPos, io.SeekStart); err != nil {
		removeTemp(tmp)
		return err
	}

	f.tempFileRead = tmp
	return nil
}

// Write implements io.Writer for the file.
func (f *File) Write(data []byte) (int, error) {
	if err := f.ensureTempFileWrite(); err != nil {
		return 0, utils.WrapWriteError(err)
	}

	n, err := f.tempFileWrite.Write(data)
	if err != nil {
		return 0, utils.WrapWriteError(err)
	}

	f.cursorPos += int64(n)
	f.writeCalled = true

	return n, nil
}

// ensureTempFileWrite creates the write buffer. After a Read or Seek the existing content is kept so
// the write lands at the cursor.
func (f *File) ensureTempFileWrite() error {
	if f.tempFileWrite != nil {
		return nil
	}

	if f.seekCalled || f.readCalled {
		if err := f.ensureTempFileRead(); err != nil && !errors.Is(err, dbxfiles.ErrNotFound) {
			return err
		}

		if f.tempFileRead != nil {
			f.tempFileWrite = f.tempFileRead
			f.tempFileRead = nil
			return nil
		}
	}

	tmp, err := os.CreateTemp(f.location.fileSystem.options.TempDir, "vfs-dropbox-write-*")
	if err != nil {
		return err
	}

	if f.cursorPos > 0 {
		if _, err := tmp.Seek(f.cursorPos, io.SeekStart); err != nil {
			removeTemp(tmp)
			return err
		}
	}

	f.tempFileWrite = tmp
	return nil
}

// Seek implements io.Seeker for the file.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var size int64
	switch {
	case f.writeCalled && f.tempFileWrite != nil:
		stat, err := f.tempFileWrite.Stat()
		if err != nil {
			return 0, utils.WrapSeekError(err)
		}
		size = stat.Size()
	case f.readCalled && f.tempFileRead != nil:
		stat, err := f.tempFileRead.Stat()
		if err != nil {
			return 0, utils.WrapSeekError(err)
		}
		size = stat.Size()
	default:
		md, err := f.metadata()
		if errors.Is(err, dbxfiles.ErrNotFound) {
			return 0, utils.WrapSeekError(errSeekNonExistent)
		}
		if err != nil {
			return 0, utils.WrapSeekError(err)
		}
		size = int64(md.Size)
	}

	newPos, err := utils.SeekTo(size, f.cursorPos, offset, whence)
	if err != nil {
		return 0, utils.WrapSeekError(err)
	}

	if f.tempFileRead != nil {
		if _, err := f.tempFileRead.Seek(newPos, io.SeekStart); err != nil {
			return 0, utils.WrapSeekError(err)
		}
	}

	if f.tempFileWrite != nil {
		if _, err := f.tempFileWrite.Seek(newPos, io.SeekStart); err != nil {
			return 0, utils.WrapSeekError(err)
		}
	}

	f.cursorPos = newPos
	f.seekCalled = true
	f.readEOFSeen = f.cursorPos >= size

	return f.cursorPos, nil
}

// Close uploads any buffered writes, overwriting the file in Dropbox, and resets the file's state.
func (f *File) Close() error {
	var uploadErr error
	if f.writeCalled && f.tempFileWrite != nil {
		uploadErr = f.upload(f.tempFileWrite, dbxfiles.WriteModeOverwrite())
	}

	if f.tempFileRead != nil {
		removeTemp(f.tempFileRead)
		f.tempFileRead = nil
	}
	if f.tempFileWrite != nil {
		removeTemp(f.tempFileWrite)
		f.tempFileWrite = nil
	}

	f.cursorPos = 0
	f.seekCalled = false
	f.readCalled = false
	f.writeCalled = false
	f.readEOFSeen = false

	if uploadErr != nil {
		return utils.WrapCloseError(uploadErr)
	}
	return nil
}

// upload sends tmp from its start. UploadLarge switches to an upload session past one chunk.
func (f *File) upload(tmp *os.File, opts ...dbxfiles.Option) error {
	client, err := f.location.fileSystem.Client()
	if err != nil {
		return err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err = client.UploadLarge(context.Background(), f.path, tmp, opts...)
	return err
}

// Delete deletes the file from Dropbox.
func (f *File) Delete(opts ...options.DeleteOption) error {
	if err := f.Close(); err != nil {
		return utils.WrapDeleteError(err)
	}

	client, err := f.location.fileSystem.Client()
	if err != nil {
		return utils.WrapDeleteError(err)
	}

	if _, err := client.Delete(context.Background(), f.path); err != nil {
		return utils.WrapDeleteError(err)
	}
	return nil
}

// Touch creates an empty file, or re-uploads an existing one with the current time as its client
// modification time. Dropbox has no call that only bumps a timestamp.
func (f *File) Touch() error {
	exists, err := f.Exists()
	if err != nil {
		return utils.WrapTouchError(err)
	}

	if !exists {
		client, err := f.location.fileSystem.Client()
		if err != nil {
			return utils.WrapTouchError(err)
		}
		_, err = client.UploadLarge(context.Background(), f.path, nil, dbxfiles.WriteModeAdd())
		if err != nil {
			return utils.WrapTouchError(err)
		}
		return nil
	}

	if err := f.ensureTempFileRead(); err != nil {
		return utils.WrapTouchError(err)
	}

	err = f.upload(f.tempFileRead, dbxfiles.WriteModeOverwrite(), dbxfiles.ClientModified(time.Now()))
	if _, serr := f.tempFileRead.Seek(f.cursorPos, io.SeekStart); err == nil {
		err = serr
	}
	if err != nil {
		return utils.WrapTouchError(err)
	}
	return nil
}

// CopyToFile copies the file to the target file. Between files of the same FileSystem the copy happens
// on the server, replacing the target.
func (f *File) CopyToFile(file vfs.File) (err error) {
	if f.cursorPos != 0 {
		return vfs.ErrCopyToNotPossible
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = utils.WrapCopyToFileError(cerr)
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = utils.WrapCopyToFileError(cerr)
		}
	}()

	if tf, ok := file.(*File); ok && f.location.fileSystem == tf.location.fileSystem {
		if err := f.relocate(tf, false); err != nil {
			return utils.WrapCopyToFileError(err)
		}
		return nil
	}

	if err := utils.TouchCopyBuffered(file, f, 0); err != nil {
		return utils.WrapCopyToFileError(err)
	}
	return nil
}

// relocate copies or moves f onto target inside Dropbox, deleting target first since neither call
// overwrites.
func (f *File) relocate(target *File, move bool) error {
	if f.path == target.path {
		return nil
	}

	exists, err := target.Exists()
	if err != nil {
		return err
	}
	if exists {
		if err := target.Delete(); err != nil {
			return err
		}
	}

	client, err := f.location.fileSystem.Client()
	if err != nil {
		return err
	}

	if move {
		_, err = client.Move(context.Background(), f.path, target.path)
	} else {
		_, err = client.Copy(context.Background(), f.path, target.path)
	}
	return err
}

// CopyToLocation copies the file to the target location.
func (f *File) CopyToLocation(location vfs.Location) (vfs.File, error) {
	newFile, err := location.NewFile(f.Name())
	if err != nil {
		return nil, utils.WrapCopyToLocationError(err)
	}

	if err := f.CopyToFile(newFile); err != nil {
		return nil, utils.WrapCopyToLocationError(err)
	}

	return newFile, nil
}

// MoveToFile moves the file to the target file.
func (f *File) MoveToFile(file vfs.File) error {
	if f.cursorPos != 0 {
		return vfs.ErrCopyToNotPossible
	}

	if tf, ok := file.(*File); ok && f.location.fileSystem == tf.location.fileSystem {
		if err := f.Close(); err != nil {
			return utils.WrapMoveToFileError(err)
		}
		if err := f.relocate(tf, true); err != nil {
			return utils.WrapMoveToFileError(err)
		}
		return nil
	}

	if err := f.CopyToFile(file); err != nil {
		return utils.WrapMoveToFileError(err)
	}

	if err := f.Delete(); err != nil {
		return utils.WrapMoveToFileError(err)
	}
	return nil
}

// MoveToLocation moves the file to the target location.
func (f *File) MoveToLocation(location vfs.Location) (vfs.File, error) {
	newFile, err := location.NewFile(f.Name())
	if err != nil {
		return nil, utils.WrapMoveToLocationError(err)
	}

	if err := f.MoveToFile(newFile); err != nil {
		return nil, utils.WrapMoveToLocationError(err)
	}

	return newFile, nil
}

func removeTemp(tmp *os.File) {
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
}
