package wasi

import (
	"io"
	"io/fs"
	"os"
)

// descriptor is one guest-visible handle: the host resource it owns plus
// the capability state that governs it. Exactly one of file, reader, or
// writer backs the entry; std stream overrides use the reader/writer
// forms, everything opened through the filesystem uses file.
type descriptor struct {
	kind             Filetype
	rightsBase       Rights
	rightsInheriting Rights
	fdflags          uint16

	file   *os.File
	reader io.Reader
	writer io.Writer

	// realPath is the host filesystem path, present for opened and
	// preopened entries.
	realPath string

	// guestPath is the guest-visible virtual path; non-empty only for
	// preopen roots.
	guestPath string

	// dirents caches the directory listing between paginated fd_readdir
	// calls; a call with cookie zero refreshes it.
	dirents []fs.DirEntry
}

func (d *descriptor) isPreopen() bool {
	return d.guestPath != ""
}

// close releases the host resource. Reader/writer-backed std streams have
// nothing to release.
func (d *descriptor) close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// readv fills the guest buffers in order from the descriptor's cursor,
// advancing it. Stops at the first short read or error.
func (d *descriptor) readv(buffers [][]byte) (uint32, error) {
	r := d.reader
	if r == nil {
		if d.file == nil {
			return 0, fs.ErrInvalid
		}
		r = d.file
	}

	total := uint32(0)
	for _, b := range buffers {
		n, err := r.Read(b)
		total += uint32(n)
		if err != nil {
			return total, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}

// writev drains the guest buffers in order at the descriptor's cursor,
// advancing it.
func (d *descriptor) writev(buffers [][]byte) (uint32, error) {
	w := d.writer
	if w == nil {
		if d.file == nil {
			return 0, fs.ErrInvalid
		}
		w = d.file
	}

	total := uint32(0)
	for _, b := range buffers {
		n, err := w.Write(b)
		total += uint32(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// preadv is positional: it never consults or moves the cursor.
func (d *descriptor) preadv(buffers [][]byte, offset int64) (uint32, error) {
	if d.file == nil {
		return 0, fs.ErrInvalid
	}

	total := uint32(0)
	for _, b := range buffers {
		n, err := d.file.ReadAt(b, offset)
		total, offset = total+uint32(n), offset+int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// pwritev is positional: it never consults or moves the cursor.
func (d *descriptor) pwritev(buffers [][]byte, offset int64) (uint32, error) {
	if d.file == nil {
		return 0, fs.ErrInvalid
	}

	total := uint32(0)
	for _, b := range buffers {
		n, err := writeAt(d.file, b, offset, d.fdflags&fdflagsAppend != 0)
		total, offset = total+uint32(n), offset+int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// size reports the current byte length of the backing file.
func (d *descriptor) size() (int64, error) {
	if d.file == nil {
		return 0, fs.ErrInvalid
	}
	info, err := d.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// filetypeOf classifies a file mode into the ABI enumeration.
func filetypeOf(mode fs.FileMode) Filetype {
	switch {
	case mode.IsRegular():
		return FiletypeRegularFile
	case mode.IsDir():
		return FiletypeDirectory
	case mode&fs.ModeSymlink != 0:
		return FiletypeSymbolicLink
	case mode&fs.ModeDevice != 0:
		if mode&fs.ModeCharDevice != 0 {
			return FiletypeCharacterDevice
		}
		return FiletypeBlockDevice
	case mode&fs.ModeSocket != 0:
		return FiletypeSocketStream
	case mode&fs.ModeCharDevice != 0:
		return FiletypeCharacterDevice
	default:
		return FiletypeUnknown
	}
}
