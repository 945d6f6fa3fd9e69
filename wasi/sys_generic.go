//go:build !unix

package wasi

import (
	"io/fs"
	"os"
	"time"
)

func filestatFromInfo(info fs.FileInfo) filestat {
	mtim := uint64(info.ModTime().UnixNano())
	return filestat{
		filetype: filetypeOf(info.Mode()),
		nlink:    1,
		size:     uint64(info.Size()),
		atim:     mtim,
		mtim:     mtim,
		ctim:     mtim,
	}
}

func fstatFile(f *os.File) (filestat, error) {
	info, err := f.Stat()
	if err != nil {
		return filestat{}, err
	}
	return filestatFromInfo(info), nil
}

func statPath(path string, followSymlinks bool) (filestat, error) {
	var info fs.FileInfo
	var err error
	if followSymlinks {
		info, err = os.Stat(path)
	} else {
		info, err = os.Lstat(path)
	}
	if err != nil {
		return filestat{}, err
	}
	return filestatFromInfo(info), nil
}

func inodeOf(fs.FileInfo) uint64 {
	return 0
}

// setFdFlags cannot reapply flags to an open handle without fcntl; the
// descriptor still records them for fd_fdstat_get.
func setFdFlags(*os.File, uint16) error {
	return nil
}

func utimens(path string, atim, mtim *time.Time, followSymlinks bool) error {
	st, err := statPath(path, followSymlinks)
	if err != nil {
		return err
	}
	at := time.Unix(0, int64(st.atim))
	mt := time.Unix(0, int64(st.mtim))
	if atim != nil {
		at = *atim
	}
	if mtim != nil {
		mt = *mtim
	}
	return os.Chtimes(path, at, mt)
}

func raiseSignal(uint8) Errno {
	return ErrnoNosys
}

func writeAt(f *os.File, b []byte, offset int64, appendMode bool) (int, error) {
	return f.WriteAt(b, offset)
}
