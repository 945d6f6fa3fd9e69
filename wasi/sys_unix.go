//go:build unix

package wasi

import (
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// defaultPreopens preopens the filesystem root, matching the reference
// behavior on POSIX systems. This grants the guest the entire host
// filesystem; see Options.Preopens.
func defaultPreopens() map[string]string {
	return map[string]string{"/": "/"}
}

func filestatFromStat(st *unix.Stat_t) filestat {
	return filestat{
		dev:      uint64(st.Dev),
		ino:      uint64(st.Ino),
		filetype: filetypeOf(modeFromStat(uint32(st.Mode))),
		nlink:    uint64(st.Nlink),
		size:     uint64(st.Size),
		atim:     uint64(st.Atim.Sec)*1e9 + uint64(st.Atim.Nsec),
		mtim:     uint64(st.Mtim.Sec)*1e9 + uint64(st.Mtim.Nsec),
		ctim:     uint64(st.Ctim.Sec)*1e9 + uint64(st.Ctim.Nsec),
	}
}

func modeFromStat(mode uint32) fs.FileMode {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return fs.ModeDir
	case unix.S_IFLNK:
		return fs.ModeSymlink
	case unix.S_IFCHR:
		return fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFBLK:
		return fs.ModeDevice
	case unix.S_IFSOCK:
		return fs.ModeSocket
	case unix.S_IFIFO:
		return fs.ModeNamedPipe
	default:
		return 0
	}
}

// fstatFile reports full file attributes, including the device and inode
// numbers the portable FileInfo surface hides.
func fstatFile(f *os.File) (filestat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return filestat{}, err
	}
	return filestatFromStat(&st), nil
}

// statPath stats a host path, optionally without following a trailing
// symbolic link.
func statPath(path string, followSymlinks bool) (filestat, error) {
	var st unix.Stat_t
	var err error
	if followSymlinks {
		err = unix.Stat(path, &st)
	} else {
		err = unix.Lstat(path, &st)
	}
	if err != nil {
		return filestat{}, err
	}
	return filestatFromStat(&st), nil
}

// inodeOf extracts the inode number backing a directory entry.
func inodeOf(info fs.FileInfo) uint64 {
	if st, ok := info.Sys().(*unix.Stat_t); ok {
		return uint64(st.Ino)
	}
	return 0
}

// setFdFlags applies guest fdflags to an open descriptor with fcntl
// F_SETFL. Only append and nonblock have runtime equivalents.
func setFdFlags(f *os.File, fdflags uint16) error {
	var osFlags int
	if fdflags&fdflagsAppend != 0 {
		osFlags |= unix.O_APPEND
	}
	if fdflags&fdflagsNonblock != 0 {
		osFlags |= unix.O_NONBLOCK
	}
	_, err := unix.FcntlInt(f.Fd(), unix.F_SETFL, osFlags)
	return err
}

// utimens adjusts a path's access and modification timestamps, leaving a
// nil time untouched.
func utimens(path string, atim, mtim *time.Time, followSymlinks bool) error {
	ts := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		{Nsec: unix.UTIME_OMIT},
	}
	if atim != nil {
		ts[0] = unix.NsecToTimespec(atim.UnixNano())
	}
	if mtim != nil {
		ts[1] = unix.NsecToTimespec(mtim.UnixNano())
	}
	var flags int
	if !followSymlinks {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, flags)
}

// raiseSignals maps guest signal numbers (HUP=1 through SYS=30) onto the
// platform's, built once rather than per call.
var raiseSignals = [...]unix.Signal{
	1:  unix.SIGHUP,
	2:  unix.SIGINT,
	3:  unix.SIGQUIT,
	4:  unix.SIGILL,
	5:  unix.SIGTRAP,
	6:  unix.SIGABRT,
	7:  unix.SIGBUS,
	8:  unix.SIGFPE,
	9:  unix.SIGKILL,
	10: unix.SIGUSR1,
	11: unix.SIGSEGV,
	12: unix.SIGUSR2,
	13: unix.SIGPIPE,
	14: unix.SIGALRM,
	15: unix.SIGTERM,
	16: unix.SIGCHLD,
	17: unix.SIGCONT,
	18: unix.SIGSTOP,
	19: unix.SIGTSTP,
	20: unix.SIGTTIN,
	21: unix.SIGTTOU,
	22: unix.SIGURG,
	23: unix.SIGXCPU,
	24: unix.SIGXFSZ,
	25: unix.SIGVTALRM,
	26: unix.SIGPROF,
	27: unix.SIGWINCH,
	28: unix.SIGIO,
	30: unix.SIGSYS,
}

// raiseSignal delivers a guest-requested signal to the current process.
func raiseSignal(sig uint8) Errno {
	if int(sig) >= len(raiseSignals) || raiseSignals[sig] == 0 {
		return ErrnoInval
	}
	if err := unix.Kill(unix.Getpid(), raiseSignals[sig]); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// writeAt writes at an absolute offset. Files opened with O_APPEND reject
// WriteAt in the standard library, so those fall back to pwrite.
func writeAt(f *os.File, b []byte, offset int64, appendMode bool) (int, error) {
	if appendMode {
		return unix.Pwrite(int(f.Fd()), b, offset)
	}
	return f.WriteAt(b, offset)
}
