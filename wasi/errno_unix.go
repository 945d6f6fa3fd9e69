//go:build unix

package wasi

import (
	"errors"
	"syscall"
)

// errnoFromSyscall maps a platform errno onto the WASI enumeration. The
// table covers every code the filesystem and poll paths can reasonably
// produce; callers default unmapped codes to EIO.
func errnoFromSyscall(err error) (Errno, bool) {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return ErrnoSuccess, false
	}

	switch errno {
	case syscall.E2BIG:
		return Errno2big, true
	case syscall.EACCES:
		return ErrnoAcces, true
	case syscall.EAGAIN:
		return ErrnoAgain, true
	case syscall.EBADF:
		return ErrnoBadf, true
	case syscall.EBUSY:
		return ErrnoBusy, true
	case syscall.EDEADLK:
		return ErrnoDeadlk, true
	case syscall.EDQUOT:
		return ErrnoDquot, true
	case syscall.EEXIST:
		return ErrnoExist, true
	case syscall.EFAULT:
		return ErrnoFault, true
	case syscall.EFBIG:
		return ErrnoFbig, true
	case syscall.EINTR:
		return ErrnoIntr, true
	case syscall.EINVAL:
		return ErrnoInval, true
	case syscall.EIO:
		return ErrnoIo, true
	case syscall.EISDIR:
		return ErrnoIsdir, true
	case syscall.ELOOP:
		return ErrnoLoop, true
	case syscall.EMFILE:
		return ErrnoMfile, true
	case syscall.EMLINK:
		return ErrnoMlink, true
	case syscall.ENAMETOOLONG:
		return ErrnoNametoolong, true
	case syscall.ENFILE:
		return ErrnoNfile, true
	case syscall.ENODEV:
		return ErrnoNodev, true
	case syscall.ENOENT:
		return ErrnoNoent, true
	case syscall.ENOLCK:
		return ErrnoNolck, true
	case syscall.ENOMEM:
		return ErrnoNomem, true
	case syscall.ENOSPC:
		return ErrnoNospc, true
	case syscall.ENOSYS:
		return ErrnoNosys, true
	case syscall.ENOTDIR:
		return ErrnoNotdir, true
	case syscall.ENOTEMPTY:
		return ErrnoNotempty, true
	case syscall.ENOTSUP:
		return ErrnoNotsup, true
	case syscall.ENOTTY:
		return ErrnoNotty, true
	case syscall.ENXIO:
		return ErrnoNxio, true
	case syscall.EOVERFLOW:
		return ErrnoOverflow, true
	case syscall.EPERM:
		return ErrnoPerm, true
	case syscall.EPIPE:
		return ErrnoPipe, true
	case syscall.ERANGE:
		return ErrnoRange, true
	case syscall.EROFS:
		return ErrnoRofs, true
	case syscall.ESPIPE:
		return ErrnoSpipe, true
	case syscall.ESRCH:
		return ErrnoSrch, true
	case syscall.ESTALE:
		return ErrnoStale, true
	case syscall.ETIMEDOUT:
		return ErrnoTimedout, true
	case syscall.ETXTBSY:
		return ErrnoTxtbsy, true
	case syscall.EXDEV:
		return ErrnoXdev, true
	default:
		return ErrnoIo, true
	}
}
