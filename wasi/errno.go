package wasi

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// Errno is the error enumeration returned by every syscall in place of a
// host exception. The values and their meanings are fixed by the WASI
// snapshot; ErrnoNotcapable is the capability extension beyond POSIX.
type Errno uint16

const (
	// No error occurred. System call completed successfully.
	ErrnoSuccess Errno = 0

	// Argument list too long.
	Errno2big Errno = 1

	// Permission denied.
	ErrnoAcces Errno = 2

	// Address in use.
	ErrnoAddrinuse Errno = 3

	// Address not available.
	ErrnoAddrnotavail Errno = 4

	// Address family not supported.
	ErrnoAfnosupport Errno = 5

	// Resource unavailable, or operation would block.
	ErrnoAgain Errno = 6

	// Connection already in progress.
	ErrnoAlready Errno = 7

	// Bad file descriptor.
	ErrnoBadf Errno = 8

	// Bad message.
	ErrnoBadmsg Errno = 9

	// Device or resource busy.
	ErrnoBusy Errno = 10

	// Operation canceled.
	ErrnoCanceled Errno = 11

	// No child processes.
	ErrnoChild Errno = 12

	// Connection aborted.
	ErrnoConnaborted Errno = 13

	// Connection refused.
	ErrnoConnrefused Errno = 14

	// Connection reset.
	ErrnoConnreset Errno = 15

	// Resource deadlock would occur.
	ErrnoDeadlk Errno = 16

	// Destination address required.
	ErrnoDestaddrreq Errno = 17

	// Mathematics argument out of domain of function.
	ErrnoDom Errno = 18

	// Reserved.
	ErrnoDquot Errno = 19

	// File exists.
	ErrnoExist Errno = 20

	// Bad address.
	ErrnoFault Errno = 21

	// File too large.
	ErrnoFbig Errno = 22

	// Host is unreachable.
	ErrnoHostunreach Errno = 23

	// Identifier removed.
	ErrnoIdrm Errno = 24

	// Illegal byte sequence.
	ErrnoIlseq Errno = 25

	// Operation in progress.
	ErrnoInprogress Errno = 26

	// Interrupted function.
	ErrnoIntr Errno = 27

	// Invalid argument.
	ErrnoInval Errno = 28

	// I/O error.
	ErrnoIo Errno = 29

	// Socket is connected.
	ErrnoIsconn Errno = 30

	// Is a directory.
	ErrnoIsdir Errno = 31

	// Too many levels of symbolic links.
	ErrnoLoop Errno = 32

	// File descriptor value too large.
	ErrnoMfile Errno = 33

	// Too many links.
	ErrnoMlink Errno = 34

	// Message too large.
	ErrnoMsgsize Errno = 35

	// Reserved.
	ErrnoMultihop Errno = 36

	// Filename too long.
	ErrnoNametoolong Errno = 37

	// Network is down.
	ErrnoNetdown Errno = 38

	// Connection aborted by network.
	ErrnoNetreset Errno = 39

	// Network unreachable.
	ErrnoNetunreach Errno = 40

	// Too many files open in system.
	ErrnoNfile Errno = 41

	// No buffer space available.
	ErrnoNobufs Errno = 42

	// No such device.
	ErrnoNodev Errno = 43

	// No such file or directory.
	ErrnoNoent Errno = 44

	// Executable file format error.
	ErrnoNoexec Errno = 45

	// No locks available.
	ErrnoNolck Errno = 46

	// Reserved.
	ErrnoNolink Errno = 47

	// Not enough space.
	ErrnoNomem Errno = 48

	// No message of the desired type.
	ErrnoNomsg Errno = 49

	// Protocol not available.
	ErrnoNoprotoopt Errno = 50

	// No space left on device.
	ErrnoNospc Errno = 51

	// Function not supported.
	ErrnoNosys Errno = 52

	// The socket is not connected.
	ErrnoNotconn Errno = 53

	// Not a directory or a symbolic link to a directory.
	ErrnoNotdir Errno = 54

	// Directory not empty.
	ErrnoNotempty Errno = 55

	// State not recoverable.
	ErrnoNotrecoverable Errno = 56

	// Not a socket.
	ErrnoNotsock Errno = 57

	// Not supported, or operation not supported on socket.
	ErrnoNotsup Errno = 58

	// Inappropriate I/O control operation.
	ErrnoNotty Errno = 59

	// No such device or address.
	ErrnoNxio Errno = 60

	// Value too large to be stored in data type.
	ErrnoOverflow Errno = 61

	// Previous owner died.
	ErrnoOwnerdead Errno = 62

	// Operation not permitted.
	ErrnoPerm Errno = 63

	// Broken pipe.
	ErrnoPipe Errno = 64

	// Protocol error.
	ErrnoProto Errno = 65

	// Protocol not supported.
	ErrnoProtonosupport Errno = 66

	// Protocol wrong type for socket.
	ErrnoPrototype Errno = 67

	// Result too large.
	ErrnoRange Errno = 68

	// Read-only file system.
	ErrnoRofs Errno = 69

	// Invalid seek.
	ErrnoSpipe Errno = 70

	// No such process.
	ErrnoSrch Errno = 71

	// Reserved.
	ErrnoStale Errno = 72

	// Connection timed out.
	ErrnoTimedout Errno = 73

	// Text file busy.
	ErrnoTxtbsy Errno = 74

	// Cross-device link.
	ErrnoXdev Errno = 75

	// Extension: capabilities insufficient.
	ErrnoNotcapable Errno = 76
)

// hostErrno translates an error returned by the host filesystem or OS into
// the WASI enumeration. The translation first unwraps path/link/syscall
// wrappers down to the platform errno (see errnoFromSyscall), then falls
// back to the portable fs sentinel errors. Anything unrecognized degrades
// to EIO; hostErrno never leaves the [0,76] range and never panics.
func hostErrno(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		err = linkErr.Err
	}

	if errno, ok := errnoFromSyscall(err); ok {
		return errno
	}

	switch {
	case errors.Is(err, io.EOF):
		return ErrnoSuccess
	case errors.Is(err, io.ErrClosedPipe):
		return ErrnoPipe
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrnoIo
	case errors.Is(err, fs.ErrInvalid):
		return ErrnoInval
	case errors.Is(err, fs.ErrPermission):
		return ErrnoPerm
	case errors.Is(err, fs.ErrExist):
		return ErrnoExist
	case errors.Is(err, fs.ErrNotExist):
		return ErrnoNoent
	case errors.Is(err, fs.ErrClosed):
		return ErrnoBadf
	default:
		return ErrnoIo
	}
}
