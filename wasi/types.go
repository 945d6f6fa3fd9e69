// This file describes the wire-level surface of the WASI snapshot_preview1
// ABI: flag and enumeration values plus the fixed-layout structs the guest
// and host exchange through linear memory. Field offsets and widths follow
// the snapshot's witx definitions exactly; all multi-byte fields are
// little-endian.

package wasi

// Filetype identifies the kind of resource behind a descriptor.
type Filetype uint8

const (
	// The type of the descriptor or file is unknown or is different from any of the other types specified.
	FiletypeUnknown Filetype = 0

	// The descriptor refers to a block device inode.
	FiletypeBlockDevice Filetype = 1

	// The descriptor refers to a character device inode.
	FiletypeCharacterDevice Filetype = 2

	// The descriptor refers to a directory inode.
	FiletypeDirectory Filetype = 3

	// The descriptor refers to a regular file inode.
	FiletypeRegularFile Filetype = 4

	// The descriptor refers to a datagram socket.
	FiletypeSocketDgram Filetype = 5

	// The descriptor refers to a byte-stream socket.
	FiletypeSocketStream Filetype = 6

	// The file refers to a symbolic link inode.
	FiletypeSymbolicLink Filetype = 7
)

// Identifiers for clocks.
const (
	// The clock measuring real time. Time value zero corresponds with
	// 1970-01-01T00:00:00Z.
	clockidRealtime = 0

	// The store-wide monotonic clock. The epoch of this clock is
	// undefined; only differences between readings are meaningful.
	clockidMonotonic = 1

	// The CPU-time clock associated with the current process.
	clockidProcessCputime = 2

	// The CPU-time clock associated with the current thread.
	clockidThreadCputime = 3
)

// File descriptor flags.
const (
	// Append mode: data written to the file is always appended to the file's end.
	fdflagsAppend uint16 = 1 << 0

	// Write according to synchronized I/O data integrity completion.
	fdflagsDsync uint16 = 1 << 1

	// Non-blocking mode.
	fdflagsNonblock uint16 = 1 << 2

	// Synchronized read I/O operations.
	fdflagsRsync uint16 = 1 << 3

	// Write according to synchronized I/O file integrity completion.
	fdflagsSync uint16 = 1 << 4
)

// Open flags used by `path_open`.
const (
	// Create file if it does not exist.
	oflagsCreat uint16 = 1 << 0

	// Fail if not a directory.
	oflagsDirectory uint16 = 1 << 1

	// Fail if file already exists.
	oflagsExcl uint16 = 1 << 2

	// Truncate file to size 0.
	oflagsTrunc uint16 = 1 << 3
)

// As long as the resolved path corresponds to a symbolic link, it is expanded.
const lookupflagsSymlinkFollow uint32 = 1 << 0

// Which file time attributes to adjust.
const (
	// Adjust the last data access timestamp to the value stored in `filestat::atim`.
	fstflagsAtim uint16 = 1 << 0

	// Adjust the last data access timestamp to the time of the realtime clock.
	fstflagsAtimNow uint16 = 1 << 1

	// Adjust the last data modification timestamp to the value stored in `filestat::mtim`.
	fstflagsMtim uint16 = 1 << 2

	// Adjust the last data modification timestamp to the time of the realtime clock.
	fstflagsMtimNow uint16 = 1 << 3
)

// The position relative to which to set the offset of the descriptor.
const (
	// Seek relative to start-of-file.
	whenceSet = 0

	// Seek relative to current position.
	whenceCur = 1

	// Seek relative to end-of-file.
	whenceEnd = 2
)

// Type of a subscription to an event or its occurrence.
const (
	// The time value of the subscribed clock has reached its timeout.
	eventtypeClock uint8 = 0

	// The subscribed descriptor has data available for reading.
	eventtypeFdRead uint8 = 1

	// The subscribed descriptor has capacity available for writing.
	eventtypeFdWrite uint8 = 2
)

// If set, treat the timeout in a clock subscription as an absolute
// timestamp of its clock; if clear, relative to the clock's current value.
const subclockflagsAbstime uint16 = 1 << 0

// A pre-opened directory, the only defined preopen type.
const preopentypeDir uint8 = 0

// iovec is a region of guest memory for scatter/gather I/O.
//
//	buf     u32 @ 0
//	buf_len u32 @ 4
type iovec struct {
	buf    uint32
	bufLen uint32
}

const sizeofIovec = 8

func loadIovec(mem *view, addr uint32) (iovec, bool) {
	buf, ok1 := mem.uint32(addr + 0)
	bufLen, ok2 := mem.uint32(addr + 4)
	return iovec{buf: buf, bufLen: bufLen}, ok1 && ok2
}

// fdstat describes the attributes of an open descriptor.
//
//	fs_filetype         u8  @ 0
//	fs_flags            u16 @ 2
//	fs_rights_base      u64 @ 8
//	fs_rights_inheriting u64 @ 16
type fdstat struct {
	filetype         Filetype
	flags            uint16
	rightsBase       Rights
	rightsInheriting Rights
}

const sizeofFdstat = 24

func (v *fdstat) store(mem *view, addr uint32) bool {
	return mem.putByte(addr+0, byte(v.filetype)) &&
		mem.putUint16(addr+2, v.flags) &&
		mem.putUint64(addr+8, uint64(v.rightsBase)) &&
		mem.putUint64(addr+16, uint64(v.rightsInheriting))
}

// filestat describes the attributes of a file. All timestamps are
// nanoseconds since the epoch.
//
//	dev      u64 @ 0
//	ino      u64 @ 8
//	filetype u8  @ 16
//	nlink    u64 @ 24
//	size     u64 @ 32
//	atim     u64 @ 40
//	mtim     u64 @ 48
//	ctim     u64 @ 56
type filestat struct {
	dev      uint64
	ino      uint64
	filetype Filetype
	nlink    uint64
	size     uint64
	atim     uint64
	mtim     uint64
	ctim     uint64
}

const sizeofFilestat = 64

func (v *filestat) store(mem *view, addr uint32) bool {
	return mem.putUint64(addr+0, v.dev) &&
		mem.putUint64(addr+8, v.ino) &&
		mem.putByte(addr+16, byte(v.filetype)) &&
		mem.putUint64(addr+24, v.nlink) &&
		mem.putUint64(addr+32, v.size) &&
		mem.putUint64(addr+40, v.atim) &&
		mem.putUint64(addr+48, v.mtim) &&
		mem.putUint64(addr+56, v.ctim)
}

// prestat describes a pre-opened capability.
//
//	tag      u8  @ 0 (0 = dir)
//	name_len u32 @ 4
type prestat struct {
	tag     uint8
	nameLen uint32
}

const sizeofPrestat = 8

func (v *prestat) store(mem *view, addr uint32) bool {
	return mem.putByte(addr+0, v.tag) &&
		mem.putUint32(addr+4, v.nameLen)
}

// dirent is the fixed-size prefix of a directory entry; the entry's name
// bytes follow immediately at offset 24.
//
//	d_next   u64 @ 0 (cookie of the following entry)
//	d_ino    u64 @ 8
//	d_namlen u32 @ 16
//	d_type   u8  @ 20
type dirent struct {
	next   uint64
	ino    uint64
	namlen uint32
	typ    Filetype
}

const sizeofDirent = 24

// append encodes the dirent prefix into buf. Encoding into a scratch
// buffer rather than guest memory lets fd_readdir decide whether a whole
// record fits before anything is written.
func (v *dirent) append(buf []byte) []byte {
	var tmp [sizeofDirent]byte
	putUint64le(tmp[0:], v.next)
	putUint64le(tmp[8:], v.ino)
	putUint32le(tmp[16:], v.namlen)
	tmp[20] = byte(v.typ)
	return append(buf, tmp[:]...)
}

// subscription is the input record of poll_oneoff: userdata, a tag, and a
// tagged union of clock or fd payloads.
//
//	userdata u64 @ 0
//	tag      u8  @ 8
//	clock: id u32 @ 16; timeout u64 @ 24; precision u64 @ 32; flags u16 @ 40
//	fd_read/fd_write: fd u32 @ 16
type subscription struct {
	userdata uint64
	tag      uint8

	clockID        uint32
	clockTimeout   uint64
	clockPrecision uint64
	clockFlags     uint16

	fd uint32
}

const sizeofSubscription = 48

func loadSubscription(mem *view, addr uint32) (subscription, bool) {
	var s subscription
	var ok bool
	if s.userdata, ok = mem.uint64(addr + 0); !ok {
		return s, false
	}
	var tag byte
	if tag, ok = mem.byte_(addr + 8); !ok {
		return s, false
	}
	s.tag = tag

	switch s.tag {
	case eventtypeClock:
		id, ok1 := mem.uint32(addr + 16)
		timeout, ok2 := mem.uint64(addr + 24)
		precision, ok3 := mem.uint64(addr + 32)
		flags, ok4 := mem.uint16(addr + 40)
		if !(ok1 && ok2 && ok3 && ok4) {
			return s, false
		}
		s.clockID, s.clockTimeout, s.clockPrecision, s.clockFlags = id, timeout, precision, flags
	case eventtypeFdRead, eventtypeFdWrite:
		if s.fd, ok = mem.uint32(addr + 16); !ok {
			return s, false
		}
	}
	return s, true
}

// event is the output record of poll_oneoff.
//
//	userdata u64 @ 0
//	error    u16 @ 8
//	type     u8  @ 10
//	fd_readwrite: nbytes u64 @ 16; flags u16 @ 24
type event struct {
	userdata uint64
	errno    Errno
	typ      uint8
	nbytes   uint64
	flags    uint16
}

const sizeofEvent = 32

func (v *event) store(mem *view, addr uint32) bool {
	return mem.putUint64(addr+0, v.userdata) &&
		mem.putUint16(addr+8, uint16(v.errno)) &&
		mem.putByte(addr+10, v.typ) &&
		mem.putUint64(addr+16, v.nbytes) &&
		mem.putUint16(addr+24, v.flags)
}
