package wasi

import (
	"crypto/rand"
	"errors"
	"io"
	"math"
	"os"
	"time"

	"golang.org/x/term"
)

// Syscall implementations. Every method takes guest-memory addresses and
// numeric arguments, writes out-parameters through the memory view, and
// returns an errno. Host errors are translated at the return edge; no
// method lets a host fault escape except the exit unwind, which is raised
// by the binding layer, not here.

func (h *Host) loadPath(mem *view, ptr, size uint32) (string, Errno) {
	s, ok := mem.string_(ptr, size)
	if !ok {
		return "", ErrnoFault
	}
	return s, ErrnoSuccess
}

// storeStringList implements the two-call args/environ protocol's second
// half: NUL-terminated entries written contiguously into buf, one pointer
// per entry written into list.
func storeStringList(mem *view, values []string, list, buf uint32) Errno {
	for i, s := range values {
		dst, ok := mem.bytes(buf, uint32(len(s))+1)
		if !ok {
			return ErrnoFault
		}
		copy(dst, s)
		dst[len(s)] = 0

		if !mem.putUint32(list+uint32(i)*4, buf) {
			return ErrnoFault
		}
		buf += uint32(len(s)) + 1
	}
	return ErrnoSuccess
}

func sizeStringList(mem *view, values []string, countPtr, sizePtr uint32) Errno {
	size := uint32(0)
	for _, s := range values {
		size += uint32(len(s)) + 1
	}
	if !mem.putUint32(countPtr, uint32(len(values))) || !mem.putUint32(sizePtr, size) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Read command-line argument data.
// The size of the array should match that returned by args_sizes_get.
func (h *Host) argsGet(mem *view, argv, argvBuf uint32) Errno {
	return storeStringList(mem, h.args, argv, argvBuf)
}

// Return command-line argument data sizes.
func (h *Host) argsSizesGet(mem *view, argc, argvBufSize uint32) Errno {
	return sizeStringList(mem, h.args, argc, argvBufSize)
}

// Read environment variable data.
func (h *Host) environGet(mem *view, environ, environBuf uint32) Errno {
	return storeStringList(mem, h.env, environ, environBuf)
}

// Return environment variable data sizes.
func (h *Host) environSizesGet(mem *view, environc, environBufSize uint32) Errno {
	return sizeStringList(mem, h.env, environc, environBufSize)
}

// Return the resolution of a clock.
// Note: This is similar to clock_getres in POSIX.
func (h *Host) clockResGet(mem *view, id uint32, resolution uint32) Errno {
	var res uint64
	switch id {
	case clockidRealtime:
		// The wall clock is modeled at millisecond resolution.
		res = uint64(time.Millisecond)
	case clockidMonotonic, clockidProcessCputime, clockidThreadCputime:
		res = uint64(time.Nanosecond)
	default:
		return ErrnoInval
	}
	if !mem.putUint64(resolution, res) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Return the time value of a clock.
// Note: This is similar to clock_gettime in POSIX.
func (h *Host) clockTimeGet(mem *view, id uint32, precision uint64, timestamp uint32) Errno {
	var now uint64
	switch id {
	case clockidRealtime:
		now = uint64(time.Now().UnixNano())
	case clockidMonotonic, clockidProcessCputime, clockidThreadCputime:
		now = h.monotonicNow()
	default:
		return ErrnoInval
	}
	if !mem.putUint64(timestamp, now) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Provide file advisory information on a file descriptor. The host keeps
// no access-pattern state, so a rights-checked success is the whole
// operation.
// Note: This is similar to posix_fadvise in POSIX.
func (h *Host) fdAdvise(fd uint32, offset, length uint64, advice uint8) Errno {
	_, errno := h.files.get(fd, RightsFdAdvise)
	return errno
}

// Force the allocation of space in a file: the file grows when the
// requested span extends past its current size.
// Note: This is similar to posix_fallocate in POSIX.
func (h *Host) fdAllocate(fd uint32, offset, length uint64) Errno {
	d, errno := h.files.get(fd, RightsFdAllocate)
	if errno != ErrnoSuccess {
		return errno
	}

	end := offset + length
	if end < offset || end > math.MaxInt64 {
		return ErrnoInval
	}

	size, err := d.size()
	if err != nil {
		return hostErrno(err)
	}
	want := int64(end)
	if want <= size {
		return ErrnoSuccess
	}
	if err := d.file.Truncate(want); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Close a file descriptor. The standard streams are permanently bound:
// closing 0, 1, or 2 succeeds without releasing anything.
// Note: This is similar to close in POSIX.
func (h *Host) fdClose(fd uint32) Errno {
	if fd <= fdStderr {
		_, errno := h.files.lookup(fd)
		return errno
	}

	d, errno := h.files.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	h.files.remove(fd)
	if err := d.close(); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Synchronize the data of a file to disk.
// Note: This is similar to fdatasync in POSIX.
func (h *Host) fdDatasync(fd uint32) Errno {
	d, errno := h.files.get(fd, RightsFdDatasync)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.file == nil {
		return ErrnoInval
	}
	if err := d.file.Sync(); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Get the attributes of a file descriptor.
func (h *Host) fdFdstatGet(mem *view, fd uint32, result uint32) Errno {
	d, errno := h.files.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}

	stat := fdstat{
		filetype:         d.kind,
		flags:            d.fdflags,
		rightsBase:       d.rightsBase,
		rightsInheriting: d.rightsInheriting,
	}
	if !stat.store(mem, result) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Adjust the flags associated with a file descriptor.
// Note: This is similar to fcntl(fd, F_SETFL, flags) in POSIX.
func (h *Host) fdFdstatSetFlags(fd uint32, flags uint32) Errno {
	d, errno := h.files.get(fd, RightsFdFdstatSetFlags)
	if errno != ErrnoSuccess {
		return errno
	}

	fdflags := uint16(flags)
	if d.file != nil {
		if err := setFdFlags(d.file, fdflags); err != nil {
			return hostErrno(err)
		}
	}
	d.fdflags = fdflags
	return ErrnoSuccess
}

// Adjust the rights associated with a file descriptor. Rights may only be
// narrowed; an attempt to add either base or inheriting bits fails with
// ENOTCAPABLE and leaves the entry unchanged.
func (h *Host) fdFdstatSetRights(fd uint32, rightsBase, rightsInheriting Rights) Errno {
	d, errno := h.files.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}

	if d.rightsBase&rightsBase != rightsBase || d.rightsInheriting&rightsInheriting != rightsInheriting {
		return ErrnoNotcapable
	}
	d.rightsBase, d.rightsInheriting = rightsBase, rightsInheriting
	return ErrnoSuccess
}

// Return the attributes of an open file.
func (h *Host) fdFilestatGet(mem *view, fd uint32, result uint32) Errno {
	d, errno := h.files.get(fd, RightsFdFilestatGet)
	if errno != ErrnoSuccess {
		return errno
	}

	var stat filestat
	if d.file != nil {
		var err error
		stat, err = fstatFile(d.file)
		if err != nil {
			return hostErrno(err)
		}
	} else {
		stat = filestat{filetype: d.kind}
	}
	if !stat.store(mem, result) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Adjust the size of an open file. Growing fills the new span with zeros.
// Note: This is similar to ftruncate in POSIX.
func (h *Host) fdFilestatSetSize(fd uint32, size uint64) Errno {
	d, errno := h.files.get(fd, RightsFdFilestatSetSize)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.file == nil {
		return ErrnoInval
	}
	if err := d.file.Truncate(int64(size)); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Adjust the timestamps of an open file or directory.
// Note: This is similar to futimens in POSIX.
func (h *Host) fdFilestatSetTimes(fd uint32, atim, mtim uint64, fstFlags uint32) Errno {
	d, errno := h.files.get(fd, RightsFdFilestatSetTimes)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.realPath == "" {
		return ErrnoInval
	}

	accessTime, modTime, errno := timesFromFlags(uint16(fstFlags), atim, mtim)
	if errno != ErrnoSuccess {
		return errno
	}
	if err := utimens(d.realPath, accessTime, modTime, true); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// timesFromFlags decodes fstflags into optional timestamps. Requesting
// both an explicit and a "now" update for the same timestamp is invalid.
func timesFromFlags(fstFlags uint16, atim, mtim uint64) (accessTime, modTime *time.Time, errno Errno) {
	if fstFlags&fstflagsAtim != 0 && fstFlags&fstflagsAtimNow != 0 {
		return nil, nil, ErrnoInval
	}
	if fstFlags&fstflagsMtim != 0 && fstFlags&fstflagsMtimNow != 0 {
		return nil, nil, ErrnoInval
	}

	switch {
	case fstFlags&fstflagsAtim != 0:
		t := time.Unix(0, int64(atim))
		accessTime = &t
	case fstFlags&fstflagsAtimNow != 0:
		t := time.Now()
		accessTime = &t
	}
	switch {
	case fstFlags&fstflagsMtim != 0:
		t := time.Unix(0, int64(mtim))
		modTime = &t
	case fstFlags&fstflagsMtimNow != 0:
		t := time.Now()
		modTime = &t
	}
	return accessTime, modTime, ErrnoSuccess
}

// Read from a file descriptor without using or updating its cursor.
// Note: This is similar to preadv in POSIX.
func (h *Host) fdPread(mem *view, fd, iovs, niovs uint32, offset uint64, nread uint32) Errno {
	d, errno := h.files.get(fd, RightsFdRead|RightsFdSeek)
	if errno != ErrnoSuccess {
		return errno
	}

	buffers, ok := mem.gather(iovs, niovs)
	if !ok {
		return ErrnoFault
	}
	n, err := d.preadv(buffers, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return hostErrno(err)
	}
	if !mem.putUint32(nread, n) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Return a description of the given preopened file descriptor.
func (h *Host) fdPrestatGet(mem *view, fd uint32, result uint32) Errno {
	d, errno := h.files.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.isPreopen() {
		return ErrnoInval
	}

	stat := prestat{tag: preopentypeDir, nameLen: uint32(len(d.guestPath))}
	if !stat.store(mem, result) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Return the virtual path of the given preopened file descriptor.
func (h *Host) fdPrestatDirName(mem *view, fd, pathPtr, pathLen uint32) Errno {
	d, errno := h.files.lookup(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.isPreopen() {
		return ErrnoInval
	}
	if pathLen < uint32(len(d.guestPath)) {
		return ErrnoNametoolong
	}

	dst, ok := mem.bytes(pathPtr, uint32(len(d.guestPath)))
	if !ok {
		return ErrnoFault
	}
	copy(dst, d.guestPath)
	return ErrnoSuccess
}

// Write to a file descriptor without using or updating its cursor.
// Note: This is similar to pwritev in POSIX.
func (h *Host) fdPwrite(mem *view, fd, iovs, niovs uint32, offset uint64, nwritten uint32) Errno {
	d, errno := h.files.get(fd, RightsFdWrite|RightsFdSeek)
	if errno != ErrnoSuccess {
		return errno
	}

	buffers, ok := mem.gather(iovs, niovs)
	if !ok {
		return ErrnoFault
	}
	n, err := d.pwritev(buffers, int64(offset))
	if err != nil {
		return hostErrno(err)
	}
	if !mem.putUint32(nwritten, n) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Read from a file descriptor, advancing its cursor.
// Note: This is similar to readv in POSIX.
func (h *Host) fdRead(mem *view, fd, iovs, niovs uint32, nread uint32) Errno {
	d, errno := h.files.get(fd, RightsFdRead)
	if errno != ErrnoSuccess {
		return errno
	}

	buffers, ok := mem.gather(iovs, niovs)
	if !ok {
		return ErrnoFault
	}
	n, err := d.readv(buffers)
	if err != nil && !errors.Is(err, io.EOF) {
		return hostErrno(err)
	}
	if !mem.putUint32(nread, n) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Read directory entries from a directory, paginated by an integer cookie
// equal to the index of the next entry to return. Only whole dirent
// records are written: a record that would not fit ends the page.
func (h *Host) fdReaddir(mem *view, fd, buf, bufLen uint32, cookie uint64, bufused uint32) Errno {
	d, errno := h.files.getDirectory(fd, RightsFdReaddir)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.realPath == "" {
		return ErrnoInval
	}

	if cookie == 0 || d.dirents == nil {
		entries, err := os.ReadDir(d.realPath)
		if err != nil {
			return hostErrno(err)
		}
		d.dirents = entries
	}
	if cookie > uint64(len(d.dirents)) {
		return ErrnoInval
	}

	written := uint32(0)
	scratch := make([]byte, 0, sizeofDirent+64)
	for i, entry := range d.dirents[cookie:] {
		name := entry.Name()
		recSize := uint32(sizeofDirent + len(name))
		if written+recSize > bufLen {
			break
		}

		var ino uint64
		if info, err := entry.Info(); err == nil {
			ino = inodeOf(info)
		}
		rec := dirent{
			next:   cookie + uint64(i) + 1,
			ino:    ino,
			namlen: uint32(len(name)),
			typ:    filetypeOf(entry.Type()),
		}
		scratch = rec.append(scratch[:0])
		scratch = append(scratch, name...)

		dst, ok := mem.bytes(buf+written, recSize)
		if !ok {
			return ErrnoFault
		}
		copy(dst, scratch)
		written += recSize
	}

	if !mem.putUint32(bufused, written) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Atomically replace a file descriptor by renumbering another onto it.
// The resource behind the target is released first when the target was
// assigned. The standard streams are permanently bound and take no part
// in renumbering.
func (h *Host) fdRenumber(from, to uint32) Errno {
	if from <= fdStderr || to <= fdStderr {
		return ErrnoNotsup
	}
	d, errno := h.files.lookup(from)
	if errno != ErrnoSuccess {
		return errno
	}
	if from == to {
		return ErrnoSuccess
	}

	if old, errno := h.files.lookup(to); errno == ErrnoSuccess {
		h.files.remove(to)
		if err := old.close(); err != nil {
			return hostErrno(err)
		}
	}
	h.files.remove(from)
	h.files.bind(to, d)
	return ErrnoSuccess
}

// Move the cursor of a file descriptor. Only regular files carry a
// cursor; a resulting negative offset is rejected with the cursor left in
// place.
// Note: This is similar to lseek in POSIX.
func (h *Host) fdSeek(mem *view, fd uint32, offset int64, whence uint32, result uint32) Errno {
	d, errno := h.files.get(fd, RightsFdSeek)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.file == nil || d.kind != FiletypeRegularFile {
		return ErrnoSpipe
	}

	current, err := d.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return hostErrno(err)
	}

	var target int64
	switch whence {
	case whenceSet:
		target = offset
	case whenceCur:
		target = current + offset
	case whenceEnd:
		size, err := d.size()
		if err != nil {
			return hostErrno(err)
		}
		target = size + offset
	default:
		return ErrnoInval
	}
	if target < 0 {
		return ErrnoInval
	}

	pos, err := d.file.Seek(target, io.SeekStart)
	if err != nil {
		return hostErrno(err)
	}
	if !mem.putUint64(result, uint64(pos)) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Synchronize the data and metadata of a file to disk.
// Note: This is similar to fsync in POSIX.
func (h *Host) fdSync(fd uint32) Errno {
	d, errno := h.files.get(fd, RightsFdSync)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.file == nil {
		return ErrnoInval
	}
	if err := d.file.Sync(); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Return the current cursor of a file descriptor.
// Note: This is similar to lseek(fd, 0, SEEK_CUR) in POSIX.
func (h *Host) fdTell(mem *view, fd uint32, result uint32) Errno {
	d, errno := h.files.get(fd, RightsFdTell)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.file == nil {
		return ErrnoSpipe
	}

	pos, err := d.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return hostErrno(err)
	}
	if !mem.putUint64(result, uint64(pos)) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Write to a file descriptor, advancing its cursor.
// Note: This is similar to writev in POSIX.
func (h *Host) fdWrite(mem *view, fd, iovs, niovs uint32, nwritten uint32) Errno {
	d, errno := h.files.get(fd, RightsFdWrite)
	if errno != ErrnoSuccess {
		return errno
	}

	buffers, ok := mem.gather(iovs, niovs)
	if !ok {
		return ErrnoFault
	}
	n, err := d.writev(buffers)
	if err != nil {
		return hostErrno(err)
	}
	if !mem.putUint32(nwritten, n) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Create a directory.
// Note: This is similar to mkdirat in POSIX.
func (h *Host) pathCreateDirectory(mem *view, fd, pathPtr, pathLen uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathCreateDirectory)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	if err := os.Mkdir(hostPath, 0o700); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Return the attributes of a file or directory.
// Note: This is similar to fstatat in POSIX.
func (h *Host) pathFilestatGet(mem *view, fd, flags, pathPtr, pathLen, result uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathFilestatGet)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	stat, err := statPath(hostPath, flags&lookupflagsSymlinkFollow != 0)
	if err != nil {
		return hostErrno(err)
	}
	if !stat.store(mem, result) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Adjust the timestamps of a file or directory.
// Note: This is similar to utimensat in POSIX.
func (h *Host) pathFilestatSetTimes(mem *view, fd, flags, pathPtr, pathLen uint32, atim, mtim uint64, fstFlags uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathFilestatSetTimes)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	accessTime, modTime, errno := timesFromFlags(uint16(fstFlags), atim, mtim)
	if errno != ErrnoSuccess {
		return errno
	}
	if err := utimens(hostPath, accessTime, modTime, flags&lookupflagsSymlinkFollow != 0); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Create a hard link.
// Note: This is similar to linkat in POSIX.
func (h *Host) pathLink(mem *view, oldFd, oldFlags, oldPathPtr, oldPathLen, newFd, newPathPtr, newPathLen uint32) Errno {
	oldPath, errno := h.loadPath(mem, oldPathPtr, oldPathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	newPath, errno := h.loadPath(mem, newPathPtr, newPathLen)
	if errno != ErrnoSuccess {
		return errno
	}

	oldDir, errno := h.files.getDirectory(oldFd, RightsPathLinkSource)
	if errno != ErrnoSuccess {
		return errno
	}
	newDir, errno := h.files.getDirectory(newFd, RightsPathLinkTarget)
	if errno != ErrnoSuccess {
		return errno
	}

	oldHost, errno := resolvePath(oldDir, oldPath)
	if errno != ErrnoSuccess {
		return errno
	}
	newHost, errno := resolvePath(newDir, newPath)
	if errno != ErrnoSuccess {
		return errno
	}

	if err := os.Link(oldHost, newHost); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Open a file or directory beneath a directory handle. The requested
// rights are intersected with the ceiling derived from the opened file's
// type, and a directory opened without write intent is forced read-only.
// Note: This is similar to openat in POSIX.
func (h *Host) pathOpen(mem *view, fd, dirflags, pathPtr, pathLen uint32, oflags uint32, rightsBase, rightsInheriting Rights, fdflags uint32, openedFd uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}

	required := RightsPathOpen
	if uint16(oflags)&oflagsCreat != 0 {
		required |= RightsPathCreateFile
	}
	if uint16(oflags)&oflagsTrunc != 0 {
		required |= RightsPathFilestatSetSize
	}

	d, errno := h.files.getDirectory(fd, required)
	if errno != ErrnoSuccess {
		return errno
	}
	if d.rightsInheriting&rightsBase != rightsBase || d.rightsInheriting&rightsInheriting != rightsInheriting {
		return ErrnoNotcapable
	}

	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	readIntent := rightsBase&(RightsFdRead|RightsFdReaddir) != 0
	writeIntent := rightsBase&(RightsFdWrite|RightsFdAllocate|RightsFdDatasync|RightsFdFilestatSetSize) != 0

	targetIsDir := uint16(oflags)&oflagsDirectory != 0
	if stat, err := statPath(hostPath, dirflags&lookupflagsSymlinkFollow != 0); err == nil && stat.filetype == FiletypeDirectory {
		targetIsDir = true
	}

	var osFlags int
	switch {
	case targetIsDir:
		// Directories only ever open read-only; spurious write intent
		// would make the host open fail outright.
		osFlags = os.O_RDONLY
	case readIntent && writeIntent:
		osFlags = os.O_RDWR
	case writeIntent:
		osFlags = os.O_WRONLY
	default:
		osFlags = os.O_RDONLY
	}

	mode := os.FileMode(0o600)
	if uint16(oflags)&oflagsCreat != 0 && !targetIsDir {
		osFlags |= os.O_CREATE
	}
	if uint16(oflags)&oflagsExcl != 0 {
		osFlags |= os.O_EXCL
	}
	if uint16(oflags)&oflagsTrunc != 0 && !targetIsDir {
		osFlags |= os.O_TRUNC
	}
	if uint16(fdflags)&fdflagsAppend != 0 {
		osFlags |= os.O_APPEND
	}
	if uint16(fdflags)&(fdflagsDsync|fdflagsRsync|fdflagsSync) != 0 {
		osFlags |= os.O_SYNC
	}

	f, err := os.OpenFile(hostPath, osFlags, mode)
	if err != nil {
		return hostErrno(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return hostErrno(err)
	}
	kind := filetypeOf(info.Mode())
	if uint16(oflags)&oflagsDirectory != 0 && kind != FiletypeDirectory {
		f.Close()
		return ErrnoNotdir
	}

	isTTY := kind == FiletypeCharacterDevice && term.IsTerminal(int(f.Fd()))
	ceilBase, ceilInheriting := deriveRights(kind, isTTY)

	newFd := h.files.allocate(&descriptor{
		kind:             kind,
		rightsBase:       rightsBase & ceilBase,
		rightsInheriting: rightsInheriting & ceilInheriting,
		fdflags:          uint16(fdflags),
		file:             f,
		realPath:         hostPath,
	})
	if !mem.putUint32(openedFd, newFd) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Read the contents of a symbolic link.
// Note: This is similar to readlinkat in POSIX.
func (h *Host) pathReadlink(mem *view, fd, pathPtr, pathLen, buf, bufLen, bufused uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathReadlink)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	target, err := os.Readlink(hostPath)
	if err != nil {
		return hostErrno(err)
	}

	n := uint32(len(target))
	if n > bufLen {
		n = bufLen
	}
	dst, ok := mem.bytes(buf, n)
	if !ok {
		return ErrnoFault
	}
	copy(dst, target[:n])
	if !mem.putUint32(bufused, n) {
		return ErrnoFault
	}
	return ErrnoSuccess
}

// Remove a directory. Fails with ENOTEMPTY if it is not empty.
// Note: This is similar to unlinkat(fd, path, AT_REMOVEDIR) in POSIX.
func (h *Host) pathRemoveDirectory(mem *view, fd, pathPtr, pathLen uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathRemoveDirectory)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	stat, err := statPath(hostPath, false)
	if err != nil {
		return hostErrno(err)
	}
	if stat.filetype != FiletypeDirectory {
		return ErrnoNotdir
	}
	if err := os.Remove(hostPath); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Rename a file or directory.
// Note: This is similar to renameat in POSIX.
func (h *Host) pathRename(mem *view, fd, oldPathPtr, oldPathLen, newFd, newPathPtr, newPathLen uint32) Errno {
	oldPath, errno := h.loadPath(mem, oldPathPtr, oldPathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	newPath, errno := h.loadPath(mem, newPathPtr, newPathLen)
	if errno != ErrnoSuccess {
		return errno
	}

	oldDir, errno := h.files.getDirectory(fd, RightsPathRenameSource)
	if errno != ErrnoSuccess {
		return errno
	}
	newDir, errno := h.files.getDirectory(newFd, RightsPathRenameTarget)
	if errno != ErrnoSuccess {
		return errno
	}

	oldHost, errno := resolvePath(oldDir, oldPath)
	if errno != ErrnoSuccess {
		return errno
	}
	newHost, errno := resolvePath(newDir, newPath)
	if errno != ErrnoSuccess {
		return errno
	}

	if err := os.Rename(oldHost, newHost); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Create a symbolic link. The link contents are taken verbatim; only the
// link location resolves through the directory handle.
// Note: This is similar to symlinkat in POSIX.
func (h *Host) pathSymlink(mem *view, oldPathPtr, oldPathLen, fd, newPathPtr, newPathLen uint32) Errno {
	oldPath, errno := h.loadPath(mem, oldPathPtr, oldPathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	newPath, errno := h.loadPath(mem, newPathPtr, newPathLen)
	if errno != ErrnoSuccess {
		return errno
	}

	d, errno := h.files.getDirectory(fd, RightsPathSymlink)
	if errno != ErrnoSuccess {
		return errno
	}
	newHost, errno := resolvePath(d, newPath)
	if errno != ErrnoSuccess {
		return errno
	}

	if err := os.Symlink(oldPath, newHost); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Unlink a file. Fails with EISDIR if the path refers to a directory.
// Note: This is similar to unlinkat(fd, path, 0) in POSIX.
func (h *Host) pathUnlinkFile(mem *view, fd, pathPtr, pathLen uint32) Errno {
	guestPath, errno := h.loadPath(mem, pathPtr, pathLen)
	if errno != ErrnoSuccess {
		return errno
	}
	d, errno := h.files.getDirectory(fd, RightsPathUnlinkFile)
	if errno != ErrnoSuccess {
		return errno
	}
	hostPath, errno := resolvePath(d, guestPath)
	if errno != ErrnoSuccess {
		return errno
	}

	stat, err := statPath(hostPath, false)
	if err != nil {
		return hostErrno(err)
	}
	if stat.filetype == FiletypeDirectory {
		return ErrnoIsdir
	}
	if err := os.Remove(hostPath); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Send a signal to the calling process.
// Note: This is similar to raise in POSIX.
func (h *Host) procRaise(sig uint32) Errno {
	if sig > 0xff {
		return ErrnoInval
	}
	return raiseSignal(uint8(sig))
}

// Temporarily yield execution: a no-op on this single-threaded host.
// Note: This is similar to sched_yield in POSIX.
func (h *Host) schedYield() Errno {
	return ErrnoSuccess
}

// Write cryptographically secure random bytes into a guest buffer.
func (h *Host) randomGet(mem *view, buf, bufLen uint32) Errno {
	dst, ok := mem.bytes(buf, bufLen)
	if !ok {
		return ErrnoFault
	}
	if _, err := rand.Read(dst); err != nil {
		return hostErrno(err)
	}
	return ErrnoSuccess
}

// Socket I/O is out of scope for this host; the whole sock_* family
// reports "not supported".
func (h *Host) sockUnsupported() Errno {
	return ErrnoNosys
}
