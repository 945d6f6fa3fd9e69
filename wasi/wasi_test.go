package wasi

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/sys"
)

// sliceMemory stands in for a guest's linear memory.
type sliceMemory []byte

func (m sliceMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(len(m)) {
		return nil, false
	}
	return m[offset : offset+byteCount : offset+byteCount], true
}

func newTestMemory() (sliceMemory, *view) {
	mem := make(sliceMemory, 64*1024)
	return mem, &view{mem: mem}
}

func newTestHost(t *testing.T, opts *Options) (*Host, string) {
	t.Helper()

	dir := t.TempDir()
	if opts == nil {
		opts = &Options{}
	}
	if opts.Preopens == nil {
		opts.Preopens = map[string]string{"/work": dir}
	}
	h, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h, dir
}

func putString(mem sliceMemory, addr uint32, s string) {
	copy(mem[addr:], s)
}

func putIovec(mem sliceMemory, addr, buf, bufLen uint32) {
	binary.LittleEndian.PutUint32(mem[addr:], buf)
	binary.LittleEndian.PutUint32(mem[addr+4:], bufLen)
}

// openAt opens a path beneath the first preopen with full file rights.
func openAt(t *testing.T, h *Host, mem sliceMemory, v *view, name string, oflags uint16, fdflags uint16) uint32 {
	t.Helper()

	putString(mem, 1024, name)
	errno := h.pathOpen(v, 3, lookupflagsSymlinkFollow, 1024, uint32(len(name)), uint32(oflags), FileRights, 0, uint32(fdflags), 512)
	require.Equal(t, ErrnoSuccess, errno)
	return binary.LittleEndian.Uint32(mem[512:])
}

func TestArgsProtocol(t *testing.T) {
	h, _ := newTestHost(t, &Options{Args: []string{"prog", "a", "bc"}})
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.argsSizesGet(v, 0, 4))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(mem[0:]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(mem[4:]))

	require.Equal(t, ErrnoSuccess, h.argsGet(v, 16, 128))
	assert.Equal(t, uint32(128), binary.LittleEndian.Uint32(mem[16:]))
	assert.Equal(t, "prog\x00a\x00bc\x00", string(mem[128:138]))
}

func TestEnvironSorted(t *testing.T) {
	h, _ := newTestHost(t, &Options{Env: map[string]string{"B": "2", "A": "1"}})
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.environGet(v, 16, 128))
	assert.Equal(t, "A=1\x00B=2\x00", string(mem[128:136]))
}

func TestPrestat(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.fdPrestatGet(v, 3, 0))
	assert.Equal(t, byte(preopentypeDir), mem[0])
	assert.Equal(t, uint32(len("/work")), binary.LittleEndian.Uint32(mem[4:]))

	require.Equal(t, ErrnoSuccess, h.fdPrestatDirName(v, 3, 64, 5))
	assert.Equal(t, "/work", string(mem[64:69]))

	assert.Equal(t, ErrnoNametoolong, h.fdPrestatDirName(v, 3, 64, 4))
	assert.Equal(t, ErrnoInval, h.fdPrestatGet(v, 0, 0))
	assert.Equal(t, ErrnoBadf, h.fdPrestatGet(v, 17, 0))
}

func TestFileRoundTrip(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "hello.txt", oflagsCreat, 0)
	require.GreaterOrEqual(t, fd, uint32(4))

	putString(mem, 2048, "hello")
	putIovec(mem, 256, 2048, 5)
	require.Equal(t, ErrnoSuccess, h.fdWrite(v, fd, 256, 1, 520))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(mem[520:]))

	require.Equal(t, ErrnoSuccess, h.fdSeek(v, fd, 0, whenceSet, 528))

	putIovec(mem, 256, 3072, 16)
	require.Equal(t, ErrnoSuccess, h.fdRead(v, fd, 256, 1, 520))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(mem[520:]))
	assert.Equal(t, "hello", string(mem[3072:3077]))

	data, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Equal(t, ErrnoSuccess, h.fdClose(fd))
	assert.Equal(t, ErrnoBadf, h.fdClose(fd))
}

func TestReadAtEOF(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), nil, 0o600))
	fd := openAt(t, h, mem, v, "empty", 0, 0)

	putIovec(mem, 256, 3072, 16)
	require.Equal(t, ErrnoSuccess, h.fdRead(v, fd, 256, 1, 520))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(mem[520:]))
}

func TestPositionalIO(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("abcdef"), 0o600))
	fd := openAt(t, h, mem, v, "f", 0, 0)

	putIovec(mem, 256, 3072, 3)
	require.Equal(t, ErrnoSuccess, h.fdPread(v, fd, 256, 1, 2, 520))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(mem[520:]))
	assert.Equal(t, "cde", string(mem[3072:3075]))

	// The cursor must be untouched by positional reads.
	require.Equal(t, ErrnoSuccess, h.fdTell(v, fd, 528))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(mem[528:]))
}

func TestSeekRules(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("abcdef"), 0o600))
	fd := openAt(t, h, mem, v, "f", 0, 0)

	require.Equal(t, ErrnoSuccess, h.fdSeek(v, fd, -2, whenceEnd, 512))
	assert.Equal(t, uint64(4), binary.LittleEndian.Uint64(mem[512:]))

	// A negative target is rejected and the cursor stays put.
	assert.Equal(t, ErrnoInval, h.fdSeek(v, fd, -10, whenceCur, 512))
	require.Equal(t, ErrnoSuccess, h.fdTell(v, fd, 512))
	assert.Equal(t, uint64(4), binary.LittleEndian.Uint64(mem[512:]))
}

func TestRightsNarrowOnly(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "f", oflagsCreat, 0)

	require.Equal(t, ErrnoSuccess, h.fdFdstatSetRights(fd, RightsFdRead, 0))

	// Widening back fails and leaves the narrowed mask in place.
	assert.Equal(t, ErrnoNotcapable, h.fdFdstatSetRights(fd, RightsFdRead|RightsFdWrite, 0))

	putIovec(mem, 256, 2048, 1)
	assert.Equal(t, ErrnoNotcapable, h.fdWrite(v, fd, 256, 1, 520))
	assert.Equal(t, ErrnoSuccess, h.fdRead(v, fd, 256, 1, 520))
}

func TestOpenRightsBoundByInheriting(t *testing.T) {
	h, _ := newTestHost(t, &Options{
		Preopens:      map[string]string{"/ro": t.TempDir()},
		PreopenRights: map[string]Rights{"/ro": ReadOnlyRights},
	})
	mem, v := newTestMemory()

	putString(mem, 1024, "f")
	errno := h.pathOpen(v, 3, 0, 1024, 1, uint32(oflagsCreat), FileRights, 0, 0, 512)
	assert.Equal(t, ErrnoNotcapable, errno)
}

func TestDirectoryOpenIsReadOnly(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	putString(mem, 1024, "sub")
	errno := h.pathOpen(v, 3, 0, 1024, 3, uint32(oflagsDirectory), DirectoryRights, DirectoryRights|FileRights, 0, 512)
	require.Equal(t, ErrnoSuccess, errno)
	fd := binary.LittleEndian.Uint32(mem[512:])

	require.Equal(t, ErrnoSuccess, h.fdFdstatGet(v, fd, 0))
	assert.Equal(t, byte(FiletypeDirectory), mem[0])

	// Write rights never survive onto a directory handle.
	got := Rights(binary.LittleEndian.Uint64(mem[8:]))
	assert.Zero(t, got&RightsFdWrite)
}

func TestOpenDirectoryFlagOnFile(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), nil, 0o600))
	putString(mem, 1024, "f")
	errno := h.pathOpen(v, 3, 0, 1024, 1, uint32(oflagsDirectory), FileRights, 0, 0, 512)
	assert.Equal(t, ErrnoNotdir, errno)
}

func TestPathEscapeRejected(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	for _, p := range []string{"..", "../x", "a/../../x"} {
		putString(mem, 1024, p)
		errno := h.pathOpen(v, 3, 0, 1024, uint32(len(p)), 0, FileRights, 0, 0, 512)
		assert.Equal(t, ErrnoAcces, errno, p)
	}

	// Dot-dot that stays beneath the root is fine.
	putString(mem, 1024, "a/../f")
	errno := h.pathOpen(v, 3, 0, 1024, 6, uint32(oflagsCreat), FileRights, 0, 0, 512)
	assert.Equal(t, ErrnoSuccess, errno)
}

func TestReaddirPagination(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	for _, name := range []string{"aa", "bb", "cc"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	read := func(cookie uint64, bufLen uint32) (uint32, []string) {
		errno := h.fdReaddir(v, 3, 4096, bufLen, cookie, 512)
		require.Equal(t, ErrnoSuccess, errno)
		used := binary.LittleEndian.Uint32(mem[512:])

		var names []string
		for off := uint32(0); off < used; {
			namlen := binary.LittleEndian.Uint32(mem[4096+off+16:])
			names = append(names, string(mem[4096+off+24:4096+off+24+namlen]))
			off += sizeofDirent + namlen
		}
		return used, names
	}

	// A buffer sized for one record yields exactly one whole record.
	_, names := read(0, sizeofDirent+2)
	require.Equal(t, []string{"aa"}, names)

	next := binary.LittleEndian.Uint64(mem[4096:])
	require.Equal(t, uint64(1), next)

	_, names = read(next, 4096)
	assert.Equal(t, []string{"bb", "cc"}, names)

	_, names = read(3, 4096)
	assert.Empty(t, names)

	assert.Equal(t, ErrnoInval, h.fdReaddir(v, 3, 4096, 4096, 17, 512))
}

func TestRenumber(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	a := openAt(t, h, mem, v, "a", oflagsCreat, 0)
	b := openAt(t, h, mem, v, "b", oflagsCreat, 0)

	require.Equal(t, ErrnoSuccess, h.fdRenumber(a, b))
	assert.Equal(t, ErrnoBadf, h.fdClose(a))
	assert.Equal(t, ErrnoSuccess, h.fdClose(b))

	assert.Equal(t, ErrnoNotsup, h.fdRenumber(1, 5))
}

func TestStdStreamsNeverClose(t *testing.T) {
	var out bytes.Buffer
	h, _ := newTestHost(t, &Options{Stdout: &out})
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.fdClose(1))

	putString(mem, 2048, "still here")
	putIovec(mem, 256, 2048, 10)
	require.Equal(t, ErrnoSuccess, h.fdWrite(v, 1, 256, 1, 520))
	assert.Equal(t, "still here", out.String())
}

func TestFilestat(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("xyz"), 0o600))
	fd := openAt(t, h, mem, v, "f", 0, 0)

	require.Equal(t, ErrnoSuccess, h.fdFilestatGet(v, fd, 0))
	assert.Equal(t, byte(FiletypeRegularFile), mem[16])
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(mem[32:]))

	putString(mem, 1024, "f")
	require.Equal(t, ErrnoSuccess, h.pathFilestatGet(v, 3, lookupflagsSymlinkFollow, 1024, 1, 128))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(mem[128+32:]))
}

func TestFilestatSetSize(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "f", oflagsCreat, 0)
	require.Equal(t, ErrnoSuccess, h.fdFilestatSetSize(fd, 100))

	info, err := os.Stat(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Size())
}

func TestSetTimesConflict(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "f", oflagsCreat, 0)
	errno := h.fdFilestatSetTimes(fd, 0, 0, uint32(fstflagsAtim|fstflagsAtimNow))
	assert.Equal(t, ErrnoInval, errno)
}

func TestUnlinkAndRemoveDirectory(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "d"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), nil, 0o600))

	putString(mem, 1024, "d")
	assert.Equal(t, ErrnoIsdir, h.pathUnlinkFile(v, 3, 1024, 1))

	putString(mem, 1024, "f")
	assert.Equal(t, ErrnoNotdir, h.pathRemoveDirectory(v, 3, 1024, 1))
	assert.Equal(t, ErrnoSuccess, h.pathUnlinkFile(v, 3, 1024, 1))

	putString(mem, 1024, "d")
	assert.Equal(t, ErrnoSuccess, h.pathRemoveDirectory(v, 3, 1024, 1))
}

func TestCreateDirectoryAndRename(t *testing.T) {
	h, dir := newTestHost(t, nil)
	mem, v := newTestMemory()

	putString(mem, 1024, "sub")
	require.Equal(t, ErrnoSuccess, h.pathCreateDirectory(v, 3, 1024, 3))
	assert.Equal(t, ErrnoExist, h.pathCreateDirectory(v, 3, 1024, 3))

	putString(mem, 1100, "sub2")
	require.Equal(t, ErrnoSuccess, h.pathRename(v, 3, 1024, 3, 3, 1100, 4))

	_, err := os.Stat(filepath.Join(dir, "sub2"))
	assert.NoError(t, err)
}

func TestSymlinkReadlink(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	putString(mem, 1024, "target-contents")
	putString(mem, 1100, "link")
	require.Equal(t, ErrnoSuccess, h.pathSymlink(v, 1024, 15, 3, 1100, 4))

	require.Equal(t, ErrnoSuccess, h.pathReadlink(v, 3, 1100, 4, 2048, 64, 512))
	n := binary.LittleEndian.Uint32(mem[512:])
	assert.Equal(t, "target-contents", string(mem[2048:2048+n]))

	// A short buffer truncates rather than failing.
	require.Equal(t, ErrnoSuccess, h.pathReadlink(v, 3, 1100, 4, 2048, 4, 512))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(mem[512:]))
}

func TestClockMonotonic(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.clockTimeGet(v, clockidMonotonic, 0, 0))
	first := binary.LittleEndian.Uint64(mem[0:])

	time.Sleep(time.Millisecond)

	require.Equal(t, ErrnoSuccess, h.clockTimeGet(v, clockidMonotonic, 0, 0))
	second := binary.LittleEndian.Uint64(mem[0:])
	assert.Greater(t, second, first)

	assert.Equal(t, ErrnoInval, h.clockTimeGet(v, 9, 0, 0))
	assert.Equal(t, ErrnoInval, h.clockResGet(v, 9, 0))
}

func TestPollClockWaits(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	// One relative clock subscription for 10ms.
	binary.LittleEndian.PutUint64(mem[0:], 0xdead)
	mem[8] = eventtypeClock
	binary.LittleEndian.PutUint32(mem[16:], clockidMonotonic)
	binary.LittleEndian.PutUint64(mem[24:], uint64(10*time.Millisecond))

	start := time.Now()
	require.Equal(t, ErrnoSuccess, h.pollOneoff(v, 0, 256, 1, 512))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(mem[512:]))
	assert.Equal(t, uint64(0xdead), binary.LittleEndian.Uint64(mem[256:]))
	assert.Equal(t, uint16(ErrnoSuccess), binary.LittleEndian.Uint16(mem[256+8:]))
	assert.Equal(t, byte(eventtypeClock), mem[256+10])
}

func TestPollBadFd(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	binary.LittleEndian.PutUint64(mem[0:], 7)
	mem[8] = eventtypeFdRead
	binary.LittleEndian.PutUint32(mem[16:], 42)

	require.Equal(t, ErrnoSuccess, h.pollOneoff(v, 0, 256, 1, 512))
	assert.Equal(t, uint16(ErrnoBadf), binary.LittleEndian.Uint16(mem[256+8:]))

	assert.Equal(t, ErrnoInval, h.pollOneoff(v, 0, 256, 0, 512))
}

func TestRandomGet(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	require.Equal(t, ErrnoSuccess, h.randomGet(v, 0, 32))
	assert.NotEqual(t, make([]byte, 32), []byte(mem[0:32]))
}

func TestMemoryFaults(t *testing.T) {
	h, _ := newTestHost(t, &Options{Args: []string{"p"}})
	_, v := newTestMemory()

	limit := uint32(64 * 1024)
	assert.Equal(t, ErrnoFault, h.argsGet(v, limit, 0))
	assert.Equal(t, ErrnoFault, h.randomGet(v, limit-4, 8))
	assert.Equal(t, ErrnoFault, h.fdPrestatGet(v, 3, limit))
	assert.Equal(t, ErrnoFault, h.clockTimeGet(v, clockidMonotonic, 0, limit-4))
}

func TestErrnoTranslation(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	putString(mem, 1024, "missing")
	errno := h.pathOpen(v, 3, 0, 1024, 7, 0, FileRights, 0, 0, 512)
	assert.Equal(t, ErrnoNoent, errno)

	putString(mem, 1024, "missing/deeper")
	assert.Equal(t, ErrnoNoent, h.pathFilestatGet(v, 3, 0, 1024, 14, 128))
}

func TestStdioOverrides(t *testing.T) {
	var out, errOut bytes.Buffer
	h, _ := newTestHost(t, &Options{
		Stdin:  strings.NewReader("input"),
		Stdout: &out,
		Stderr: &errOut,
	})
	mem, v := newTestMemory()

	putIovec(mem, 256, 2048, 5)
	require.Equal(t, ErrnoSuccess, h.fdRead(v, 0, 256, 1, 520))
	assert.Equal(t, "input", string(mem[2048:2053]))

	putString(mem, 3072, "eee")
	putIovec(mem, 256, 3072, 3)
	require.Equal(t, ErrnoSuccess, h.fdWrite(v, 2, 256, 1, 520))
	assert.Equal(t, "eee", errOut.String())

	// Reading stdout is a capability violation.
	assert.Equal(t, ErrnoNotcapable, h.fdRead(v, 1, 256, 1, 520))
}

func TestCloseLeavesStdStreams(t *testing.T) {
	h, err := New(&Options{Preopens: map[string]string{"/work": t.TempDir()}})
	require.NoError(t, err)
	h.Close()

	// The host borrows the process streams; tearing it down must not
	// close them out from under the embedder.
	_, err = os.Stdin.Stat()
	assert.NoError(t, err)
	_, err = os.Stdout.Stat()
	assert.NoError(t, err)
	_, err = os.Stderr.Stat()
	assert.NoError(t, err)

	h.Close()
}

func TestPollUnknownClockNoWait(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	// Relative subscription on an unrecognized clock with a one-second
	// timeout: it must contribute no wait and still report success.
	binary.LittleEndian.PutUint64(mem[0:], 1)
	mem[8] = eventtypeClock
	binary.LittleEndian.PutUint32(mem[16:], 99)
	binary.LittleEndian.PutUint64(mem[24:], uint64(time.Second))

	start := time.Now()
	require.Equal(t, ErrnoSuccess, h.pollOneoff(v, 0, 256, 1, 512))
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(mem[512:]))
	assert.Equal(t, uint16(ErrnoSuccess), binary.LittleEndian.Uint16(mem[256+8:]))
}

func TestAllocateOverflow(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "f", oflagsCreat, 0)
	assert.Equal(t, ErrnoInval, h.fdAllocate(fd, math.MaxUint64-1, 2))
	assert.Equal(t, ErrnoInval, h.fdAllocate(fd, uint64(math.MaxInt64), 1))
	assert.Equal(t, ErrnoSuccess, h.fdAllocate(fd, 0, 16))
}

func TestExitStatusClamped(t *testing.T) {
	code, err := exitStatus(sys.NewExitError(0))
	require.NoError(t, err)
	assert.Zero(t, code)

	code, err = exitStatus(sys.NewExitError(300))
	assert.Equal(t, 44, code)

	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, uint32(300), exit.Code)
}

func TestFdstatGetNeedsNoRights(t *testing.T) {
	h, _ := newTestHost(t, nil)
	mem, v := newTestMemory()

	fd := openAt(t, h, mem, v, "f", oflagsCreat, 0)
	require.Equal(t, ErrnoSuccess, h.fdFdstatSetRights(fd, 0, 0))
	assert.Equal(t, ErrnoSuccess, h.fdFdstatGet(v, fd, 0))
}
