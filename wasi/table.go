package wasi

import "github.com/willf/bitset"

// stdio handles are permanently bound and never released by guest request.
const (
	fdStdin  = 0
	fdStdout = 1
	fdStderr = 2

	// firstPreopenFd is where preopen roots are assigned, sequentially.
	firstPreopenFd = 3
)

// table maps guest handles to descriptors. Allocation is monotonic, as in
// the reference design: closed handle numbers are never reused within one
// instance. The live set shadows the map so teardown can release handles
// in ascending order and close each host resource exactly once.
type table struct {
	entries map[uint32]*descriptor
	live    *bitset.BitSet
	next    uint32
}

func newTable() *table {
	return &table{
		entries: make(map[uint32]*descriptor),
		live:    bitset.New(64),
		next:    firstPreopenFd,
	}
}

// bind installs a descriptor at a fixed handle (std streams, preopens).
func (t *table) bind(fd uint32, d *descriptor) {
	t.entries[fd] = d
	t.live.Set(uint(fd))
	if fd >= t.next {
		t.next = fd + 1
	}
}

// allocate installs a descriptor at the next free handle.
func (t *table) allocate(d *descriptor) uint32 {
	if t.next < firstPreopenFd+1 {
		t.next = firstPreopenFd + 1
	}
	fd := t.next
	t.next++
	t.entries[fd] = d
	t.live.Set(uint(fd))
	return fd
}

// lookup returns the descriptor for a handle without a rights check.
func (t *table) lookup(fd uint32) (*descriptor, Errno) {
	d, ok := t.entries[fd]
	if !ok {
		return nil, ErrnoBadf
	}
	return d, ErrnoSuccess
}

// get returns the descriptor for a handle after verifying that its base
// rights cover the required set.
func (t *table) get(fd uint32, required Rights) (*descriptor, Errno) {
	d, errno := t.lookup(fd)
	if errno != ErrnoSuccess {
		return nil, errno
	}
	if errno := checkRights(d.rightsBase, required); errno != ErrnoSuccess {
		return nil, errno
	}
	return d, ErrnoSuccess
}

// getDirectory returns the descriptor for a handle that must be a
// directory with the required rights.
func (t *table) getDirectory(fd uint32, required Rights) (*descriptor, Errno) {
	d, errno := t.get(fd, required)
	if errno != ErrnoSuccess {
		return nil, errno
	}
	if d.kind != FiletypeDirectory {
		return nil, ErrnoNotdir
	}
	return d, ErrnoSuccess
}

// remove drops a handle from the table, leaving the host resource to the
// caller.
func (t *table) remove(fd uint32) {
	delete(t.entries, fd)
	t.live.Clear(uint(fd))
}

// closeAll releases every live handle in ascending order. Used on
// teardown so outstanding host resources are returned exactly once.
// The std stream entries borrow the process's own files and are dropped
// without closing them.
func (t *table) closeAll() {
	for fd, ok := t.live.NextSet(0); ok; fd, ok = t.live.NextSet(fd + 1) {
		if fd >= firstPreopenFd {
			if d := t.entries[uint32(fd)]; d != nil {
				_ = d.close()
			}
		}
		t.remove(uint32(fd))
	}
}
