package wasi

import "encoding/binary"

// linearMemory is the minimal surface a syscall needs from the guest's
// exported memory. wazero's api.Memory satisfies it directly: Read returns
// a mutable window over the underlying buffer, so the same method serves
// both decoding and encoding. Tests substitute a byte-slice implementation.
type linearMemory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// view provides byte-exact, bounds-checked accessors over guest linear
// memory. Every accessor reports whether the access stayed in bounds;
// syscalls turn a failed access into EFAULT rather than letting a hostile
// pointer fault the host.
type view struct {
	mem linearMemory
}

func (v *view) bytes(addr, n uint32) ([]byte, bool) {
	if n == 0 {
		return nil, true
	}
	return v.mem.Read(addr, n)
}

func (v *view) string_(addr, n uint32) (string, bool) {
	b, ok := v.bytes(addr, n)
	if !ok {
		return "", false
	}
	return string(b), true
}

func (v *view) byte_(addr uint32) (byte, bool) {
	b, ok := v.mem.Read(addr, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (v *view) putByte(addr uint32, val byte) bool {
	b, ok := v.mem.Read(addr, 1)
	if !ok {
		return false
	}
	b[0] = val
	return true
}

func (v *view) uint16(addr uint32) (uint16, bool) {
	b, ok := v.mem.Read(addr, 2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (v *view) putUint16(addr uint32, val uint16) bool {
	b, ok := v.mem.Read(addr, 2)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint16(b, val)
	return true
}

func (v *view) uint32(addr uint32) (uint32, bool) {
	b, ok := v.mem.Read(addr, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (v *view) putUint32(addr uint32, val uint32) bool {
	b, ok := v.mem.Read(addr, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(b, val)
	return true
}

func (v *view) uint64(addr uint32) (uint64, bool) {
	b, ok := v.mem.Read(addr, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (v *view) putUint64(addr uint32, val uint64) bool {
	b, ok := v.mem.Read(addr, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(b, val)
	return true
}

// gather collects the guest buffers described by an iovec array. A bad
// element pointer or a buffer outside memory fails the whole gather.
func (v *view) gather(iovs, niovs uint32) ([][]byte, bool) {
	buffers := make([][]byte, 0, niovs)
	for i := uint32(0); i < niovs; i++ {
		vec, ok := loadIovec(v, iovs+i*sizeofIovec)
		if !ok {
			return nil, false
		}
		buf, ok := v.bytes(vec.buf, vec.bufLen)
		if !ok {
			return nil, false
		}
		buffers = append(buffers, buf)
	}
	return buffers, true
}

func putUint32le(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}

func putUint64le(b []byte, v uint64) {
	binary.LittleEndian.PutUint64(b, v)
}
