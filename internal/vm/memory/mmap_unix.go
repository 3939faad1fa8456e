//go:build linux || darwin

package memory

import "golang.org/x/sys/unix"

// newBacked maps an anonymous, zero-filled, read-write region of size
// bytes outside the Go heap. No guard pages surround it; bounds are
// enforced by the Arena's range checks and Go slice bounds checks.
// mapped is false (and
// data is a plain Go allocation) if the host mmap call itself fails,
// so a resource limit on the host doesn't crash the VM over a guest
// program that did nothing wrong.
func newBacked(size int) (data []byte, mapped bool) {
	if size <= 0 {
		return make([]byte, 0), false
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return make([]byte, size), false
	}
	return b, true
}

func freeBacked(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Munmap(b)
}

func growBacked(old []byte, oldMapped bool, newSize int) (data []byte, mapped bool) {
	next, mapped := newBacked(newSize)
	copy(next, old)
	if oldMapped {
		freeBacked(old)
	}
	return next, mapped
}
