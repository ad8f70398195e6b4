package transport

import "sync"

// bufferPool hands out fixed-size byte slices for one buffer size class,
// eliminating a per-receive allocation on the hot path.
type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool.New = func() interface{} {
		buf := make([]byte, size)
		return &buf
	}
	return bp
}

// Get returns a pointer to a zeroed buffer of this pool's size class.
// Callers must return it via Put (typically deferred immediately after Get).
func (p *bufferPool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put clears and returns a buffer to the pool. The caller must not use the
// buffer after calling Put.
func (p *bufferPool) Put(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	p.pool.Put(bufPtr)
}

// unicastBufferPool and multicastBufferPool are the two size classes this
// library needs: strict unicast DNS (512 bytes) and mDNS (1500 bytes), per
// the buffer-size rules in the network endpoint contract.
var (
	unicastBufferPool   = newBufferPool(512)
	multicastBufferPool = newBufferPool(1500)
)
