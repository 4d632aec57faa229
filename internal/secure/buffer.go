// Package secure holds candidate credential values in protected memory
// between interactive entry and the atomic write to disk.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer wraps memguard.Enclave: the value is encrypted at rest in memory
// and the backing pages are locked against swapping where the OS allows it.
type Buffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewBuffer seals data into a protected buffer. The input slice is wiped by
// memguard as part of enclave construction; callers must not reuse it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the value into a locked buffer. The caller must call
// Destroy() on the returned LockedBuffer as soon as the plaintext has been
// used.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return b.enclave.Open()
}

// Destroy prevents further use of the buffer. Idempotent. The encrypted
// enclave contents are left to the garbage collector; call memguard.Purge()
// at process exit for full cleanup.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
