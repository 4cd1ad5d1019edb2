package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	var km KeyedMutex
	counts := map[string]int{}
	var countsMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := km.Lock(key)
				defer unlock()
				countsMu.Lock()
				counts[key]++
				countsMu.Unlock()
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, 50, counts["a"])
	assert.Equal(t, 50, counts["b"])
	assert.Equal(t, 0, km.Len())
}
