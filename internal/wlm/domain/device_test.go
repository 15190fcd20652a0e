package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceAssigner_RotatesInOrder(t *testing.T) {
	d := NewDeviceAssigner(3)
	got := make([]int, 7)
	for i := range got {
		got[i] = d.Next()
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, got)
}

func TestDeviceAssigner_DisabledReturnsCPU(t *testing.T) {
	d := NewDeviceAssigner(0)
	assert.False(t, d.Enabled())
	for i := 0; i < 3; i++ {
		assert.Equal(t, CPUDevice, d.Next())
	}
}

func TestDeviceAssigner_NegativeCountClampsToDisabled(t *testing.T) {
	d := NewDeviceAssigner(-5)
	assert.False(t, d.Enabled())
	assert.Equal(t, CPUDevice, d.Next())
}

func TestDeviceAssigner_ConcurrentCallsStayOnRotation(t *testing.T) {
	d := NewDeviceAssigner(4)
	const calls = 400

	var wg sync.WaitGroup
	seen := make([]int32, 4)
	var mu sync.Mutex

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := d.Next()
			mu.Lock()
			seen[id]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	var total int32
	for _, count := range seen {
		total += count
		assert.Equal(t, int32(calls/4), count)
	}
	assert.Equal(t, int32(calls), total)
}
