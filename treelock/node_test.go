package treelock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadersRunConcurrently(t *testing.T) {
	n := NewNode(nil, "")
	n.AcquireRead()
	n.AcquireRead()
	n.AcquireRead()
	n.mu.Lock()
	assert.Equal(t, 3, n.rRunning)
	n.mu.Unlock()
	n.ReleaseRead()
	n.ReleaseRead()
	n.ReleaseRead()
	n.mu.Lock()
	assert.Equal(t, 0, n.rRunning)
	n.mu.Unlock()
}

func TestWriterExcludesReaders(t *testing.T) {
	n := NewNode(nil, "")
	n.AcquireWrite()

	acquired := make(chan struct{})
	go func() {
		n.AcquireRead()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired lock while writer held it")
	case <-time.After(20 * time.Millisecond):
	}

	n.ReleaseWrite()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("reader never woke after writer released")
	}
	n.ReleaseRead()
}

func TestWaitingWriterBlocksNewReaders(t *testing.T) {
	n := NewNode(nil, "")
	n.AcquireRead() // first reader holds the node

	writerWaiting := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		close(writerWaiting)
		n.AcquireWrite()
		close(writerDone)
	}()
	<-writerWaiting
	time.Sleep(10 * time.Millisecond) // let the writer register as waiting

	lateReaderAcquired := make(chan struct{})
	go func() {
		n.AcquireRead()
		close(lateReaderAcquired)
	}()
	time.Sleep(10 * time.Millisecond)

	select {
	case <-lateReaderAcquired:
		t.Fatal("a late reader overtook a waiting writer")
	default:
	}

	n.ReleaseRead() // first reader leaves; writer should get in next
	<-writerDone
	n.ReleaseWrite()

	select {
	case <-lateReaderAcquired:
	case <-time.After(time.Second):
		t.Fatal("late reader never acquired after writer released")
	}
	n.ReleaseRead()
}

func TestNoDoubleWriter(t *testing.T) {
	n := NewNode(nil, "")
	var active int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	const writers = 20
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			n.AcquireWrite()
			mu.Lock()
			active++
			now := active
			mu.Unlock()
			require.Equal(t, int32(1), now)
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			n.ReleaseWrite()
		}()
	}
	wg.Wait()
}
