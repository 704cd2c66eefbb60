package statsink

import (
	"sync"
	"testing"
	"time"

	"github.com/maxatome/go-testdeep/td"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEmitFlushesBatchOnSizeThreshold(t *testing.T) {
	var mu sync.Mutex
	var flushed [][]byte
	s := New(16, 2, WithOnFlush(func(b []byte) {
		mu.Lock()
		flushed = append(flushed, b)
		mu.Unlock()
	}))
	defer s.Close()

	s.Emit(Record{Component: "order", Metric: "state", Value: 1, At: time.Now()})
	s.Emit(Record{Component: "order", Metric: "state", Value: 2, At: time.Now()})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(flushed)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	td.Cmp(t, len(flushed) > 0, true)

	var batch []Record
	td.CmpNoError(t, msgpack.Unmarshal(flushed[0], &batch))
	td.Cmp(t, len(batch), 2)
}

func TestEmitDropsWhenQueueFull(t *testing.T) {
	blocked := make(chan struct{})
	s := New(1, 1, WithOnFlush(func(b []byte) { <-blocked }))
	defer func() {
		close(blocked)
		s.Close()
	}()

	// the first record is picked up and immediately flushes (batchSize 1),
	// wedging the sink's sole consumer goroutine inside onFlush; every
	// Emit after that either fills the size-1 queue or is dropped.
	s.Emit(Record{Component: "order", Metric: "state", Value: 0})
	time.Sleep(50 * time.Millisecond)

	for i := 1; i < 10; i++ {
		s.Emit(Record{Component: "order", Metric: "state", Value: float64(i)})
	}

	td.Cmp(t, s.Dropped() > 0, true)
}
