// Package statsink is the non-blocking telemetry sink shared by every
// client in this module; chainclient's order state transitions flow here
// as Record values. Emit
// never blocks a strand; when the internal queue is full the record is
// dropped and counted, following cuemby-warren's metrics-collector idiom
// from the retrieval pack.
package statsink

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"
)

// Record is one measurement flowing to the sink: a component name, a
// metric name, a numeric value, a set of tags, and the time it was
// recorded.
type Record struct {
	Component string
	Metric    string
	Value     float64
	Tags      map[string]string
	At        time.Time
}

var (
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_statsink_records_total",
			Help: "Total number of records accepted by the statistics sink, by component and metric",
		},
		[]string{"component", "metric"},
	)

	recordsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_statsink_records_dropped_total",
			Help: "Total number of records dropped because the sink's queue was full",
		},
		[]string{"component", "metric"},
	)

	lastValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_statsink_last_value",
			Help: "Most recently recorded value, by component and metric",
		},
		[]string{"component", "metric"},
	)

	batchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_statsink_batch_bytes_total",
			Help: "Total bytes of msgpack-encoded batches flushed by the sink",
		},
	)
)

func init() {
	prometheus.MustRegister(recordsTotal)
	prometheus.MustRegister(recordsDropped)
	prometheus.MustRegister(lastValue)
	prometheus.MustRegister(batchBytesTotal)
}

// Sink batches Records and msgpack-encodes them in groups of up to
// batchSize, flushing when a group fills and once a second otherwise,
// exposing per-metric gauges/counters for Prometheus scraping in
// between flushes.
type Sink struct {
	queue      chan Record
	batchSize  int
	onFlush    func([]byte)
	stopCh     chan struct{}
	wg         sync.WaitGroup
	dropsMu    sync.Mutex
	totalDrops uint64
}

// Option configures a Sink at construction time.
type Option func(*Sink)

// WithOnFlush registers a callback invoked with each msgpack-encoded
// batch as it is flushed. Primarily a test seam; production callers
// typically leave this nil and rely on the Prometheus gauges alone.
func WithOnFlush(fn func([]byte)) Option {
	return func(s *Sink) { s.onFlush = fn }
}

// New builds a Sink with the given queue capacity and batch size.
func New(queueSize, batchSize int, opts ...Option) *Sink {
	s := &Sink{
		queue:     make(chan Record, queueSize),
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// Emit submits a record without blocking. If the queue is full, the
// record is dropped and the drop is counted.
func (s *Sink) Emit(r Record) {
	select {
	case s.queue <- r:
	default:
		s.dropsMu.Lock()
		s.totalDrops++
		s.dropsMu.Unlock()
		recordsDropped.WithLabelValues(r.Component, r.Metric).Inc()
	}
}

// Dropped returns the total number of records dropped since New.
func (s *Sink) Dropped() uint64 {
	s.dropsMu.Lock()
	defer s.dropsMu.Unlock()
	return s.totalDrops
}

// Close stops the batching loop, flushing any partial batch first.
func (s *Sink) Close() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Sink) run() {
	defer s.wg.Done()
	batch := make([]Record, 0, s.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.flushBatch(batch)
		batch = batch[:0]
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case r := <-s.queue:
			recordsTotal.WithLabelValues(r.Component, r.Metric).Inc()
			lastValue.WithLabelValues(r.Component, r.Metric).Set(r.Value)
			batch = append(batch, r)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			s.drainAndFlush(&batch)
			flush()
			return
		}
	}
}

func (s *Sink) drainAndFlush(batch *[]Record) {
	for {
		select {
		case r := <-s.queue:
			*batch = append(*batch, r)
		default:
			return
		}
	}
}

func (s *Sink) flushBatch(batch []Record) {
	encoded, err := msgpack.Marshal(batch)
	if err != nil {
		return
	}
	batchBytesTotal.Add(float64(len(encoded)))
	if s.onFlush != nil {
		s.onFlush(encoded)
	}
}

// Handler returns the Prometheus HTTP handler for scraping this sink's
// metrics, shared process-wide since metrics are registered globally.
func Handler() http.Handler {
	return promhttp.Handler()
}
