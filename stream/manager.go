package stream

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sentinel errors for stream operations.
var (
	// ErrStreamNotFound indicates the stream id is not registered.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrNoSender indicates the manager has no underlying byte sender
	// to flush to.
	ErrNoSender = errors.New("no sender configured")
)

// Sender is the byte-oriented transport surface the multiplexer drains
// into. Implemented by whatever carries media between the peers.
type Sender interface {
	SendBytes(ctx context.Context, data []byte) error
}

// Stream is one registered media or data stream with its QoS.
type Stream struct {
	ID   uint64
	Type Type
	QoS  QoS
}

// item is one queued payload awaiting transmission.
type item struct {
	streamPriority uint8
	seq            uint64 // FIFO tiebreak within a priority class
	data           []byte
}

// sendQueue orders queued payloads by (stream priority, arrival).
type sendQueue []*item

func (q sendQueue) Len() int { return len(q) }

func (q sendQueue) Less(i, j int) bool {
	if q[i].streamPriority != q[j].streamPriority {
		return q[i].streamPriority < q[j].streamPriority
	}
	return q[i].seq < q[j].seq
}

func (q sendQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *sendQueue) Push(x any) { *q = append(*q, x.(*item)) }

func (q *sendQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// Manager owns the registry of active streams and multiplexes their
// traffic onto a shared sender in strict priority order: audio drains
// before video, video before screen share, screen share before data,
// FIFO within one class.
type Manager struct {
	mu       sync.Mutex
	streams  map[uint64]*Stream
	nextID   uint64
	queue    sendQueue
	nextSeq  uint64
	sender   Sender
	received map[uint64][][]byte
}

// NewManager creates a stream manager draining into the given sender.
// The sender may be nil if the manager is used for classification only;
// Flush then fails with ErrNoSender.
func NewManager(sender Sender) *Manager {
	return &Manager{
		streams:  make(map[uint64]*Stream),
		sender:   sender,
		received: make(map[uint64][][]byte),
	}
}

// CreateStream registers a stream of the given type with its preset
// QoS (see QoSFor for the data-stream caveat).
func (m *Manager) CreateStream(t Type) uint64 {
	return m.CreateStreamWithQoS(t, QoSFor(t))
}

// CreateStreamWithQoS registers a stream with explicit QoS.
func (m *Manager) CreateStreamWithQoS(t Type, qos QoS) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.streams[id] = &Stream{ID: id, Type: t, QoS: qos}

	logrus.WithFields(logrus.Fields{
		"function":    "Manager.CreateStreamWithQoS",
		"stream_id":   id,
		"stream_type": t.String(),
		"priority":    qos.Priority,
		"latency_ms":  qos.TargetLatencyMs,
	}).Debug("Stream registered")

	return id
}

// Stream returns the registered stream, if any.
func (m *Manager) Stream(id uint64) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	return s, ok
}

// ActiveStreams returns all registered streams.
func (m *Manager) ActiveStreams() []*Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s)
	}
	return out
}

// CloseStream unregisters a stream. Queued but unflushed payloads for
// the stream are dropped with it.
func (m *Manager) CloseStream(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[id]; !ok {
		return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	delete(m.streams, id)
	delete(m.received, id)
	return nil
}

// Send queues a payload on the stream. Payloads are not transmitted
// until Flush drains the queue, which is where prioritization happens.
func (m *Manager) Send(id uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	heap.Push(&m.queue, &item{
		streamPriority: s.Type.Priority(),
		seq:            m.nextSeq,
		data:           buf,
	})
	m.nextSeq++
	return nil
}

// Flush drains the queue to the sender in priority order. It stops on
// the first send failure, leaving the remaining payloads queued.
func (m *Manager) Flush(ctx context.Context) error {
	for {
		m.mu.Lock()
		if m.sender == nil {
			m.mu.Unlock()
			return ErrNoSender
		}
		if m.queue.Len() == 0 {
			m.mu.Unlock()
			return nil
		}
		it := heap.Pop(&m.queue).(*item)
		sender := m.sender
		m.mu.Unlock()

		// Sender I/O happens outside the lock so a slow link does not
		// block classification.
		if err := sender.SendBytes(ctx, it.data); err != nil {
			m.mu.Lock()
			heap.Push(&m.queue, it)
			m.mu.Unlock()
			return fmt.Errorf("flush failed: %w", err)
		}
	}
}

// PendingCount returns how many payloads await flushing.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Deliver hands an inbound payload to a stream's receive buffer.
func (m *Manager) Deliver(id uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[id]; !ok {
		return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.received[id] = append(m.received[id], buf)
	return nil
}

// Receive pops the oldest delivered payload for the stream, if any.
func (m *Manager) Receive(id uint64) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[id]; !ok {
		return nil, false, fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	queue := m.received[id]
	if len(queue) == 0 {
		return nil, false, nil
	}
	data := queue[0]
	m.received[id] = queue[1:]
	return data, true, nil
}
