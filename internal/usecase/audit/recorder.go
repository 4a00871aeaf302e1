// Package audit records who changed what. Recording is fire-and-forget: a
// failed or dropped record never fails the mutation that produced it.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

// Actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// Entry is one audit record
type Entry struct {
	UserID     uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]interface{}
}

// Sink accepts audit entries
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Nop discards every entry
type Nop struct{}

// Record implements Sink
func (Nop) Record(context.Context, Entry) {}

// Recorder writes entries from a buffered queue on a background worker
type Recorder struct {
	repo    repositories.AuditLogRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

// NewRecorder starts a recorder with a queue of bufferSize entries
func NewRecorder(repo repositories.AuditLogRepository, logger *zap.Logger, m *metrics.Metrics, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		metrics: m,
		timeout: 5 * time.Second,
		queue:   make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues an entry without blocking. A full queue drops the entry.
func (r *Recorder) Record(_ context.Context, entry Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.metrics.RecordAuditDropped()
		return
	}
	select {
	case r.queue <- entry:
	default:
		r.metrics.RecordAuditDropped()
		if r.logger != nil {
			r.logger.Warn("audit queue full, dropping entry",
				zap.String("action", entry.Action),
				zap.String("resource", entry.Resource),
				zap.String("resource_id", entry.ResourceID))
		}
	}
}

// Close drains the queue and stops the worker
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	log := &entities.AuditLog{
		UserID:     entry.UserID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Details:    datatypes.JSONMap(entry.Details),
	}
	if err := r.repo.Create(ctx, log); err != nil {
		r.metrics.RecordAuditFailure()
		if r.logger != nil {
			r.logger.Error("failed to write audit log",
				zap.String("action", entry.Action),
				zap.String("resource", entry.Resource),
				zap.String("resource_id", entry.ResourceID),
				zap.Error(err))
		}
	}
}
