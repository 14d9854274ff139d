package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ariselabs/arise-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 50
	flushInterval = 2 * time.Second
)

// Entry is one auditable action. Request and Response are marshaled to JSON
// at enqueue time so callers can hand over live structs.
type Entry struct {
	TraceID    string
	AccountID  *int64
	Action     string
	Request    interface{}
	Response   interface{}
	Error      string
	IP         string
	DurationMs int
}

// Service writes audit rows asynchronously. Entries are queued on a buffered
// channel and flushed in batches; a full queue drops the entry rather than
// blocking the request path.
type Service struct {
	db     *gorm.DB
	queue  chan *model.AuditLog
	done   chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewService creates and starts the audit writer.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		queue:  make(chan *model.AuditLog, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.run()
	return svc
}

// Log enqueues an entry, non-blocking.
func (svc *Service) Log(e Entry) {
	row := &model.AuditLog{
		TraceID:    e.TraceID,
		AccountID:  e.AccountID,
		Action:     e.Action,
		Error:      e.Error,
		IP:         e.IP,
		DurationMs: e.DurationMs,
	}
	if e.Request != nil {
		if b, err := json.Marshal(e.Request); err == nil {
			row.Request = b
		}
	}
	if e.Response != nil {
		if b, err := json.Marshal(e.Response); err == nil {
			row.Response = b
		}
	}
	select {
	case svc.queue <- row:
	default:
		svc.logger.Warn("audit queue full, entry dropped",
			zap.String("action", e.Action))
	}
}

func (svc *Service) run() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(batch).Error; err != nil {
			svc.logger.Error("audit flush failed",
				zap.Int("count", len(batch)),
				zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-svc.queue:
			batch = append(batch, row)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.done:
			for {
				select {
				case row := <-svc.queue:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close drains the queue and stops the writer.
func (svc *Service) Close() {
	close(svc.done)
	svc.wg.Wait()
}

// Recent returns the newest audit rows, for the admin surface.
func (svc *Service) Recent(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []model.AuditLog
	err := svc.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
