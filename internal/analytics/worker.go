package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

const defaultPrefetch = 10

// ErrUnknownMessage — тип сообщения не поддерживается worker.
var ErrUnknownMessage = errors.New("unknown message type")

// FlowTally — счётчики одного flow, накопленные worker с момента старта.
type FlowTally struct {
	LatestVersion int       `json:"latest_version"`
	Responses     int       `json:"responses"`
	Completed     int       `json:"completed"`
	LastEventAt   time.Time `json:"last_event_at"`
}

// Worker — потребитель событий аналитики.
//
// Слушает analytics.flows и analytics.responses. Worker stateless
// относительно БД: ответы только проверяются на существование,
// счётчики живут в памяти и в метриках.
type Worker struct {
	conn      *mq.Connection
	responses repo.ResponseStore
	prefetch  int
	logger    *slog.Logger

	mu      sync.RWMutex
	tallies map[uuid.UUID]*FlowTally

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WorkerConfig — конфигурация Worker.
type WorkerConfig struct {
	Conn *mq.Connection

	// Responses — опционально; если задан, события о несуществующих
	// ответах пропускаются.
	Responses repo.ResponseStore

	Prefetch int
	Logger   *slog.Logger
}

// NewWorker создаёт Worker.
func NewWorker(cfg WorkerConfig) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		conn:      cfg.Conn,
		responses: cfg.Responses,
		prefetch:  prefetch,
		logger:    logger.With("component", "analytics"),
		tallies:   make(map[uuid.UUID]*FlowTally),
	}
}

// Start запускает consumers обеих очередей.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return fmt.Errorf("analytics worker: no mq connection")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for _, queue := range []mq.Queue{mq.QueueAnalyticsFlows, mq.QueueAnalyticsResponses} {
		consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    queue,
			Handler:  w.Handle,
			Prefetch: w.prefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer stopped", "queue", queue, "error", err)
			}
		}()
	}

	w.logger.Info("analytics worker started", "prefetch", w.prefetch)
	return nil
}

// Stop останавливает consumers и ждёт их завершения.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("analytics worker stopped")
}

// Handle обрабатывает одно событие.
func (w *Worker) Handle(ctx context.Context, msg *mq.Message) error {
	var err error
	switch msg.Type {
	case mq.MessageTypeFlowPublished:
		err = w.handleFlowPublished(msg)
	case mq.MessageTypeResponseSubmitted:
		err = w.handleResponseSubmitted(ctx, msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		return err
	}

	telemetry.EventsConsumed.WithLabelValues(string(msg.Type)).Inc()
	return nil
}

func (w *Worker) handleFlowPublished(msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.FlowPublishedPayload](msg)
	if err != nil {
		return err
	}

	w.update(payload.FlowID, msg.Timestamp, func(t *FlowTally) {
		t.LatestVersion = max(t.LatestVersion, payload.Version)
	})

	w.logger.Info("flow published",
		"flow_id", payload.FlowID,
		"tenant_id", payload.TenantID,
		"version", payload.Version,
		"steps", payload.Steps,
	)
	return nil
}

func (w *Worker) handleResponseSubmitted(ctx context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.ResponseSubmittedPayload](msg)
	if err != nil {
		return err
	}

	logger := telemetry.WithResponseID(
		telemetry.WithFlowID(w.logger, payload.FlowID.String()),
		payload.ResponseID.String(),
	)

	if w.responses != nil {
		if _, err := w.responses.GetByID(ctx, payload.ResponseID); err != nil {
			// Ответ удалён вместе с flow — подтверждаем без учёта.
			if errors.Is(err, repo.ErrNotFound) {
				logger.Debug("response not found, skipping")
				return nil
			}
			return fmt.Errorf("get response: %w", err)
		}
	}

	w.update(payload.FlowID, msg.Timestamp, func(t *FlowTally) {
		t.Responses++
		if payload.Completed {
			t.Completed++
		}
		t.LatestVersion = max(t.LatestVersion, payload.Version)
	})
	telemetry.ResponsesSubmitted.WithLabelValues(payload.FlowID.String()).Inc()

	logger.Info("response counted",
		"version", payload.Version,
		"completed", payload.Completed,
		"answered", payload.Answered,
	)
	return nil
}

func (w *Worker) update(flowID uuid.UUID, at time.Time, fn func(*FlowTally)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.tallies[flowID]
	if !ok {
		t = &FlowTally{}
		w.tallies[flowID] = t
	}
	fn(t)
	if at.After(t.LastEventAt) {
		t.LastEventAt = at
	}
}

// Tally возвращает копию счётчиков flow.
func (w *Worker) Tally(flowID uuid.UUID) (FlowTally, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, ok := w.tallies[flowID]
	if !ok {
		return FlowTally{}, false
	}
	return *t, true
}

// Snapshot возвращает копию всех счётчиков.
func (w *Worker) Snapshot() map[uuid.UUID]FlowTally {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[uuid.UUID]FlowTally, len(w.tallies))
	for id, t := range w.tallies {
		out[id] = *t
	}
	return out
}
