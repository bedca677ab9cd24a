package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/kafka"
	"github.com/rankforge/leaderboard/internal/metrics"
)

// Handler processes one decoded event body for a subject. Returning an
// error tells Worker.Run to skip CommitMessages for that message, so the
// broker redelivers it; handlers must be safe to run more than once for
// the same event.
type Handler func(ctx context.Context, body []byte) error

// Worker fetches from one Kafka topic with a pool of goroutines and
// dispatches each message to the handler registered for its subject,
// mirroring the fetch/process/commit-on-success shape used for message
// dispatch elsewhere in this codebase, minus the batched downstream write
// since each event here is handled on its own.
type Worker struct {
	Consumer  *kafka.Consumer
	Subject   string
	Handler   Handler
	Workers   int
	Log       *zap.Logger
}

func New(consumer *kafka.Consumer, subject string, handler Handler, log *zap.Logger) *Worker {
	return &Worker{
		Consumer: consumer,
		Subject:  subject,
		Handler:  handler,
		Workers:  8,
		Log:      log,
	}
}

// Run blocks until ctx is cancelled, fetching messages and fanning them
// out to Workers goroutines.
func (w *Worker) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 8
	}

	msgs := make(chan kafka.Message, w.Workers*2)

	go func() {
		defer close(msgs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[worker:%s] fetch err: %v", w.Subject, err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgs <- m
			}
		}
	}()

	done := make(chan struct{})
	for i := 0; i < w.Workers; i++ {
		go w.runOne(ctx, msgs, done)
	}

	<-ctx.Done()
	for i := 0; i < w.Workers; i++ {
		<-done
	}
	return nil
}

func (w *Worker) runOne(ctx context.Context, msgs <-chan kafka.Message, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			w.process(ctx, m)
		}
	}
}

func (w *Worker) process(ctx context.Context, m kafka.Message) {
	if err := w.Handler(ctx, m.Value); err != nil {
		w.Log.Warn("handler failed, leaving uncommitted for redelivery",
			zap.String("subject", w.Subject), zap.Error(err))
		metrics.WorkerLagSeconds.WithLabelValues(w.Subject).Observe(time.Since(m.Time).Seconds())
		return
	}
	if err := w.Consumer.Commit(ctx, m); err != nil {
		w.Log.Warn("commit failed", zap.String("subject", w.Subject), zap.Error(err))
	}
	metrics.WorkerLagSeconds.WithLabelValues(w.Subject).Observe(time.Since(m.Time).Seconds())
}

// decode is a small helper shared by the handler constructors in this
// package; kept here rather than duplicated per handler file.
func decode[T any](body []byte) (T, error) {
	var v T
	err := json.Unmarshal(body, &v)
	return v, err
}
