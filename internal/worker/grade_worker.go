package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"dental-captcha/internal/app"
	"dental-captcha/internal/model"
)

// GradeApplier is satisfied by *app.AnnotationService.
type GradeApplier interface {
	ApplyGrade(ctx context.Context, result model.GradeResult) error
}

// GradeWorker consumes grading results and writes is_correct back onto the
// annotation they refer to.
type GradeWorker struct {
	conn      *amqp.Connection
	grades    GradeApplier
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGradeWorker(conn *amqp.Connection, grades GradeApplier, queueName string, logger *slog.Logger) *GradeWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradeWorker{
		conn:      conn,
		grades:    grades,
		queueName: queueName,
		logger:    logger.With("worker", "grade", "queue", queueName),
	}
}

func (w *GradeWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	w.logger.Info("grade worker started")
	return nil
}

func (w *GradeWorker) handle(ctx context.Context, d amqp.Delivery) {
	ack, retry := w.process(ctx, d.Body)
	if ack {
		_ = d.Ack(false)
		return
	}
	_ = d.Nack(false, retry && !d.Redelivered)
}

// process applies one message body. Malformed payloads and unknown
// annotations are dropped; store failures are retried once.
func (w *GradeWorker) process(ctx context.Context, body []byte) (ack bool, retry bool) {
	var result model.GradeResult
	if err := json.Unmarshal(body, &result); err != nil {
		w.logger.Warn("decode grade result failed", "error", err)
		return false, false
	}

	err := w.grades.ApplyGrade(ctx, result)
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, app.ErrAnnotationNotFound), errors.Is(err, app.ErrInvalidInput):
		w.logger.Warn("drop grade result", "annotation_id", result.AnnotationID, "error", err)
		return false, false
	default:
		w.logger.Error("apply grade result failed", "annotation_id", result.AnnotationID, "error", err)
		return false, true
	}
}

func (w *GradeWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
