package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"smartaudit/internal/app"
)

// ImportProcessor runs one queued reference import.
type ImportProcessor interface {
	ProcessImportJob(ctx context.Context, job app.ImportJob) (*app.ImportReport, error)
}

// ImportWorker consumes reference import jobs one at a time. Files inside a job
// are still imported in parallel by the processor.
type ImportWorker struct {
	conn      *amqp.Connection
	processor ImportProcessor
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewImportWorker(conn *amqp.Connection, processor ImportProcessor, queueName string, log *zap.Logger) *ImportWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		log:       log,
	}
}

func (w *ImportWorker) Start(ctx context.Context) error {
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

	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	// a job can hold many files; never hand this consumer a second one early
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
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

	w.log.Info("import worker started", zap.String("queue", w.queueName))
	return nil
}

// handle acks a processed job and drops one that cannot be decoded or run.
// Per-file failures are part of the report and still ack the delivery.
func (w *ImportWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job app.ImportJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.log.Error("worker decode import job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	report, err := w.processor.ProcessImportJob(ctx, job)
	if err != nil {
		w.log.Error("worker import job failed", zap.String("job", job.ID), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	w.log.Info("worker import job done",
		zap.String("job", job.ID),
		zap.Int("imported", len(report.Imported)),
		zap.Int("failed", len(report.Failed)))
	_ = d.Ack(false)
}

func (w *ImportWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
