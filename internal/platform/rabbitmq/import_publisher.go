package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"smartaudit/internal/app"
)

// ImportPublisher queues reference import jobs as persistent JSON messages.
type ImportPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewImportPublisher(conn *amqp.Connection, queueName string) *ImportPublisher {
	return &ImportPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ImportPublisher) PublishImport(ctx context.Context, job app.ImportJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal import job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    job.ID,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish import job failed: %w", err)
	}
	return nil
}
