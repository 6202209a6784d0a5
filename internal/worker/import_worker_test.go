package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartaudit/internal/app"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error {
	return nil
}

type stubProcessor struct {
	jobs []app.ImportJob
	err  error
}

func (p *stubProcessor) ProcessImportJob(_ context.Context, job app.ImportJob) (*app.ImportReport, error) {
	p.jobs = append(p.jobs, job)
	if p.err != nil {
		return nil, p.err
	}
	return &app.ImportReport{Failed: []app.ImportFailure{{File: "bad.exe", Error: "unsupported"}}}, nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, body interface{}) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: raw}
}

func TestHandleAcksJobWithFileFailures(t *testing.T) {
	proc := &stubProcessor{}
	w := NewImportWorker(nil, proc, "reference.import", nil)
	ack := &ackRecorder{}

	job := app.ImportJob{ID: "job-1", Provider: "DeepSeek", Language: "en",
		Files: []app.UploadedFile{{Name: "bad.exe", Data: []byte("MZ")}}}
	w.handle(context.Background(), delivery(t, ack, job))

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)
	require.Len(t, proc.jobs, 1)
	assert.Equal(t, job, proc.jobs[0])
}

func TestHandleDropsUndecodableJob(t *testing.T) {
	proc := &stubProcessor{}
	w := NewImportWorker(nil, proc, "reference.import", nil)
	ack := &ackRecorder{}

	w.handle(context.Background(), delivery(t, ack, []byte("{not json")))

	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Empty(t, proc.jobs)
}

func TestHandleDropsFailedJob(t *testing.T) {
	proc := &stubProcessor{err: errors.New("invalid input")}
	w := NewImportWorker(nil, proc, "reference.import", nil)
	ack := &ackRecorder{}

	w.handle(context.Background(), delivery(t, ack, app.ImportJob{ID: "job-2", Provider: "bogus"}))

	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.nacked)
}
