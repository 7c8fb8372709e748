package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/botbridge/gateway/internal/gateway/domain"
	"github.com/botbridge/gateway/internal/platform/messagebroker"
)

// fakeJobMsg is a hand-rolled jetstream.Msg capturing the ack decision the
// consumer takes for one delivery.
type fakeJobMsg struct {
	data         []byte
	subject      string
	numDelivered uint64

	acked    bool
	nakDelay time.Duration
	naked    bool
	termed   bool
}

func (m *fakeJobMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: m.numDelivered}, nil
}
func (m *fakeJobMsg) Data() []byte                        { return m.data }
func (m *fakeJobMsg) Headers() nats.Header                { return nil }
func (m *fakeJobMsg) Subject() string                     { return m.subject }
func (m *fakeJobMsg) Reply() string                       { return "" }
func (m *fakeJobMsg) Ack() error                          { m.acked = true; return nil }
func (m *fakeJobMsg) DoubleAck(ctx context.Context) error { m.acked = true; return nil }
func (m *fakeJobMsg) Nak() error                          { m.naked = true; return nil }
func (m *fakeJobMsg) NakWithDelay(d time.Duration) error {
	m.naked = true
	m.nakDelay = d
	return nil
}
func (m *fakeJobMsg) InProgress() error                  { return nil }
func (m *fakeJobMsg) Term() error                        { m.termed = true; return nil }
func (m *fakeJobMsg) TermWithReason(reason string) error { m.termed = true; return nil }

type fakeHandler struct {
	err  error
	jobs []domain.Job
}

func (h *fakeHandler) Process(_ context.Context, job domain.Job) error {
	h.jobs = append(h.jobs, job)
	return h.err
}

func jobMsg(t *testing.T, numDelivered uint64) (*fakeJobMsg, domain.Job) {
	t.Helper()
	job := domain.Job{
		IntegrationID: testIntegration(t, domain.PlatformTelegram).ID,
		Platform:      domain.PlatformTelegram,
		RawPayload:    json.RawMessage(`{"update_id":1}`),
	}
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return &fakeJobMsg{data: data, subject: "jobs.inbound.telegram", numDelivered: numDelivered}, job
}

func TestJobConsumer_Handle_AcksOnSuccess(t *testing.T) {
	handler := &fakeHandler{}
	dead := new(MockPublisher)
	c := NewJobConsumer(nil, dead, handler, 1, 3, discardLogger())

	msg, job := jobMsg(t, 1)
	c.handle(context.Background(), msg, discardLogger())

	assert.True(t, msg.acked)
	assert.False(t, msg.naked)
	require.Len(t, handler.jobs, 1)
	assert.Equal(t, job.IntegrationID, handler.jobs[0].IntegrationID)
	dead.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobConsumer_Handle_NaksWithBackoffOnFailure(t *testing.T) {
	handler := &fakeHandler{err: errors.New("store down")}
	dead := new(MockPublisher)
	c := NewJobConsumer(nil, dead, handler, 1, 3, discardLogger())

	msg, _ := jobMsg(t, 1)
	c.handle(context.Background(), msg, discardLogger())

	assert.False(t, msg.acked)
	assert.True(t, msg.naked)
	assert.Equal(t, 2*time.Second, msg.nakDelay)
	dead.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobConsumer_Handle_SecondFailureBacksOffLonger(t *testing.T) {
	handler := &fakeHandler{err: errors.New("store down")}
	c := NewJobConsumer(nil, new(MockPublisher), handler, 1, 3, discardLogger())

	msg, _ := jobMsg(t, 2)
	c.handle(context.Background(), msg, discardLogger())

	assert.True(t, msg.naked)
	assert.Equal(t, 15*time.Second, msg.nakDelay)
}

func TestJobConsumer_Handle_DeadLettersOnExhaustion(t *testing.T) {
	handler := &fakeHandler{err: errors.New("store down")}
	dead := new(MockPublisher)
	c := NewJobConsumer(nil, dead, handler, 1, 3, discardLogger())

	msg, _ := jobMsg(t, 3)
	dead.On("Publish", mock.Anything, messagebroker.DeadLetterSubject, msg.data).Return(nil).Once()

	c.handle(context.Background(), msg, discardLogger())

	assert.True(t, msg.acked, "exhausted jobs ack after the payload is retained")
	assert.False(t, msg.naked)
	dead.AssertExpectations(t)
}

func TestJobConsumer_Handle_DeadLetterPublishFailureLeavesMsgUnacked(t *testing.T) {
	handler := &fakeHandler{err: errors.New("store down")}
	dead := new(MockPublisher)
	c := NewJobConsumer(nil, dead, handler, 1, 3, discardLogger())

	msg, _ := jobMsg(t, 3)
	dead.On("Publish", mock.Anything, messagebroker.DeadLetterSubject, msg.data).
		Return(errors.New("stream offline")).Once()

	c.handle(context.Background(), msg, discardLogger())

	assert.False(t, msg.acked, "the payload must not be lost; redelivery retries the dead-letter write")
}

func TestJobConsumer_Handle_MalformedEnvelopeDeadLetters(t *testing.T) {
	handler := &fakeHandler{}
	dead := new(MockPublisher)
	c := NewJobConsumer(nil, dead, handler, 1, 3, discardLogger())

	msg := &fakeJobMsg{data: []byte("not json"), subject: "jobs.inbound.telegram", numDelivered: 1}
	dead.On("Publish", mock.Anything, messagebroker.DeadLetterSubject, msg.data).Return(nil).Once()

	c.handle(context.Background(), msg, discardLogger())

	assert.True(t, msg.acked)
	assert.Empty(t, handler.jobs, "an undecodable envelope never reaches the processor")
	dead.AssertExpectations(t)
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffFor(0))
	assert.Equal(t, 2*time.Second, backoffFor(1))
	assert.Equal(t, 15*time.Second, backoffFor(2))
	assert.Equal(t, time.Minute, backoffFor(3))
	assert.Equal(t, time.Minute, backoffFor(10))
}
