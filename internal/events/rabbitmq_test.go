package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitMQPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitMQPublisher{channel: ch, exchange: "reportify.events", logger: zap.NewNop()}

	ev := core.Event{
		Type:       core.EventIssueTransitioned,
		SubjectID:  "issue-1",
		ActorEmail: "t@x.io",
		Data:       map[string]interface{}{"from": "pending", "to": "in-progress"},
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "reportify.events", sent.exchange)
	assert.Equal(t, core.EventIssueTransitioned, sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.NotEmpty(t, sent.msg.MessageId)

	var decoded core.Event
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, "issue-1", decoded.SubjectID)
	assert.Equal(t, "in-progress", decoded.Data["to"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQPublisher_Errors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &RabbitMQPublisher{channel: ch, exchange: "x", logger: zap.NewNop()}

	err := p.Publish(context.Background(), core.Event{Type: core.EventIssueCreated})
	assert.ErrorContains(t, err, "channel closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, core.Event{Type: core.EventIssueCreated}), context.Canceled)
}
