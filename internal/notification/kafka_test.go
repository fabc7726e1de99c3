package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnireg/internal/notification"
	"alumnireg/internal/platform/kafka"
)

type fakePublisher struct {
	key     string
	value   []byte
	headers map[string]string
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, key string, value []byte, headers map[string]string) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

func TestKafkaPortRoundTrip(t *testing.T) {
	pub := &fakePublisher{}
	port := notification.NewKafkaPort(pub, nil)
	intent := codeIntent()

	require.NoError(t, port.Enqueue(context.Background(), intent))
	assert.Equal(t, "a@x.com", pub.key)
	assert.Equal(t, "verification_code", pub.headers["notification-kind"])

	c := newCollector()
	handle := notification.KafkaHandler(c)
	require.NoError(t, handle(context.Background(), kafka.Message{Value: pub.value}))
	require.Equal(t, 1, c.len())
	assert.Equal(t, intent.ID, c.intents[0].ID)
	assert.Equal(t, intent.Data, c.intents[0].Data)
}

func TestKafkaPortPublishFailure(t *testing.T) {
	port := notification.NewKafkaPort(&fakePublisher{err: errors.New("no brokers")}, nil)
	assert.ErrorContains(t, port.Enqueue(context.Background(), codeIntent()), "no brokers")
}

func TestKafkaHandlerRejectsGarbage(t *testing.T) {
	handle := notification.KafkaHandler(newCollector())
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, handle(context.Background(), kafka.Message{Value: []byte("{")}), &syntaxErr)
}
