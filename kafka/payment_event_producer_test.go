package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublish_KeysBySession(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, zap.NewNop())

	err := p.Publish(context.Background(), "payment-events", []byte(`{"type":"payment_succeeded","session_id":"table-7"}`))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "payment-events", w.msgs[0].Topic)
	assert.Equal(t, "table-7", string(w.msgs[0].Key))
}

func TestPublish_UnkeyedPayload(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), "payment-events", []byte(`not json`)))
	assert.Nil(t, w.msgs[0].Key)
}

func TestPublish_Errors(t *testing.T) {
	p := newProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, zap.NewNop())

	assert.Error(t, p.Publish(context.Background(), "", []byte(`{}`)))
	err := p.Publish(context.Background(), "payment-events", []byte(`{}`))
	assert.ErrorContains(t, err, "broker down")
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, zap.NewNop())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
