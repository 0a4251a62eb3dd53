package broadcast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	messages []any
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteJSON(v any) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeConn) SetWriteDeadline(_ time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	hub.Subscribe(a)
	hub.Subscribe(b)

	hub.Publish("hello")

	assert.Equal(t, []any{"hello"}, a.messages)
	assert.Equal(t, []any{"hello"}, b.messages)
	assert.Equal(t, 2, hub.Count())
}

func TestPublishRemovesOnlyFailedSubscriber(t *testing.T) {
	hub := NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("connection reset")}
	hub.Subscribe(healthy)
	hub.Subscribe(broken)

	hub.Publish("first")
	assert.Equal(t, 1, hub.Count())
	assert.True(t, broken.closed)
	assert.Equal(t, []any{"first"}, healthy.messages)

	hub.Publish("second")
	assert.Equal(t, []any{"first", "second"}, healthy.messages)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{}
	hub.Subscribe(c)
	hub.Unsubscribe(c)

	hub.Publish("gone")

	assert.Empty(t, c.messages)
	assert.False(t, c.closed)
	assert.Equal(t, 0, hub.Count())
}
