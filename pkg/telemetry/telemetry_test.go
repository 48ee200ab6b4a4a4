package telemetry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type publishedMessage struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeClient records publishes; the rest of the client surface is inert.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	published []publishedMessage
}

func (c *fakeClient) IsConnected() bool      { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case string:
		body = []byte(p)
	}
	c.published = append(c.published, publishedMessage{topic, retained, body})
	return &fakeToken{}
}

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token { return &fakeToken{} }

func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

func (c *fakeClient) messages(topic string) []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []publishedMessage
	for _, m := range c.published {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type fakeSource struct {
	mu       sync.Mutex
	internal float64
	external float64
	err      error
}

func (s *fakeSource) Temperatures() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.internal, s.external, s.err
}

func newTestPublisher(t *testing.T, source *fakeSource, interval time.Duration) (*Publisher, *fakeClient) {
	t.Helper()
	p := NewPublisher(Config{
		Broker:   "tcp://127.0.0.1:1883",
		Interval: interval,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, source)
	client := &fakeClient{}
	p.client = client
	require.NoError(t, p.Start())
	t.Cleanup(p.Stop)
	return p, client
}

func TestPublishButton(t *testing.T) {
	p, client := newTestPublisher(t, &fakeSource{}, time.Hour)

	p.PublishButton(2, false)
	p.PublishButton(6, true)

	msgs := client.messages("rpiui/event/button")
	require.Len(t, msgs, 2)

	var msg buttonMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &msg))
	assert.Equal(t, uint8(2), msg.Button)
	assert.Equal(t, "local", msg.Source)

	require.NoError(t, json.Unmarshal(msgs[1].payload, &msg))
	assert.Equal(t, uint8(6), msg.Button)
	assert.Equal(t, "remote", msg.Source)
}

func TestTemperatureLoopPublishes(t *testing.T) {
	source := &fakeSource{internal: 21.5, external: 4.0}
	_, client := newTestPublisher(t, source, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(client.messages("rpiui/temperature")) > 0
	}, 5*time.Second, 5*time.Millisecond)

	msgs := client.messages("rpiui/temperature")
	var msg temperatureMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &msg))
	assert.InDelta(t, 21.5, msg.Internal, 0.001)
	assert.InDelta(t, 4.0, msg.External, 0.001)
	assert.True(t, msgs[0].retained)
}

func TestTemperatureLoopSkipsFailedSamples(t *testing.T) {
	source := &fakeSource{err: errors.New("controller is UNINITIALIZED")}
	_, client := newTestPublisher(t, source, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, client.messages("rpiui/temperature"))
}

func TestStopPublishesOffline(t *testing.T) {
	p, client := newTestPublisher(t, &fakeSource{}, time.Hour)

	p.Stop()

	msgs := client.messages("rpiui/status")
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "offline", string(last.payload))
	assert.True(t, last.retained)
	assert.False(t, client.IsConnected())
}
