package report

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/pipeflow/log"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

// startBroker spins up an in-process MQTT broker.
func startBroker(t *testing.T) (*mochi.Server, string) {
	t.Helper()
	addr := freeAddr(t)
	broker := mochi.New(&mochi.Options{InlineClient: true})
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		ID:      "t1",
		Type:    "tcp",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { broker.Close() })
	return broker, addr
}

func TestMQTTPublisher(t *testing.T) {
	broker, addr := startBroker(t)

	var mu sync.Mutex
	received := make([]map[string]any, 0)
	contentTypes := make([]string, 0)
	require.NoError(t, broker.Subscribe(DefaultMQTTTopic, 1,
		func(cl *mochi.Client, sub packets.Subscription, pk packets.Packet) {
			msg := map[string]any{}
			if err := json.Unmarshal(pk.Payload, &msg); err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			received = append(received, msg)
			contentTypes = append(contentTypes, pk.Properties.ContentType)
		}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pub, err := NewMQTTPublisher(ctx, MQTTConfig{Broker: addr}, log.Default())
	require.NoError(t, err)

	r := testResult()
	require.NoError(t, pub.Report(r))
	r2 := testResult()
	r2.Iteration = 2
	require.NoError(t, pub.Report(r2))
	require.NoError(t, pub.Close())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1.0, received[0]["iteration"])
	assert.Equal(t, 2.0, received[1]["iteration"])
	assert.Equal(t, "second", received[0]["surfaceBranch"])
	assert.Nil(t, received[0]["flatnessRatio"], "indeterminate ratio is null")
	assert.NotContains(t, received[0], "Envelope")
	assert.Equal(t, contentTypeJSON, contentTypes[0])
}

func TestMQTTPublisher_NoBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewMQTTPublisher(ctx, MQTTConfig{Broker: freeAddr(t)}, log.Default())
	assert.Error(t, err)
}
