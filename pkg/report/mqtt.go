package report

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/mpapenbr/pipeflow/internal/processor"
	"github.com/mpapenbr/pipeflow/log"
)

const (
	DefaultMQTTTopic = "pipeflow/results"
	contentTypeJSON  = "application/json"
	publishTimeout   = 5 * time.Second
	// results queued for a slow broker before new ones are dropped
	mqttQueueSize = 16
)

type MQTTConfig struct {
	Broker    string // host:port
	Topic     string
	ClientID  string // generated if empty
	KeepAlive uint16 // seconds
}

// MQTTPublisher publishes each result as json. Publishing runs in its own
// goroutine so a slow broker never delays the measurement.
type MQTTPublisher struct {
	client *paho.Client
	topic  string
	bc     *Broadcaster[*processor.Result]
	done   chan struct{}
	cancel context.CancelFunc
	log    *log.Logger
}

func NewMQTTPublisher(ctx context.Context, cfg MQTTConfig, l *log.Logger) (*MQTTPublisher, error) {
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "pipeflow-" + uuid.NewString()
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 30
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, err
	}
	client := paho.NewClient(paho.ClientConfig{
		ClientID: cfg.ClientID,
		Conn:     conn,
	})
	ack, err := client.Connect(ctx, &paho.Connect{
		ClientID:   cfg.ClientID,
		KeepAlive:  cfg.KeepAlive,
		CleanStart: true,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	l.Info("Connected to MQTT broker",
		log.String("broker", cfg.Broker),
		log.String("clientId", cfg.ClientID),
		log.Int("reasonCode", int(ack.ReasonCode)))

	pubCtx, cancel := context.WithCancel(context.Background())
	ret := &MQTTPublisher{
		client: client,
		topic:  cfg.Topic,
		bc:     NewBroadcaster[*processor.Result](mqttQueueSize),
		done:   make(chan struct{}),
		cancel: cancel,
		log:    l,
	}
	go ret.run(pubCtx, ret.bc.Subscribe())
	return ret, nil
}

func (m *MQTTPublisher) Report(r *processor.Result) error {
	m.bc.Broadcast(r)
	return nil
}

func (m *MQTTPublisher) run(ctx context.Context, ch <-chan *processor.Result) {
	defer close(m.done)
	for r := range ch {
		if err := m.publish(ctx, r); err != nil {
			m.log.Warn("Could not publish result",
				log.Int("iteration", r.Iteration),
				log.ErrorField(err))
		}
	}
}

func (m *MQTTPublisher) publish(ctx context.Context, r *processor.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	format := byte(1) // utf-8
	_, err = m.client.Publish(pubCtx, &paho.Publish{
		QoS:     0,
		Topic:   m.topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType:   contentTypeJSON,
			PayloadFormat: &format,
		},
	})
	return err
}

// Close publishes the queued results and disconnects.
func (m *MQTTPublisher) Close() error {
	m.bc.Close()
	<-m.done
	m.cancel()
	if dropped := m.bc.Dropped(); dropped > 0 {
		m.log.Warn("Results not published", log.Int("dropped", dropped))
	}
	return m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
