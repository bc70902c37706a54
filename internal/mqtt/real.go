package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/panel-link/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// BacklogSize is how many messages are held while the broker is away.
	BacklogSize = 256
)

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down, messages are queued and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	topics Topics
	log    zerolog.Logger

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher for the given broker. An unreachable
// broker is not an error: the client keeps retrying and messages are queued.
func NewRealPublisher(broker, clientID string, topics Topics) (*RealPublisher, error) {
	p := &RealPublisher{
		topics:  topics,
		log:     log.With().Str("component", "mqtt").Logger(),
		backlog: newBacklog(BacklogSize),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(topics.System, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn().Err(err).Msg("broker connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warn().Str("broker", broker).Msg("broker not reachable yet, queueing messages")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a control event. QoS 0, not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(pending{topic: p.topics.Control, payload: payload})
}

// PublishSystem sends a system lifecycle event. QoS 1 so lifecycle events
// survive a flaky link.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(pending{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// Close disconnects from the broker. Queued messages are discarded.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if n := p.backlog.len(); n > 0 {
		p.log.Warn().Int("count", n).Msg("discarding queued messages on close")
	}
	p.mu.Unlock()
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(m pending) error {
	if !p.client.IsConnectionOpen() {
		p.queue(m)
		return nil
	}
	if err := p.publish(m); err != nil {
		p.queue(m)
		return err
	}
	return nil
}

func (p *RealPublisher) publish(m pending) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) queue(m pending) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backlog.add(m) {
		p.log.Debug().Str("topic", m.topic).Msg("backlog full, dropped oldest message")
	}
}

// onConnect replays the backlog. Runs on the paho client goroutine.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.backlog.take()
	p.mu.Unlock()

	p.log.Info().Int("queued", len(msgs)).Int("dropped", dropped).Msg("connected to broker")
	for i, m := range msgs {
		if err := p.publish(m); err != nil {
			p.log.Warn().Err(err).Msg("replay failed, requeueing remainder")
			p.mu.Lock()
			for _, rest := range msgs[i:] {
				p.backlog.add(rest)
			}
			p.mu.Unlock()
			return
		}
	}
}
