package illumination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the MQTT light controller link
type MQTTConfig struct {
	// Broker is host:port (tcp:// is implied)
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retained bool
	Payload  PayloadFormat
	// PublishTimeout bounds each phase command (0 = 2s)
	PublishTimeout time.Duration
}

// publisher is the subset of mqtt.Client used for phase commands
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTIlluminator publishes phase commands to a light controller over MQTT
type MQTTIlluminator struct {
	cfg    MQTTConfig
	client mqtt.Client
	pub    publisher

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTIlluminator creates an illuminator; call Connect before use
func NewMQTTIlluminator(cfg MQTTConfig) *MQTTIlluminator {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &MQTTIlluminator{cfg: cfg}
}

// Connect establishes the broker connection with auto-reconnect enabled
func (m *MQTTIlluminator) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", m.cfg.Broker))
	opts.SetClientID(m.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		m.setConnected(true)
		slog.Info("illumination: mqtt connection established",
			"broker", m.cfg.Broker,
			"client_id", m.cfg.ClientID,
			"topic", m.cfg.Topic,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.setConnected(false)
		slog.Warn("illumination: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", m.cfg.Broker,
		)
	}

	client := mqtt.NewClient(opts)

	slog.Info("illumination: connecting to mqtt broker", "broker", m.cfg.Broker)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("illumination: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("illumination: mqtt connection failed: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.pub = client
	m.connected = true
	m.mu.Unlock()
	return nil
}

// SetPhase implements Illuminator.
//
// It waits for the broker acknowledgement (per QoS) up to PublishTimeout.
func (m *MQTTIlluminator) SetPhase(ctx context.Context, index int, phase bool) error {
	m.mu.RLock()
	pub, connected := m.pub, m.connected
	m.mu.RUnlock()

	if pub == nil || !connected {
		m.countError()
		return fmt.Errorf("illumination: mqtt not connected")
	}

	payload, err := Encode(NewCommand(index, phase), m.cfg.Payload)
	if err != nil {
		m.countError()
		return fmt.Errorf("illumination: failed to encode command: %w", err)
	}

	token := pub.Publish(m.cfg.Topic, m.cfg.QoS, m.cfg.Retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		m.countError()
		return ctx.Err()
	case <-time.After(m.cfg.PublishTimeout):
		m.countError()
		return fmt.Errorf("illumination: publish timeout")
	}
	if err := token.Error(); err != nil {
		m.countError()
		return fmt.Errorf("illumination: publish failed: %w", err)
	}

	m.mu.Lock()
	m.published++
	m.mu.Unlock()

	slog.Debug("illumination: phase published",
		"topic", m.cfg.Topic,
		"index", index,
		"phase", PhaseName(phase),
		"size", len(payload),
	)
	return nil
}

// Disconnect closes the MQTT connection
func (m *MQTTIlluminator) Disconnect() {
	m.mu.Lock()
	client := m.client
	m.connected = false
	m.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250) // 250ms grace period
		slog.Info("illumination: mqtt disconnected")
	}
}

// MQTTStats contains illuminator statistics
type MQTTStats struct {
	Connected bool
	Published uint64
	Errors    uint64
}

// Stats returns illuminator statistics
func (m *MQTTIlluminator) Stats() MQTTStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MQTTStats{Connected: m.connected, Published: m.published, Errors: m.errors}
}

func (m *MQTTIlluminator) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *MQTTIlluminator) countError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}
