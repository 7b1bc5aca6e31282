package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"PQAnalyzer/internal/domain/repository"
	applogger "PQAnalyzer/pkg/logger"
)

var ErrSourceClosed = errors.New("source closed")

type MQTTConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
	Buffer         int
}

// MQTT reads ADC values published by the acquisition board. Payloads are
// either a bare number or {"value": <number>}. When the reader falls behind
// the newest readings are dropped.
type MQTT struct {
	cfg     MQTTConfig
	l       *applogger.Logger
	client  mqtt.Client
	values  chan float64
	dropped atomic.Int64

	mu     sync.Mutex
	closed chan struct{}
}

func NewMQTT(cfg MQTTConfig, l *applogger.Logger) *MQTT {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &MQTT{cfg: cfg, l: l}
}

func (m *MQTT) Name() string { return "mqtt" }

// Dropped counts readings discarded because the buffer was full.
func (m *MQTT) Dropped() int64 { return m.dropped.Load() }

func (m *MQTT) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(chan float64, m.cfg.Buffer)
	m.closed = make(chan struct{})

	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(fmt.Sprintf("%s-%d", m.cfg.ClientID, time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(m.cfg.ConnectTimeout)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username).SetPassword(m.cfg.Password)
	}
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// Resubscribe after every reconnect since sessions are clean.
		tok := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.onMessage)
		if tok.WaitTimeout(m.cfg.ConnectTimeout) && tok.Error() != nil {
			m.l.Error("mqtt subscribe", applogger.String("topic", m.cfg.Topic), applogger.Error(tok.Error()))
			return
		}
		m.l.Info("mqtt subscribed", applogger.String("topic", m.cfg.Topic))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.l.Warn("mqtt connection lost", applogger.Error(err))
	})

	m.client = mqtt.NewClient(opts)
	tok := m.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.cfg.Broker, err)
	}
	return nil
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	v, err := ParsePayload(msg.Payload())
	if err != nil {
		m.l.Debug("mqtt payload skipped", applogger.String("topic", msg.Topic()), applogger.Error(err))
		return
	}
	select {
	case m.values <- v:
	default:
		m.dropped.Add(1)
	}
}

// Read blocks until a reading arrives, ctx ends, or the source is closed.
func (m *MQTT) Read(ctx context.Context) (float64, error) {
	m.mu.Lock()
	values, closed := m.values, m.closed
	m.mu.Unlock()
	if values == nil {
		return 0, ErrSourceClosed
	}

	select {
	case v := <-values:
		return v, nil
	case <-closed:
		return 0, ErrSourceClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed != nil {
		select {
		case <-m.closed:
		default:
			close(m.closed)
		}
	}
	if m.client != nil && m.client.IsConnected() {
		m.client.Unsubscribe(m.cfg.Topic).WaitTimeout(time.Second)
		m.client.Disconnect(250)
	}
	return nil
}

type valuePayload struct {
	Value *float64 `json:"value"`
}

// ParsePayload decodes one reading.
func ParsePayload(b []byte) (float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0, errors.New("empty payload")
	}

	var v float64
	if b[0] == '{' {
		var p valuePayload
		if err := json.Unmarshal(b, &p); err != nil {
			return 0, fmt.Errorf("decode payload: %w", err)
		}
		if p.Value == nil {
			return 0, errors.New("payload has no value")
		}
		v = *p.Value
	} else {
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return 0, fmt.Errorf("decode payload: %w", err)
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("payload is not finite")
	}
	return v, nil
}

var _ repository.SampleSource = (*MQTT)(nil)
