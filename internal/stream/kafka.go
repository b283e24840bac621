// Package stream publishes decoded FAST messages onto downstream brokers:
// Kafka, Valkey/Redis and MQTT. Each publisher wraps exactly one
// fast.Codec.Decode result per call — the streaming transport sits outside
// the core codec's single-message contract.
package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"fastcodec/internal/config"
	"fastcodec/internal/logging"
)

// ConnectionStatus mirrors a publisher's broker connection state.
type ConnectionStatus int

const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// KafkaPublisher produces decoded FAST messages onto a Kafka topic per
// template name, one writer per topic, lazily created on first publish.
type KafkaPublisher struct {
	cfg     *config.KafkaConfig
	ns      string
	mu      sync.RWMutex
	status  ConnectionStatus
	lastErr error
	writers map[string]*kafka.Writer

	sent   int64
	errors int64
}

// NewKafkaPublisher builds a publisher for the given cluster config.
// Decoded messages publish to topic "{namespace}.{templatePrefix}{templateName}".
func NewKafkaPublisher(cfg *config.KafkaConfig, namespace string) *KafkaPublisher {
	return &KafkaPublisher{cfg: cfg, ns: namespace, writers: make(map[string]*kafka.Writer)}
}

// Connect verifies reachability of the cluster's brokers.
func (p *KafkaPublisher) Connect() error {
	p.mu.Lock()
	p.status = StatusConnecting
	p.mu.Unlock()

	dialer := p.dialer()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", p.cfg.Brokers[0])
	if err != nil {
		p.mu.Lock()
		p.status = StatusError
		p.lastErr = fmt.Errorf("kafka connect: %w", err)
		p.mu.Unlock()
		logging.DebugLog("kafka", "connect %s failed: %v", p.cfg.Name, err)
		return p.lastErr
	}
	conn.Close()

	p.mu.Lock()
	p.status = StatusConnected
	p.lastErr = nil
	p.mu.Unlock()
	logging.DebugLog("kafka", "connected to cluster %s", p.cfg.Name)
	return nil
}

// Disconnect closes every topic writer opened so far.
func (p *KafkaPublisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, w := range p.writers {
		w.Close()
		delete(p.writers, topic)
	}
	p.status = StatusDisconnected
}

// Status reports the publisher's current connection state.
func (p *KafkaPublisher) Status() ConnectionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *KafkaPublisher) topicFor(templateName string) string {
	prefix := p.cfg.TopicPrefix
	if p.ns != "" {
		return fmt.Sprintf("%s.%s%s", p.ns, prefix, templateName)
	}
	return prefix + templateName
}

// Publish produces one decoded message's JSON payload to its template's topic.
func (p *KafkaPublisher) Publish(ctx context.Context, templateName string, key, payload []byte) error {
	topic := p.topicFor(templateName)
	writer, err := p.getWriter(topic)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: key, Value: payload, Time: time.Now()}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.mu.Lock()
		p.errors++
		p.lastErr = err
		p.mu.Unlock()
		return fmt.Errorf("kafka produce to %s: %w", topic, err)
	}

	p.mu.Lock()
	p.sent++
	p.lastErr = nil
	p.mu.Unlock()
	return nil
}

func (p *KafkaPublisher) getWriter(topic string) (*kafka.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusConnected {
		return nil, fmt.Errorf("kafka cluster %s not connected", p.cfg.Name)
	}
	if w, ok := p.writers[topic]; ok {
		return w, nil
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		Transport:              p.transport(),
		RequiredAcks:           kafka.RequiredAcks(p.cfg.RequiredAcks),
		Async:                  false,
		MaxAttempts:            p.cfg.MaxRetries,
		BatchSize:              100,
		BatchBytes:             1048576,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: p.cfg.AutoCreate(),
	}
	p.writers[topic] = writer
	return writer, nil
}

func (p *KafkaPublisher) dialer() *kafka.Dialer {
	d := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	if p.cfg.UseTLS {
		d.TLS = p.tlsConfig()
	}
	if m := p.saslMechanism(); m != nil {
		d.SASLMechanism = m
	}
	return d
}

func (p *KafkaPublisher) transport() *kafka.Transport {
	t := &kafka.Transport{DialTimeout: 10 * time.Second}
	if p.cfg.UseTLS {
		t.TLS = p.tlsConfig()
	}
	if m := p.saslMechanism(); m != nil {
		t.SASL = m
	}
	return t
}

func (p *KafkaPublisher) tlsConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: p.cfg.TLSSkipVerify}
}

func (p *KafkaPublisher) saslMechanism() sasl.Mechanism {
	if p.cfg.Username == "" {
		return nil
	}
	switch p.cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{Username: p.cfg.Username, Password: p.cfg.Password}
	case "SCRAM-SHA-256":
		m, _ := scram.Mechanism(scram.SHA256, p.cfg.Username, p.cfg.Password)
		return m
	case "SCRAM-SHA-512":
		m, _ := scram.Mechanism(scram.SHA512, p.cfg.Username, p.cfg.Password)
		return m
	default:
		return nil
	}
}

// Stats returns the publisher's send/error counters.
func (p *KafkaPublisher) Stats() (sent, errs int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sent, p.errors
}
