package stream

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"fastcodec/internal/config"
	"fastcodec/internal/logging"
)

// MQTTPublisher publishes decoded FAST messages to an MQTT broker, one topic
// per template name under the configured prefix.
type MQTTPublisher struct {
	cfg     *config.MQTTConfig
	mu      sync.RWMutex
	client  pahomqtt.Client
	running bool

	sent, errors int64
}

// NewMQTTPublisher builds a publisher for the given broker config.
func NewMQTTPublisher(cfg *config.MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{cfg: cfg}
}

// Start connects to the MQTT broker.
func (p *MQTTPublisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := pahomqtt.NewClientOptions()
	if p.cfg.UseTLS {
		opts.AddBroker(fmt.Sprintf("ssl://%s:%d", p.cfg.Broker, p.cfg.Port))
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.cfg.Broker, p.cfg.Port))
	}
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connect to %s:%d timed out", p.cfg.Broker, p.cfg.Port)
	}
	if token.Error() != nil {
		return token.Error()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		client.Disconnect(100)
		return nil
	}
	p.client = client
	p.running = true
	logging.DebugLog("mqtt", "publisher %s connected to %s:%d", p.cfg.Name, p.cfg.Broker, p.cfg.Port)
	return nil
}

// Stop disconnects from the broker.
func (p *MQTTPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.client == nil {
		return
	}
	p.running = false
	p.client.Disconnect(250)
	p.client = nil
}

// IsRunning reports whether the publisher is connected.
func (p *MQTTPublisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *MQTTPublisher) topicFor(templateName string) string {
	return fmt.Sprintf("%s/%s", p.cfg.TopicPrefix, templateName)
}

// Publish sends a decoded message's JSON payload to its template's topic
// at QoS 1, retaining the last message for late subscribers.
func (p *MQTTPublisher) Publish(templateName string, payload []byte) error {
	p.mu.RLock()
	client := p.client
	running := p.running
	p.mu.RUnlock()

	if !running || client == nil {
		return fmt.Errorf("mqtt publisher %s not running", p.cfg.Name)
	}

	topic := p.topicFor(templateName)
	token := client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(2 * time.Second) {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		p.mu.Lock()
		p.errors++
		p.mu.Unlock()
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()
	return nil
}

// Stats returns the publisher's send/error counters.
func (p *MQTTPublisher) Stats() (sent, errs int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sent, p.errors
}
