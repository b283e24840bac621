package stream

import (
	"context"
	"encoding/json"
	"sync"

	"fastcodec/internal/config"
	"fastcodec/internal/logging"
)

// Manager owns one publisher per configured, enabled broker entry and fans
// a decoded FAST message out to all of them, mirroring the teacher's
// per-cluster producer maps (kafka.Manager, mqtt.Manager, valkey.Manager)
// collapsed into a single fan-out point since each of our publishers
// already serializes its own connection.
type Manager struct {
	namespace string
	kafka     []*KafkaPublisher
	mqtt      []*MQTTPublisher
	valkey    []*ValkeyPublisher
	mu        sync.RWMutex
}

// NewManager builds a Manager that will hold publishers for namespace ns.
func NewManager(ns string) *Manager {
	return &Manager{namespace: ns}
}

// LoadConfig replaces the managed publisher set from cfg, starting every
// enabled entry and stopping whatever the manager previously held. Safe to
// call again after a config change (internal/config's on-change listener).
func (m *Manager) LoadConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	for i := range cfg.Kafka {
		kc := cfg.Kafka[i]
		if !kc.Enabled {
			continue
		}
		p := NewKafkaPublisher(&kc, m.namespace)
		if err := p.Connect(); err != nil {
			logging.DebugLog("stream", "kafka %s: %v", kc.Name, err)
		}
		m.kafka = append(m.kafka, p)
	}

	for i := range cfg.MQTT {
		mc := cfg.MQTT[i]
		if !mc.Enabled {
			continue
		}
		p := NewMQTTPublisher(&mc)
		if err := p.Start(); err != nil {
			logging.DebugLog("stream", "mqtt %s: %v", mc.Name, err)
		}
		m.mqtt = append(m.mqtt, p)
	}

	for i := range cfg.Valkey {
		vc := cfg.Valkey[i]
		if !vc.Enabled {
			continue
		}
		p := NewValkeyPublisher(&vc, m.namespace)
		if err := p.Start(); err != nil {
			logging.DebugLog("stream", "valkey %s: %v", vc.Name, err)
		}
		m.valkey = append(m.valkey, p)
	}
}

// Publish fans a decoded message out to every running publisher. Encoding
// errors or individual broker failures are logged and otherwise swallowed:
// one broken downstream must never block the codec session that produced
// the message.
func (m *Manager) Publish(ctx context.Context, templateName string, payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.DebugLog("stream", "marshal %s: %v", templateName, err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.kafka {
		if err := p.Publish(ctx, templateName, []byte(templateName), body); err != nil {
			logging.DebugLog("stream", "kafka publish %s: %v", templateName, err)
		}
	}
	for _, p := range m.mqtt {
		if err := p.Publish(templateName, body); err != nil {
			logging.DebugLog("stream", "mqtt publish %s: %v", templateName, err)
		}
	}
	for _, p := range m.valkey {
		if err := p.PublishMessage(ctx, templateName, body); err != nil {
			logging.DebugLog("stream", "valkey publish %s: %v", templateName, err)
		}
	}
}

// Stop disconnects every managed publisher.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	for _, p := range m.kafka {
		p.Disconnect()
	}
	for _, p := range m.mqtt {
		p.Stop()
	}
	for _, p := range m.valkey {
		p.Stop()
	}
	m.kafka = nil
	m.mqtt = nil
	m.valkey = nil
}
