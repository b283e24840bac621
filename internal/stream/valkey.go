package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fastcodec/internal/config"
	"fastcodec/internal/logging"
)

// joinKey joins key segments with colons, trimming stray colons from each
// segment so an empty namespace doesn't produce "::foo".
func joinKey(segments ...string) string {
	var parts []string
	for _, s := range segments {
		s = strings.Trim(s, ":")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}

// ValkeyPublisher mirrors decoded FAST messages and the live dictionary
// tri-state into Valkey/Redis: one string key per template for its latest
// decoded message, one hash per dictionary scope for external inspection,
// and an optional change-notification channel.
type ValkeyPublisher struct {
	cfg     *config.ValkeyConfig
	ns      string
	mu      sync.RWMutex
	running bool
	client  *redis.Client
}

// NewValkeyPublisher builds a publisher for the given server config.
func NewValkeyPublisher(cfg *config.ValkeyConfig, namespace string) *ValkeyPublisher {
	return &ValkeyPublisher{cfg: cfg, ns: namespace}
}

// Start connects to the Valkey server.
func (p *ValkeyPublisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := &redis.Options{
		Addr:         p.cfg.Address,
		Password:     p.cfg.Password,
		DB:           p.cfg.Database,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
	if p.cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connecting to valkey at %s: %w", p.cfg.Address, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		client.Close()
		return nil
	}
	p.client = client
	p.running = true
	logging.DebugLog("stream", "valkey publisher %s connected to %s", p.cfg.Name, p.cfg.Address)
	return nil
}

// Stop disconnects from the Valkey server.
func (p *ValkeyPublisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	p.running = false
	client := p.client
	p.client = nil
	if client != nil {
		return client.Close()
	}
	return nil
}

// IsRunning reports whether the publisher is connected.
func (p *ValkeyPublisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// PublishMessage stores a decoded message's JSON payload under its
// template's key, and, if PublishChanges is set, publishes it on a
// per-template and an all-messages channel.
func (p *ValkeyPublisher) PublishMessage(ctx context.Context, templateName string, payload []byte) error {
	p.mu.RLock()
	if !p.running || p.client == nil {
		p.mu.RUnlock()
		return nil
	}
	client := p.client
	p.mu.RUnlock()

	key := joinKey(p.ns, "messages", templateName, "last")
	var err error
	if p.cfg.KeyTTL > 0 {
		err = client.Set(ctx, key, payload, p.cfg.KeyTTL).Err()
	} else {
		err = client.Set(ctx, key, payload, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("setting valkey key %s: %w", key, err)
	}

	if p.cfg.PublishChanges {
		client.Publish(ctx, joinKey(p.ns, "messages", templateName), payload)
		client.Publish(ctx, joinKey(p.ns, "messages", "_all"), payload)
	}
	return nil
}

// PublishDictionary mirrors a dictionary scope's assigned entries into a
// Valkey hash, keyed "{namespace}:dict:{scope}", for external inspection
// without calling back into the owning Codec.
func (p *ValkeyPublisher) PublishDictionary(ctx context.Context, scope string, entries map[string]string) error {
	p.mu.RLock()
	if !p.running || p.client == nil {
		p.mu.RUnlock()
		return nil
	}
	client := p.client
	p.mu.RUnlock()

	if len(entries) == 0 {
		return nil
	}
	key := joinKey(p.ns, "dict", scope)
	fields := make([]interface{}, 0, len(entries)*2)
	for k, v := range entries {
		fields = append(fields, k, v)
	}
	if err := client.HSet(ctx, key, fields...).Err(); err != nil {
		return fmt.Errorf("mirroring dictionary scope %s: %w", scope, err)
	}
	return nil
}
