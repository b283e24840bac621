// Package config handles configuration persistence for the fastcodec service.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigListenerID is a unique identifier for a config change listener.
type ConfigListenerID string

// ResetPolicy controls when a Codec's dictionary store is cleared.
type ResetPolicy string

const (
	// ResetNever leaves dictionary reset entirely to an explicit Codec.Reset call.
	ResetNever ResetPolicy = "never"
	// ResetOnGap clears the dictionary when a transport-level sequence gap is detected.
	ResetOnGap ResetPolicy = "on_gap"
	// ResetOnReconnect clears the dictionary whenever a session reconnects.
	ResetOnReconnect ResetPolicy = "on_reconnect"
)

// Config holds the complete application configuration.
type Config struct {
	Namespace     string               `yaml:"namespace"` // Optional (empty is valid): instance namespace for topic/key isolation
	TemplateSets  []TemplateSetConfig  `yaml:"template_sets"`
	Web           WebConfig            `yaml:"web"`
	MQTT          []MQTTConfig         `yaml:"mqtt,omitempty"`
	Valkey        []ValkeyConfig       `yaml:"valkey,omitempty"`
	Kafka         []KafkaConfig        `yaml:"kafka,omitempty"`

	// Data mutex protects all config fields against concurrent access.
	// Callers that modify config should Lock(), modify, then call UnlockAndSave().
	// Save() acquires the lock internally for callers that don't hold it.
	dataMu sync.Mutex `yaml:"-"`

	changeListeners map[ConfigListenerID]func() `yaml:"-"`
	listenersMu     sync.RWMutex                `yaml:"-"`
	listenerCounter uint64                      `yaml:"-"`
}

// TemplateSetConfig names a compiled FAST template set and the dictionary
// reset policy the codec service applies to sessions decoding against it.
type TemplateSetConfig struct {
	Name        string      `yaml:"name"`
	Path        string      `yaml:"path"` // path to the templates XML document
	Enabled     bool        `yaml:"enabled"`
	ResetPolicy ResetPolicy `yaml:"reset_policy,omitempty"`
}

// GetResetPolicy returns the reset policy, defaulting to ResetOnReconnect.
func (t *TemplateSetConfig) GetResetPolicy() ResetPolicy {
	if t.ResetPolicy == "" {
		return ResetOnReconnect
	}
	return t.ResetPolicy
}

// WebConfig holds the codec service's HTTP server configuration.
type WebConfig struct {
	Enabled bool         `yaml:"enabled"`
	Host    string       `yaml:"host"`
	Port    int          `yaml:"port"`
	API     WebAPIConfig `yaml:"api"`
	UI      WebUIConfig  `yaml:"ui"`
}

// WebAPIConfig holds REST API settings.
type WebAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WebUIConfig holds browser UI / session-auth settings.
type WebUIConfig struct {
	Enabled       bool      `yaml:"enabled"`
	SessionSecret string    `yaml:"session_secret,omitempty"`
	Users         []WebUser `yaml:"users,omitempty"`
}

// WebUser represents a web interface user.
type WebUser struct {
	Username           string `yaml:"username"`
	PasswordHash       string `yaml:"password_hash"` // bcrypt
	Role               string `yaml:"role"`           // "admin" or "viewer"
	MustChangePassword bool   `yaml:"must_change_password,omitempty"`
}

// Web user roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// MQTTConfig holds MQTT publisher configuration for decoded messages.
type MQTTConfig struct {
	Name         string `yaml:"name"`
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username,omitempty"`
	Password     string `yaml:"password,omitempty"`
	ClientID     string `yaml:"client_id"`
	TopicPrefix  string `yaml:"topic_prefix,omitempty"` // decoded messages publish under {prefix}/{templateName}
	UseTLS       bool   `yaml:"use_tls,omitempty"`
}

// ValkeyConfig holds Valkey/Redis publisher configuration.
type ValkeyConfig struct {
	Name           string        `yaml:"name"`
	Enabled        bool          `yaml:"enabled"`
	Address        string        `yaml:"address"` // host:port format
	Password       string        `yaml:"password,omitempty"`
	Database       int           `yaml:"database"`
	KeyPrefix      string        `yaml:"key_prefix,omitempty"`
	UseTLS         bool          `yaml:"use_tls,omitempty"`
	KeyTTL         time.Duration `yaml:"key_ttl,omitempty"`
	PublishChanges bool          `yaml:"publish_changes,omitempty"`
}

// KafkaConfig holds Kafka cluster configuration for decoded message publishing.
type KafkaConfig struct {
	Name             string        `yaml:"name"`
	Enabled          bool          `yaml:"enabled"`
	Brokers          []string      `yaml:"brokers"`
	UseTLS           bool          `yaml:"use_tls,omitempty"`
	TLSSkipVerify    bool          `yaml:"tls_skip_verify,omitempty"`
	SASLMechanism    string        `yaml:"sasl_mechanism,omitempty"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username         string        `yaml:"username,omitempty"`
	Password         string        `yaml:"password,omitempty"`
	RequiredAcks     int           `yaml:"required_acks,omitempty"` // -1=all, 0=none, 1=leader
	MaxRetries       int           `yaml:"max_retries,omitempty"`
	RetryBackoff     time.Duration `yaml:"retry_backoff,omitempty"`
	TopicPrefix      string        `yaml:"topic_prefix,omitempty"`
	AutoCreateTopics *bool         `yaml:"auto_create_topics,omitempty"`
}

// AutoCreate reports whether Kafka topics should be auto-created, defaulting to true.
func (k *KafkaConfig) AutoCreate() bool {
	if k.AutoCreateTopics == nil {
		return true
	}
	return *k.AutoCreateTopics
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TemplateSets: []TemplateSetConfig{},
		Web: WebConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			API:     WebAPIConfig{Enabled: true},
			UI:      WebUIConfig{Enabled: true},
		},
		MQTT:   []MQTTConfig{},
		Valkey: []ValkeyConfig{},
		Kafka:  []KafkaConfig{},
	}
}

// DefaultPath returns the default configuration file path (~/.fastcodec/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".fastcodec", "config.yaml")
}

// Load reads configuration from a YAML file, creating sensible defaults
// (including a fresh session secret) the first time it is called against a
// path that doesn't exist yet.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	dirty := false

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		dirty = true
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Web.UI.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
		cfg.Web.UI.SessionSecret = base64.StdEncoding.EncodeToString(secret)
		dirty = true
	}

	if dirty {
		cfg.Save(path) // best-effort
	}

	return cfg, nil
}

// AddOnChangeListener registers a callback invoked after every successful
// Save/UnlockAndSave, the way internal/stream's publishers pick up
// broker/topic edits without a service restart.
func (c *Config) AddOnChangeListener(cb func()) ConfigListenerID {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	if c.changeListeners == nil {
		c.changeListeners = make(map[ConfigListenerID]func())
	}

	id := ConfigListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&c.listenerCounter, 1)))
	c.changeListeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (c *Config) RemoveOnChangeListener(id ConfigListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.changeListeners, id)
}

func (c *Config) notifyChangeListeners() {
	c.listenersMu.RLock()
	listeners := make([]func(), 0, len(c.changeListeners))
	for _, cb := range c.changeListeners {
		listeners = append(listeners, cb)
	}
	c.listenersMu.RUnlock()

	for _, cb := range listeners {
		go cb()
	}
}

// Lock acquires the config data mutex for exclusive access. Use before
// modifying config fields directly, then call UnlockAndSave.
func (c *Config) Lock() { c.dataMu.Lock() }

// Unlock releases the config data mutex without saving.
func (c *Config) Unlock() { c.dataMu.Unlock() }

// Save acquires the lock, marshals, writes, and notifies. Use when the
// caller does not already hold the lock.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	return c.saveLocked(path)
}

// UnlockAndSave marshals, releases the lock, writes, and notifies. The
// caller must already hold the lock via Lock().
func (c *Config) UnlockAndSave(path string) error {
	return c.saveLocked(path)
}

func (c *Config) saveLocked(path string) error {
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.notifyChangeListeners()
	return nil
}

// FindTemplateSet returns the template set config with the given name, or nil.
func (c *Config) FindTemplateSet(name string) *TemplateSetConfig {
	for i := range c.TemplateSets {
		if c.TemplateSets[i].Name == name {
			return &c.TemplateSets[i]
		}
	}
	return nil
}

// AddTemplateSet adds a new template set configuration.
func (c *Config) AddTemplateSet(ts TemplateSetConfig) {
	c.TemplateSets = append(c.TemplateSets, ts)
}

// RemoveTemplateSet removes a template set config by name.
func (c *Config) RemoveTemplateSet(name string) bool {
	for i, ts := range c.TemplateSets {
		if ts.Name == name {
			c.TemplateSets = append(c.TemplateSets[:i], c.TemplateSets[i+1:]...)
			return true
		}
	}
	return false
}

// FindMQTT returns the MQTT config with the given name, or nil if not found.
func (c *Config) FindMQTT(name string) *MQTTConfig {
	for i := range c.MQTT {
		if c.MQTT[i].Name == name {
			return &c.MQTT[i]
		}
	}
	return nil
}

// FindValkey returns the Valkey config with the given name, or nil if not found.
func (c *Config) FindValkey(name string) *ValkeyConfig {
	for i := range c.Valkey {
		if c.Valkey[i].Name == name {
			return &c.Valkey[i]
		}
	}
	return nil
}

// FindKafka returns the Kafka config with the given name, or nil if not found.
func (c *Config) FindKafka(name string) *KafkaConfig {
	for i := range c.Kafka {
		if c.Kafka[i].Name == name {
			return &c.Kafka[i]
		}
	}
	return nil
}

// FindWebUser returns the web user with the given username, or nil if not found.
func (c *Config) FindWebUser(username string) *WebUser {
	for i := range c.Web.UI.Users {
		if c.Web.UI.Users[i].Username == username {
			return &c.Web.UI.Users[i]
		}
	}
	return nil
}

// AddWebUser adds a new web user.
func (c *Config) AddWebUser(user WebUser) {
	c.Web.UI.Users = append(c.Web.UI.Users, user)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Namespace != "" && !IsValidNamespace(c.Namespace) {
		return fmt.Errorf("invalid namespace: must contain only alphanumeric characters, hyphens, underscores and dots")
	}
	return nil
}

// IsValidNamespace returns true if the namespace is valid.
func IsValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for _, r := range ns {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}
