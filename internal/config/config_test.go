package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsValidNamespace(t *testing.T) {
	tests := []struct {
		ns       string
		expected bool
	}{
		{"prod", true},
		{"prod-1", true},
		{"prod_1.east", true},
		{"", false},
		{"bad ns", false},
		{"bad/ns", false},
	}

	for _, tc := range tests {
		t.Run(tc.ns, func(t *testing.T) {
			if got := IsValidNamespace(tc.ns); got != tc.expected {
				t.Errorf("IsValidNamespace(%q) = %v, want %v", tc.ns, got, tc.expected)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("empty namespace should validate, got %v", err)
	}

	c.Namespace = "bad ns"
	if err := c.Validate(); err == nil {
		t.Error("expected error for invalid namespace")
	}
}

func TestLoadCreatesDefaultsAndSessionSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Web.UI.SessionSecret == "" {
		t.Error("expected a generated session secret")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config to be persisted: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Web.UI.SessionSecret != cfg.Web.UI.SessionSecret {
		t.Error("expected session secret to survive a reload")
	}
}

func TestTemplateSetLookup(t *testing.T) {
	c := DefaultConfig()
	c.AddTemplateSet(TemplateSetConfig{Name: "orders", Path: "orders.xml", Enabled: true})

	if got := c.FindTemplateSet("orders"); got == nil || got.Path != "orders.xml" {
		t.Fatalf("FindTemplateSet returned %+v", got)
	}
	if got := c.FindTemplateSet("orders").GetResetPolicy(); got != ResetOnReconnect {
		t.Errorf("default reset policy = %v, want %v", got, ResetOnReconnect)
	}
	if !c.RemoveTemplateSet("orders") {
		t.Error("expected RemoveTemplateSet to report success")
	}
	if c.FindTemplateSet("orders") != nil {
		t.Error("expected template set to be removed")
	}
}

func TestOnChangeListenerFiresOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := DefaultConfig()

	done := make(chan struct{}, 1)
	cfg.AddOnChangeListener(func() { done <- struct{}{} })

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected change listener to fire after Save")
	}
}
