package tui

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fast "fastcodec"
	"fastcodec/internal/config"
	"fastcodec/internal/value"
)

const testTemplates = `<templates>
	<template id="1" name="Quote">
		<string id="1" name="Symbol"/>
		<uInt32 id="2" name="Price"/>
	</template>
</templates>`

func writeTestTemplates(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.xml")
	require.NoError(t, os.WriteFile(path, []byte(testTemplates), 0644))
	return path
}

func TestNewAppLoadsEnabledTemplateSets(t *testing.T) {
	path := writeTestTemplates(t)
	cfg := config.DefaultConfig()
	cfg.AddTemplateSet(config.TemplateSetConfig{Name: "quote", Path: path, Enabled: true})
	cfg.AddTemplateSet(config.TemplateSetConfig{Name: "disabled", Path: path, Enabled: false})

	app := NewApp(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	assert.Len(t, app.codecs, 1)
	_, ok := app.codecs["quote"]
	assert.True(t, ok)
}

func TestNewAppSkipsUnreadableTemplateSet(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AddTemplateSet(config.TemplateSetConfig{Name: "missing", Path: "/nonexistent/path.xml", Enabled: true})

	app := NewApp(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	assert.Empty(t, app.codecs)
}

func TestTemplatesTabListsTemplates(t *testing.T) {
	path := writeTestTemplates(t)
	cfg := config.DefaultConfig()
	cfg.AddTemplateSet(config.TemplateSetConfig{Name: "quote", Path: path, Enabled: true})
	app := NewApp(cfg, filepath.Join(t.TempDir(), "config.yaml"))

	require.Contains(t, app.codecs, "quote")
	assert.Equal(t, 1, len(app.codecs["quote"].Templates().Order))
}

func TestDecodeTabDecodesRoundTrippedMessage(t *testing.T) {
	path := writeTestTemplates(t)
	cfg := config.DefaultConfig()
	cfg.AddTemplateSet(config.TemplateSetConfig{Name: "quote", Path: path, Enabled: true})
	app := NewApp(cfg, filepath.Join(t.TempDir(), "config.yaml"))

	encodeCodec, err := fast.NewFromXML([]byte(testTemplates))
	require.NoError(t, err)
	node := fast.NewTreeNode("Quote")
	symbol := value.NewAscii("IBM")
	price := value.NewUInt32(101)
	node.Values["Symbol"] = &symbol
	node.Values["Price"] = &price
	wire, err := encodeCodec.Encode(fast.NewTreeSource(node))
	require.NoError(t, err)

	app.decodeTab.selectedSet = "quote"
	app.decodeTab.input.SetText(hex.EncodeToString(wire), false)
	app.decodeTab.decode()

	assert.Contains(t, app.decodeTab.result.GetText(true), "Quote")
	assert.Contains(t, app.decodeTab.result.GetText(true), "IBM")
}

func TestDictionaryTabRefreshHandlesUnknownSet(t *testing.T) {
	cfg := config.DefaultConfig()
	app := NewApp(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	app.dictionaryTab.selectedSet = "nope"
	assert.NotPanics(t, func() { app.dictionaryTab.Refresh() })
}
