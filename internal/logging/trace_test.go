package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTraceFiltersByComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	tr, err := NewTrace(path)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	tr.SetFilter("engine")

	tr.Log("engine", "decoded template %d", 7)
	tr.Log("stream", "published to kafka")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "decoded template 7") {
		t.Error("expected engine line to be logged")
	}
	if strings.Contains(out, "published to kafka") {
		t.Error("expected stream line to be filtered out")
	}
}

func TestTraceLogWireInHexDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	tr, err := NewTrace(path)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	tr.LogWireIn("bitio", []byte{0x01, 0x02, 0xFF})
	tr.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "01 02 FF") {
		t.Errorf("expected hex dump in trace output, got: %s", data)
	}
}

func TestGlobalTraceConvenienceFunctions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	tr, err := NewTrace(path)
	if err != nil {
		t.Fatalf("NewTrace: %v", err)
	}
	SetGlobalTrace(tr)
	defer SetGlobalTrace(nil)

	DebugLog("dict", "store reset")
	tr.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "store reset") {
		t.Error("expected global trace log to capture message")
	}
}
