// Package logging provides the fastcodec service's two logging tiers: a
// component-filtered wire trace for protocol-level troubleshooting, and
// leveled structured application logging.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Trace writes verbose, component-filtered protocol trace lines with hex
// dump capability. It is intended for troubleshooting wire-level issues:
// malformed template compiles, decode/encode mismatches, stream publish
// failures.
type Trace struct {
	file    *os.File
	mu      sync.Mutex
	closed  bool
	filters map[string]bool // component filters (empty = log all)
}

var globalTrace *Trace
var globalTraceMu sync.RWMutex

// Known component names for filtering.
var knownComponents = []string{
	"bitio", "tmpl", "engine", "dict", "stream", "mqtt", "kafka", "valkey", "api", "web", "tui",
}

// NewTrace creates a new trace logger writing to path, truncated fresh for
// each session.
func NewTrace(path string) (*Trace, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace log file: %w", err)
	}

	t := &Trace{
		file:    file,
		filters: make(map[string]bool),
	}
	t.Log("trace", "trace logging started - %s", time.Now().Format(time.RFC3339))
	t.Log("trace", "========================================")
	return t, nil
}

// SetFilter sets the component filter for logging: a single component or a
// comma-separated list, case-insensitive. Empty means log everything.
func (t *Trace) SetFilter(filter string) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.filters = make(map[string]bool)
	if filter == "" {
		return
	}

	for _, c := range strings.Split(filter, ",") {
		c = strings.TrimSpace(strings.ToLower(c))
		if c != "" {
			t.filters[c] = true
		}
	}

	if len(t.filters) > 0 {
		names := make([]string, 0, len(t.filters))
		for c := range t.filters {
			names = append(names, c)
		}
		timestamp := time.Now().Format("2006-01-02 15:04:05.000")
		fmt.Fprintf(t.file, "%s [trace] filtering enabled for components: %s\n",
			timestamp, strings.Join(names, ", "))
	}
}

func (t *Trace) shouldLog(component string) bool {
	if len(t.filters) == 0 {
		return true
	}
	if t.filters[strings.ToLower(component)] {
		return true
	}
	return strings.ToLower(component) == "trace"
}

// SetGlobalTrace sets the package-level trace logger used by the Debug*
// convenience functions.
func SetGlobalTrace(t *Trace) {
	globalTraceMu.Lock()
	defer globalTraceMu.Unlock()
	globalTrace = t
}

// GlobalTrace returns the package-level trace logger, or nil if unset.
func GlobalTrace() *Trace {
	globalTraceMu.RLock()
	defer globalTraceMu.RUnlock()
	return globalTrace
}

// Log writes a formatted, component-tagged, timestamped line.
func (t *Trace) Log(component, format string, args ...interface{}) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || !t.shouldLog(component) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(t.file, "%s [%s] %s\n", timestamp, component, msg)
}

// LogWireIn logs a decoded wire buffer with hex dump.
func (t *Trace) LogWireIn(component string, data []byte) { t.logPacket(component, "IN", data) }

// LogWireOut logs an encoded wire buffer with hex dump.
func (t *Trace) LogWireOut(component string, data []byte) { t.logPacket(component, "OUT", data) }

func (t *Trace) logPacket(component, direction string, data []byte) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || !t.shouldLog(component) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(t.file, "%s [%s] %s (%d bytes):\n", timestamp, component, direction, len(data))
	fmt.Fprintf(t.file, "%s\n", hexDump(data))
}

// LogDecodeError logs a decode-time error with its template context.
func (t *Trace) LogDecodeError(templateName string, err error) {
	t.Log("engine", "decode error in template %s: %v", templateName, err)
}

// LogEncodeError logs an encode-time error with its template context.
func (t *Trace) LogEncodeError(templateName string, err error) {
	t.Log("engine", "encode error in template %s: %v", templateName, err)
}

// Close closes the trace log file.
func (t *Trace) Close() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(t.file, "%s [trace] trace logging ended\n", timestamp)
	return t.file.Close()
}

// hexDump renders data as offset/hex/ASCII lines, 16 bytes per line.
func hexDump(data []byte) string {
	if len(data) == 0 {
		return "    (empty)"
	}

	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		sb.WriteString(fmt.Sprintf("    %04X: ", offset))
		for i := 0; i < 8; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")
		for i := 8; i < 16; i++ {
			if offset+i < len(data) {
				sb.WriteString(fmt.Sprintf("%02X ", data[offset+i]))
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" ")
		for i := 0; i < 16; i++ {
			if offset+i < len(data) {
				b := data[offset+i]
				if b >= 32 && b < 127 {
					sb.WriteByte(b)
				} else {
					sb.WriteByte('.')
				}
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// DebugLog logs through the global trace logger, if one is set.
func DebugLog(component, format string, args ...interface{}) {
	if t := GlobalTrace(); t != nil {
		t.Log(component, format, args...)
	}
}

// DebugWireIn logs an inbound wire buffer through the global trace logger.
func DebugWireIn(component string, data []byte) {
	if t := GlobalTrace(); t != nil {
		t.LogWireIn(component, data)
	}
}

// DebugWireOut logs an outbound wire buffer through the global trace logger.
func DebugWireOut(component string, data []byte) {
	if t := GlobalTrace(); t != nil {
		t.LogWireOut(component, data)
	}
}
