package stream

import (
	"testing"

	"fastcodec/internal/config"
)

func TestConnectionStatusString(t *testing.T) {
	cases := map[ConnectionStatus]string{
		StatusDisconnected: "disconnected",
		StatusConnecting:   "connecting",
		StatusConnected:    "connected",
		StatusError:        "error",
		ConnectionStatus(99): "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("ConnectionStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestKafkaPublisherTopicFor(t *testing.T) {
	cfg := &config.KafkaConfig{Name: "main", TopicPrefix: "fast."}
	p := NewKafkaPublisher(cfg, "plant1")

	got := p.topicFor("Quote")
	want := "plant1.fast.Quote"
	if got != want {
		t.Errorf("topicFor = %q, want %q", got, want)
	}
}

func TestKafkaPublisherTopicForWithoutNamespace(t *testing.T) {
	cfg := &config.KafkaConfig{Name: "main", TopicPrefix: "fast."}
	p := NewKafkaPublisher(cfg, "")

	got := p.topicFor("Quote")
	want := "fast.Quote"
	if got != want {
		t.Errorf("topicFor = %q, want %q", got, want)
	}
}

func TestKafkaPublisherPublishRequiresConnection(t *testing.T) {
	cfg := &config.KafkaConfig{Name: "main", Brokers: []string{"localhost:9092"}}
	p := NewKafkaPublisher(cfg, "ns")

	if p.Status() != StatusDisconnected {
		t.Fatalf("expected initial status disconnected, got %v", p.Status())
	}

	err := p.Publish(nil, "Quote", nil, []byte("{}"))
	if err == nil {
		t.Fatal("expected an error publishing without a connected writer")
	}
}

func TestKafkaPublisherSASLMechanism(t *testing.T) {
	cfg := &config.KafkaConfig{Username: "u", Password: "p", SASLMechanism: "PLAIN"}
	p := NewKafkaPublisher(cfg, "ns")
	if m := p.saslMechanism(); m == nil {
		t.Error("expected a PLAIN mechanism")
	}

	cfg.SASLMechanism = "SCRAM-SHA-256"
	if m := p.saslMechanism(); m == nil {
		t.Error("expected a SCRAM-SHA-256 mechanism")
	}

	cfg.Username = ""
	if m := p.saslMechanism(); m != nil {
		t.Error("expected no mechanism without a username")
	}
}
