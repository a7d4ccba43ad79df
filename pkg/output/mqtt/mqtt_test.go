package mqtt

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ericogr/co2-monitor/pkg/config"
)

func TestBrokerURL(t *testing.T) {
	got := BrokerURL(config.MQTTConfig{Server: "broker.local", Port: 1883})
	if got != "tcp://broker.local:1883" {
		t.Fatalf("BrokerURL = %q", got)
	}
}

func TestDiscoveryPayload(t *testing.T) {
	cfg := config.MQTTConfig{Topic: "operame-abc"}
	p := discoveryPayload(cfg, "operame-abc")
	if p[keyStateTopic] != "operame-abc" {
		t.Fatalf("state topic: %v", p[keyStateTopic])
	}
	if p[keyDeviceClass] != deviceClassCO2 || p[keyUnitOfMeasurement] != unitPPM {
		t.Fatalf("device class/unit: %v %v", p[keyDeviceClass], p[keyUnitOfMeasurement])
	}
	if p[keyUniqueID] != "operame-abc_co2" {
		t.Fatalf("unique id: %v", p[keyUniqueID])
	}
	if p[keyName] != "CO2 operame-abc" {
		t.Fatalf("name: %v", p[keyName])
	}

	cfg.DiscoveryName = "Living room"
	if got := discoveryPayload(cfg, "")[keyName]; got != "Living room" {
		t.Fatalf("configured name: %v", got)
	}
	if _, ok := discoveryPayload(cfg, "")[keyUniqueID]; ok {
		t.Fatalf("unique id without client id")
	}
}

func TestConnectRefused(t *testing.T) {
	m := NewMQTT(config.MQTTConfig{Server: "127.0.0.1", Port: 1}, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err == nil {
		t.Fatalf("expected connection error")
	}
	if m.Connected() {
		t.Fatalf("must not report connected")
	}
	_ = m.Close()
}
