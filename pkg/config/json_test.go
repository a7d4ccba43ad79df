package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestUnmarshalConfigJSON(t *testing.T) {
	js := `{
        "wifi_enabled": true,
        "co2_warning": 650,
        "output": "kafka",
        "kafka": { "brokers": ["k1:9092"] },
        "mqtt": { "server": "broker", "port": 8883, "topic": "lab/co2", "template": "co2={}" },
        "display": { "type": "panel", "i2c_bus": "2", "height": 32 },
        "gpio": { "portal_button": "GPIO5" }
    }`

	var cfg Config
	if err := json.Unmarshal([]byte(js), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cfg.WiFiEnabled || cfg.CO2Warning != 650 {
		t.Fatalf("top level: %+v", cfg)
	}
	if cfg.Output != "kafka" || len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("kafka: %+v", cfg.Kafka)
	}
	if cfg.MQTT.Port != 8883 || cfg.MQTT.Topic != "lab/co2" || cfg.MQTT.Template != "co2={}" {
		t.Fatalf("mqtt: %+v", cfg.MQTT)
	}
	if cfg.Display.Type != "panel" || cfg.Display.I2CBus != "2" || cfg.Display.Height != 32 {
		t.Fatalf("display: %+v", cfg.Display)
	}
	if cfg.GPIO.PortalButton != "GPIO5" {
		t.Fatalf("gpio: %+v", cfg.GPIO)
	}
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	jsPath := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(jsPath, []byte(`{"language":"en"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := LoadFile(jsPath, &cfg); err != nil {
		t.Fatalf("LoadFile json: %v", err)
	}
	if cfg.Language != "en" || cfg.CO2Warning != 700 {
		t.Fatalf("json merge: %+v", cfg)
	}

	// YAML is not valid JSON, so a .yml file must go through the YAML decoder.
	ymlPath := filepath.Join(dir, "cfg.yml")
	if err := os.WriteFile(ymlPath, []byte("language: nl\nco2_blink: 900\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(ymlPath, &cfg); err != nil {
		t.Fatalf("LoadFile yaml: %v", err)
	}
	if cfg.Language != "nl" || cfg.CO2Blink != 900 {
		t.Fatalf("yaml merge: %+v", cfg)
	}

	if err := LoadFile(jsPath+".missing", &cfg); err == nil {
		t.Fatal("expected error for missing file")
	}
}
