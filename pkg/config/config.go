package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	Server   string `json:"server" yaml:"server"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	// Topic and Template are used by every output type.
	Topic          string `json:"topic" yaml:"topic"`
	Template       string `json:"template" yaml:"template"`
	DiscoveryTopic string `json:"discovery_topic,omitempty" yaml:"discovery_topic,omitempty"`
	DiscoveryName  string `json:"discovery_name,omitempty" yaml:"discovery_name,omitempty"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers,omitempty"`
}

type SerialConfig struct {
	Port string `json:"port" yaml:"port"`
}

type DisplayConfig struct {
	Type   string `json:"type" yaml:"type"`
	I2CBus string `json:"i2c_bus" yaml:"i2c_bus"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

type GPIOConfig struct {
	PortalButton string `json:"portal_button" yaml:"portal_button"`
	DemoButton   string `json:"demo_button" yaml:"demo_button"`
	// PCBOK is pulled low by a PCB trace when the module is seated correctly.
	PCBOK string `json:"pcb_ok" yaml:"pcb_ok"`
}

type PortalConfig struct {
	Listen   string `json:"listen" yaml:"listen"`
	Password string `json:"password" yaml:"password"`
}

type Config struct {
	Hostname     string        `json:"hostname" yaml:"hostname"`
	Language     string        `json:"language" yaml:"language"`
	WiFiEnabled  bool          `json:"wifi_enabled" yaml:"wifi_enabled"`
	OTAEnabled   bool          `json:"ota_enabled" yaml:"ota_enabled"`
	MQTTEnabled  bool          `json:"mqtt_enabled" yaml:"mqtt_enabled"`
	CO2Warning   int           `json:"co2_warning" yaml:"co2_warning"`
	CO2Critical  int           `json:"co2_critical" yaml:"co2_critical"`
	CO2Blink     int           `json:"co2_blink" yaml:"co2_blink"`
	MaxFailures  int           `json:"max_failures" yaml:"max_failures"`
	MQTTInterval int           `json:"mqtt_interval" yaml:"mqtt_interval"`
	Output       string        `json:"output" yaml:"output"`
	MQTT         MQTTConfig    `json:"mqtt" yaml:"mqtt"`
	Kafka        KafkaConfig   `json:"kafka" yaml:"kafka"`
	SensorType   string        `json:"sensor_type" yaml:"sensor_type"`
	Serial       SerialConfig  `json:"serial" yaml:"serial"`
	Display      DisplayConfig `json:"display" yaml:"display"`
	GPIO         GPIOConfig    `json:"gpio" yaml:"gpio"`
	Portal       PortalConfig  `json:"portal" yaml:"portal"`
	StateDir     string        `json:"state_dir" yaml:"state_dir"`
	LogLevel     string        `json:"log_level" yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		Language:     "nl",
		CO2Warning:   700,
		CO2Critical:  800,
		CO2Blink:     800,
		MaxFailures:  10,
		MQTTInterval: 60,
		Output:       "mqtt",
		MQTT:         MQTTConfig{Port: 1883, Template: "{} PPM"},
		SensorType:   "real",
		Serial:       SerialConfig{Port: "/dev/ttyS0"},
		Display:      DisplayConfig{Type: "console", I2CBus: "1", Width: 128, Height: 64},
		GPIO:         GPIOConfig{PortalButton: "GPIO35", DemoButton: "GPIO0", PCBOK: "GPIO12"},
		Portal:       PortalConfig{Listen: ":8080"},
		StateDir:     "/var/lib/co2-monitor",
		LogLevel:     "info",
	}
}

// LoadFromFlags loads configuration from a YAML or JSON file (optional) and
// the command line. Flags override values present in the file.
func LoadFromFlags() (Config, string, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is LoadFromFlags over an explicit argument list. The second
// return value is the config file path, empty when none was given.
func LoadArgs(args []string) (Config, string, error) {
	fs := flag.NewFlagSet("co2-monitor", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML or JSON config file")
	flagSensorType := fs.String("sensor-type", "", "sensor type: real|simulation")
	flagSerial := fs.String("serial-port", "", "Sensor serial port (e.g. /dev/ttyS0)")
	flagDisplay := fs.String("display", "", "display: panel|console|none")
	flagDisplayBus := fs.String("display-i2c-bus", "", "I2C bus of the panel")
	flagOutput := fs.String("output", "", "output: mqtt|kafka|console")
	flagWiFi := fs.String("wifi", "", "Use the network (true|false)")
	flagMQTT := fs.String("mqtt", "", "Publish measurements (true|false)")
	flagOTA := fs.String("ota", "", "Accept firmware updates (true|false)")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT broker host")
	flagMQTTPort := fs.Int("mqtt-port", -1, "MQTT broker TCP port")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagTopic := fs.String("mqtt-topic", "", "Topic")
	flagTemplate := fs.String("mqtt-template", "", "Message template, {} is replaced by the ppm value")
	flagInterval := fs.Int("mqtt-interval", -1, "Publication interval in seconds")
	flagMaxFailures := fs.Int("max-failures", -1, "Failed connections before automatic restart")
	flagKafka := fs.String("kafka-brokers", "", "Comma-separated Kafka brokers host:port")
	flagWarning := fs.Int("co2-warning", -1, "Yellow from [ppm]")
	flagCritical := fs.Int("co2-critical", -1, "Red from [ppm]")
	flagBlink := fs.Int("co2-blink", -1, "Blink from [ppm]")
	flagLanguage := fs.String("language", "", "Display language (en|nl)")
	flagStateDir := fs.String("state-dir", "", "Directory for persistent state")
	flagListen := fs.String("portal-listen", "", "Configuration portal listen address")
	flagLogLevel := fs.String("log-level", "", "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return DefaultConfig(), "", err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		if err := LoadFile(*cfgPath, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, *cfgPath, err
		}
	}

	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagSerial != "" {
		cfg.Serial.Port = *flagSerial
	}
	if *flagDisplay != "" {
		cfg.Display.Type = *flagDisplay
	}
	if *flagDisplayBus != "" {
		cfg.Display.I2CBus = *flagDisplayBus
	}
	if *flagOutput != "" {
		cfg.Output = *flagOutput
	}
	for _, b := range []struct {
		name string
		val  string
		dst  *bool
	}{
		{"wifi", *flagWiFi, &cfg.WiFiEnabled},
		{"mqtt", *flagMQTT, &cfg.MQTTEnabled},
		{"ota", *flagOTA, &cfg.OTAEnabled},
	} {
		if b.val == "" {
			continue
		}
		v, err := strconv.ParseBool(b.val)
		if err != nil {
			return cfg, *cfgPath, fmt.Errorf("%s: %w", b.name, err)
		}
		*b.dst = v
	}
	if *flagMQTTServer != "" {
		cfg.MQTT.Server = *flagMQTTServer
	}
	if *flagMQTTPort != -1 {
		cfg.MQTT.Port = *flagMQTTPort
	}
	if *flagMQTTUser != "" {
		cfg.MQTT.Username = *flagMQTTUser
	}
	if *flagMQTTPass != "" {
		cfg.MQTT.Password = *flagMQTTPass
	}
	if *flagTopic != "" {
		cfg.MQTT.Topic = *flagTopic
	}
	if *flagTemplate != "" {
		cfg.MQTT.Template = *flagTemplate
	}
	if *flagInterval != -1 {
		cfg.MQTTInterval = *flagInterval
	}
	if *flagMaxFailures != -1 {
		cfg.MaxFailures = *flagMaxFailures
	}
	if *flagKafka != "" {
		cfg.Kafka.Brokers = parseCSV(*flagKafka)
	}
	if *flagWarning != -1 {
		cfg.CO2Warning = *flagWarning
	}
	if *flagCritical != -1 {
		cfg.CO2Critical = *flagCritical
	}
	if *flagBlink != -1 {
		cfg.CO2Blink = *flagBlink
	}
	if *flagLanguage != "" {
		cfg.Language = *flagLanguage
	}
	if *flagStateDir != "" {
		cfg.StateDir = *flagStateDir
	}
	if *flagListen != "" {
		cfg.Portal.Listen = *flagListen
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return cfg, *cfgPath, err
	}
	return cfg, *cfgPath, nil
}

// LoadFile merges the file at path into cfg. Files ending in .json are
// parsed as JSON, everything else as YAML.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(b, cfg)
	} else {
		err = yaml.Unmarshal(b, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Save writes cfg in the format LoadFile expects for path, replacing the
// file atomically.
func (c Config) Save(path string) error {
	var b []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err = json.MarshalIndent(c, "", "  ")
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

type rangeCheck struct {
	name     string
	val      int
	min, max int
}

// Validate checks every setting against its allowed range.
func (c Config) Validate() error {
	var errs []error
	for _, r := range []rangeCheck{
		{"co2_warning", c.CO2Warning, 400, 5000},
		{"co2_critical", c.CO2Critical, 400, 5000},
		{"co2_blink", c.CO2Blink, 800, 5000},
		{"max_failures", c.MaxFailures, 0, 1000},
		{"mqtt_interval", c.MQTTInterval, 10, 3600},
		{"mqtt.port", c.MQTT.Port, 0, 65535},
	} {
		if r.val < r.min || r.val > r.max {
			errs = append(errs, fmt.Errorf("%s must be in %d..%d, got %d", r.name, r.min, r.max, r.val))
		}
	}
	switch c.Output {
	case "mqtt", "kafka", "console":
	default:
		errs = append(errs, fmt.Errorf("output must be mqtt, kafka or console, got %q", c.Output))
	}
	switch c.SensorType {
	case "real", "simulation":
	default:
		errs = append(errs, fmt.Errorf("sensor_type must be real or simulation, got %q", c.SensorType))
	}
	switch c.Display.Type {
	case "panel", "console", "none":
	default:
		errs = append(errs, fmt.Errorf("display.type must be panel, console or none, got %q", c.Display.Type))
	}
	return errors.Join(errs...)
}

// Normalize applies dependent defaults: OTA and publishing need the network,
// and the topic defaults to the hostname.
func (c *Config) Normalize(hostname string) {
	if c.Hostname == "" {
		c.Hostname = hostname
	}
	// updates are authenticated with the portal password
	c.OTAEnabled = c.OTAEnabled && c.WiFiEnabled && c.Portal.Password != ""
	c.MQTTEnabled = c.MQTTEnabled && c.WiFiEnabled
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = c.Hostname
	}
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
