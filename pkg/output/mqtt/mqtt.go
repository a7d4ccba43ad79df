package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/co2-monitor/pkg/config"
	"github.com/ericogr/co2-monitor/pkg/output"
)

const (
	connectTimeout = 5 * time.Second
	// discovery payload keys/values
	keyName               = "name"
	keyStateTopic         = "state_topic"
	keyUnitOfMeasurement  = "unit_of_measurement"
	keyDeviceClass        = "device_class"
	keyStateClass         = "state_class"
	keyValueTemplate      = "value_template"
	keyUniqueID           = "unique_id"
	unitPPM               = "ppm"
	deviceClassCO2        = "carbon_dioxide"
	stateClassMeasurement = "measurement"
	// the first word of the rendered message template is the value
	valueTemplateFirstWord = "{{ value.split()[0] | int }}"
)

type MQTTOutput struct {
	client     mqtt.Client
	cfg        config.MQTTConfig
	clientID   string
	log        *slog.Logger
	discovered bool
}

var _ output.Output = (*MQTTOutput)(nil)

// NewMQTT prepares a client; the connection is made by Connect. Reconnection
// is left to the caller so that failures can be counted.
func NewMQTT(cfg config.MQTTConfig, clientID string, log *slog.Logger) *MQTTOutput {
	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(cfg)).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	return &MQTTOutput{
		client:   mqtt.NewClient(opts),
		cfg:      cfg,
		clientID: clientID,
		log:      log.With(slog.String("component", "mqtt")),
	}
}

// BrokerURL returns tcp://server:port.
func BrokerURL(cfg config.MQTTConfig) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.Server, cfg.Port)
}

func (m *MQTTOutput) Connected() bool {
	return m.client.IsConnected()
}

func (m *MQTTOutput) Connect(ctx context.Context) error {
	if err := wait(ctx, m.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	m.log.Info("connected", "broker", BrokerURL(m.cfg))

	// Publish Home Assistant discovery payload if requested
	if m.cfg.DiscoveryTopic != "" && !m.discovered {
		payload := discoveryPayload(m.cfg, m.clientID)
		if err := m.publishJSON(ctx, m.cfg.DiscoveryTopic, true, payload); err != nil {
			m.log.Warn("discovery publish error", "error", err)
		} else {
			m.discovered = true
		}
	}
	return nil
}

func (m *MQTTOutput) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	return wait(ctx, m.client.Publish(topic, 0, retained, payload))
}

func (m *MQTTOutput) Close() error {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// helper: build a human-friendly discovery name
func discoveryName(cfg config.MQTTConfig, clientID string) string {
	if cfg.DiscoveryName != "" {
		return cfg.DiscoveryName
	}
	return fmt.Sprintf("CO2 %s", clientID)
}

// helper: discovery payload for the ppm state topic
func discoveryPayload(cfg config.MQTTConfig, clientID string) map[string]interface{} {
	payload := map[string]interface{}{
		keyName:              discoveryName(cfg, clientID),
		keyStateTopic:        cfg.Topic,
		keyUnitOfMeasurement: unitPPM,
		keyDeviceClass:       deviceClassCO2,
		keyStateClass:        stateClassMeasurement,
		keyValueTemplate:     valueTemplateFirstWord,
	}
	if clientID != "" {
		payload[keyUniqueID] = clientID + "_co2"
	}
	return payload
}

// helper: marshal and publish JSON payload
func (m *MQTTOutput) publishJSON(ctx context.Context, topic string, retained bool, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return m.Publish(ctx, topic, b, retained)
}
