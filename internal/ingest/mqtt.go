package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/models"
)

// MeasurementHandler receives each decoded measurement from the transport.
type MeasurementHandler func(ctx context.Context, m models.Measurement) error

// MQTTSource subscribes to the measurements topic and feeds decoded
// payloads into the ingestion path. Malformed or rejected payloads are
// logged and dropped; the subscription keeps running.
type MQTTSource struct {
	client mqtt.Client
	config *config.Config
	logger *zap.Logger
}

// NewMQTTSource connects to the broker.
func NewMQTTSource(cfg *config.Config, logger *zap.Logger) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTSource{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// Start subscribes to the configured topic.
func (s *MQTTSource) Start(ctx context.Context, handler MeasurementHandler) error {
	topic := s.config.MQTT.Topic

	token := s.client.Subscribe(topic, s.config.MQTT.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		var m models.Measurement
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			s.logger.Warn("Dropping malformed measurement payload",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
			return
		}

		if err := handler(ctx, m); err != nil {
			s.logger.Warn("Measurement rejected",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})

	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	s.logger.Info("MQTT measurement source started",
		zap.String("topic", topic),
	)

	return nil
}

// Stop unsubscribes and disconnects.
func (s *MQTTSource) Stop() {
	if token := s.client.Unsubscribe(s.config.MQTT.Topic); token.Wait() && token.Error() != nil {
		s.logger.Warn("Failed to unsubscribe",
			zap.Error(token.Error()),
		)
	}
	s.client.Disconnect(250)
}
