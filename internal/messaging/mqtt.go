package messaging

import (
	"context"
	"fmt"
	"time"

	"LuckyNumbers/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	mqttQoS                   = 1
	mqttQuiesceMillis         = 250
	defaultMQTTConnectTimeout = 10 * time.Second
	defaultMQTTPublishTimeout = 5 * time.Second
)

// MQTTPublisher publishes to an MQTT broker. The client reconnects on its own.
type MQTTPublisher struct {
	client  mqtt.Client
	timeout time.Duration // bound on one publish, the broker may be down for much longer
	logger  *logrus.Logger
}

// NewMQTTPublisher connects to cfg.BrokerURL
func NewMQTTPublisher(cfg *config.MessagingConfig, logger *logrus.Logger) (*MQTTPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "luckynumbers"
	}
	clientID = clientID + "-" + uuid.NewString()[:8]
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultMQTTConnectTimeout
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultMQTTPublishTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectTimeout).
		SetConnectTimeout(connectTimeout).
		SetWriteTimeout(publishTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.WithField("broker", cfg.BrokerURL).Info("connected to MQTT")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection is offline")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// with ConnectRetry the client keeps trying in the background
		logger.WithField("broker", cfg.BrokerURL).Warn("MQTT not connected yet, publishing will retry")
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT %s: %w", cfg.BrokerURL, err)
	}
	return &MQTTPublisher{client: client, timeout: publishTimeout, logger: logger}, nil
}

// Publish waits for the broker acknowledgement, at most the publish timeout
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token := p.client.Publish(topic, mqttQoS, false, payload)
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish to %s: %w", topic, ctx.Err())
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects after in-flight work drains
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttQuiesceMillis)
	p.logger.Info("MQTT connection closed")
	return nil
}
