// Package mqtt publishes order lifecycle events to an MQTT broker so that
// community dashboards can poll results as soon as they are ready.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker    string `json:"broker"`
	ClientID  string `json:"client_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Topic     string `json:"topic"`
	QoS       byte   `json:"qos"`
	TimeoutMS int    `json:"timeout_ms"`
}

// SetDefaults applies the default publication parameters.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "lem-api"
	}
	if c.Topic == "" {
		c.Topic = "lem/orders"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

// Validate checks the notifier configuration.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Notifier publishes one message per finished order.
type Notifier struct {
	cli     pahoClient
	topic   string
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewNotifier connects to the MQTT broker.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	log := logger.New("mqtt-notifier")

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Notifier{
		cli:     c,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:     log,
	}, nil
}

var _ orders.Notifier = (*Notifier)(nil)

// orderEvent is the published payload.
type orderEvent struct {
	MessageID   string    `json:"message_id"`
	OrderID     string    `json:"order_id"`
	RequestType string    `json:"request_type"`
	Failed      bool      `json:"failed"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderCompleted publishes the completion event of an order.
func (n *Notifier) OrderCompleted(_ context.Context, orderID string, requestType model.RequestType, failed bool) error {
	payload, err := json.Marshal(orderEvent{
		MessageID:   uuid.NewString(),
		OrderID:     orderID,
		RequestType: string(requestType),
		Failed:      failed,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding order event: %w", err)
	}
	token := n.cli.Publish(n.topic, n.qos, false, payload)
	if !token.WaitTimeout(n.timeout) {
		return fmt.Errorf("publish timeout for order %s", orderID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing order %s: %w", orderID, err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *Notifier) Close() {
	n.cli.Disconnect(250)
}
