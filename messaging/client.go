package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"floorwatch/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	kafkago "github.com/segmentio/kafka-go"
)

// Backend names accepted in messaging.backend.
const (
	BackendNone  = "none"
	BackendMQTT  = "mqtt"
	BackendKafka = "kafka"
	BackendNATS  = "nats"
)

var ErrNotConnected = errors.New("messaging not connected")

// Publisher is the subset of Client used by the outbox drainer and heartbeater.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// Client is the unified messaging client (MQTT, Kafka or NATS).
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	clientID string
	backend  string
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
	natsConn *nats.Conn

	// OnConnectionChange, when set before Connect, is called whenever the
	// broker connection is established or lost.
	OnConnectionChange func(connected bool, err error)
}

// NewClient creates a messaging client based on config.
func NewClient(cfg *config.MessagingConfig, clientID string) *Client {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
	}
	return &Client{
		cfg:      cfg,
		clientID: clientID,
		backend:  backend,
	}
}

// Backend returns the configured backend name.
func (c *Client) Backend() string { return c.backend }

// Connect establishes the messaging connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.backend {
	case BackendMQTT:
		return c.connectMQTT()
	case BackendKafka:
		return c.connectKafka()
	case BackendNATS:
		return c.connectNATS()
	case BackendNone:
		return nil
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
}

func (c *Client) notify(connected bool, err error) {
	if c.OnConnectionChange != nil {
		c.OnConnectionChange(connected, err)
	}
}

func (c *Client) connectMQTT() error {
	broker := fmt.Sprintf("tcp://%s:%d", c.cfg.MQTT.Broker, c.cfg.MQTT.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) { c.notify(true, nil) }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { c.notify(false, err) })

	client := mqtt.NewClient(opts)
	c.mqttConn = client
	token := client.Connect()
	// With connect-retry the token only completes once a broker answers.
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect %s: no answer yet, retrying in background", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (c *Client) connectKafka() error {
	if len(c.cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}
	c.kafkaW = &kafkago.Writer{
		Addr:                   kafkago.TCP(c.cfg.Kafka.Brokers...),
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	c.notify(true, nil)
	return nil
}

func (c *Client) connectNATS() error {
	opts := []nats.Option{
		nats.Name(c.clientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.notify(false, err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("messaging: nats reconnected to %s", nc.ConnectedUrl())
			c.notify(true, nil)
		}),
	}
	nc, err := nats.Connect(c.cfg.NATS.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	c.natsConn = nc
	c.notify(true, nil)
	return nil
}

// Publish sends a message to the given topic (NATS subject for nats).
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.backend {
	case BackendMQTT:
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return fmt.Errorf("mqtt: %w", ErrNotConnected)
		}
		token := c.mqttConn.Publish(topic, 1, false, payload)
		token.Wait()
		return token.Error()
	case BackendKafka:
		if c.kafkaW == nil {
			return fmt.Errorf("kafka: %w", ErrNotConnected)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return c.kafkaW.WriteMessages(ctx, kafkago.Message{
			Topic: topic,
			Value: payload,
		})
	case BackendNATS:
		if c.natsConn == nil || c.natsConn.IsClosed() {
			return fmt.Errorf("nats: %w", ErrNotConnected)
		}
		return c.natsConn.Publish(topic, payload)
	default:
		return ErrNotConnected
	}
}

// IsConnected returns whether the messaging client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.backend {
	case BackendMQTT:
		return c.mqttConn != nil && c.mqttConn.IsConnected()
	case BackendKafka:
		return c.kafkaW != nil
	case BackendNATS:
		return c.natsConn != nil && c.natsConn.IsConnected()
	default:
		return false
	}
}

// Close shuts down the messaging connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		c.kafkaW.Close()
		c.kafkaW = nil
	}
	if c.natsConn != nil {
		c.natsConn.Drain()
		c.natsConn = nil
	}
}
