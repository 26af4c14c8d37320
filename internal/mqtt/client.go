// client.go: Package mqtt publishes switcher and sequence events to a broker.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/logging"
)

// Client is the abstraction over the broker connection.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config holds the broker connection parameters.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	TopicPrefix       string
	ReconnectCooldown time.Duration
}

type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	log             *slog.Logger
}

// NewClient creates a new MQTT client from settings.
func NewClient(settings *conf.Settings) Client {
	return &client{
		config: Config{
			Broker:            settings.Realtime.MQTT.Broker,
			ClientID:          settings.Main.Name,
			Username:          settings.Realtime.MQTT.Username,
			Password:          settings.Realtime.MQTT.Password,
			TopicPrefix:       settings.Realtime.MQTT.TopicPrefix,
			ReconnectCooldown: 5 * time.Second,
		},
		log: logging.ForService("mqtt"),
	}
}

// Connect attempts to establish a connection to the MQTT broker.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Build()
	}
	c.lastConnAttempt = time.Now()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		c.log.Info("connected to MQTT broker", "broker", c.config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.log.Warn("MQTT connection lost", "error", err)
	})

	c.internalClient = pahomqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return errors.NewStd("MQTT connection timeout")
	}
	if err := token.Error(); err != nil {
		return errors.New(fmt.Errorf("connection error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnectedLocked() {
		return errors.NewStd("not connected to MQTT broker")
	}

	token := c.internalClient.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return errors.Newf("publish timeout for topic %s", topic).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	return token.Error()
}

// IsConnected returns true if the client is currently connected.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnectedLocked()
}

func (c *client) isConnectedLocked() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(250)
	}
}
