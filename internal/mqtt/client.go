package mqtt

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SentientSim/internal/config"
)

const (
	defaultBrokerURL = "tcp://localhost:1883"
	defaultTimeout   = 10 * time.Second

	// Presence payloads published retained on the status topic.
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Options configures a Client.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// StatusTopic receives a retained "online" on connect and "offline" as the
	// last will. Empty disables presence.
	StatusTopic string
	// Timeout bounds connect and publish acknowledgements. Zero means 10s.
	Timeout time.Duration
}

// BrokerURL returns the MQTT broker URL from MQTT_URL or the default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return defaultBrokerURL
}

// OptionsFromEnv builds Options from MQTT_URL and the MQTT_USERNAME and
// MQTT_PASSWORD secrets (or their *_FILE variants).
func OptionsFromEnv(clientID, statusTopic string) (Options, error) {
	user, err := config.ResolveSecret(config.SecretMQTTUser)
	if err != nil {
		return Options{}, err
	}
	pass, err := config.ResolveSecret(config.SecretMQTTPass)
	if err != nil {
		return Options{}, err
	}
	return Options{
		BrokerURL:   BrokerURL(),
		ClientID:    clientID,
		Username:    user,
		Password:    pass,
		StatusTopic: statusTopic,
	}, nil
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}

// Client publishes simulation results to a broker.
type Client struct {
	client paho.Client
	opts   Options
	mu     sync.Mutex
}

// NewClient creates a client but does not connect.
func NewClient(opts Options) *Client {
	if opts.BrokerURL == "" {
		opts.BrokerURL = defaultBrokerURL
	}
	po := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	if opts.Username != "" {
		po.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	if opts.StatusTopic != "" {
		po.SetWill(opts.StatusTopic, StatusOffline, 1, true)
	}

	return &Client{
		client: paho.NewClient(po),
		opts:   opts,
	}
}

// Connect connects to the broker and announces presence when a status topic
// is configured. It does not block longer than the configured timeout.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(c.opts.timeout()) {
		return &ConnectTimeoutError{Broker: c.opts.BrokerURL}
	}
	if err := token.Error(); err != nil {
		return err
	}
	if c.opts.StatusTopic != "" {
		if err := c.publish(c.opts.StatusTopic, []byte(StatusOnline), true); err != nil {
			return fmt.Errorf("announce presence: %w", err)
		}
	}
	return nil
}

// Publish sends a payload to a topic at QoS 1.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publish(topic, payload, false)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.opts.timeout()) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect marks the simulator offline and disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opts.StatusTopic != "" && c.client.IsConnected() {
		if err := c.publish(c.opts.StatusTopic, []byte(StatusOffline), true); err != nil {
			log.Printf("mqtt: failed to publish offline status: %v", err)
		}
	}
	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates the broker did not acknowledge a connect in time.
type ConnectTimeoutError struct {
	Broker string
}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout: " + e.Broker
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

// StartWithRetry attempts to connect, logging errors but not crashing.
// Returns true if connected, false otherwise. Paho keeps retrying in the
// background either way.
func (c *Client) StartWithRetry() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.opts.BrokerURL, err)
		return false
	}

	log.Printf("mqtt: connected to %s", c.opts.BrokerURL)
	return true
}
