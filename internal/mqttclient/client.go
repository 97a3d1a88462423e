package mqttclient

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	connectTimeout    = 10 * time.Second
	retryInterval     = 5 * time.Second
	disconnectGraceMS = 1000
)

// MessageHandler receives every message on the subscribed topics. Handlers
// must not block: slow work belongs on the other side of a channel.
type MessageHandler func(topic string, payload []byte)

// Client is a subscribe-only MQTT consumer with automatic reconnect and
// resubscribe. Transcript lanes publish raw generation output to one topic
// each; the client fans all of them into a single handler.
type Client struct {
	conn      mqtt.Client
	filters   map[string]byte
	connected atomic.Bool
	log       zerolog.Logger
	handler   atomic.Pointer[MessageHandler]
}

type Options struct {
	BrokerURL string
	ClientID  string
	Topics    string // comma separated topic filters
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect dials the broker and blocks until the first connection succeeds
// or the connect timeout expires. Subscriptions are re-established on every
// reconnect.
func Connect(opts Options) (*Client, error) {
	c := &Client{
		filters: parseFilters(opts.Topics),
		log:     opts.Log,
	}

	mo := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(retryInterval).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetDefaultPublishHandler(c.onMessage)

	if opts.Username != "" {
		mo.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		mo.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(mo)
	token := c.conn.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", opts.BrokerURL, err)
	}

	return c, nil
}

// SetMessageHandler installs the consumer callback. Safe to call after
// Connect; messages arriving before a handler is set are dropped with a
// debug log.
func (c *Client) SetMessageHandler(h MessageHandler) {
	c.handler.Store(&h)
}

func (c *Client) onConnect(conn mqtt.Client) {
	c.connected.Store(true)

	topics := make([]string, 0, len(c.filters))
	for t := range c.filters {
		topics = append(topics, t)
	}
	c.log.Info().Strs("topics", topics).Msg("mqtt connected, subscribing")

	token := conn.SubscribeMultiple(c.filters, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		c.log.Error().Err(err).Msg("mqtt subscribe failed")
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if h := c.handler.Load(); h != nil {
		(*h)(msg.Topic(), msg.Payload())
		return
	}
	c.log.Debug().
		Str("topic", msg.Topic()).
		Int("payload_size", len(msg.Payload())).
		Msg("mqtt message dropped, no handler installed")
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting mqtt client")
	c.conn.Disconnect(disconnectGraceMS)
}

// parseFilters splits a comma separated topic list into a subscription map
// at QoS 0. An empty list subscribes to the default transcript tree.
func parseFilters(raw string) map[string]byte {
	filters := make(map[string]byte)
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			filters[t] = 0
		}
	}
	if len(filters) == 0 {
		filters["transcripts/#"] = 0
	}
	return filters
}
