package broker

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"music-box/pkg/logger"
)

const (
	defaultQoS            = 1
	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesce     = 250
)

type MessageHandler func(topic string, payload []byte)
type ConnectHandler func()
type DisconnectHandler func(err error)

type Config struct {
	Host       string
	Port       int
	StateTopic string
	ClientID   string
	UserName   string
	Password   string
}

type Client struct {
	cfg               *Config
	log               *logger.Zerolog
	client            mqtt.Client
	mu                sync.RWMutex
	connectHandler    ConnectHandler
	disconnectHandler DisconnectHandler
}

func NewBrokerClient(cfg *Config, log *logger.Zerolog) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("broker host is empty")
	}
	if cfg.StateTopic == "" {
		return nil, errors.New("broker state topic is empty")
	}

	c := &Client{
		cfg: cfg,
		log: log,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.UserName).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)

	return c, nil
}

func (c *Client) Start() error {
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return errors.Errorf("timeout connecting to broker %s:%d", c.cfg.Host, c.cfg.Port)
	}
	return errors.Wrap(token.Error(), "connect to broker")
}

// PublishState sends data retained, so late subscribers get the last state.
func (c *Client) PublishState(data []byte) {
	if !c.client.IsConnectionOpen() {
		c.log.Debug().Msg("broker is not connected, state not published")
		return
	}

	token := c.client.Publish(c.cfg.StateTopic, defaultQoS, true, data)
	go func() {
		if token.WaitTimeout(defaultConnectTimeout) && token.Error() != nil {
			c.log.Error().Msgf("failed to publish state: %v", token.Error())
		}
	}()
}

func (c *Client) Subscribe(topic string, handler MessageHandler) {
	token := c.client.Subscribe(topic, defaultQoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	go func() {
		if token.WaitTimeout(defaultConnectTimeout) && token.Error() != nil {
			c.log.Error().Msgf("failed to subscribe to %s: %v", topic, token.Error())
		}
	}()
}

func (c *Client) SetConnectHandler(h ConnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectHandler = h
}

func (c *Client) SetDisconnectHandler(h DisconnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectHandler = h
}

func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesce)
	}
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.log.Info().Msgf("connected to broker %s:%d", c.cfg.Host, c.cfg.Port)

	c.mu.RLock()
	h := c.connectHandler
	c.mu.RUnlock()

	if h != nil {
		h()
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Error().Msgf("broker connection lost: %v", err)

	c.mu.RLock()
	h := c.disconnectHandler
	c.mu.RUnlock()

	if h != nil {
		h(err)
	}
}
