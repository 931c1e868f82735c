// Package mqtt publishes readings to an MQTT broker.
package mqtt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultPublishTimeout bounds waiting for a publish to be acknowledged.
const DefaultPublishTimeout = 5 * time.Second

// Queue wraps MQTT client.
type Queue struct {
	Client         paho.Client
	TopicPrefix    string
	QoS            byte
	Retain         bool
	PublishTimeout time.Duration
	OnConnect      ConnectHandler
	OnDisconnect   ConnectHandler
}

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Settings are the publish settings carried in the broker URL.
type Settings struct {
	TopicPrefix string
	QoS         byte
	Retain      bool
}

// ClientOptionsFromURL creates ClientOptions from URL.
// The path becomes the topic prefix, query parameters client-id, qos and
// retain are recognized.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, Settings, error) {
	var settings Settings
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, settings, err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	settings.TopicPrefix = strings.TrimPrefix(u.Path, "/")
	if settings.TopicPrefix != "" && !strings.HasSuffix(settings.TopicPrefix, "/") {
		settings.TopicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}

	query := u.Query()
	if clientID := query.Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	if val := query.Get("qos"); val != "" {
		qos, err := strconv.Atoi(val)
		if err != nil || qos < 0 || qos > 2 {
			return nil, settings, fmt.Errorf("invalid qos %q", val)
		}
		settings.QoS = byte(qos)
	}
	if val := query.Get("retain"); val != "" {
		if settings.Retain, err = strconv.ParseBool(val); err != nil {
			return nil, settings, fmt.Errorf("invalid retain %q", val)
		}
	}

	return opts, settings, nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, settings Settings) *Queue {
	q := &Queue{
		TopicPrefix:    settings.TopicPrefix,
		QoS:            settings.QoS,
		Retain:         settings.Retain,
		PublishTimeout: DefaultPublishTimeout,
	}
	options.SetOnConnectHandler(q.OnConnectHandler)
	options.SetConnectionLostHandler(q.ConnectionLostHandler)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, settings, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, settings), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, q.QoS, q.Retain)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	if glog.V(2) {
		glog.Infof("PUB %q %d bytes", q.TopicPrefix+topic, len(payload))
	}
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Publish publishes and waits for the broker, bounded by PublishTimeout.
func (q *Queue) Publish(topic string, payload []byte) error {
	token := q.Pub(topic, payload)
	timeout := q.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: timeout after %v", topic, timeout)
	}
	return token.Error()
}

// OnConnectHandler is the default implementation of paho.OnConnectHandler.
func (q *Queue) OnConnectHandler(paho.Client) {
	glog.Info("mqtt: connected")
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLostHandler is the default implementation of paho.ConnectLostHandler.
func (q *Queue) ConnectionLostHandler(c paho.Client, err error) {
	glog.Warningf("mqtt: connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}
