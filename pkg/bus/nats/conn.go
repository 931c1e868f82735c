// Package nats publishes readings to a NATS server.
package nats

import (
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

// Conn wraps a NATS connection.
type Conn struct {
	Conn          *nats.Conn
	SubjectPrefix string
}

// ParseURL splits the server URL from the subject prefix carried in the
// path, e.g. nats://host:4222/plant.a publishes under "plant.a.".
func ParseURL(serverURL string) (server, prefix string, err error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", "", err
	}
	prefix = strings.Trim(strings.ReplaceAll(u.Path, "/", "."), ".")
	if prefix != "" {
		prefix += "."
	}
	u.Path, u.RawPath = "", ""
	return u.String(), prefix, nil
}

// Connect connects to the server at serverURL.
func Connect(serverURL string, options ...nats.Option) (*Conn, error) {
	server, prefix, err := ParseURL(serverURL)
	if err != nil {
		return nil, err
	}
	opts := append([]nats.Option{
		nats.Name("wirefree"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			glog.Warningf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			glog.Infof("nats: reconnected to %s", c.ConnectedUrl())
		}),
	}, options...)
	nc, err := nats.Connect(server, opts...)
	if err != nil {
		return nil, err
	}
	glog.Infof("nats: connected to %s", nc.ConnectedUrl())
	return &Conn{Conn: nc, SubjectPrefix: prefix}, nil
}

// Subject maps a slash separated topic to a subject.
func (c *Conn) Subject(topic string) string {
	return c.SubjectPrefix + strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// Publish publishes payload on the subject of topic.
func (c *Conn) Publish(topic string, payload []byte) error {
	subject := c.Subject(topic)
	glog.V(2).Infof("PUB %q %d bytes", subject, len(payload))
	return c.Conn.Publish(subject, payload)
}

// Close flushes pending messages and closes the connection.
func (c *Conn) Close() error {
	err := c.Conn.FlushTimeout(time.Second)
	c.Conn.Close()
	return err
}
