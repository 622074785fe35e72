package dao

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "ganjes.dao.events"

// Publisher is the slice of *nats.Conn we need.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each record as JSON on <prefix>.<kind>.
type NATSSink struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

// NewNATSSink wraps an existing publisher.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

// DialNATS connects to url and returns a sink owning the connection.
func DialNATS(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("ganjes-dao"))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	s := NewNATSSink(conn, prefix)
	s.conn = conn
	return s, nil
}

// Subject returns the subject a kind is published on.
func (s *NATSSink) Subject(kind string) string {
	return s.prefix + "." + kind
}

func (s *NATSSink) Publish(_ context.Context, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	return s.pub.Publish(s.Subject(rec.Kind()), data)
}

// Close drains the owned connection, if any.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
