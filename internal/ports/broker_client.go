//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"
	"time"
)

// Ack is returned by a successful BrokerClient.Send, carrying whatever
// delivery confirmation the underlying transport gives back.
type Ack struct {
	Topic     string
	Partition int32
	Offset    int64
}

//counterfeiter:generate -o ../mocks/broker_client.go . BrokerClient

// BrokerClient abstracts the message broker the relay and direct
// publisher send to. Implementations must treat timeout as a hard
// deadline for the whole send, including connection setup.
type BrokerClient interface {
	Send(ctx context.Context, topic, key string, value []byte, timeout time.Duration) (Ack, error)
}
