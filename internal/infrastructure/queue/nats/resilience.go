package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-ledger/internal/infrastructure/resilience"
)

var transientNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) resilience.ErrorClassification {
		for _, transient := range transientNATSErrors {
			if errors.Is(err, transient) {
				return resilience.Transient
			}
		}
		return resilience.Permanent
	})
}
