package messaging

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes messages to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.logger.WithField("topic", topic).Info(string(payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
