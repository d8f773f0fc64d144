package messaging

import (
	"context"
	"errors"

	"LuckyNumbers/internal/interfaces"
)

// MultiPublisher sends every message to all publishers. One failing does not stop the others.
type MultiPublisher []interfaces.Publisher

func (m MultiPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
