package observability

import (
	"context"
)

// Publisher is the subset of the event bus the observability helpers need.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// HeaderPublisher is implemented by publishers that can attach AMQP headers.
type HeaderPublisher interface {
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an event on the shared bus. Failures are counted and returned.
func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	var err error
	if hp, ok := defaultPublisher.(HeaderPublisher); ok && len(headers) > 0 {
		err = hp.PublishWithHeaders(ctx, routingKey, message, headers)
	} else {
		err = defaultPublisher.Publish(ctx, routingKey, message)
	}
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
