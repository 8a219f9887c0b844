package infrastructure

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	statusKey    = "status"
	eventTypeKey = "event.type"
)

func StatusAttr(status string) attribute.KeyValue {
	return attribute.String(statusKey, status)
}

func EventTypeAttr(eventType string) attribute.KeyValue {
	return attribute.String(eventTypeKey, eventType)
}
