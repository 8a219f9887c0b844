package domain

import "time"

type (
	// Source identifies the producing process. Service is required; the
	// rest are best-effort enrichment captured at process init or per
	// request.
	Source struct {
		Service       string `json:"service"`
		Environment   string `json:"environment"`
		InstanceID    string `json:"instance_id"`
		Host          string `json:"host"`
		Version       string `json:"version"`
		CorrelationID string `json:"correlation_id,omitempty"`
		CausationID   string `json:"causation_id,omitempty"`
		RootEventID   string `json:"root_event_id,omitempty"`
	}

	// Trace carries distributed-tracing identifiers. Missing values are
	// reported as "unknown" rather than left empty, so downstream log
	// correlation never silently drops a field.
	Trace struct {
		TraceID       string `json:"trace_id"`
		SpanID        string `json:"span_id"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	// Schema describes the payload's wire shape for consumers that
	// validate or evolve it independently of the Go type.
	Schema struct {
		Name     string `json:"name"`
		Version  int    `json:"version"`
		SchemaID string `json:"schema_id,omitempty"`
	}

	// Actor identifies who or what caused the event.
	Actor struct {
		ID   string `json:"id"`
		Role string `json:"role"`
		IP   string `json:"ip"`
	}

	// Metadata is the per-event context captured by the ContextProvider.
	// Tags is defensively copied on construction so later mutation of the
	// caller's map can't reach inside an already-published envelope.
	Metadata struct {
		Source Source            `json:"source"`
		Actor  Actor             `json:"actor"`
		Trace  Trace             `json:"trace"`
		Schema Schema            `json:"schema"`
		Tags   map[string]string `json:"tags"`
	}

	// Envelope is the immutable wrapper around a business payload. Once
	// constructed by the Factory, no exported method mutates it.
	Envelope struct {
		EventID     EventID   `json:"event_id"`
		EventType   string    `json:"event_type"`
		Severity    Severity  `json:"severity"`
		Metadata    Metadata  `json:"metadata"`
		Payload     any       `json:"payload"`
		OccurredAt  time.Time `json:"occurred_at"`
		PublishedAt time.Time `json:"published_at"`
	}
)

// CopyTags returns a defensive copy of tags, never nil.
func CopyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}

	return out
}
