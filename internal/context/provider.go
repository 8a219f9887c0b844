// Package context supplies per-call metadata (actor, trace, schema,
// tags) to the envelope factory without relying on goroutine-local
// state: everything rides on an explicit context.Context value bag.
package context

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/architeacher/outboxrelay/internal/domain"
)

type ctxKey int

const (
	correlationKey ctxKey = iota
	actorKey
	traceKey
	tagsKey
)

// Provider builds the Metadata stamped onto every outgoing envelope. It
// combines whatever the caller has placed on the context with schema
// information derived from the payload's type.
type Provider struct {
	source        domain.Source
	schemaVersion map[reflect.Type]int
	mu            sync.Mutex
}

// NewProvider builds a Provider carrying the process-wide Source
// identity (service name, environment, instance id, host, version).
func NewProvider(source domain.Source) *Provider {
	return &Provider{
		source:        source,
		schemaVersion: make(map[reflect.Type]int),
	}
}

// RegisterSchemaVersion pins the schema version reported for payloads
// of type T. Payloads with no registered version report version 1.
func (p *Provider) RegisterSchemaVersion(payload any, version int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.schemaVersion[reflect.TypeOf(payload)] = version
}

// CurrentMetadata assembles Metadata from the context's correlation,
// actor, trace, and tag values plus the payload's resolved schema.
func (p *Provider) CurrentMetadata(ctx context.Context, payload any) domain.Metadata {
	source := p.source
	if corrID, ok := Correlation(ctx); ok && corrID != "" {
		source.CorrelationID = corrID
	} else {
		source.CorrelationID = uuid.New().String()
	}

	return domain.Metadata{
		Source: source,
		Actor:  actorFromContext(ctx),
		Trace:  traceFromContext(ctx),
		Schema: p.schemaFor(payload),
		Tags:   domain.CopyTags(tagsFromContext(ctx)),
	}
}

func (p *Provider) schemaFor(payload any) domain.Schema {
	p.mu.Lock()
	version, ok := p.schemaVersion[reflect.TypeOf(payload)]
	p.mu.Unlock()

	if !ok {
		version = 1
	}

	return domain.Schema{
		Name:    reflect.TypeOf(payload).Name(),
		Version: version,
	}
}

// defaultActor is stamped on system-originated events: no authenticated
// caller is on the context.
var defaultActor = domain.Actor{ID: "SYSTEM", Role: "ROLE_SYSTEM", IP: "127.0.0.1"}

func actorFromContext(ctx context.Context) domain.Actor {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	if !ok {
		return defaultActor
	}

	if actor.ID == "" {
		actor.ID = defaultActor.ID
	}

	if actor.Role == "" {
		actor.Role = defaultActor.Role
	}

	if actor.IP == "" {
		actor.IP = defaultActor.IP
	}

	return actor
}

func traceFromContext(ctx context.Context) domain.Trace {
	trace, ok := ctx.Value(traceKey).(domain.Trace)
	if !ok {
		return domain.Trace{TraceID: "unknown", SpanID: "unknown"}
	}

	if trace.TraceID == "" {
		trace.TraceID = "unknown"
	}

	if trace.SpanID == "" {
		trace.SpanID = "unknown"
	}

	return trace
}

func tagsFromContext(ctx context.Context) map[string]string {
	tags, _ := ctx.Value(tagsKey).(map[string]string)

	return tags
}

// WithActor attaches actor identity to ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// WithTrace attaches trace identifiers to ctx.
func WithTrace(ctx context.Context, trace domain.Trace) context.Context {
	return context.WithValue(ctx, traceKey, trace)
}

// WithTags attaches free-form tags to ctx. The map is copied on read by
// CurrentMetadata, never on write, so callers must not mutate a map
// they've already attached.
func WithTags(ctx context.Context, tags map[string]string) context.Context {
	return context.WithValue(ctx, tagsKey, tags)
}
