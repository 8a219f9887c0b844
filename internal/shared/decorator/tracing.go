package decorator

import (
	"context"

	"go.opentelemetry.io/otel/codes"
)

type commandTracingDecorator[C, R any] struct {
	base           CommandHandler[C, R]
	tracerProvider TracerProvider
}

func (d commandTracingDecorator[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	handlerType := generateActionName(cmd)

	ctx, span := d.tracerProvider.Tracer(tracerName).Start(ctx, handlerType)
	defer span.End()

	result, err := d.base.Handle(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}

type queryTracingDecorator[Q, R any] struct {
	base           QueryHandler[Q, R]
	tracerProvider TracerProvider
}

func (d queryTracingDecorator[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	handlerType := generateActionName(query)

	ctx, span := d.tracerProvider.Tracer(tracerName).Start(ctx, handlerType)
	defer span.End()

	result, err := d.base.Handle(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}
