package decorator

import (
	"context"
	"strings"
)

type commandMetricsDecorator[C, R any] struct {
	base   CommandHandler[C, R]
	client MetricsClient
}

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	actionName := strings.ToLower(generateActionName(cmd))

	result, err := d.base.Handle(ctx, cmd)

	d.client.Inc(metricName(actionName, err), 1)

	return result, err
}

type queryMetricsDecorator[Q, R any] struct {
	base   QueryHandler[Q, R]
	client MetricsClient
}

func (d queryMetricsDecorator[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	actionName := strings.ToLower(generateActionName(query))

	result, err := d.base.Handle(ctx, query)

	d.client.Inc(metricName(actionName, err), 1)

	return result, err
}

func metricName(actionName string, err error) string {
	if err != nil {
		return actionName + ".failure"
	}

	return actionName + ".success"
}
