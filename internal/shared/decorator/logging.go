package decorator

import (
	"context"
	"fmt"
)

type commandLoggingDecorator[C, R any] struct {
	base   CommandHandler[C, R]
	logger Logger
}

func (d commandLoggingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	handlerType := generateActionName(cmd)

	logger := d.logger.With().Str("command", handlerType).Logger()
	logger.Debug().Msg("executing command")

	defer func() {
		if err != nil {
			logger.Error().Err(err).Msg("failed to execute command")

			return
		}

		logger.Debug().Msg("command executed successfully")
	}()

	return d.base.Handle(ctx, cmd)
}

type queryLoggingDecorator[Q, R any] struct {
	base   QueryHandler[Q, R]
	logger Logger
}

func (d queryLoggingDecorator[Q, R]) Handle(ctx context.Context, query Q) (result R, err error) {
	handlerType := generateActionName(query)

	logger := d.logger.With().Str("query", handlerType).Logger()
	logger.Debug().Msg("executing query")

	defer func() {
		if err != nil {
			logger.Error().Err(err).Msg("failed to execute query")

			return
		}

		logger.Debug().Msg("query executed successfully")
	}()

	return d.base.Handle(ctx, query)
}

func generateActionName(handler any) string {
	return fmt.Sprintf("%T", handler)
}
