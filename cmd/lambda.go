package cmd

import (
	"context"

	"github.com/collaby/collaby-bot/internal/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lambda",
	}
	cmd.AddCommand(
		cmdLambdaHTTP(),
		cmdLambdaEvent(),
	)
	bindEnvMap(cmd, lambdaEnvMapString)

	return cmd
}

// hydrated reloads the state before each invocation. Lambda instances are reused, so state saved by a
// concurrent service instance or a previous invocation must be picked up.
func hydrated[Req, Resp any](state *store.State, fn func(context.Context, Req) (Resp, error)) func(context.Context, Req) (Resp, error) {
	return func(ctx context.Context, req Req) (Resp, error) {
		if err := state.Hydrate(ctx); err != nil {
			var zero Resp
			return zero, errors.Wrap(err, "failed to restore state")
		}
		return fn(ctx, req)
	}
}
