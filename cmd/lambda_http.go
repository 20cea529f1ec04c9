package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/collaby/collaby-bot/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambdaHTTP() *cobra.Command {
	// cmd is the command for running the lambda-http mode.
	cmd := &cobra.Command{
		Use: "http",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logger.With("mode", config.ModeLambdaHTTP)
			a, err := newApp(cmd.Context(), logger, appOptions{persistBranches: true})
			if err != nil {
				return errors.Wrap(err, "failed to setup lambda")
			}
			defer a.close()

			logger.Info("lambda starting...")
			lambda.StartWithOptions(hydrated(a.state, a.runtime.Lambda),
				lambda.WithContext(cmd.Context()))

			return nil
		},
	}

	return cmd
}
