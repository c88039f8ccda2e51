package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perspective-gateway/analyzer"
	"perspective-gateway/analyzer/domain"
	"perspective-gateway/analyzer/infra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score stdin lines with the Perspective API at a paced rate",
		Long: "Reads one comment per line from stdin, submits each at the given priority and prints\n" +
			"one JSON line per response, in the order the pacer releases them.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, _ := cmd.Flags().GetString("api-key")
			if apiKey == "" {
				apiKey = os.Getenv("PERSPECTIVE_API_KEY")
			}
			rawPriority, _ := cmd.Flags().GetString("priority")
			attrs, _ := cmd.Flags().GetStringSlice("attribute")
			langs, _ := cmd.Flags().GetStringSlice("language")
			tickRate, _ := cmd.Flags().GetDuration("tick-rate")
			endpoint, _ := cmd.Flags().GetString("endpoint")
			maxQueue, _ := cmd.Flags().GetInt("max-queue")
			dev, _ := cmd.Flags().GetBool("dev")

			priority, err := domain.ParsePriority(rawPriority)
			if err != nil {
				return err
			}

			cfg := analyzer.DefaultConfig(apiKey)
			cfg.TickRate = tickRate
			cfg.Endpoint = endpoint
			cfg.MaximumQueueSize = maxQueue

			zl, err := newZap(dev)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()

			client, err := analyzer.New(cfg, analyzer.WithLogger(zapr.NewLogger(zl)))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			opts := lineOptions{priority: priority}
			for _, a := range attrs {
				opts.attributes = append(opts.attributes, domain.Attribute(a))
			}
			for _, l := range langs {
				opts.languages = append(opts.languages, domain.LanguageCode(l))
			}
			return analyzeLines(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	f := cmd.Flags()
	f.String("api-key", "", "Perspective API key (default $PERSPECTIVE_API_KEY)")
	f.String("priority", "normal", "priority for every line: high, normal or low")
	f.StringSlice("attribute", []string{string(domain.Toxicity)}, "attribute to score (repeatable)")
	f.StringSlice("language", nil, "language hint (repeatable)")
	f.Duration("tick-rate", analyzer.DefaultConfig("").TickRate, "interval between releases (>= 1s)")
	f.String("endpoint", infra.DefaultEndpoint, "analyze endpoint URL")
	f.Int("max-queue", analyzer.DefaultConfig("").MaximumQueueSize, "maximum pending requests per priority")
	f.Bool("dev", false, "human-friendly logs")
	return cmd
}

func newZap(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
