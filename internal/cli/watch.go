package cli

import (
	"fmt"
	"time"

	"cvforge/internal/common"
	"cvforge/internal/content"
	"cvforge/internal/document"
	"cvforge/internal/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-sanitize and re-preview a file whenever it changes",
	Long: `Watch a CV or TOR file and print its sanitized preview every time it is
saved. Bursts of writes are debounced, and atomic saves (write to a temp
file, then rename) are picked up. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &watchConfig)
	},
	RunE: runWatch,
}

var (
	watchConfig   common.CommandConfig
	watchKind     string
	watchDebounce time.Duration
)

func init() {
	addOutputFlags(watchCmd, &watchConfig)
	watchCmd.Flags().StringVar(&watchKind, "kind", "cv", "Document kind: cv or tor")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Debounce delay (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	output := common.NewOutputHandler(logger)
	ctx := cmd.Context()

	delay := watchDebounce
	if delay <= 0 {
		delay = cfg.Watch.DebounceDelay
	}

	refresher := watch.NewRefresher(uploadValidator(cfg), document.NewExtractor(logger), content.ParseKind(watchKind), logger)
	refresh := func() {
		snapshot, err := refresher.Refresh(ctx, args[0])
		if err != nil {
			logger.LogError(err, "Refresh failed", "file", args[0])
			return
		}
		_, _ = fmt.Fprintf(watchConfig.Out, "--- %s refreshed at %s ---\n", args[0], snapshot.Refreshed.Format(time.TimeOnly))
		if err := output.HandleOutput(snapshot.Blocks, watchConfig); err != nil {
			logger.LogError(err, "Failed to print preview")
		}
	}

	watcher, err := watch.New(args[0], delay, refresh, logger)
	if err != nil {
		return err
	}

	refresh()
	logger.Info("Watching file for changes", "file", watcher.Path(), "debounce", delay)
	return watcher.Run(ctx)
}
