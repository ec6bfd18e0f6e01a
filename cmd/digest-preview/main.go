package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mikey/inbox-digest/internal/adapters/state"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run classifies the input and prints the digest it would produce
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	normalizer *core.Normalizer,
	classifier *core.Classifier,
	tracker *core.Tracker,
	scheduler *core.Scheduler,
	formatter *core.Formatter,
) error {
	defer logger.Sync()

	now := time.Now()
	if flags.Now != "" {
		t, err := time.Parse(time.RFC3339, flags.Now)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		now = t
	}
	local := now.In(scheduler.Location())

	records, err := readInputs(flags.InputFiles, flags.Format, os.Stdin)
	if err != nil {
		return err
	}
	logger.Debug("Read input records", zap.Int("count", len(records)))

	ctx := context.Background()
	items := classifier.ClassifyAll(ctx, core.Aggregate(normalizer.NormalizeAll(records)), local)

	st := core.NewState()
	if flags.StateFile != "" {
		store, err := state.NewFileStore(flags.StateFile, logger)
		if err != nil {
			return err
		}
		if st, err = store.Load(ctx); err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
	}
	notify := tracker.Select(st, items, now)

	text, err := formatter.Format(notify, core.SlotID(local), local)
	switch {
	case errors.Is(err, core.ErrEmptyDigest):
		fmt.Println("(nothing to notify)")
	case err != nil:
		return err
	default:
		fmt.Println(text)
	}

	if flags.Table {
		fmt.Println()
		printTable(os.Stdout, items, notify)
	}
	return nil
}

func printTable(out io.Writer, items, notify []core.ClassifiedItem) {
	notified := make(map[string]bool, len(notify))
	for _, item := range notify {
		notified[item.GroupKey] = true
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tSCORE\tCOUNT\tNOTIFY\tBY\tSUBJECT\tSENDER")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\t%s\t%s\n",
			item.Bucket(), item.Score, item.Count, notified[item.GroupKey], item.ScoredBy,
			clip(item.Subject, 50), clip(item.Sender, 40))
	}
	w.Flush()
}

func clip(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
