package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"newsblaster/internal/history"
	"newsblaster/internal/run"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit   int    `short:"n" default:"20" help:"Number of runs to show."`
	Outcome string `help:"Only show runs with this outcome (published, unchanged, failed, canceled)."`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.New("run history is not configured; set history.path in the config file")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var entries []history.Entry
	if h.Outcome != "" {
		outcome, err := run.ParseOutcome(h.Outcome)
		if err != nil {
			return err
		}
		entries, err = store.RecentByOutcome(ctx, outcome, h.Limit)
		if err != nil {
			return err
		}
	} else {
		entries, err = store.Recent(ctx, h.Limit)
		if err != nil {
			return err
		}
	}

	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	return printEntries(os.Stdout, entries)
}

func printEntries(out io.Writer, entries []history.Entry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tITEMS\tFILES\tDURATION\tRUN ID\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			e.Started.Format("2006-01-02 15:04:05"),
			e.Outcome,
			e.Items,
			e.Files,
			e.Finished.Sub(e.Started).Round(time.Second),
			e.ID,
			e.Err,
		)
	}
	return w.Flush()
}
