package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/fwbuild/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	App   string `short:"a" help:"Limit to a single app"`
	Limit int    `short:"n" help:"Number of builds to show" default:"20"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("history is not configured (set history.path in %s)", root.Config)
	}

	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx := context.Background()
	var records []history.Record
	if h.App != "" {
		records, err = store.ByApp(ctx, h.App, h.Limit)
	} else {
		records, err = store.Recent(ctx, h.Limit)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No builds recorded")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-10s %-8s %6dms",
			rec.StartedAt.Format("2006-01-02 15:04:05"), rec.App, rec.Outcome, rec.DurationMS)
		if rec.Revision != "" {
			line += "  " + rec.Revision
		}
		if rec.BinarySHA != "" {
			line += fmt.Sprintf("  %.12s (%d bytes)", rec.BinarySHA, rec.BinarySize)
		}
		if rec.Error != "" {
			line += "  " + rec.Error
		}
		fmt.Println(line)
	}
	return nil
}
