package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/flags-quiz-client/internal/store"
)

func runHistory(ctx context.Context, cfg *Config) (err error) {
	if cfg.databaseURL == "" {
		return errors.New("--database-url is required for history")
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.close()) }()

	st.resolveUsername(ctx, cfg, log)
	if err := validateUsername(cfg.username); err != nil {
		return err
	}

	matches, err := st.results.Recent(ctx, cfg.username, cfg.limit)
	if err != nil {
		return err
	}
	printHistory(os.Stdout, matches)
	return nil
}

func printHistory(w io.Writer, matches []store.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tROOM\tMODE\tPLACE\tSCORE\t")
	for _, m := range matches {
		place, score := "-", "-"
		for _, r := range m.Rows {
			if r.IsMe {
				place = fmt.Sprintf("%d/%d", r.Rank, len(m.Rows))
				score = fmt.Sprint(r.Score)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", m.FinishedAt.Local().Format("2006-01-02 15:04"), m.RoomCode, m.Mode, place, score)
	}
	_ = tw.Flush()
}
