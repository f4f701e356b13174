package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/httpapi"
	"github.com/DoyleJ11/flags-quiz-client/internal/solo"
	"github.com/DoyleJ11/flags-quiz-client/internal/store"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

func runPlay(ctx context.Context, cfg *Config) (err error) {
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

	mode, _ := cfg.gameMode()
	qs, err := httpapi.NewClient(cfg.server, log).FetchQuestions(ctx, cfg.questions, mode)
	if err != nil {
		return err
	}
	g, err := solo.New(mode, qs)
	if err != nil {
		return err
	}
	st.remember(ctx, store.PrefMode, string(mode), log)

	return playSolo(ctx, g, cfg.server, readLines(os.Stdin), os.Stdout, log)
}

func playSolo(ctx context.Context, g *solo.Game, server string, lines <-chan string, w io.Writer, log *zap.Logger) error {
	for !g.Done() {
		q, _ := g.Current()
		fmt.Fprintln(w, g.Progress())
		fmt.Fprintf(w, "Flag: %s\n", flagURL(server, q.FlagURL))
		if g.ShowOptions() {
			for i, o := range q.Options {
				fmt.Fprintf(w, "  %d) %s\n", i+1, o)
			}
		} else {
			fmt.Fprintln(w, "Type the country name.")
		}

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}
		if q := strings.ToLower(strings.TrimSpace(line)); q == "q" || q == "quit" {
			return nil
		}

		answer := parseAnswer(line, view.View{ShowMCQ: g.ShowOptions(), Options: q.Options})
		r, err := g.Answer(answer)
		if errors.Is(err, solo.ErrEmptyAnswer) {
			log.Debug("empty answer ignored")
			continue
		}
		if err != nil {
			return err
		}
		if r.IsCorrect() {
			fmt.Fprintln(w, "Correct!")
		} else {
			fmt.Fprintf(w, "Wrong, it was %s\n", r.Correct)
		}
	}

	fmt.Fprintln(w, g.Summary())
	return nil
}
