package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/flags-quiz-client/internal/httpapi"
	"github.com/DoyleJ11/flags-quiz-client/internal/protocol"
	"github.com/DoyleJ11/flags-quiz-client/internal/session"
	"github.com/DoyleJ11/flags-quiz-client/internal/store"
	"github.com/DoyleJ11/flags-quiz-client/internal/ws"
)

var errQuit = errors.New("quit")

func runJoin(ctx context.Context, cfg *Config) (err error) {
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
	if err := cfg.validateJoin(); err != nil {
		return err
	}
	cfg.username = strings.TrimSpace(cfg.username)
	log = log.With(zap.String("username", cfg.username))

	endpoint, err := ws.Endpoint(cfg.server)
	if err != nil {
		return err
	}
	conn, err := ws.Dial(ctx, endpoint, protocol.JoinRoom{Username: cfg.username, RoomID: cfg.room}, ws.Options{Logger: log})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, conn.Close()) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := session.New(ctx, session.Config{
		Username: cfg.username,
		RoomID:   cfg.room,
		Sender:   conn,
		Logger:   log,
	})
	conn.OnMessage(s.Deliver)
	conn.OnClose(s.TransportClosed)

	api := httpapi.NewClient(cfg.server, log)
	term := newTerminal(os.Stdout, cfg.server)
	lines := readLines(os.Stdin)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return conn.Run(gctx) })

	g.Go(func() error {
		room, players, err := api.FetchRoom(gctx, cfg.room)
		if err != nil {
			return s.FailRoom(err)
		}
		return s.LoadRoom(room, players)
	})

	g.Go(func() error { return watch(gctx, s, term, st, log) })

	g.Go(func() error {
		err := prompt(gctx, s, lines, os.Stdout)
		if errors.Is(err, errQuit) {
			s.Stop()
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case <-s.Done():
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if cfg.listen != "" {
		srv := &http.Server{
			Addr:              cfg.listen,
			Handler:           httpapi.SetupRoutes(s, cfg.server, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("view server listening", zap.String("addr", cfg.listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	st.remember(ctx, store.PrefUsername, cfg.username, log)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watch renders every snapshot and saves the match once it is over.
func watch(ctx context.Context, s *session.Session, term *terminal, st *stores, log *zap.Logger) error {
	saved := false
	for {
		out := make(chan session.Snapshot, 16)
		id, err := s.Watch(out)
		if err != nil {
			return nil
		}

	recv:
		for {
			select {
			case <-s.Done():
				return nil
			case <-ctx.Done():
				s.Unwatch(id)
				return nil
			case snap, ok := <-out:
				if !ok {
					break recv
				}
				term.Render(snap.View)
				if snap.View.GameOver && !saved && st.results != nil {
					saved = true
					if _, err := st.results.Save(ctx, store.MatchFromView(snap.View, time.Now())); err != nil {
						log.Error("saving match result", zap.Error(err))
					}
				}
			}
		}

		select {
		case <-s.Done():
			return nil
		case <-ctx.Done():
			return nil
		default:
			log.Debug("watcher dropped, resubscribing")
		}
	}
}

// prompt turns typed lines into start and answer actions.
func prompt(ctx context.Context, s *session.Session, lines <-chan string, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch strings.ToLower(line) {
			case "":
				continue
			case "q", "quit", "exit":
				return errQuit
			case "start":
				if err := s.Start(ctx); err != nil {
					fmt.Fprintf(w, "Cannot start: %v\n", err)
				}
				continue
			}

			snap, err := s.Latest(ctx)
			if err != nil {
				return nil
			}
			if err := s.Answer(ctx, parseAnswer(line, snap.View)); err != nil {
				fmt.Fprintf(w, "Answer not sent: %v\n", err)
			}
		}
	}
}

// readLines feeds stdin into a channel so callers can select on it.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}
