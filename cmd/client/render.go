package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/httpapi"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

// terminal prints what changed between two projections.
type terminal struct {
	w       io.Writer
	server  string
	last    view.View
	started bool
	qrShown bool
}

func newTerminal(w io.Writer, server string) *terminal {
	return &terminal{w: w, server: server}
}

func (t *terminal) Render(v view.View) {
	prev := t.last
	t.last = v
	first := !t.started
	t.started = true

	if v.RoomError != "" && v.RoomError != prev.RoomError {
		fmt.Fprintf(t.w, "Error: %s\n", sentence(v.RoomError))
		return
	}

	if first || v.Phase != prev.Phase {
		t.phase(v)
	}

	if v.Phase == engine.PhaseWaiting && v.IsHost && !t.qrShown && v.RoomCode != "" {
		t.qrShown = true
		t.invite(v.RoomCode)
	}

	if v.PlayerCount != prev.PlayerCount && !v.GameOver && v.RoomCode != "" {
		fmt.Fprintf(t.w, "Players: %d\n", v.PlayerCount)
	}

	if v.Overlay == engine.OverlayCountdown && (v.Countdown != prev.Countdown || prev.Overlay != engine.OverlayCountdown) {
		fmt.Fprintf(t.w, "Starting in %d...\n", v.Countdown)
	}

	if (v.ShowMCQ || v.ShowMap) && (v.FlagURL != prev.FlagURL || v.Progress != prev.Progress) {
		t.question(v)
	}

	if v.Feedback != nil && (prev.Feedback == nil || *v.Feedback != *prev.Feedback) {
		if v.Feedback.IsCorrect {
			fmt.Fprintf(t.w, "Correct! %s\n", v.Feedback.Correct)
		} else {
			fmt.Fprintf(t.w, "Wrong: you said %s, it was %s\n", v.Feedback.Chosen, v.Feedback.Correct)
		}
	}

	if v.Phase == engine.PhaseInProgress && v.Remaining != prev.Remaining && clockWorthShowing(v.Remaining) {
		fmt.Fprintf(t.w, "Time left: %s\n", v.Clock)
	}

	if v.GameOver && !prev.GameOver {
		t.leaderboard(v.Leaderboard)
		fmt.Fprintln(t.w, "Type q to quit.")
	}
}

func clockWorthShowing(remaining int) bool {
	return remaining%60 == 0 || remaining <= 10
}

func (t *terminal) phase(v view.View) {
	switch v.Phase {
	case engine.PhaseAwaitingRoomInfo:
		fmt.Fprintln(t.w, "Loading room...")
	case engine.PhaseWaiting:
		fmt.Fprintf(t.w, "Room %s, host %s, %d questions, %d min, %s mode\n",
			v.RoomCode, v.Host, v.NumQuestions, v.TimeLimit, v.Mode)
		if v.CanStart {
			fmt.Fprintln(t.w, "Type start when everyone is in.")
		} else {
			fmt.Fprintln(t.w, "Waiting for the host to start the game.")
		}
	case engine.PhaseInProgress:
		fmt.Fprintln(t.w, "Go!")
	case engine.PhaseFinished:
		switch v.Cause {
		case engine.CauseTimeOver:
			fmt.Fprintln(t.w, "Time's up!")
		case engine.CauseAllPlayersFinished:
			fmt.Fprintln(t.w, "Everyone has finished!")
		}
	}
}

func (t *terminal) invite(code string) {
	link := httpapi.InviteLink(t.server, code)
	fmt.Fprintf(t.w, "Invite: %s\n", link)
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return
	}
	fmt.Fprint(t.w, q.ToSmallString(false))
}

func (t *terminal) question(v view.View) {
	fmt.Fprintf(t.w, "%s  [%s]\n", v.Progress, v.Clock)
	fmt.Fprintf(t.w, "Flag: %s\n", flagURL(t.server, v.FlagURL))
	if v.ShowMCQ {
		for i, o := range v.Options {
			fmt.Fprintf(t.w, "  %d) %s\n", i+1, o)
		}
		return
	}
	fmt.Fprintln(t.w, "Type the country name.")
}

func (t *terminal) leaderboard(rows []view.Row) {
	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tSCORE\t")
	for _, r := range rows {
		name := r.Username
		if r.IsMe {
			name += " (you)"
		}
		if r.Completed {
			name += " ✓"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t\n", r.Rank, name, r.Score)
	}
	_ = tw.Flush()
}

func flagURL(server, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(server, "/") + "/" + strings.TrimPrefix(path, "/")
}

// parseAnswer turns a typed line into an answer. In MCQ mode a number picks
// the matching option.
func parseAnswer(line string, v view.View) string {
	line = strings.TrimSpace(line)
	if !v.ShowMCQ {
		return line
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(v.Options) {
		return v.Options[n-1]
	}
	for _, o := range v.Options {
		if strings.EqualFold(o, line) {
			return o
		}
	}
	return line
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
