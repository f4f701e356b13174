// Package solo runs a single-player game locally. The question list carries
// its own answers, so every answer is judged on the client.
package solo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/httpapi"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

var ErrNoQuestions = errors.New("no questions")
var ErrGameDone = errors.New("game is done")
var ErrEmptyAnswer = errors.New("empty answer")

type Result struct {
	Index   int
	Chosen  string
	Correct string
}

func (r Result) IsCorrect() bool { return strings.EqualFold(r.Chosen, r.Correct) }

type Game struct {
	mode      engine.Mode
	questions []httpapi.SoloQuestion
	index     int
	score     int
	results   []Result
}

func New(mode engine.Mode, questions []httpapi.SoloQuestion) (*Game, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &Game{mode: mode, questions: questions}, nil
}

// Current returns the question being asked. ok is false once the game is done.
func (g *Game) Current() (q httpapi.SoloQuestion, ok bool) {
	if g.Done() {
		return httpapi.SoloQuestion{}, false
	}
	return g.questions[g.index], true
}

// Answer judges choice against the current question and moves on.
func (g *Game) Answer(choice string) (Result, error) {
	q, ok := g.Current()
	if !ok {
		return Result{}, ErrGameDone
	}
	if strings.TrimSpace(choice) == "" {
		return Result{}, ErrEmptyAnswer
	}

	r := Result{Index: g.index, Chosen: choice, Correct: q.Answer}
	if r.IsCorrect() {
		g.score++
	}
	g.results = append(g.results, r)
	g.index++
	return r, nil
}

func (g *Game) Mode() engine.Mode { return g.mode }
func (g *Game) Score() int        { return g.score }
func (g *Game) Total() int        { return len(g.questions) }
func (g *Game) Done() bool        { return g.index >= len(g.questions) }
func (g *Game) Results() []Result { return append([]Result(nil), g.results...) }
func (g *Game) ShowOptions() bool { return g.mode == engine.ModeMCQ }

func (g *Game) Progress() string {
	i := g.index
	if i >= len(g.questions) {
		i = len(g.questions) - 1
	}
	return view.Progress(i, len(g.questions))
}

func (g *Game) Summary() string {
	return fmt.Sprintf("Your score: %d/%d", g.score, len(g.questions))
}
