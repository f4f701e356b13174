package view

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
)

type Row struct {
	Rank      int    `json:"rank"`
	ID        string `json:"id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	IsMe      bool   `json:"is_me"`
	Completed bool   `json:"completed"`
}

type Feedback struct {
	Chosen    string `json:"chosen"`
	Correct   string `json:"correct"`
	IsCorrect bool   `json:"is_correct"`
}

// View is everything a renderer may read. It is rebuilt from engine.State on
// every dispatch and never written back.
type View struct {
	Phase        engine.Phase         `json:"phase"`
	RoomCode     string               `json:"room_code"`
	Host         string               `json:"host"`
	Mode         engine.Mode          `json:"mode"`
	NumQuestions int                  `json:"num_questions"`
	TimeLimit    int                  `json:"time_limit"`
	PlayerCount  int                  `json:"player_count"`
	Username     string               `json:"username"`
	IsHost       bool                 `json:"is_host"`
	CanStart     bool                 `json:"can_start"`
	Overlay      engine.Overlay       `json:"overlay,omitempty"`
	Countdown    int                  `json:"countdown"`
	RoomError    string               `json:"room_error,omitempty"`
	Progress     string               `json:"progress,omitempty"`
	ShowMCQ      bool                 `json:"show_mcq"`
	ShowMap      bool                 `json:"show_map"`
	FlagURL      string               `json:"flag_url,omitempty"`
	Options      []string             `json:"options,omitempty"`
	InputLocked  bool                 `json:"input_locked"`
	Feedback     *Feedback            `json:"feedback,omitempty"`
	Remaining    int                  `json:"remaining_seconds"`
	Clock        string               `json:"clock"`
	Leaderboard  []Row                `json:"leaderboard"`
	GameOver     bool                 `json:"game_over"`
	Cause        engine.TerminalCause `json:"cause,omitempty"`
}

func Project(s engine.State) View {
	v := View{
		Phase:        s.Phase,
		RoomCode:     s.Room.Code,
		Host:         s.Room.Host,
		Mode:         s.Room.Mode,
		NumQuestions: s.Room.NumQuestions,
		TimeLimit:    s.Room.TimeLimit,
		PlayerCount:  len(s.Players),
		Username:     s.LocalUsername,
		IsHost:       s.IsHost,
		CanStart:     s.IsHost && s.Phase == engine.PhaseWaiting,
		Overlay:      s.Overlay,
		Countdown:    s.Countdown,
		RoomError:    s.RoomError,
		InputLocked:  s.InputDisabled,
		Remaining:    s.RemainingSeconds,
		Clock:        Clock(s.RemainingSeconds),
		Leaderboard:  Leaderboard(s),
		GameOver:     s.Phase == engine.PhaseFinished,
		Cause:        s.Cause,
	}

	if s.QuestionIndex >= 0 {
		v.Progress = Progress(s.QuestionIndex, s.Room.NumQuestions)
	}

	if s.Question != nil && s.Phase != engine.PhaseFinished {
		v.ShowMCQ = s.Question.Mode == engine.ModeMCQ
		v.ShowMap = s.Question.Mode == engine.ModeMap
		v.FlagURL = s.Question.FlagURL
		if v.ShowMCQ {
			v.Options = slices.Clone(s.Question.Options)
		}
	}

	if s.Feedback != nil {
		v.Feedback = &Feedback{
			Chosen:    s.Feedback.Chosen,
			Correct:   s.Feedback.Correct,
			IsCorrect: s.Feedback.IsCorrect(),
		}
	}
	return v
}

// Leaderboard ranks players by descending score. Ties keep roster order.
func Leaderboard(s engine.State) []Row {
	players := make([]engine.Player, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	slices.SortFunc(players, func(a, b engine.Player) int { return cmp.Compare(a.Seq, b.Seq) })
	slices.SortStableFunc(players, func(a, b engine.Player) int { return cmp.Compare(b.Score, a.Score) })

	rows := make([]Row, len(players))
	for i, p := range players {
		rows[i] = Row{
			Rank:      i + 1,
			ID:        p.ID,
			Username:  p.Username,
			Score:     p.Score,
			IsMe:      s.IsLocal(p),
			Completed: p.Completed,
		}
	}
	return rows
}

func Progress(index, total int) string {
	return fmt.Sprintf("Question %d of %d", index+1, total)
}

// Clock formats seconds as m:ss.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
