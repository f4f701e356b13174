package engine

import (
	"errors"
	"maps"
)

var ErrRoomAlreadyLoaded = errors.New("room already loaded")
var ErrInvalidRoom = errors.New("invalid room")
var ErrWrongPhase = errors.New("wrong phase")
var ErrIndexOutOfRange = errors.New("question index out of range")
var ErrIndexRegressed = errors.New("question index went backwards")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrNegativeCountdown = errors.New("negative countdown")

type Phase string

const (
	PhaseAwaitingRoomInfo Phase = "awaiting_room_info"
	PhaseWaiting          Phase = "waiting"
	PhaseCountdown        Phase = "countdown"
	PhaseInProgress       Phase = "in_progress"
	PhaseFinished         Phase = "finished"
)

type Mode string

const (
	ModeMCQ Mode = "MCQ"
	ModeMap Mode = "MAP"
)

// TerminalCause records which path reached Finished first.
type TerminalCause string

const (
	CauseNone               TerminalCause = ""
	CauseTimeOver           TerminalCause = "time_over"
	CauseAllPlayersFinished TerminalCause = "all_players_finished"
)

type Overlay string

const (
	OverlayNone      Overlay = ""
	OverlayCountdown Overlay = "countdown"
	OverlayRoomError Overlay = "room_error"
)

// Room is fetched once at join time and never changes afterwards.
type Room struct {
	Code         string
	Host         string
	NumQuestions int
	TimeLimit    int // minutes
	Mode         Mode
}

type Player struct {
	ID        string
	Username  string
	Score     int
	Completed bool
	Seq       int // roster insertion order, used to break leaderboard ties
}

type Question struct {
	Mode    Mode
	FlagURL string
	Options []string
}

// Feedback is the last answer result. Display only, never merged into scores.
type Feedback struct {
	Index   int
	Chosen  string
	Correct string
}

func (f Feedback) IsCorrect() bool { return f.Chosen == f.Correct }

type State struct {
	Phase            Phase
	Room             Room
	RoomLoaded       bool
	Players          map[string]Player
	QuestionIndex    int // -1 until the first question is requested
	Question         *Question
	Feedback         *Feedback
	InputDisabled    bool
	Countdown        int
	Overlay          Overlay
	RoomError        string
	RemainingSeconds int
	Started          bool
	PendingStart     bool // gameStarted arrived before the room details
	IsHost           bool
	LocalUsername    string
	LocalPlayerID    string
	LocalCompleted   bool
	Cause            TerminalCause

	nextSeq int
}

func NewState(username string) State {
	return State{
		Phase:         PhaseAwaitingRoomInfo,
		Players:       map[string]Player{},
		QuestionIndex: -1,
		LocalUsername: username,
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	c := s
	c.Players = maps.Clone(s.Players)
	if s.Question != nil {
		q := *s.Question
		q.Options = append([]string(nil), s.Question.Options...)
		c.Question = &q
	}
	if s.Feedback != nil {
		f := *s.Feedback
		c.Feedback = &f
	}
	return c
}

// SeedRoom applies the room-details snapshot fetched at join time.
func (s *State) SeedRoom(room Room, players []Player) error {
	if s.RoomLoaded {
		return ErrRoomAlreadyLoaded
	}
	if room.NumQuestions <= 0 || room.TimeLimit <= 0 {
		return ErrInvalidRoom
	}
	if room.Mode != ModeMCQ && room.Mode != ModeMap {
		return ErrInvalidRoom
	}

	s.Room = room
	s.RoomLoaded = true
	s.IsHost = s.LocalUsername != "" && s.LocalUsername == room.Host
	s.RoomError = ""
	if s.Overlay == OverlayRoomError {
		s.Overlay = OverlayNone
	}

	for _, p := range players {
		s.UpsertPlayer(p.ID, p.Username)
		if p.Score > 0 {
			_, _ = s.ApplyScore(p.Username, p.Score)
		}
	}

	// Frames can race the HTTP fetch; only the initial phase moves here.
	if s.Phase == PhaseAwaitingRoomInfo {
		s.Phase = PhaseWaiting
	}
	return nil
}

func (s *State) FailRoomLookup(msg string) {
	s.RoomError = msg
	s.Overlay = OverlayRoomError
}

// UpsertPlayer adds a roster entry or corrects the name of an existing one.
// It reports whether anything changed.
func (s *State) UpsertPlayer(id, username string) bool {
	if p, ok := s.Players[id]; ok {
		if p.Username == username {
			return false
		}
		p.Username = username
		s.Players[id] = p
		return true
	}

	s.Players[id] = Player{ID: id, Username: username, Seq: s.nextSeq}
	s.nextSeq++

	if s.LocalPlayerID == "" && username == s.LocalUsername {
		s.LocalPlayerID = id
	}
	return true
}

// RemovePlayer drops id only when the recorded name matches; a mismatch means
// the event is stale.
func (s *State) RemovePlayer(id, username string) bool {
	p, ok := s.Players[id]
	if !ok || p.Username != username {
		return false
	}
	delete(s.Players, id)
	return true
}

func (s *State) playerByName(username string) (Player, bool) {
	for _, p := range s.Players {
		if p.Username == username {
			return p, true
		}
	}
	return Player{}, false
}

// ApplyScore keeps the highest score seen for username. Scores never go down.
func (s *State) ApplyScore(username string, score int) (bool, error) {
	p, ok := s.playerByName(username)
	if !ok {
		return false, ErrUnknownPlayer
	}
	if score <= p.Score {
		return false, nil
	}
	p.Score = score
	s.Players[p.ID] = p
	return true, nil
}

func (s *State) MarkCompleted(username string) (bool, error) {
	if username == s.LocalUsername {
		s.LocalCompleted = true
		s.Overlay = OverlayNone
	}
	p, ok := s.playerByName(username)
	if !ok {
		return false, ErrUnknownPlayer
	}
	if p.Completed {
		return false, nil
	}
	p.Completed = true
	s.Players[p.ID] = p
	return true, nil
}

func (s *State) SetCountdown(count int) error {
	if count < 0 {
		return ErrNegativeCountdown
	}
	switch s.Phase {
	case PhaseAwaitingRoomInfo, PhaseWaiting, PhaseCountdown:
	default:
		return ErrWrongPhase
	}
	s.Phase = PhaseCountdown
	s.Countdown = count
	s.Overlay = OverlayCountdown
	return nil
}

// SettleCountdown hides the countdown overlay once the zero tick has been on
// screen long enough. A room still counting down enters InProgress without
// waiting for the server.
func (s *State) SettleCountdown() {
	if s.Overlay == OverlayCountdown {
		s.Overlay = OverlayNone
	}
	if s.Phase == PhaseCountdown {
		s.Phase = PhaseInProgress
	}
}

// Start marks the match as started. It returns false when the match already
// started or ended, so the start side effects run at most once.
func (s *State) Start() bool {
	if s.Started || s.Phase == PhaseFinished {
		return false
	}
	s.Started = true
	s.PendingStart = false
	s.Phase = PhaseInProgress
	s.Countdown = 0
	if s.Overlay == OverlayCountdown {
		s.Overlay = OverlayNone
	}
	s.RemainingSeconds = s.Room.TimeLimit * 60
	return true
}

// AdvanceTo moves the question cursor. The cursor never goes backwards and
// never leaves [0, NumQuestions).
func (s *State) AdvanceTo(index int) error {
	if index < 0 || index >= s.Room.NumQuestions {
		return ErrIndexOutOfRange
	}
	if index < s.QuestionIndex {
		return ErrIndexRegressed
	}
	s.QuestionIndex = index
	return nil
}

// LastQuestion reports whether the cursor sits on the final question.
func (s *State) LastQuestion() bool {
	return s.QuestionIndex >= s.Room.NumQuestions-1
}

func (s *State) SetQuestion(q Question) error {
	if !s.Started {
		return ErrWrongPhase
	}
	q.Mode = s.Room.Mode
	s.Question = &q
	s.Feedback = nil
	s.InputDisabled = s.Phase == PhaseFinished
	return nil
}

func (s *State) RecordAnswer(chosen, correct string) error {
	if !s.Started || s.QuestionIndex < 0 {
		return ErrWrongPhase
	}
	s.Feedback = &Feedback{Index: s.QuestionIndex, Chosen: chosen, Correct: correct}
	s.InputDisabled = true
	return nil
}

func (s *State) SetRemaining(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.RemainingSeconds = seconds
}

// Finish enters the terminal phase. Only the first cause sticks; later calls
// return false.
func (s *State) Finish(cause TerminalCause) bool {
	if s.Phase == PhaseFinished {
		return false
	}
	s.Phase = PhaseFinished
	s.Cause = cause
	s.InputDisabled = true
	if s.Overlay == OverlayCountdown {
		s.Overlay = OverlayNone
	}
	if cause == CauseTimeOver {
		s.RemainingSeconds = 0
	}
	return true
}

// IsLocal reports whether p is the player running this client.
func (s *State) IsLocal(p Player) bool {
	if s.LocalPlayerID != "" {
		return p.ID == s.LocalPlayerID
	}
	return p.Username == s.LocalUsername
}
