package dispatcher

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/protocol"
	"github.com/DoyleJ11/flags-quiz-client/internal/timer"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

var ErrNotHost = errors.New("only the host can start the game")
var ErrGameOver = errors.New("game is over")
var ErrNoQuestion = errors.New("no question to answer")
var ErrInputLocked = errors.New("answer already submitted")
var ErrClosed = errors.New("session closed")

// Hold windows between an answer result and the next question request, long
// enough for the feedback animation of each mode.
const (
	HoldMCQ         = 2 * time.Second
	HoldMap         = 4 * time.Second
	CountdownSettle = time.Second
)

// Sender delivers requests to the server. It must not block and never fails
// towards the caller.
type Sender interface {
	Send(req protocol.Request)
}

type Renderer interface {
	Render(v view.View)
}

type Config struct {
	Username  string
	RoomID    string
	Sender    Sender
	Renderer  Renderer
	Scheduler timer.Scheduler
	Exec      timer.Exec
	Logger    *zap.Logger
}

// Dispatcher is the only writer of the session state. It is not safe for
// concurrent use: the owner must call it from one goroutine, and Exec must
// bring timer callbacks back onto that goroutine.
type Dispatcher struct {
	state  engine.State
	roomID string
	send   Sender
	render Renderer
	log    *zap.Logger

	clock  *timer.Countdown
	holds  *timer.Holds
	settle *timer.Holds
	closed bool
}

func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sched := cfg.Scheduler
	if sched == nil {
		sched = timer.Real{}
	}
	exec := cfg.Exec
	if exec == nil {
		exec = timer.Inline
	}
	return &Dispatcher{
		state:  engine.NewState(cfg.Username),
		roomID: cfg.RoomID,
		send:   cfg.Sender,
		render: cfg.Renderer,
		log:    log,
		clock:  timer.NewCountdown(sched, exec),
		holds:  timer.NewHolds(sched, exec),
		settle: timer.NewHolds(sched, exec),
	}
}

func (d *Dispatcher) State() engine.State { return d.state.Clone() }

func (d *Dispatcher) View() view.View { return view.Project(d.state) }

func (d *Dispatcher) publish() {
	if d.render != nil {
		d.render.Render(view.Project(d.state))
	}
}

// LoadRoom applies the room-details snapshot and moves out of AwaitingRoomInfo.
func (d *Dispatcher) LoadRoom(room engine.Room, players []engine.Player) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.state.SeedRoom(room, players); err != nil {
		d.log.Warn("room details rejected", zap.String("room", room.Code), zap.Error(err))
		return err
	}
	d.log.Debug("room loaded",
		zap.String("room", room.Code),
		zap.String("mode", string(room.Mode)),
		zap.Int("questions", room.NumQuestions),
		zap.Bool("host", d.state.IsHost),
	)

	if d.state.PendingStart {
		d.begin()
	}
	d.publish()
	return nil
}

// FailRoomLookup surfaces a join-time failure as a blocking room error.
func (d *Dispatcher) FailRoomLookup(err error) {
	if d.closed {
		return
	}
	d.log.Warn("room lookup failed", zap.Error(err))
	d.state.FailRoomLookup(err.Error())
	d.publish()
}

// HandleFrame decodes one raw frame and dispatches it. Malformed frames are
// dropped without touching state.
func (d *Dispatcher) HandleFrame(raw []byte) {
	ev, err := protocol.Decode(raw)
	if err != nil {
		d.log.Warn("dropping malformed frame", zap.Error(err), zap.ByteString("frame", raw))
		return
	}
	d.Handle(ev)
}

func (d *Dispatcher) Handle(ev protocol.Event) {
	if d.closed {
		return
	}

	changed := true
	switch e := ev.(type) {
	case protocol.PlayerJoined:
		changed = d.state.UpsertPlayer(e.ID, e.Username)

	case protocol.PlayerLeft:
		changed = d.state.RemovePlayer(e.ID, e.Username)
		if !changed {
			d.log.Debug("ignoring stale leave", zap.String("id", e.ID), zap.String("username", e.Username))
		}

	case protocol.Countdown:
		if err := d.state.SetCountdown(e.Count); err != nil {
			d.log.Debug("ignoring countdown", zap.Int("count", e.Count), zap.String("phase", string(d.state.Phase)))
			return
		}
		if e.Count == 0 {
			d.settle.Schedule(0, CountdownSettle, func() {
				d.state.SettleCountdown()
				d.publish()
			})
		}

	case protocol.GameStarted:
		if !d.state.RoomLoaded {
			d.log.Warn("game started before room details; deferring")
			d.state.PendingStart = true
			return
		}
		changed = d.begin()

	case protocol.NewQuestion:
		if err := d.state.SetQuestion(engine.Question{FlagURL: e.FlagURL, Options: e.Options}); err != nil {
			d.log.Warn("question before game start", zap.String("flag_url", e.FlagURL))
			return
		}

	case protocol.AnswerResult:
		changed = d.answerResult(e)

	case protocol.Score:
		var err error
		changed, err = d.state.ApplyScore(e.Username, e.Score)
		if err != nil {
			d.log.Warn("score for unknown player", zap.String("username", e.Username), zap.Int("score", e.Score))
			return
		}

	case protocol.FinishedGame:
		var err error
		changed, err = d.state.MarkCompleted(e.Username)
		if err != nil {
			d.log.Warn("finish for unknown player", zap.String("username", e.Username))
		}
		if e.Username == d.state.LocalUsername {
			changed = true
		}

	case protocol.TimeOver:
		changed = d.finish(engine.CauseTimeOver)

	case protocol.AllPlayersFinished:
		changed = d.finish(engine.CauseAllPlayersFinished)
		if changed {
			d.send.Send(protocol.CleanRoom{})
		}

	case protocol.Unknown:
		d.log.Warn("unhandled event", zap.String("event", e.Kind))
		return

	default:
		d.log.Warn("unhandled event type", zap.Any("event", ev))
		return
	}

	if changed {
		d.publish()
	}
}

// begin runs the match-start side effects exactly once.
func (d *Dispatcher) begin() bool {
	if !d.state.Start() {
		return false
	}
	d.settle.CancelAll()
	d.log.Info("game started", zap.Int("seconds", d.state.RemainingSeconds))

	d.clock.Start(d.state.RemainingSeconds,
		func(remaining int) {
			d.state.SetRemaining(remaining)
			d.publish()
		},
		func() {
			if d.finish(engine.CauseTimeOver) {
				d.publish()
			}
		},
	)
	_ = d.requestQuestion(0)
	return true
}

func (d *Dispatcher) answerResult(e protocol.AnswerResult) bool {
	if d.state.Phase == engine.PhaseFinished {
		d.log.Debug("answer result after game over", zap.String("chosen", e.Chosen))
		return false
	}
	if err := d.state.RecordAnswer(e.Chosen, e.Correct); err != nil {
		d.log.Warn("answer result before any question", zap.Error(err))
		return false
	}

	index := d.state.QuestionIndex
	hold := HoldMCQ
	if d.state.Room.Mode == engine.ModeMap {
		hold = HoldMap
	}
	d.holds.Schedule(index, hold, func() { d.holdElapsed(index) })
	return true
}

func (d *Dispatcher) holdElapsed(index int) {
	if d.closed || d.state.Phase == engine.PhaseFinished {
		return
	}
	if index != d.state.QuestionIndex {
		d.log.Debug("stale hold window", zap.Int("index", index), zap.Int("current", d.state.QuestionIndex))
		return
	}
	if d.state.LastQuestion() {
		d.log.Debug("last question answered, waiting for the server to close the game")
		return
	}
	if err := d.requestQuestion(index + 1); err == nil {
		d.publish()
	}
}

func (d *Dispatcher) requestQuestion(index int) error {
	if d.state.Phase == engine.PhaseFinished {
		return ErrGameOver
	}
	req := protocol.GetNewQuestion{
		RoomID:         d.roomID,
		PlayerID:       d.state.LocalUsername,
		QuestionNumber: index,
	}
	if err := req.Validate(d.state.Room.NumQuestions); err != nil {
		d.log.Warn("dropping question request", zap.Error(err))
		return err
	}
	if err := d.state.AdvanceTo(index); err != nil {
		d.log.Warn("dropping question request", zap.Int("index", index), zap.Error(err))
		return err
	}
	d.send.Send(req)
	return nil
}

// finish enters Finished once and stops every local clock.
func (d *Dispatcher) finish(cause engine.TerminalCause) bool {
	if !d.state.Finish(cause) {
		d.log.Debug("already finished", zap.String("cause", string(cause)), zap.String("first", string(d.state.Cause)))
		return false
	}
	d.clock.Stop()
	d.holds.CancelAll()
	d.settle.CancelAll()
	d.log.Info("game finished", zap.String("cause", string(cause)))
	return true
}

// StartGame is the host's start button.
func (d *Dispatcher) StartGame() error {
	if d.closed {
		return ErrClosed
	}
	if !d.state.IsHost {
		d.log.Warn("start rejected", zap.Error(ErrNotHost))
		return ErrNotHost
	}
	if d.state.Phase != engine.PhaseWaiting {
		d.log.Warn("start rejected", zap.String("phase", string(d.state.Phase)))
		return engine.ErrWrongPhase
	}
	d.send.Send(protocol.LoadGame{})
	return nil
}

// SubmitAnswer sends the player's choice for the current question. In MAP
// mode answer is the display name of the selected region.
func (d *Dispatcher) SubmitAnswer(answer string) error {
	err := d.submitAnswer(answer)
	if err != nil {
		d.log.Warn("answer dropped", zap.String("answer", answer), zap.Error(err))
	}
	return err
}

func (d *Dispatcher) submitAnswer(answer string) error {
	switch {
	case d.closed:
		return ErrClosed
	case d.state.Phase == engine.PhaseFinished:
		return ErrGameOver
	case !d.state.Started || d.state.Question == nil:
		return ErrNoQuestion
	case d.state.InputDisabled:
		return ErrInputLocked
	}

	req := protocol.ValidateAnswer{QuestionIndex: d.state.QuestionIndex, Answer: answer}
	if err := req.Validate(d.state.Room.NumQuestions); err != nil {
		return err
	}
	d.send.Send(req)
	d.state.InputDisabled = true
	d.publish()
	return nil
}

// Teardown stops every clock. The dispatcher ignores all input afterwards.
func (d *Dispatcher) Teardown() {
	if d.closed {
		return
	}
	d.closed = true
	d.clock.Stop()
	d.holds.CancelAll()
	d.settle.CancelAll()
	d.log.Info("session torn down",
		zap.String("phase", string(d.state.Phase)),
		zap.Int("question", d.state.QuestionIndex),
	)
}

func (d *Dispatcher) Closed() bool { return d.closed }
