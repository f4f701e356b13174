package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/dispatcher"
	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
	"github.com/DoyleJ11/flags-quiz-client/internal/timer"
	"github.com/DoyleJ11/flags-quiz-client/internal/view"
)

var ErrStopped = errors.New("session stopped")
var ErrUnbufferedOutbox = errors.New("watch outbox must be buffered")

type Msg interface{ isSessionMsg() }

// Inbound is one raw frame read off the transport.
type Inbound struct{ Frame []byte }

func (Inbound) isSessionMsg() {}

type RoomLoaded struct {
	Room    engine.Room
	Players []engine.Player
}

func (RoomLoaded) isSessionMsg() {}

type RoomFailed struct{ Err error }

func (RoomFailed) isSessionMsg() {}

type StartGame struct{ Reply chan error }

func (StartGame) isSessionMsg() {}

type Answer struct {
	Answer string
	Reply  chan error
}

func (Answer) isSessionMsg() {}

// Closed reports that the transport went away. The session tears down.
type Closed struct{ Err error }

func (Closed) isSessionMsg() {}

type Watch struct {
	WatcherID string
	Outbox    chan Snapshot
}

func (Watch) isSessionMsg() {}

type Unwatch struct{ WatcherID string }

func (Unwatch) isSessionMsg() {}

type GetState struct {
	Reply chan Snapshot
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// run carries a timer callback back onto the loop goroutine.
type run struct{ fn func() }

func (run) isSessionMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
	View    view.View
}

type Config struct {
	Username  string
	RoomID    string
	Sender    dispatcher.Sender
	Scheduler timer.Scheduler
	Logger    *zap.Logger
}

// Session owns one client's match state. Everything that touches the state
// goes through the inbox and runs on the loop goroutine.
type Session struct {
	ID       string
	inbox    chan Msg
	d        *dispatcher.Dispatcher
	version  int
	watchers map[string]chan Snapshot
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(parent context.Context, cfg Config) *Session {
	ctx, cancel := context.WithCancel(parent)

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	log = log.With(zap.String("session_id", id), zap.String("room", cfg.RoomID))

	s := &Session{
		ID:       id,
		inbox:    make(chan Msg, 64),
		watchers: make(map[string]chan Snapshot),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.d = dispatcher.New(dispatcher.Config{
		Username:  cfg.Username,
		RoomID:    cfg.RoomID,
		Sender:    cfg.Sender,
		Renderer:  s,
		Scheduler: cfg.Scheduler,
		Exec:      s.exec,
		Logger:    log,
	})

	go s.loop()
	return s
}

func (s *Session) exec(f func()) {
	select {
	case s.inbox <- run{fn: f}:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Inbound:
				s.d.HandleFrame(msg.Frame)

			case RoomLoaded:
				_ = s.d.LoadRoom(msg.Room, msg.Players)

			case RoomFailed:
				s.d.FailRoomLookup(msg.Err)

			case StartGame:
				reply(msg.Reply, s.d.StartGame())

			case Answer:
				reply(msg.Reply, s.d.SubmitAnswer(msg.Answer))

			case run:
				msg.fn()

			case Watch:
				select {
				case msg.Outbox <- s.snapshot():
					s.watchers[msg.WatcherID] = msg.Outbox
				default:
					s.log.Warn("watcher outbox full", zap.String("watcher", msg.WatcherID))
					close(msg.Outbox)
				}

			case Unwatch:
				if ch, ok := s.watchers[msg.WatcherID]; ok {
					close(ch)
					delete(s.watchers, msg.WatcherID)
				}

			case GetState:
				msg.Reply <- s.snapshot()

			case Closed:
				if msg.Err != nil {
					s.log.Info("transport closed", zap.Error(msg.Err))
				}
				s.shutdown()
				return

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func reply(ch chan error, err error) {
	if ch != nil {
		ch <- err
	}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, State: s.d.State(), View: s.d.View()}
}

// Render is called by the dispatcher on the loop goroutine after every state
// change.
func (s *Session) Render(v view.View) {
	s.version++
	snap := Snapshot{Version: s.version, State: s.d.State(), View: v}
	for id, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			s.log.Warn("dropping slow watcher", zap.String("watcher", id))
			close(ch)
			delete(s.watchers, id)
		}
	}
}

func (s *Session) shutdown() {
	s.d.Teardown()
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
	s.cancel()
}

func (s *Session) send(m Msg) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.ctx.Done():
		return ErrStopped
	}
}

// Deliver hands a raw frame to the session. It is the transport's message
// callback.
func (s *Session) Deliver(frame []byte) { _ = s.send(Inbound{Frame: frame}) }

// TransportClosed is the transport's close callback.
func (s *Session) TransportClosed(err error) { _ = s.send(Closed{Err: err}) }

func (s *Session) LoadRoom(room engine.Room, players []engine.Player) error {
	return s.send(RoomLoaded{Room: room, Players: players})
}

func (s *Session) FailRoom(err error) error { return s.send(RoomFailed{Err: err}) }

func (s *Session) Start(ctx context.Context) error {
	return s.request(ctx, func(r chan error) Msg { return StartGame{Reply: r} })
}

func (s *Session) Answer(ctx context.Context, answer string) error {
	return s.request(ctx, func(r chan error) Msg { return Answer{Answer: answer, Reply: r} })
}

func (s *Session) request(ctx context.Context, build func(chan error) Msg) error {
	r := make(chan error, 1)
	if err := s.send(build(r)); err != nil {
		return err
	}
	select {
	case err := <-r:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

// Latest returns the current snapshot.
func (s *Session) Latest(ctx context.Context) (Snapshot, error) {
	r := make(chan Snapshot, 1)
	if err := s.send(GetState{Reply: r}); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-r:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrStopped
	}
}

// Watch registers outbox for every published snapshot, starting with the
// current one, so outbox needs a buffer of at least one. The outbox is closed
// when the watcher falls behind or the session ends. A watch that races a
// stopping session may never be closed, so callers also select on Done.
func (s *Session) Watch(outbox chan Snapshot) (string, error) {
	if cap(outbox) == 0 {
		return "", ErrUnbufferedOutbox
	}
	id := uuid.NewString()
	return id, s.send(Watch{WatcherID: id, Outbox: outbox})
}

func (s *Session) Unwatch(id string) { _ = s.send(Unwatch{WatcherID: id}) }

func (s *Session) Stop() { _ = s.send(Shutdown{}) }

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Inbox() chan<- Msg { return s.inbox }
