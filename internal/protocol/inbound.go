package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedFrame = errors.New("malformed frame")
var ErrMissingField = errors.New("missing required field")

// Inbound event kinds as they appear in the "event" tag.
const (
	KindPlayerJoined       = "playerJoined"
	KindPlayerLeft         = "playerLeft"
	KindCountdown          = "countdown"
	KindGameStarted        = "gameStarted"
	KindNewQuestion        = "new_question"
	KindAnswerResult       = "answer_result"
	KindScore              = "score"
	KindFinishedGame       = "finished_game"
	KindTimeOver           = "time_over"
	KindAllPlayersFinished = "all_players_finished"
)

// Event is the closed set of server pushes. Unknown carries kinds this
// client does not understand yet.
type Event interface{ isEvent() }

type PlayerJoined struct {
	ID       string
	Username string
}

type PlayerLeft struct {
	ID       string
	Username string
}

type Countdown struct {
	Count int
}

type GameStarted struct{}

// NewQuestion never carries the answer; multiplayer answers are judged by the server.
type NewQuestion struct {
	FlagURL string
	Options []string
}

type AnswerResult struct {
	Chosen  string
	Correct string
}

type Score struct {
	Username string
	Score    int
}

type FinishedGame struct {
	Username string
}

type TimeOver struct{}

type AllPlayersFinished struct{}

type Unknown struct {
	Kind string
}

func (PlayerJoined) isEvent()       {}
func (PlayerLeft) isEvent()         {}
func (Countdown) isEvent()          {}
func (GameStarted) isEvent()        {}
func (NewQuestion) isEvent()        {}
func (AnswerResult) isEvent()       {}
func (Score) isEvent()              {}
func (FinishedGame) isEvent()       {}
func (TimeOver) isEvent()           {}
func (AllPlayersFinished) isEvent() {}
func (Unknown) isEvent()            {}

type frame struct {
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data,omitempty"`
	Username string          `json:"username,omitempty"`
}

type playerData struct {
	ID       *string `json:"id"`
	Username *string `json:"username"`
}

type questionData struct {
	FlagURL *string  `json:"flag_url"`
	Options []string `json:"options"`
}

type answerData struct {
	Chosen  *string `json:"chosen_answer"`
	Correct *string `json:"correct_answer"`
}

type scoreData struct {
	Username *string `json:"username"`
	Score    *int    `json:"score"`
}

// Decode parses one inbound frame. Shape problems return an error wrapping
// ErrMalformedFrame or ErrMissingField; unrecognised kinds decode to Unknown.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("%w: event", ErrMissingField)
	}

	switch f.Event {
	case KindPlayerJoined, KindPlayerLeft:
		var d playerData
		if err := unmarshalData(f, &d); err != nil {
			return nil, err
		}
		if d.ID == nil || d.Username == nil {
			return nil, fmt.Errorf("%w: %s needs id and username", ErrMissingField, f.Event)
		}
		if f.Event == KindPlayerJoined {
			return PlayerJoined{ID: *d.ID, Username: *d.Username}, nil
		}
		return PlayerLeft{ID: *d.ID, Username: *d.Username}, nil

	case KindCountdown:
		var count *int
		if err := unmarshalData(f, &count); err != nil {
			return nil, err
		}
		if count == nil {
			return nil, fmt.Errorf("%w: countdown needs a count", ErrMissingField)
		}
		if *count < 0 {
			return nil, fmt.Errorf("%w: negative countdown %d", ErrMalformedFrame, *count)
		}
		return Countdown{Count: *count}, nil

	case KindGameStarted:
		return GameStarted{}, nil

	case KindNewQuestion:
		var d questionData
		if err := unmarshalData(f, &d); err != nil {
			return nil, err
		}
		if d.FlagURL == nil {
			return nil, fmt.Errorf("%w: new_question needs flag_url", ErrMissingField)
		}
		return NewQuestion{FlagURL: *d.FlagURL, Options: d.Options}, nil

	case KindAnswerResult:
		var d answerData
		if err := unmarshalData(f, &d); err != nil {
			return nil, err
		}
		if d.Chosen == nil || d.Correct == nil {
			return nil, fmt.Errorf("%w: answer_result needs chosen_answer and correct_answer", ErrMissingField)
		}
		return AnswerResult{Chosen: *d.Chosen, Correct: *d.Correct}, nil

	case KindScore:
		var d scoreData
		if err := unmarshalData(f, &d); err != nil {
			return nil, err
		}
		if d.Username == nil || d.Score == nil {
			return nil, fmt.Errorf("%w: score needs username and score", ErrMissingField)
		}
		return Score{Username: *d.Username, Score: *d.Score}, nil

	case KindFinishedGame:
		// The server puts the username beside the tag, not under data.
		username := f.Username
		if username == "" && len(f.Data) > 0 {
			var d playerData
			if err := json.Unmarshal(f.Data, &d); err == nil && d.Username != nil {
				username = *d.Username
			}
		}
		if username == "" {
			return nil, fmt.Errorf("%w: finished_game needs username", ErrMissingField)
		}
		return FinishedGame{Username: username}, nil

	case KindTimeOver:
		return TimeOver{}, nil

	case KindAllPlayersFinished:
		return AllPlayersFinished{}, nil

	default:
		return Unknown{Kind: f.Event}, nil
	}
}

func unmarshalData(f frame, into any) error {
	if len(f.Data) == 0 || string(f.Data) == "null" {
		return fmt.Errorf("%w: %s data", ErrMissingField, f.Event)
	}
	if err := json.Unmarshal(f.Data, into); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedFrame, f.Event, err)
	}
	return nil
}
