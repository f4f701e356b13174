package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidQuestionIndex = errors.New("invalid question index")
var ErrEmptyAnswer = errors.New("empty answer")
var ErrUnsupportedRequest = errors.New("unsupported request")

// Outbound request kinds.
const (
	KindJoinRoom       = "joinRoom"
	KindLoadGame       = "loadgame"
	KindGetNewQuestion = "get_new_question"
	KindValidateAnswer = "validate_answer"
	KindCleanRoom      = "clean_room"
)

// Request is the closed set of client -> server messages.
type Request interface {
	Kind() string
	isRequest()
}

// JoinRoom is sent exactly once, when the connection first opens.
type JoinRoom struct {
	Username string
	RoomID   string
}

// LoadGame asks the server to start the match. Host only.
type LoadGame struct{}

type GetNewQuestion struct {
	RoomID         string
	PlayerID       string
	QuestionNumber int
}

type ValidateAnswer struct {
	QuestionIndex int
	Answer        string
}

type CleanRoom struct{}

func (JoinRoom) Kind() string       { return KindJoinRoom }
func (LoadGame) Kind() string       { return KindLoadGame }
func (GetNewQuestion) Kind() string { return KindGetNewQuestion }
func (ValidateAnswer) Kind() string { return KindValidateAnswer }
func (CleanRoom) Kind() string      { return KindCleanRoom }

func (JoinRoom) isRequest()       {}
func (LoadGame) isRequest()       {}
func (GetNewQuestion) isRequest() {}
func (ValidateAnswer) isRequest() {}
func (CleanRoom) isRequest()      {}

// Validate checks the question number against a room of total questions.
func (r GetNewQuestion) Validate(total int) error {
	if r.QuestionNumber < 0 || r.QuestionNumber >= total {
		return fmt.Errorf("%w: %d of %d", ErrInvalidQuestionIndex, r.QuestionNumber, total)
	}
	return nil
}

func (r ValidateAnswer) Validate(total int) error {
	if r.QuestionIndex < 0 || r.QuestionIndex >= total {
		return fmt.Errorf("%w: %d of %d", ErrInvalidQuestionIndex, r.QuestionIndex, total)
	}
	if strings.TrimSpace(r.Answer) == "" {
		return ErrEmptyAnswer
	}
	return nil
}

type joinFrame struct {
	Event    string `json:"event"`
	Username string `json:"username"`
	RoomID   string `json:"roomID"`
}

type dataFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type questionRequestData struct {
	RoomID         string `json:"roomID"`
	PlayerID       string `json:"playerID"`
	QuestionNumber int    `json:"question_number"`
}

type answerRequestData struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// Encode renders a request in the server's wire format.
func Encode(r Request) ([]byte, error) {
	switch req := r.(type) {
	case JoinRoom:
		return json.Marshal(joinFrame{Event: KindJoinRoom, Username: req.Username, RoomID: req.RoomID})
	case LoadGame, CleanRoom:
		return json.Marshal(dataFrame{Event: req.Kind()})
	case GetNewQuestion:
		return json.Marshal(dataFrame{Event: KindGetNewQuestion, Data: questionRequestData{
			RoomID:         req.RoomID,
			PlayerID:       req.PlayerID,
			QuestionNumber: req.QuestionNumber,
		}})
	case ValidateAnswer:
		return json.Marshal(dataFrame{Event: KindValidateAnswer, Data: answerRequestData{
			QuestionIndex: req.QuestionIndex,
			Answer:        req.Answer,
		}})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRequest, r)
	}
}
