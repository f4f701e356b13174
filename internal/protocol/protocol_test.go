package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "player joined",
			raw:  `{"event":"playerJoined","data":{"id":"4821","username":"alice","score":0}}`,
			want: PlayerJoined{ID: "4821", Username: "alice"},
		},
		{
			name: "player left",
			raw:  `{"event":"playerLeft","data":{"id":"4821","username":"alice"}}`,
			want: PlayerLeft{ID: "4821", Username: "alice"},
		},
		{
			name: "countdown is a bare integer",
			raw:  `{"event":"countdown","data":2}`,
			want: Countdown{Count: 2},
		},
		{
			name: "countdown zero",
			raw:  `{"event":"countdown","data":0}`,
			want: Countdown{Count: 0},
		},
		{
			name: "game started",
			raw:  `{"event":"gameStarted"}`,
			want: GameStarted{},
		},
		{
			name: "mcq question",
			raw:  `{"event":"new_question","data":{"flag_url":"/static/svg/fr.svg","options":["France","Chad","Peru","Iran"]}}`,
			want: NewQuestion{FlagURL: "/static/svg/fr.svg", Options: []string{"France", "Chad", "Peru", "Iran"}},
		},
		{
			name: "map question has no options",
			raw:  `{"event":"new_question","data":{"flag_url":"/static/svg/pe.svg"}}`,
			want: NewQuestion{FlagURL: "/static/svg/pe.svg"},
		},
		{
			name: "answer result",
			raw:  `{"event":"answer_result","data":{"chosen_answer":"Chad","correct_answer":"France"}}`,
			want: AnswerResult{Chosen: "Chad", Correct: "France"},
		},
		{
			name: "score",
			raw:  `{"event":"score","data":{"username":"alice","score":3}}`,
			want: Score{Username: "alice", Score: 3},
		},
		{
			name: "finished game keeps username beside the tag",
			raw:  `{"event":"finished_game","username":"alice"}`,
			want: FinishedGame{Username: "alice"},
		},
		{
			name: "finished game also accepts data.username",
			raw:  `{"event":"finished_game","data":{"username":"bob"}}`,
			want: FinishedGame{Username: "bob"},
		},
		{
			name: "time over",
			raw:  `{"event":"time_over"}`,
			want: TimeOver{},
		},
		{
			name: "all players finished",
			raw:  `{"event":"all_players_finished"}`,
			want: AllPlayersFinished{},
		},
		{
			name: "unknown kind is forwarded, not rejected",
			raw:  `{"event":"emote","data":{"kind":"wave"}}`,
			want: Unknown{Kind: "emote"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", `{"event":`, ErrMalformedFrame},
		{"no tag", `{"data":{}}`, ErrMissingField},
		{"joined without id", `{"event":"playerJoined","data":{"username":"alice"}}`, ErrMissingField},
		{"countdown without data", `{"event":"countdown"}`, ErrMissingField},
		{"countdown with string", `{"event":"countdown","data":"3"}`, ErrMalformedFrame},
		{"negative countdown", `{"event":"countdown","data":-5}`, ErrMalformedFrame},
		{"question without flag", `{"event":"new_question","data":{"options":[]}}`, ErrMissingField},
		{"result without correct answer", `{"event":"answer_result","data":{"chosen_answer":"Chad"}}`, ErrMissingField},
		{"score without value", `{"event":"score","data":{"username":"alice"}}`, ErrMissingField},
		{"finished without username", `{"event":"finished_game"}`, ErrMissingField},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Decode([]byte(tc.raw))
			assert.Nil(t, ev)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "join puts identity beside the tag",
			req:  JoinRoom{Username: "alice", RoomID: "4821"},
			want: `{"event":"joinRoom","username":"alice","roomID":"4821"}`,
		},
		{
			name: "loadgame",
			req:  LoadGame{},
			want: `{"event":"loadgame"}`,
		},
		{
			name: "get new question",
			req:  GetNewQuestion{RoomID: "4821", PlayerID: "alice", QuestionNumber: 1},
			want: `{"event":"get_new_question","data":{"roomID":"4821","playerID":"alice","question_number":1}}`,
		},
		{
			name: "validate answer",
			req:  ValidateAnswer{QuestionIndex: 0, Answer: "France"},
			want: `{"event":"validate_answer","data":{"question_index":0,"answer":"France"}}`,
		},
		{
			name: "clean room",
			req:  CleanRoom{},
			want: `{"event":"clean_room"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.req)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestEncode_QuestionNumberZeroIsKept(t *testing.T) {
	raw, err := Encode(GetNewQuestion{RoomID: "1", PlayerID: "alice", QuestionNumber: 0})
	require.NoError(t, err)

	var f struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &f))
	assert.Contains(t, f.Data, "question_number")
}

func TestRequestValidation(t *testing.T) {
	assert.NoError(t, GetNewQuestion{QuestionNumber: 0}.Validate(3))
	assert.NoError(t, GetNewQuestion{QuestionNumber: 2}.Validate(3))
	assert.ErrorIs(t, GetNewQuestion{QuestionNumber: 3}.Validate(3), ErrInvalidQuestionIndex)
	assert.ErrorIs(t, GetNewQuestion{QuestionNumber: -1}.Validate(3), ErrInvalidQuestionIndex)

	assert.NoError(t, ValidateAnswer{QuestionIndex: 1, Answer: "Peru"}.Validate(3))
	assert.ErrorIs(t, ValidateAnswer{QuestionIndex: 1, Answer: "  "}.Validate(3), ErrEmptyAnswer)
	assert.ErrorIs(t, ValidateAnswer{QuestionIndex: 5, Answer: "Peru"}.Validate(3), ErrInvalidQuestionIndex)
}
