package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/engine"
)

var ErrRoomNotFound = errors.New("room not found or has ended")
var ErrRoomFetch = errors.New("failed to fetch room details")
var ErrQuestionsFetch = errors.New("failed to fetch questions")

// Client talks to the quiz server's plain HTTP endpoints.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func NewClient(server string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: strings.TrimSuffix(server, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

type roomPlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type roomDetails struct {
	Code         string       `json:"code"`
	Host         string       `json:"host"`
	NumQuestions int          `json:"numQuestions"`
	TimeLimit    int          `json:"timeLimit"`
	GameMode     string       `json:"gamemode"`
	Players      []roomPlayer `json:"players"`
}

// FetchRoom loads the room snapshot a session is seeded with.
func (c *Client) FetchRoom(ctx context.Context, roomID string) (engine.Room, []engine.Player, error) {
	endpoint := c.base + "/api/room/" + url.PathEscape(roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return engine.Room{}, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Room{}, nil, fmt.Errorf("%w: %v", ErrRoomFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return engine.Room{}, nil, ErrRoomNotFound
	case resp.StatusCode >= 300:
		return engine.Room{}, nil, fmt.Errorf("%w: status %d", ErrRoomFetch, resp.StatusCode)
	}

	var d roomDetails
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return engine.Room{}, nil, fmt.Errorf("%w: %v", ErrRoomFetch, err)
	}
	c.log.Debug("room details",
		zap.String("room", d.Code),
		zap.String("host", d.Host),
		zap.Int("players", len(d.Players)),
	)

	room := engine.Room{
		Code:         d.Code,
		Host:         d.Host,
		NumQuestions: d.NumQuestions,
		TimeLimit:    d.TimeLimit,
		Mode:         engine.Mode(d.GameMode),
	}
	players := make([]engine.Player, 0, len(d.Players))
	for _, p := range d.Players {
		players = append(players, engine.Player{ID: p.ID, Username: p.Username, Score: p.Score})
	}
	return room, players, nil
}

// SoloQuestion carries its answer; single-player games are judged locally.
type SoloQuestion struct {
	FlagURL string   `json:"flag_url"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer"`
}

func (c *Client) FetchQuestions(ctx context.Context, n int, mode engine.Mode) ([]SoloQuestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/singleplayer", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Num-Questions", strconv.Itoa(n))
	req.Header.Set("game-type", string(mode))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionsFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrQuestionsFetch, resp.StatusCode)
	}

	var qs []SoloQuestion
	if err := json.NewDecoder(resp.Body).Decode(&qs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionsFetch, err)
	}
	return qs, nil
}
