package types

import (
	"encoding/json"

	"github.com/brix12bs/pingpong-server/internal/game"
)

// Wire envelope, both directions. Data is the per-event payload below.
//
// Client -> Server
//   joinPingPong | joinTetris | joinRacing : no data
//   movePaddle           : MovePaddlePayload
//   scoreUpdate          : ScoreUpdatePayload
//   updateTetrisBoard    : TetrisBoardPayload
//   updateRacingPosition : RacingPositionPayload
//
// Server -> Client
//   gameId             : GameInfo
//   startGame          : no data
//   updateGame         : GameUpdate
//   updateTetris       : TetrisUpdate
//   updateRacing       : RacingUpdate
//   playerDisconnected : no data
type ClientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

const (
	EvtJoinPingPong         = "joinPingPong"
	EvtJoinTetris           = "joinTetris"
	EvtJoinRacing           = "joinRacing"
	EvtMovePaddle           = "movePaddle"
	EvtScoreUpdate          = "scoreUpdate"
	EvtUpdateTetrisBoard    = "updateTetrisBoard"
	EvtUpdateRacingPosition = "updateRacingPosition"

	EvtGameID             = "gameId"
	EvtStartGame          = "startGame"
	EvtUpdateGame         = "updateGame"
	EvtUpdateTetris       = "updateTetris"
	EvtUpdateRacing       = "updateRacing"
	EvtPlayerDisconnected = "playerDisconnected"
)

type MovePaddlePayload struct {
	GameID string  `json:"gameId"`
	X      float64 `json:"x"`
}

// Scores travel as {"player1": n, "player2": n}, keyed by seat.
type ScoreUpdatePayload struct {
	GameID string         `json:"gameId"`
	Scores map[string]int `json:"scores"`
}

type TetrisBoardPayload struct {
	GameID   string          `json:"gameId"`
	Board    json.RawMessage `json:"board"`
	Score    int             `json:"score"`
	GameOver bool            `json:"gameOver"`
}

type RacingPositionPayload struct {
	GameID   string  `json:"gameId"`
	X        float64 `json:"x"`
	Distance float64 `json:"distance"`
	Score    int     `json:"score"`
	GameOver bool    `json:"gameOver"`
}

type GameInfo struct {
	GameID   string    `json:"gameId"`
	GameType game.Type `json:"gameType"`
}

type GameUpdate struct {
	OpponentPaddleX *float64       `json:"opponentPaddleX,omitempty"`
	Ball            game.Ball      `json:"ball"`
	Scores          map[string]int `json:"scores"`
}

type TetrisUpdate struct {
	OpponentBoard json.RawMessage `json:"opponentBoard"`
	Scores        map[string]int  `json:"scores"`
	GameOver      bool            `json:"gameOver"`
}

type RacingUpdate struct {
	OpponentPosition *game.Position  `json:"opponentPosition,omitempty"`
	Obstacles        []game.Obstacle `json:"obstacles"`
	Scores           map[string]int  `json:"scores"`
	GameOver         bool            `json:"gameOver"`
}
