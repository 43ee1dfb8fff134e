package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brix12bs/pingpong-server/internal/game"
	"github.com/brix12bs/pingpong-server/internal/hub"
	"github.com/brix12bs/pingpong-server/internal/room"
	"github.com/brix12bs/pingpong-server/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades the connection, assigns it an id, and shuttles messages
// between the socket and the hub until the client goes away.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan types.ServerEvent, 16)

		defer func() { h.Inbox() <- hub.Disconnect{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case ev := <-out:
					payload, err := json.Marshal(ev)
					if err != nil {
						log.Error("marshal server event", zap.String("event", ev.Event), zap.Error(err))
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (hub.Disconnect in defer):
				return
			}

			var env types.ClientEnvelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.Debug("bad client frame", zap.String("client", clientID), zap.Error(err))
				continue
			}

			dispatch(h, clientID, out, env, log)
		}
	}
}

// dispatch maps one client event onto a hub message. Malformed or unknown
// events are dropped, never answered: the protocol has no error replies.
func dispatch(h *hub.Hub, clientID string, out chan types.ServerEvent, env types.ClientEnvelope, log *zap.Logger) {
	switch env.Event {
	case types.EvtJoinPingPong:
		h.Inbox() <- hub.Join{GameType: game.PingPong, ClientID: clientID, Outbox: out}

	case types.EvtJoinTetris:
		h.Inbox() <- hub.Join{GameType: game.Tetris, ClientID: clientID, Outbox: out}

	case types.EvtJoinRacing:
		h.Inbox() <- hub.Join{GameType: game.Racing, ClientID: clientID, Outbox: out}

	case types.EvtMovePaddle:
		var p types.MovePaddlePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.Inbox() <- hub.Forward{
			GameType: game.PingPong,
			RoomID:   p.GameID,
			Msg:      room.MovePaddle{ClientID: clientID, X: p.X},
		}

	case types.EvtScoreUpdate:
		var p types.ScoreUpdatePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.Inbox() <- hub.Forward{
			GameType: game.PingPong,
			RoomID:   p.GameID,
			Msg:      room.ScoreUpdate{Scores: p.Scores},
		}

	case types.EvtUpdateTetrisBoard:
		var p types.TetrisBoardPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.Inbox() <- hub.Forward{
			GameType: game.Tetris,
			RoomID:   p.GameID,
			Msg:      room.TetrisBoard{ClientID: clientID, Board: p.Board, Score: p.Score, GameOver: p.GameOver},
		}

	case types.EvtUpdateRacingPosition:
		var p types.RacingPositionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		h.Inbox() <- hub.Forward{
			GameType: game.Racing,
			RoomID:   p.GameID,
			Msg:      room.RacingPosition{ClientID: clientID, X: p.X, Distance: p.Distance, Score: p.Score, GameOver: p.GameOver},
		}

	default:
		log.Debug("unknown client event", zap.String("client", clientID), zap.String("event", env.Event))
	}
}
