package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brix12bs/pingpong-server/internal/hub"
	"github.com/brix12bs/pingpong-server/internal/types"
)

func dialTest(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()
	msg := map[string]any{"event": event}
	if data != nil {
		msg["data"] = data
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

// readNamed reads frames until one carries the wanted event.
func readNamed(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	for {
		readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, data, err := conn.Read(readCtx)
		cancel()
		require.NoError(t, err, "waiting for %q", event)

		var env types.ClientEnvelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Event == event {
			return env.Data
		}
	}
}

func TestHandler_TetrisSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := hub.NewHub(ctx, zap.NewNop())
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	defer srv.Close()

	connA := dialTest(t, ctx, srv)
	connB := dialTest(t, ctx, srv)

	sendEvent(t, ctx, connA, types.EvtJoinTetris, nil)
	var infoA types.GameInfo
	require.NoError(t, json.Unmarshal(readNamed(t, ctx, connA, types.EvtGameID), &infoA))

	sendEvent(t, ctx, connB, types.EvtJoinTetris, nil)
	var infoB types.GameInfo
	require.NoError(t, json.Unmarshal(readNamed(t, ctx, connB, types.EvtGameID), &infoB))

	assert.Equal(t, infoA.GameID, infoB.GameID)

	readNamed(t, ctx, connA, types.EvtStartGame)
	readNamed(t, ctx, connB, types.EvtStartGame)

	// A reports its board; B gets it echoed as the opponent board.
	sendEvent(t, ctx, connA, types.EvtUpdateTetrisBoard, types.TetrisBoardPayload{
		GameID: infoA.GameID,
		Board:  json.RawMessage(`{"rows":[[1]]}`),
		Score:  10,
	})

	var upd types.TetrisUpdate
	require.NoError(t, json.Unmarshal(readNamed(t, ctx, connB, types.EvtUpdateTetris), &upd))
	assert.JSONEq(t, `{"rows":[[1]]}`, string(upd.OpponentBoard))
	assert.Equal(t, map[string]int{"player1": 10, "player2": 0}, upd.Scores)
	assert.False(t, upd.GameOver)
}

func TestHandler_PingPongPaddleRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := hub.NewHub(ctx, zap.NewNop())
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	defer srv.Close()

	connA := dialTest(t, ctx, srv)
	connB := dialTest(t, ctx, srv)

	sendEvent(t, ctx, connA, types.EvtJoinPingPong, nil)
	var info types.GameInfo
	require.NoError(t, json.Unmarshal(readNamed(t, ctx, connA, types.EvtGameID), &info))

	sendEvent(t, ctx, connB, types.EvtJoinPingPong, nil)
	readNamed(t, ctx, connB, types.EvtStartGame)

	sendEvent(t, ctx, connA, types.EvtMovePaddle, types.MovePaddlePayload{GameID: info.GameID, X: 120})

	// Tick broadcasts interleave with the relay and carry no paddle field;
	// keep reading until the relayed value shows up.
	for i := 0; ; i++ {
		require.Less(t, i, 600, "no paddle relay among tick broadcasts")
		var upd types.GameUpdate
		require.NoError(t, json.Unmarshal(readNamed(t, ctx, connB, types.EvtUpdateGame), &upd))
		if upd.OpponentPaddleX != nil {
			assert.Equal(t, 120.0, *upd.OpponentPaddleX)
			break
		}
	}
}

func TestHandler_DisconnectNotifiesPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := hub.NewHub(ctx, zap.NewNop())
	srv := httptest.NewServer(Handler(h, zap.NewNop()))
	defer srv.Close()

	connA := dialTest(t, ctx, srv)
	connB := dialTest(t, ctx, srv)

	sendEvent(t, ctx, connA, types.EvtJoinTetris, nil)
	readNamed(t, ctx, connA, types.EvtGameID)
	sendEvent(t, ctx, connB, types.EvtJoinTetris, nil)
	readNamed(t, ctx, connB, types.EvtStartGame)

	require.NoError(t, connA.Close(websocket.StatusNormalClosure, "leaving"))

	readNamed(t, ctx, connB, types.EvtPlayerDisconnected)
}
