package room

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/brix12bs/pingpong-server/internal/game"
	"github.com/brix12bs/pingpong-server/internal/types"
)

type Msg interface{ isRoomMsg() }

// Join seats a player. Seat assignment belongs to the hub; the room trusts it.
type Join struct {
	ClientID string
	Seat     int
	Outbox   chan types.ServerEvent
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type MovePaddle struct {
	ClientID string
	X        float64
}

func (MovePaddle) isRoomMsg() {}

// ScoreUpdate overwrites the room scores with whatever the client reported.
// Scoring in the ball game is client-authoritative; the server only relays.
type ScoreUpdate struct {
	Scores map[string]int
}

func (ScoreUpdate) isRoomMsg() {}

type TetrisBoard struct {
	ClientID string
	Board    json.RawMessage
	Score    int
	GameOver bool
}

func (TetrisBoard) isRoomMsg() {}

type RacingPosition struct {
	ClientID string
	X        float64
	Distance float64
	Score    int
	GameOver bool
}

func (RacingPosition) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type View struct {
	ID        string
	GameType  game.Type
	Players   []string
	Scores    map[string]int
	Ball      game.Ball
	Obstacles []game.Obstacle
	Ticking   bool
}

type seat struct {
	clientID string
	outbox   chan types.ServerEvent
}

// Room owns the state of one two-player match. All mutation happens on the
// room's own goroutine; callers only ever touch the inbox.
type Room struct {
	id       string
	gameType game.Type
	inbox    chan Msg

	// Seat indices are stable for a player's lifetime in the room: a leave
	// vacates the slot, it never shifts the other player down.
	seats     [2]*seat
	scores    [2]int
	ball      game.Ball
	boards    [2]json.RawMessage
	positions [2]game.Position
	gameOver  [2]bool
	obstacles []game.Obstacle

	rng    *rand.Rand
	ticker *time.Ticker
	tickC  <-chan time.Time

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id string, gameType game.Type, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		id:       id,
		gameType: gameType,
		inbox:    make(chan Msg, 64),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      log.With(zap.String("room", id), zap.String("gameType", string(gameType))),
		ctx:      ctx,
		cancel:   cancel,
	}

	switch gameType {
	case game.PingPong:
		r.ball = game.NewBall()
	case game.Tetris:
		r.boards = [2]json.RawMessage{json.RawMessage("{}"), json.RawMessage("{}")}
	case game.Racing:
		r.positions = [2]game.Position{game.NewPosition(), game.NewPosition()}
		r.obstacles = []game.Obstacle{}
	}

	go r.loop()
	return r
}

func (r *Room) ID() string          { return r.id }
func (r *Room) GameType() game.Type { return r.gameType }
func (r *Room) Inbox() chan<- Msg   { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.stopTicker()
			return

		case <-r.tickC:
			r.tick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg)
			case MovePaddle:
				r.handleMovePaddle(msg)
			case ScoreUpdate:
				r.handleScoreUpdate(msg)
			case TetrisBoard:
				r.handleTetrisBoard(msg)
			case RacingPosition:
				r.handleRacingPosition(msg)
			case GetState:
				msg.Reply <- r.view()
			case Shutdown:
				r.stopTicker()
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	if msg.Seat < 0 || msg.Seat > 1 || r.seats[msg.Seat] != nil {
		r.log.Warn("rejecting join for unavailable seat", zap.Int("seat", msg.Seat))
		return
	}
	s := &seat{clientID: msg.ClientID, outbox: msg.Outbox}
	r.seats[msg.Seat] = s

	r.send(s, types.ServerEvent{
		Event: types.EvtGameID,
		Data:  types.GameInfo{GameID: r.id, GameType: r.gameType},
	})

	if r.occupied() == 2 {
		r.broadcast(types.ServerEvent{Event: types.EvtStartGame})
		if r.gameType.HasPhysics() {
			r.startTicker()
		}
		r.log.Info("match started")
	}
}

// handleLeave vacates the seat and tells whoever is left. Game sub-state is
// kept so a future joiner lands in the room mid-flight, same as the source
// behavior.
func (r *Room) handleLeave(msg Leave) {
	i := r.seatIndex(msg.ClientID)
	if i < 0 {
		return
	}
	r.seats[i] = nil
	r.stopTicker()
	r.broadcast(types.ServerEvent{Event: types.EvtPlayerDisconnected})
}

func (r *Room) handleMovePaddle(msg MovePaddle) {
	x := msg.X
	r.broadcast(types.ServerEvent{
		Event: types.EvtUpdateGame,
		Data: types.GameUpdate{
			OpponentPaddleX: &x,
			Ball:            r.ball,
			Scores:          r.scoresPayload(),
		},
	})
}

func (r *Room) handleScoreUpdate(msg ScoreUpdate) {
	if v, ok := msg.Scores["player1"]; ok {
		r.scores[0] = v
	}
	if v, ok := msg.Scores["player2"]; ok {
		r.scores[1] = v
	}
	r.broadcast(types.ServerEvent{
		Event: types.EvtUpdateGame,
		Data: types.GameUpdate{
			Ball:   r.ball,
			Scores: r.scoresPayload(),
		},
	})
}

// handleTetrisBoard stores the reporter's board and sends every seat its
// opponent's stored board, so a client never sees its own state echoed back.
func (r *Room) handleTetrisBoard(msg TetrisBoard) {
	i := r.seatIndex(msg.ClientID)
	if i < 0 {
		return
	}
	r.boards[i] = msg.Board
	r.scores[i] = msg.Score
	r.gameOver[i] = msg.GameOver

	for j, s := range r.seats {
		if s == nil {
			continue
		}
		other := 1 - j
		r.send(s, types.ServerEvent{
			Event: types.EvtUpdateTetris,
			Data: types.TetrisUpdate{
				OpponentBoard: r.boards[other],
				Scores:        r.scoresPayload(),
				GameOver:      r.gameOver[other],
			},
		})
	}
}

func (r *Room) handleRacingPosition(msg RacingPosition) {
	i := r.seatIndex(msg.ClientID)
	if i < 0 {
		return
	}
	r.positions[i] = game.Position{X: msg.X, Distance: msg.Distance}
	r.scores[i] = msg.Score
	r.gameOver[i] = msg.GameOver

	obstacles := r.obstacleSnapshot()
	for j, s := range r.seats {
		if s == nil {
			continue
		}
		other := 1 - j
		pos := r.positions[other]
		r.send(s, types.ServerEvent{
			Event: types.EvtUpdateRacing,
			Data: types.RacingUpdate{
				OpponentPosition: &pos,
				Obstacles:        obstacles,
				Scores:           r.scoresPayload(),
				GameOver:         r.gameOver[other],
			},
		})
	}
}

func (r *Room) tick() {
	switch r.gameType {
	case game.PingPong:
		r.ball.Step()
		r.broadcast(types.ServerEvent{
			Event: types.EvtUpdateGame,
			Data: types.GameUpdate{
				Ball:   r.ball,
				Scores: r.scoresPayload(),
			},
		})
	case game.Racing:
		r.obstacles = game.AdvanceObstacles(r.obstacles, r.rng)
		r.broadcast(types.ServerEvent{
			Event: types.EvtUpdateRacing,
			Data: types.RacingUpdate{
				Obstacles: r.obstacleSnapshot(),
				Scores:    r.scoresPayload(),
			},
		})
	}
}

// startTicker arms the simulation tick. The ticker channel is only selected
// on while armed, so a room below two players can never tick.
func (r *Room) startTicker() {
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(time.Second / game.TickRate)
	r.tickC = r.ticker.C
}

func (r *Room) stopTicker() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	r.tickC = nil
}

func (r *Room) seatIndex(clientID string) int {
	for i, s := range r.seats {
		if s != nil && s.clientID == clientID {
			return i
		}
	}
	return -1
}

func (r *Room) occupied() int {
	n := 0
	for _, s := range r.seats {
		if s != nil {
			n++
		}
	}
	return n
}

func (r *Room) scoresPayload() map[string]int {
	return map[string]int{"player1": r.scores[0], "player2": r.scores[1]}
}

// obstacleSnapshot copies the obstacle list for handing off to outboxes.
// The next AdvanceObstacles compacts the live slice in place while writer
// goroutines may still be encoding the previous broadcast, so a broadcast
// must never alias the live backing array.
func (r *Room) obstacleSnapshot() []game.Obstacle {
	obstacles := make([]game.Obstacle, len(r.obstacles))
	copy(obstacles, r.obstacles)
	return obstacles
}

func (r *Room) send(s *seat, ev types.ServerEvent) {
	select {
	case s.outbox <- ev:
	default:
		// Client is slow/full - drop the event, the outbox stays theirs.
		r.log.Warn("dropping event for slow client", zap.String("client", s.clientID), zap.String("event", ev.Event))
	}
}

func (r *Room) broadcast(ev types.ServerEvent) {
	for _, s := range r.seats {
		if s != nil {
			r.send(s, ev)
		}
	}
}

func (r *Room) view() View {
	players := make([]string, 0, 2)
	for _, s := range r.seats {
		if s != nil {
			players = append(players, s.clientID)
		}
	}
	return View{
		ID:        r.id,
		GameType:  r.gameType,
		Players:   players,
		Scores:    r.scoresPayload(),
		Ball:      r.ball,
		Obstacles: r.obstacleSnapshot(),
		Ticking:   r.ticker != nil,
	}
}
