package hub

import (
	"context"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/brix12bs/pingpong-server/internal/game"
	"github.com/brix12bs/pingpong-server/internal/room"
	"github.com/brix12bs/pingpong-server/internal/types"
)

type Msg interface{ isHubMsg() }

// Join seats a connection in any room of the game type with a free seat,
// creating one when none exists. It cannot fail.
type Join struct {
	GameType game.Type
	ClientID string
	Outbox   chan types.ServerEvent
}

func (Join) isHubMsg() {}

// Forward routes a gameplay message to a room. A stale or unknown room id is
// silently dropped.
type Forward struct {
	GameType game.Type
	RoomID   string
	Msg      room.Msg
}

func (Forward) isHubMsg() {}

// Disconnect sweeps the connection out of every room of every game type.
type Disconnect struct {
	ClientID string
}

func (Disconnect) isHubMsg() {}

type GetRoom struct {
	GameType game.Type
	RoomID   string
	Reply    chan *room.Room
}

func (GetRoom) isHubMsg() {}

type ListRooms struct {
	GameType game.Type
	Reply    chan []string
}

func (ListRooms) isHubMsg() {}

type ShutdownHub struct{}

func (ShutdownHub) isHubMsg() {}

// entry pairs a room handle with the hub's own seat bookkeeping. The hub is
// the only seat assigner, so occupancy here and in the room cannot diverge.
type entry struct {
	rm      *room.Room
	players [2]string
}

func (e *entry) occupied() int {
	return lo.CountBy(e.players[:], func(id string) bool { return id != "" })
}

func (e *entry) freeSeat() int {
	for i, id := range e.players {
		if id == "" {
			return i
		}
	}
	return -1
}

// Hub owns every room registry and runs matchmaking. One goroutine, one
// inbox: handlers run to completion, so no two of them ever interleave
// mid-mutation.
type Hub struct {
	inbox  chan Msg
	rooms  map[game.Type]map[string]*entry
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox: make(chan Msg, 64),
		rooms: map[game.Type]map[string]*entry{
			game.PingPong: {},
			game.Tetris:   {},
			game.Racing:   {},
		},
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.handleJoin(msg)

			case Forward:
				e, ok := h.rooms[msg.GameType][msg.RoomID]
				if !ok {
					// Stale reference: room already closed or never existed.
					h.log.Debug("dropping message for unknown room",
						zap.String("gameType", string(msg.GameType)), zap.String("room", msg.RoomID))
					break
				}
				e.rm.Inbox() <- msg.Msg

			case Disconnect:
				h.handleDisconnect(msg)

			case GetRoom:
				if e, ok := h.rooms[msg.GameType][msg.RoomID]; ok {
					msg.Reply <- e.rm
				} else {
					msg.Reply <- nil
				}

			case ListRooms:
				msg.Reply <- lo.Keys(h.rooms[msg.GameType])

			case ShutdownHub:
				for _, registry := range h.rooms {
					for id, e := range registry {
						e.rm.Inbox() <- room.Shutdown{}
						delete(registry, id)
					}
				}
				h.cancel()
			}
		}
	}
}

func (h *Hub) handleJoin(msg Join) {
	registry := h.rooms[msg.GameType]

	var e *entry
	for _, cand := range registry {
		if cand.occupied() < 2 {
			e = cand
			break
		}
	}
	if e == nil {
		id := h.newRoomID(registry)
		e = &entry{rm: room.New(h.ctx, id, msg.GameType, h.log)}
		registry[id] = e
		h.log.Info("room created", zap.String("room", id), zap.String("gameType", string(msg.GameType)))
	}

	seat := e.freeSeat()
	e.players[seat] = msg.ClientID
	e.rm.Inbox() <- room.Join{ClientID: msg.ClientID, Seat: seat, Outbox: msg.Outbox}
	h.log.Info("player seated",
		zap.String("room", e.rm.ID()), zap.String("client", msg.ClientID), zap.Int("seat", seat))
}

func (h *Hub) handleDisconnect(msg Disconnect) {
	// A connection belongs to at most one room in practice; the sweep still
	// runs against every registry unconditionally.
	for gameType, registry := range h.rooms {
		for id, e := range registry {
			swept := false
			for i, pid := range e.players {
				if pid == msg.ClientID {
					e.players[i] = ""
					swept = true
				}
			}
			if !swept {
				continue
			}
			if e.occupied() == 0 {
				e.rm.Inbox() <- room.Shutdown{}
				delete(registry, id)
				h.log.Info("room removed", zap.String("room", id), zap.String("gameType", string(gameType)))
				continue
			}
			e.rm.Inbox() <- room.Leave{ClientID: msg.ClientID}
		}
	}
}

// newRoomID derives a room id from the wall clock; only uniqueness within
// the registry matters, so a same-millisecond collision just bumps.
func (h *Hub) newRoomID(registry map[string]*entry) string {
	n := time.Now().UnixMilli()
	for {
		id := strconv.FormatInt(n, 10)
		if _, exists := registry[id]; !exists {
			return id
		}
		n++
	}
}
