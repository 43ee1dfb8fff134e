package game

import "math/rand"

type Type string

const (
	PingPong Type = "pingPong"
	Tetris   Type = "tetris"
	Racing   Type = "racing"
)

// HasPhysics reports whether the server runs an authoritative tick for this
// game type. Tetris state lives entirely on the clients and is only relayed.
func (t Type) HasPhysics() bool {
	return t == PingPong || t == Racing
}

const (
	CourtWidth  = 600.0
	CourtHeight = 400.0

	// Ticks per second for server-driven physics rooms.
	TickRate = 60

	// Racing obstacles spawn across [0, LaneWidth) and fall ObstacleStep
	// per tick until they leave the court.
	LaneWidth          = 360.0
	ObstacleStep       = 5.0
	ObstacleSpawnOdds  = 0.05
	racingStartX       = 180.0
	ballStartX         = 300.0
	ballStartY         = 200.0
	ballStartVelocityX = 5.0
	ballStartVelocityY = -5.0
)

type Ball struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func NewBall() Ball {
	return Ball{X: ballStartX, Y: ballStartY, DX: ballStartVelocityX, DY: ballStartVelocityY}
}

// Step advances the ball by one tick: integrate velocity, then invert an
// axis' velocity when the position has crossed that axis' boundary. The
// position itself is never clamped; the next tick carries it back in.
func (b *Ball) Step() {
	b.X += b.DX
	b.Y += b.DY
	if b.X < 0 || b.X > CourtWidth {
		b.DX = -b.DX
	}
	if b.Y < 0 || b.Y > CourtHeight {
		b.DY = -b.DY
	}
}

type Position struct {
	X        float64 `json:"x"`
	Distance float64 `json:"distance"`
}

func NewPosition() Position {
	return Position{X: racingStartX, Distance: 0}
}

type Obstacle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AdvanceObstacles runs one racing tick over the obstacle list: with
// ObstacleSpawnOdds probability a new obstacle appears at the top of a random
// lane position, then every obstacle falls ObstacleStep, and anything at or
// past the bottom of the court is dropped.
func AdvanceObstacles(obstacles []Obstacle, rng *rand.Rand) []Obstacle {
	if rng.Float64() < ObstacleSpawnOdds {
		obstacles = append(obstacles, Obstacle{X: rng.Float64() * LaneWidth, Y: 0})
	}
	kept := obstacles[:0]
	for i := range obstacles {
		obstacles[i].Y += ObstacleStep
		if obstacles[i].Y < CourtHeight {
			kept = append(kept, obstacles[i])
		}
	}
	return kept
}
