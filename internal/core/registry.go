package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/domain"
)

// InviteSessions is the slice of the invite store the registry needs:
// a session is created alongside the room and dropped with it.
type InviteSessions interface {
	EnsureSession(roomID, hostName string) (token string)
	RemoveSession(roomID string)
}

type RoomInfo struct {
	ID        domain.RoomID `json:"id"`
	PeerCount int           `json:"peerCount"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Registry is the process-wide room map. Rooms are created lazily on first
// reference and removed the instant their last peer leaves.
type Registry struct {
	engine  Engine
	invites InviteSessions

	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewRegistry(engine Engine, invites InviteSessions) *Registry {
	return &Registry{
		engine:  engine,
		invites: invites,
		rooms:   make(map[domain.RoomID]*Room),
	}
}

// EnsureRoom returns the existing room or creates one, asking the engine
// for a router scoped to the fixed codec set. Creation is all-or-nothing:
// the room is only published once the router exists, and losing the create
// race closes the spare router.
func (g *Registry) EnsureRoom(ctx context.Context, id domain.RoomID, hostName string) (*Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[id]
	g.mu.RUnlock()
	if ok {
		return room, nil
	}

	router, err := g.engine.CreateRouter(ctx, DefaultCodecs())
	if err != nil {
		return nil, Collaborator("create router", err)
	}

	g.mu.Lock()
	if existing, ok := g.rooms[id]; ok {
		g.mu.Unlock()
		router.Close()
		return existing, nil
	}
	room = NewRoom(id, router)
	g.rooms[id] = room
	g.mu.Unlock()

	if g.invites != nil {
		g.invites.EnsureSession(string(id), hostName)
	}
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return room, nil
}

func (g *Registry) Get(id domain.RoomID) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[id]
	return room, ok
}

// Remove deletes the room from the registry, closes it and drops its
// invite session. No-op for unknown ids.
func (g *Registry) Remove(id domain.RoomID) {
	g.mu.Lock()
	room, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
	}
	g.mu.Unlock()
	if !ok {
		return
	}
	room.Close()
	if g.invites != nil {
		g.invites.RemoveSession(string(id))
	}
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room removed")
}

func (g *Registry) List() []RoomInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]RoomInfo, 0, len(g.rooms))
	for id, r := range g.rooms {
		out = append(out, RoomInfo{ID: id, PeerCount: r.PeerCount(), CreatedAt: r.CreatedAt()})
	}
	return out
}
