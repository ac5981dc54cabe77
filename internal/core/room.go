package core

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []ConnectionID
}

// Room owns one router handle and the set of peers connected to it.
// It is threadsafe; "count peers, assign role, insert" is one critical
// section so the first-peer-becomes-host rule holds under parallelism.
type Room struct {
	id        domain.RoomID
	router    Router
	createdAt time.Time

	mu       sync.RWMutex
	peers    map[ConnectionID]*Peer
	hostConn ConnectionID
	closed   bool
}

func NewRoom(id domain.RoomID, router Router) *Room {
	return &Room{
		id:        id,
		router:    router,
		createdAt: time.Now(),
		peers:     make(map[ConnectionID]*Peer),
	}
}

func (r *Room) ID() domain.RoomID    { return r.id }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// RTPCapabilities is a passthrough read of the router's capability set.
func (r *Room) RTPCapabilities() json.RawMessage { return r.router.RTPCapabilities() }

func (r *Room) Router() Router { return r.router }

// Admit registers a new peer and assigns its initial role: host for the
// first peer ever admitted, waiting for everyone else.
func (r *Room) Admit(connID ConnectionID, identity domain.Identity, sig SignalConnection) (*Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomNotFound
	}
	if _, ok := r.peers[connID]; ok {
		return nil, ErrDuplicateConnection
	}
	role := domain.RoleWaiting
	if len(r.peers) == 0 {
		role = domain.RoleHost
		r.hostConn = connID
	}
	// Same-user re-join from a new connection is detected but not
	// reconciled: both connections stay live. Eviction is a policy call
	// that has not been made yet.
	for prev, p := range r.peers {
		if p.Identity().UserID == identity.UserID {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).
				Str("user", string(identity.UserID)).
				Str("existing_conn", string(prev)).Str("new_conn", string(connID)).
				Msg("same user joined twice")
		}
	}
	peer := NewPeer(connID, identity, role, sig)
	r.peers[connID] = peer
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(connID)).Str("role", string(role)).Msg("peer admitted")
	return peer, nil
}

func (r *Room) GetPeer(connID ConnectionID) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[connID]
	return p, ok
}

// PeerByUserID scans for re-entry detection; it does not merge state.
func (r *Room) PeerByUserID(userID domain.UserID) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.peers {
		if p.Identity().UserID == userID {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Room) Participants() []ParticipantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ParticipantInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p.Info())
	}
	return out
}

// ProducersSnapshot returns every producer in the room except those owned
// by the excluded connection.
func (r *Room) ProducersSnapshot(exclude ConnectionID) []ProducerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProducerInfo, 0)
	for connID, p := range r.peers {
		if connID == exclude {
			continue
		}
		for _, pr := range p.Producers() {
			out = append(out, ProducerInfo{
				PeerID:      connID,
				ProducerID:  pr.ID(),
				Kind:        pr.Kind(),
				DisplayName: p.Identity().DisplayName,
			})
		}
	}
	return out
}

// Host returns the peer currently holding the host role, if connected.
func (r *Room) Host() (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[r.hostConn]
	return p, ok
}

func (r *Room) CanPeerProduce(connID ConnectionID) bool {
	r.mu.RLock()
	p, ok := r.peers[connID]
	r.mu.RUnlock()
	return ok && p.Role().CanProduce()
}

func (r *Room) IsHost(connID ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if connID == r.hostConn {
		return true
	}
	p, ok := r.peers[connID]
	return ok && p.Role() == domain.RoleHost
}

// ApproveJoin moves a waiting peer to consumer, or straight to producer
// when promote is set. Host-only.
func (r *Room) ApproveJoin(host, target ConnectionID, promote bool) (domain.Role, error) {
	next := domain.RoleConsumer
	if promote {
		next = domain.RoleProducer
	}
	peer, err := r.transition(host, target, domain.RoleWaiting, next)
	if err != nil {
		return "", err
	}
	return peer.Role(), nil
}

// PromoteToProducer grants speaking rights to a consumer. Host-only.
func (r *Room) PromoteToProducer(host, target ConnectionID) error {
	_, err := r.transition(host, target, domain.RoleConsumer, domain.RoleProducer)
	return err
}

// DemoteToConsumer revokes speaking rights and tears down the peer's
// publish path. Host-only.
func (r *Room) DemoteToConsumer(host, target ConnectionID) error {
	peer, err := r.transition(host, target, domain.RoleProducer, domain.RoleConsumer)
	if err != nil {
		return err
	}
	peer.CloseSendPath()
	return nil
}

// transition applies one role change under the room lock. The target must
// currently hold from; anything else is a failing no-op.
func (r *Room) transition(host, target ConnectionID, from, next domain.Role) (*Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if host != r.hostConn {
		return nil, ErrPermissionDenied
	}
	p, ok := r.peers[target]
	if !ok {
		return nil, ErrPeerNotFound
	}
	cur := p.Role()
	if cur != from || !cur.CanTransitionTo(next) {
		return nil, ErrInvalidRoleTransition
	}
	p.setRole(next)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(target)).Str("from", string(cur)).Str("to", string(next)).
		Msg("role changed")
	return p, nil
}

// RemovePeer closes all of the peer's handles and deletes it, returning the
// removed peer and the remaining peer count.
func (r *Room) RemovePeer(connID ConnectionID) (*Peer, int, bool) {
	r.mu.Lock()
	p, ok := r.peers[connID]
	if ok {
		delete(r.peers, connID)
	}
	remaining := len(r.peers)
	r.mu.Unlock()
	if !ok {
		return nil, remaining, false
	}
	p.Close()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).
		Str("conn", string(connID)).Int("remaining", remaining).Msg("peer removed")
	return p, remaining, true
}

// Broadcast fans data out to every peer except from. Slow connections are
// dropped from the result, never blocked on.
func (r *Room) Broadcast(from ConnectionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for connID, p := range r.peers {
		if connID == from {
			continue
		}
		if err := p.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, connID)
			continue
		}
		res.SentTo++
	}
	if len(res.Dropped) > 0 {
		log.Debug().Str("module", "core.room").Str("room", string(r.id)).
			Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	}
	return res
}

// Close removes every peer (cascading handle closes) then closes the
// router handle. Safe to call on an already-empty room; exactly-once on
// the router is guarded by the closed flag.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for connID, p := range r.peers {
		p.Close()
		delete(r.peers, connID)
	}
	r.router.Close()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Msg("room closed")
}
