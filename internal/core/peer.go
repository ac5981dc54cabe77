package core

import (
	"context"
	"sync"
	"time"

	"github.com/suryapratap64/Open-stream/internal/domain"
)

// ConnectionID identifies one live signaling connection (one browser tab).
type ConnectionID string

// ParticipantInfo is a read-only view for APIs (no transport fields).
type ParticipantInfo struct {
	ConnectionID ConnectionID  `json:"connectionId"`
	UserID       domain.UserID `json:"userId"`
	DisplayName  string        `json:"displayName"`
	Role         domain.Role   `json:"role"`
}

// ProducerInfo is the "existing producers" view handed to a newly admitted
// peer so it can begin consuming immediately.
type ProducerInfo struct {
	PeerID      ConnectionID `json:"peerId"`
	ProducerID  string       `json:"producerId"`
	Kind        MediaKind    `json:"kind"`
	DisplayName string       `json:"displayName"`
}

// Peer is one connected participant within a room. It exclusively owns its
// transports, producers and consumers; closing the peer closes all of them.
type Peer struct {
	connID   ConnectionID
	identity domain.Identity
	signal   SignalConnection
	joinedAt time.Time

	mu            sync.Mutex
	role          domain.Role
	sendTransport Transport
	recvTransport Transport
	producers     map[string]Producer
	consumers     map[string]Consumer
	closed        bool
}

func NewPeer(connID ConnectionID, identity domain.Identity, role domain.Role, sig SignalConnection) *Peer {
	return &Peer{
		connID:    connID,
		identity:  identity,
		signal:    sig,
		joinedAt:  time.Now(),
		role:      role,
		producers: make(map[string]Producer),
		consumers: make(map[string]Consumer),
	}
}

func (p *Peer) ConnectionID() ConnectionID { return p.connID }
func (p *Peer) Identity() domain.Identity  { return p.identity }
func (p *Peer) Signal() SignalConnection   { return p.signal }
func (p *Peer) JoinedAt() time.Time        { return p.joinedAt }

func (p *Peer) Role() domain.Role {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.role
}

// setRole is called by the room with the room lock held.
func (p *Peer) setRole(r domain.Role) {
	p.mu.Lock()
	p.role = r
	p.mu.Unlock()
}

func (p *Peer) Info() ParticipantInfo {
	return ParticipantInfo{
		ConnectionID: p.connID,
		UserID:       p.identity.UserID,
		DisplayName:  p.identity.DisplayName,
		Role:         p.Role(),
	}
}

// EnsureTransport returns the cached transport for dir, creating it through
// create on first use. At most one send and one recv transport ever exist
// per peer; the lock is held across the (slow) create call so concurrent
// requests for the same direction collapse onto one handle.
//
// Publish rights are re-checked under the lock for the send direction: a
// demotion that lands after the caller's check must not leave the peer
// holding a send transport it can no longer use.
func (p *Peer) EnsureTransport(ctx context.Context, dir TransportDirection, create func(context.Context, TransportDirection) (Transport, error)) (Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerNotFound
	}
	if dir == DirectionSend && !p.role.CanProduce() {
		return nil, ErrPermissionDenied
	}
	slot := &p.sendTransport
	if dir == DirectionRecv {
		slot = &p.recvTransport
	}
	if *slot != nil {
		return *slot, nil
	}
	t, err := create(ctx, dir)
	if err != nil {
		return nil, err
	}
	*slot = t
	return t, nil
}

// TransportByID resolves which of the peer's two transports matches id.
func (p *Peer) TransportByID(id string) (Transport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendTransport != nil && p.sendTransport.ID() == id {
		return p.sendTransport, true
	}
	if p.recvTransport != nil && p.recvTransport.ID() == id {
		return p.recvTransport, true
	}
	return nil, false
}

func (p *Peer) SendTransport() Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendTransport
}

func (p *Peer) RecvTransport() Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recvTransport
}

// AddProducer stores a freshly produced handle. It re-checks publish rights
// under the peer lock: a demotion may have landed while the produce call was
// in flight, in which case the caller must close the handle.
func (p *Peer) AddProducer(pr Producer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.role.CanProduce() {
		return false
	}
	p.producers[pr.ID()] = pr
	return true
}

func (p *Peer) Producers() []Producer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Producer, 0, len(p.producers))
	for _, pr := range p.producers {
		out = append(out, pr)
	}
	return out
}

func (p *Peer) AddConsumer(c Consumer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.consumers[c.ID()] = c
	return true
}

func (p *Peer) Consumer(id string) (Consumer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.consumers[id]
	return c, ok
}

// CloseSendPath closes every producer and the send transport. Revoking
// speaking rights always destroys the publish path; a re-promoted peer has
// to negotiate a new send transport. Idempotent.
func (p *Peer) CloseSendPath() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pr := range p.producers {
		pr.Close()
		delete(p.producers, id)
	}
	if p.sendTransport != nil {
		p.sendTransport.Close()
		p.sendTransport = nil
	}
}

// Close releases every handle owned by the peer. Idempotent; handle closes
// are best-effort by contract.
func (p *Peer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for id, pr := range p.producers {
		pr.Close()
		delete(p.producers, id)
	}
	for id, c := range p.consumers {
		c.Close()
		delete(p.consumers, id)
	}
	if p.sendTransport != nil {
		p.sendTransport.Close()
		p.sendTransport = nil
	}
	if p.recvTransport != nil {
		p.recvTransport.Close()
		p.recvTransport = nil
	}
}
