package orch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suryapratap64/Open-stream/internal/core"
	"github.com/suryapratap64/Open-stream/internal/domain"
	"github.com/suryapratap64/Open-stream/internal/invite"
	"github.com/suryapratap64/Open-stream/internal/protocol"
)

// --- fakes -----------------------------------------------------------------

var stubIDs atomic.Int64

func stubID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, stubIDs.Add(1))
}

// stubSignal records every frame delivered to one connection.
type stubSignal struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (s *stubSignal) TrySend(f core.Frame) error {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
	return nil
}

func (s *stubSignal) Close() {}

// eventTypes decodes the type tag of every recorded frame, in order.
func (s *stubSignal) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		var env protocol.Envelope
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func (s *stubSignal) lastOf(eventType string) (core.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		var env protocol.Envelope
		_ = json.Unmarshal(s.frames[i], &env)
		if env.Type == eventType {
			return s.frames[i], true
		}
	}
	return nil, false
}

func (s *stubSignal) has(eventType string) bool {
	_, ok := s.lastOf(eventType)
	return ok
}

type stubEngine struct{}

func (stubEngine) CreateRouter(ctx context.Context, codecs []core.Codec) (core.Router, error) {
	caps, _ := json.Marshal(struct {
		Codecs []core.Codec `json:"codecs"`
	}{codecs})
	return &stubRouter{caps: caps, producers: make(map[string]core.MediaKind)}, nil
}

type stubRouter struct {
	caps json.RawMessage

	mu        sync.Mutex
	producers map[string]core.MediaKind
}

func (r *stubRouter) RTPCapabilities() json.RawMessage { return r.caps }

func (r *stubRouter) CreateTransport(ctx context.Context, dir core.TransportDirection) (core.Transport, error) {
	return &stubTransport{id: stubID("transport"), router: r}, nil
}

func (r *stubRouter) CanConsume(producerID string, rtpCapabilities json.RawMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.producers[producerID]; !ok {
		return false
	}
	return bytes.Contains(rtpCapabilities, []byte("codecs"))
}

func (r *stubRouter) Close() {}

type stubTransport struct {
	id     string
	router *stubRouter
}

func (t *stubTransport) ID() string { return t.id }

func (t *stubTransport) Parameters() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q}`, t.id))
}

func (t *stubTransport) Connect(ctx context.Context, dtls json.RawMessage) error { return nil }

func (t *stubTransport) Produce(ctx context.Context, kind core.MediaKind, rtp json.RawMessage) (core.Producer, error) {
	pr := &stubProducer{id: stubID("producer"), kind: kind}
	t.router.mu.Lock()
	t.router.producers[pr.id] = kind
	t.router.mu.Unlock()
	return pr, nil
}

func (t *stubTransport) Consume(ctx context.Context, producerID string, caps json.RawMessage) (core.Consumer, error) {
	t.router.mu.Lock()
	kind, ok := t.router.producers[producerID]
	t.router.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown producer")
	}
	return &stubConsumer{id: stubID("consumer"), producerID: producerID, kind: kind}, nil
}

func (t *stubTransport) Close() {}

type stubProducer struct {
	id   string
	kind core.MediaKind
}

func (p *stubProducer) ID() string           { return p.id }
func (p *stubProducer) Kind() core.MediaKind { return p.kind }
func (p *stubProducer) Close()               {}

type stubConsumer struct {
	id         string
	producerID string
	kind       core.MediaKind

	resumed atomic.Int32
}

func (c *stubConsumer) ID() string           { return c.id }
func (c *stubConsumer) ProducerID() string   { return c.producerID }
func (c *stubConsumer) Kind() core.MediaKind { return c.kind }

func (c *stubConsumer) RTPParameters() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"consumerId":%q}`, c.id))
}

func (c *stubConsumer) Resume() error { c.resumed.Add(1); return nil }
func (c *stubConsumer) Close()        {}

// --- helpers ---------------------------------------------------------------

const compatibleCaps = `{"codecs":[{"mimeType":"audio/opus"}]}`

func newTestOrchestrator() (*Orchestrator, *invite.Store) {
	invites := invite.NewStore("test-secret", time.Hour)
	registry := core.NewRegistry(stubEngine{}, invites)
	return New(registry, invites), invites
}

func join(t *testing.T, o *Orchestrator, conn core.ConnectionID, sig *stubSignal, room, user string) *protocol.Joined {
	t.Helper()
	res, err := o.Join(context.Background(), conn, sig, protocol.JoinRequest{
		Room:        room,
		UserID:      user,
		DisplayName: user,
	})
	require.NoError(t, err)
	return res
}

// --- tests -----------------------------------------------------------------

func TestJoinFirstPeerIsHost(t *testing.T) {
	o, invites := newTestOrchestrator()

	sig := &stubSignal{}
	res := join(t, o, "host-conn", sig, "room-1", "alice")

	assert.Equal(t, domain.RoleHost, res.Role)
	assert.NotEmpty(t, res.RouterCapabilities)
	assert.Empty(t, res.ExistingProducers)
	require.Len(t, res.Participants, 1)
	assert.Equal(t, domain.RoleHost, res.Participants[0].Role)

	_, ok := invites.Get("room-1")
	assert.True(t, ok, "invite session is minted with the room")
}

func TestJoinWaitingPeerNotifiesHost(t *testing.T) {
	o, _ := newTestOrchestrator()

	hostSig := &stubSignal{}
	join(t, o, "host-conn", hostSig, "room-1", "alice")

	guestSig := &stubSignal{}
	res := join(t, o, "guest-conn", guestSig, "room-1", "bob")

	assert.Equal(t, domain.RoleWaiting, res.Role)
	assert.True(t, hostSig.has(protocol.TypePeerJoined))

	frame, ok := hostSig.lastOf(protocol.TypeJoinRequest)
	require.True(t, ok, "host must receive the join request")
	var jr protocol.JoinRequested
	require.NoError(t, json.Unmarshal(frame, &jr))
	assert.Equal(t, core.ConnectionID("guest-conn"), jr.ConnectionID)
	assert.Equal(t, domain.UserID("bob"), jr.UserID)

	assert.Empty(t, guestSig.frames, "waiting peer receives nothing yet")
}

func TestJoinWithInviteToken(t *testing.T) {
	o, invites := newTestOrchestrator()
	join(t, o, "host-conn", &stubSignal{}, "room-1", "alice")
	token := invites.EnsureSession("room-1", "alice")

	res, err := o.Join(context.Background(), "guest-conn", &stubSignal{}, protocol.JoinRequest{
		Room:        "room-1",
		UserID:      "bob",
		InviteToken: token,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWaiting, res.Role)

	_, err = o.Join(context.Background(), "other-conn", &stubSignal{}, protocol.JoinRequest{
		Room:        "room-1",
		UserID:      "carol",
		InviteToken: "bogus.token",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInviteToken)

	// A valid token for a different room must not open this one.
	otherToken := invites.EnsureSession("room-2", "alice")
	_, err = o.Join(context.Background(), "other-conn", &stubSignal{}, protocol.JoinRequest{
		Room:        "room-1",
		UserID:      "carol",
		InviteToken: otherToken,
	})
	assert.ErrorIs(t, err, core.ErrInvalidInviteToken)
}

func TestJoinRejectsBadIdentity(t *testing.T) {
	o, _ := newTestOrchestrator()
	_, err := o.Join(context.Background(), "c1", &stubSignal{}, protocol.JoinRequest{
		Room: "room-1",
	})
	assert.ErrorIs(t, err, domain.ErrUserIDEmpty)
}

func TestWaitingPeerCannotTouchMedia(t *testing.T) {
	o, _ := newTestOrchestrator()
	join(t, o, "host-conn", &stubSignal{}, "room-1", "alice")
	join(t, o, "guest-conn", &stubSignal{}, "room-1", "bob")

	ctx := context.Background()
	_, err := o.CreateTransport(ctx, "guest-conn", core.DirectionSend)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = o.CreateTransport(ctx, "guest-conn", core.DirectionRecv)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = o.Produce(ctx, "guest-conn", "whatever", core.KindAudio, nil)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = o.Consume(ctx, "guest-conn", "whatever", json.RawMessage(compatibleCaps))
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestCreateTransportIsIdempotentPerDirection(t *testing.T) {
	o, _ := newTestOrchestrator()
	join(t, o, "host-conn", &stubSignal{}, "room-1", "alice")

	ctx := context.Background()
	first, err := o.CreateTransport(ctx, "host-conn", core.DirectionSend)
	require.NoError(t, err)
	second, err := o.CreateTransport(ctx, "host-conn", core.DirectionSend)
	require.NoError(t, err)
	assert.Equal(t, first.TransportID, second.TransportID)

	recv, err := o.CreateTransport(ctx, "host-conn", core.DirectionRecv)
	require.NoError(t, err)
	assert.NotEqual(t, first.TransportID, recv.TransportID)

	require.NoError(t, o.ConnectTransport(ctx, "host-conn", first.TransportID, json.RawMessage(`{"sdp":"answer"}`)))
	err = o.ConnectTransport(ctx, "host-conn", "missing", nil)
	assert.ErrorIs(t, err, core.ErrTransportNotFound)
}

func TestProduceAndConsumeFlow(t *testing.T) {
	o, _ := newTestOrchestrator()
	hostSig := &stubSignal{}
	guestSig := &stubSignal{}
	join(t, o, "host-conn", hostSig, "room-1", "alice")
	join(t, o, "guest-conn", guestSig, "room-1", "bob")
	require.NoError(t, o.ApproveJoin("host-conn", "guest-conn", false))

	ctx := context.Background()
	sendT, err := o.CreateTransport(ctx, "host-conn", core.DirectionSend)
	require.NoError(t, err)

	producerID, err := o.Produce(ctx, "host-conn", sendT.TransportID, core.KindAudio, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.NotEmpty(t, producerID)

	// Everyone else in the room learns about the new producer.
	frame, ok := guestSig.lastOf(protocol.TypeNewProducer)
	require.True(t, ok)
	var np protocol.NewProducer
	require.NoError(t, json.Unmarshal(frame, &np))
	assert.Equal(t, producerID, np.ProducerID)
	assert.Equal(t, core.KindAudio, np.Kind)

	// Producing on the wrong transport id is rejected.
	_, err = o.Produce(ctx, "host-conn", "missing", core.KindAudio, nil)
	assert.ErrorIs(t, err, core.ErrTransportNotFound)

	// Consume with compatible capabilities.
	consumed, err := o.Consume(ctx, "guest-conn", producerID, json.RawMessage(compatibleCaps))
	require.NoError(t, err)
	assert.Equal(t, producerID, consumed.ProducerID)
	assert.Equal(t, core.KindAudio, consumed.Kind)

	require.NoError(t, o.ResumeConsumer("guest-conn", consumed.ConsumerID))
	assert.ErrorIs(t, o.ResumeConsumer("guest-conn", "missing"), core.ErrConsumerNotFound)

	// Incompatible or unknown producers are both capability failures.
	_, err = o.Consume(ctx, "guest-conn", producerID, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, core.ErrIncompatibleCapabilities)
	_, err = o.Consume(ctx, "guest-conn", "missing", json.RawMessage(compatibleCaps))
	assert.ErrorIs(t, err, core.ErrIncompatibleCapabilities)

	// A new joiner sees the host's producer in its snapshot.
	lateSig := &stubSignal{}
	res := join(t, o, "late-conn", lateSig, "room-1", "carol")
	require.Len(t, res.ExistingProducers, 1)
	assert.Equal(t, producerID, res.ExistingProducers[0].ProducerID)
}

func TestSpeakingPermissionLifecycle(t *testing.T) {
	o, _ := newTestOrchestrator()
	hostSig := &stubSignal{}
	guestSig := &stubSignal{}
	join(t, o, "host-conn", hostSig, "room-1", "alice")
	join(t, o, "guest-conn", guestSig, "room-1", "bob")

	// Approve as consumer first.
	require.NoError(t, o.ApproveJoin("host-conn", "guest-conn", false))
	frame, ok := guestSig.lastOf(protocol.TypeJoinApproved)
	require.True(t, ok)
	var approved protocol.JoinApproved
	require.NoError(t, json.Unmarshal(frame, &approved))
	assert.Equal(t, domain.RoleConsumer, approved.Role)
	assert.True(t, guestSig.has(protocol.TypeParticipantsUpdated))

	// Consumer asks to speak; request lands on the host.
	require.NoError(t, o.RequestSpeakingPermission("guest-conn"))
	frame, ok = hostSig.lastOf(protocol.TypeSpeakingPermissionRequest)
	require.True(t, ok)
	var spr protocol.SpeakingPermissionRequest
	require.NoError(t, json.Unmarshal(frame, &spr))
	assert.Equal(t, core.ConnectionID("guest-conn"), spr.ConnectionID)

	// Promote, produce, then demote.
	require.NoError(t, o.PromoteToProducer("host-conn", "guest-conn"))
	frame, ok = guestSig.lastOf(protocol.TypePromotedToProducer)
	require.True(t, ok)
	var rc protocol.RoleChanged
	require.NoError(t, json.Unmarshal(frame, &rc))
	assert.Equal(t, domain.RoleProducer, rc.Role)

	// Producers may not request what they already have.
	err := o.RequestSpeakingPermission("guest-conn")
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	ctx := context.Background()
	sendT, err := o.CreateTransport(ctx, "guest-conn", core.DirectionSend)
	require.NoError(t, err)
	_, err = o.Produce(ctx, "guest-conn", sendT.TransportID, core.KindAudio, json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, o.DemoteToConsumer("host-conn", "guest-conn"))
	frame, ok = guestSig.lastOf(protocol.TypeDemotedToConsumer)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(frame, &rc))
	assert.Equal(t, domain.RoleConsumer, rc.Role)

	// The publish path is gone: producing again needs a fresh transport.
	_, err = o.Produce(ctx, "guest-conn", sendT.TransportID, core.KindAudio, nil)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	// Only the host may drive role changes.
	assert.ErrorIs(t, o.PromoteToProducer("guest-conn", "host-conn"), core.ErrPermissionDenied)
}

func TestDisconnectCleanup(t *testing.T) {
	o, invites := newTestOrchestrator()
	hostSig := &stubSignal{}
	guestSig := &stubSignal{}
	join(t, o, "host-conn", hostSig, "room-1", "alice")
	join(t, o, "guest-conn", guestSig, "room-1", "bob")

	o.Disconnect("guest-conn")

	frame, ok := hostSig.lastOf(protocol.TypePeerLeft)
	require.True(t, ok)
	var left protocol.PeerLeft
	require.NoError(t, json.Unmarshal(frame, &left))
	assert.Equal(t, core.ConnectionID("guest-conn"), left.ConnectionID)

	room, ok := o.Registry.Get("room-1")
	require.True(t, ok)
	assert.Equal(t, 1, room.PeerCount())

	// Last peer out deletes the room and its invite session.
	o.Disconnect("host-conn")
	_, ok = o.Registry.Get("room-1")
	assert.False(t, ok)
	_, ok = invites.Get("room-1")
	assert.False(t, ok)

	// Disconnecting an unknown connection is a no-op.
	o.Disconnect("host-conn")
}

func TestJoinAgainLeavesPreviousRoom(t *testing.T) {
	o, invites := newTestOrchestrator()
	hostSig := &stubSignal{}
	guestSig := &stubSignal{}
	join(t, o, "host-conn", hostSig, "room-1", "alice")
	join(t, o, "guest-conn", guestSig, "room-1", "bob")

	// Joining a second room from the same connection leaves the first.
	res := join(t, o, "guest-conn", guestSig, "room-2", "bob")
	assert.Equal(t, domain.RoleHost, res.Role, "fresh room, fresh host")

	room1, ok := o.Registry.Get("room-1")
	require.True(t, ok)
	assert.Equal(t, 1, room1.PeerCount())
	_, ok = room1.GetPeer("guest-conn")
	assert.False(t, ok, "the old room must not retain the peer")

	frame, ok := hostSig.lastOf(protocol.TypePeerLeft)
	require.True(t, ok)
	var left protocol.PeerLeft
	require.NoError(t, json.Unmarshal(frame, &left))
	assert.Equal(t, core.ConnectionID("guest-conn"), left.ConnectionID)

	room, err := o.RoomOf("guest-conn")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("room-2"), room.ID())

	// When the departing connection was the last peer, the old room and its
	// invite session go away entirely.
	join(t, o, "host-conn", hostSig, "room-3", "alice")
	_, ok = o.Registry.Get("room-1")
	assert.False(t, ok)
	_, ok = invites.Get("room-1")
	assert.False(t, ok)
}

func TestOperationsRequireMembership(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx := context.Background()

	_, err := o.CreateTransport(ctx, "stranger", core.DirectionSend)
	assert.ErrorIs(t, err, core.ErrRoomNotFound)
	_, err = o.Consume(ctx, "stranger", "p1", json.RawMessage(compatibleCaps))
	assert.ErrorIs(t, err, core.ErrRoomNotFound)
	assert.ErrorIs(t, o.ApproveJoin("stranger", "x", false), core.ErrRoomNotFound)
	assert.ErrorIs(t, o.RequestSpeakingPermission("stranger"), core.ErrRoomNotFound)
}
