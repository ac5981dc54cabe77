package domain

// Role is the admission/publish capability of a peer inside a room.
//
// host is assigned exactly once, to the first peer admitted into a room,
// and never changes. Everybody else starts as waiting and is moved by the
// host: waiting -> consumer (approve), waiting -> producer (approve with
// promote), consumer -> producer (promote), producer -> consumer (demote).
// There is no way back to waiting.
type Role string

const (
	RoleWaiting  Role = "waiting"
	RoleConsumer Role = "consumer"
	RoleProducer Role = "producer"
	RoleHost     Role = "host"
)

// CanProduce reports whether the role grants publish rights.
func (r Role) CanProduce() bool {
	return r == RoleProducer || r == RoleHost
}

// CanConsume reports whether the role may receive media. Waiting peers may
// not open any transport, not even a receiving one.
func (r Role) CanConsume() bool {
	return r == RoleConsumer || r == RoleProducer || r == RoleHost
}

// CanTransitionTo reports whether the host may move a peer from r to next.
func (r Role) CanTransitionTo(next Role) bool {
	switch r {
	case RoleWaiting:
		return next == RoleConsumer || next == RoleProducer
	case RoleConsumer:
		return next == RoleProducer
	case RoleProducer:
		return next == RoleConsumer
	default:
		// host is immutable, and nothing else exists.
		return false
	}
}
