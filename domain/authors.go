package domain

import (
	"time"

	"github.com/google/uuid"
)

// Author represents a content author, local or hosted on a remote node.
// Remote authors are created lazily on first reference from an inbound
// activity. Authors are never hard-deleted.
type Author struct {
	Id          uuid.UUID
	FQID        string // fully-qualified id; host component names the owning node
	Host        string
	Username    string
	DisplayName string
	Local       bool
	CreatedAt   time.Time
}

// Follow state values. A follow row moves through REQUESTED to either
// ACCEPTED or REJECTED; at most one row exists per ordered (actor, object)
// pair at any time.
const (
	FollowRequested = "REQUESTED"
	FollowAccepted  = "ACCEPTED"
	FollowRejected  = "REJECTED"
)

// Follow is the federation-visible audit record of one directed follow
// relationship. Friendship is derived, never stored: two authors are
// friends iff both directions exist in ACCEPTED state.
type Follow struct {
	Id         uuid.UUID
	FQID       string // id of the Follow activity that created this row
	ActorFQID  string // the follower
	ObjectFQID string // the target being followed
	State      string
	Summary    string
	Published  time.Time
}

// Node is a remote federation peer. AuthUser/AuthPass are the credentials
// we present when delivering to the peer; SharedUser/SharedPassHash are
// the bcrypt-hashed credentials the peer presents to us.
type Node struct {
	Id             uuid.UUID
	BaseURL        string
	Host           string
	AuthUser       string
	AuthPass       string
	SharedUser     string
	SharedPassHash string
	Active         bool
	CreatedAt      time.Time
}
