package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entry visibility values. DELETED is a soft-delete marker; the row stays.
const (
	VisibilityPublic   = "PUBLIC"
	VisibilityUnlisted = "UNLISTED"
	VisibilityFriends  = "FRIENDS"
	VisibilityDeleted  = "DELETED"
)

// Entry is one content unit owned by exactly one author. The FQID never
// changes after creation; visibility transitions are owner- or
// protocol-driven only.
type Entry struct {
	Id          uuid.UUID
	FQID        string
	AuthorFQID  string
	Title       string
	Content     string
	ContentType string
	Visibility  string
	Published   time.Time
	Updated     *time.Time
}

// Comment is attached to exactly one entry and optionally replies to an
// earlier comment, forming a tree through InReplyTo.
type Comment struct {
	Id          uuid.UUID
	FQID        string
	EntryFQID   string
	AuthorFQID  string
	InReplyTo   string // fqid of the parent comment, empty for top-level
	Content     string
	ContentType string
	Published   time.Time
}

// Like records one author liking one entry or comment. The target is
// matched by fqid, not by a typed foreign key.
type Like struct {
	Id         uuid.UUID
	FQID       string
	AuthorFQID string
	ObjectFQID string // entry or comment fqid
	Published  time.Time
}

// InboxItem is one queued inbound activity for one author. Append-only
// from the distributor's side; only the processor flips Processed.
type InboxItem struct {
	Id         uuid.UUID
	AuthorFQID string
	RawJSON    string
	Processed  bool
	ReceivedAt time.Time
}
