package activitypub

import (
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
)

// DBWrapper wraps the real database to implement the Database interface.
// This adapter allows the production code to use the existing db.GetDB() singleton
// while also supporting dependency injection for tests.
type DBWrapper struct {
	db *db.DB
}

// NewDBWrapper creates a new database wrapper around the singleton database
func NewDBWrapper() *DBWrapper {
	return &DBWrapper{db: db.GetDB()}
}

// Author operations

func (w *DBWrapper) ReadAuthorByFQID(fqid string) (error, *domain.Author) {
	return w.db.ReadAuthorByFQID(fqid)
}

func (w *DBWrapper) CreateAuthor(a *domain.Author) error {
	return w.db.CreateAuthor(a)
}

func (w *DBWrapper) UpdateAuthorProfile(fqid string, displayName string) error {
	return w.db.UpdateAuthorProfile(fqid, displayName)
}

// Follow operations

func (w *DBWrapper) ReplaceFollow(f *domain.Follow) error {
	return w.db.ReplaceFollow(f)
}

func (w *DBWrapper) DeleteFollowByPair(actorFQID, objectFQID string) error {
	return w.db.DeleteFollowByPair(actorFQID, objectFQID)
}

func (w *DBWrapper) ReadFollowByPair(actorFQID, objectFQID string) (error, *domain.Follow) {
	return w.db.ReadFollowByPair(actorFQID, objectFQID)
}

func (w *DBWrapper) ReadFollowByFQID(fqid string) (error, *domain.Follow) {
	return w.db.ReadFollowByFQID(fqid)
}

func (w *DBWrapper) ReadAcceptedFollowerFQIDs(authorFQID string) (error, []string) {
	return w.db.ReadAcceptedFollowerFQIDs(authorFQID)
}

func (w *DBWrapper) ReadAcceptedFollowingFQIDs(authorFQID string) (error, []string) {
	return w.db.ReadAcceptedFollowingFQIDs(authorFQID)
}

// Entry operations

func (w *DBWrapper) UpsertEntry(e *domain.Entry) error {
	return w.db.UpsertEntry(e)
}

func (w *DBWrapper) UpdateEntryByFQID(e *domain.Entry) error {
	return w.db.UpdateEntryByFQID(e)
}

func (w *DBWrapper) SoftDeleteEntryByFQID(fqid string) error {
	return w.db.SoftDeleteEntryByFQID(fqid)
}

func (w *DBWrapper) ReadEntryByFQID(fqid string) (error, *domain.Entry) {
	return w.db.ReadEntryByFQID(fqid)
}

// Comment operations

func (w *DBWrapper) UpsertComment(c *domain.Comment) error {
	return w.db.UpsertComment(c)
}

func (w *DBWrapper) DeleteCommentByFQID(fqid string) error {
	return w.db.DeleteCommentByFQID(fqid)
}

func (w *DBWrapper) ReadCommentByFQID(fqid string) (error, *domain.Comment) {
	return w.db.ReadCommentByFQID(fqid)
}

// Like operations

func (w *DBWrapper) ReplaceLike(l *domain.Like) error {
	return w.db.ReplaceLike(l)
}

func (w *DBWrapper) DeleteLikeByPair(authorFQID, objectFQID string) error {
	return w.db.DeleteLikeByPair(authorFQID, objectFQID)
}

func (w *DBWrapper) ReadLikeByFQID(fqid string) (error, *domain.Like) {
	return w.db.ReadLikeByFQID(fqid)
}

// Inbox operations

func (w *DBWrapper) CreateInboxItem(item *domain.InboxItem) error {
	return w.db.CreateInboxItem(item)
}

func (w *DBWrapper) ClaimUnprocessedInbox(authorFQID string) (error, *[]domain.InboxItem) {
	return w.db.ClaimUnprocessedInbox(authorFQID)
}

func (w *DBWrapper) ReadInboxBacklogAuthors() (error, []string) {
	return w.db.ReadInboxBacklogAuthors()
}

// Node operations

func (w *DBWrapper) ReadNodeByHost(host string) (error, *domain.Node) {
	return w.db.ReadNodeByHost(host)
}

// Ensure DBWrapper implements Database interface
var _ Database = (*DBWrapper)(nil)
