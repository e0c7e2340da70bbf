package activitypub

import (
	"database/sql"
	"sync"

	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// MockDatabase is an in-memory mock implementation of the Database interface for testing.
// It stores data in maps and provides full CRUD operations without requiring a real database.
type MockDatabase struct {
	mu sync.RWMutex

	// Storage maps, keyed by normalized fqid
	Authors  map[string]*domain.Author
	Entries  map[string]*domain.Entry
	Comments map[string]*domain.Comment
	Likes    map[string]*domain.Like
	Follows  map[[2]string]*domain.Follow
	Inbox    map[string][]*domain.InboxItem
	Nodes    map[string]*domain.Node

	// Error injection for testing error handling
	ForceError error
}

// NewMockDatabase creates a new mock database with initialized maps
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		Authors:  make(map[string]*domain.Author),
		Entries:  make(map[string]*domain.Entry),
		Comments: make(map[string]*domain.Comment),
		Likes:    make(map[string]*domain.Like),
		Follows:  make(map[[2]string]*domain.Follow),
		Inbox:    make(map[string][]*domain.InboxItem),
		Nodes:    make(map[string]*domain.Node),
	}
}

// SetForceError sets an error to be returned by all operations
func (m *MockDatabase) SetForceError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForceError = err
}

// AddAuthor adds an author to the mock database
func (m *MockDatabase) AddAuthor(a *domain.Author) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Authors[util.NormalizeFQID(a.FQID)] = a
}

// AddEntry adds an entry to the mock database
func (m *MockDatabase) AddEntry(e *domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[util.NormalizeFQID(e.FQID)] = e
}

// AddComment adds a comment to the mock database
func (m *MockDatabase) AddComment(c *domain.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Comments[util.NormalizeFQID(c.FQID)] = c
}

// AddFollow adds a follow relationship to the mock database
func (m *MockDatabase) AddFollow(f *domain.Follow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Follows[followKey(f.ActorFQID, f.ObjectFQID)] = f
}

// AddNode adds a federation peer to the mock database
func (m *MockDatabase) AddNode(n *domain.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nodes[n.Host] = n
}

func followKey(actorFQID, objectFQID string) [2]string {
	return [2]string{util.NormalizeFQID(actorFQID), util.NormalizeFQID(objectFQID)}
}

// Author operations

func (m *MockDatabase) ReadAuthorByFQID(fqid string) (error, *domain.Author) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	a, ok := m.Authors[util.NormalizeFQID(fqid)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, a
}

func (m *MockDatabase) CreateAuthor(a *domain.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Authors[util.NormalizeFQID(a.FQID)] = a
	return nil
}

func (m *MockDatabase) UpdateAuthorProfile(fqid string, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if a, ok := m.Authors[util.NormalizeFQID(fqid)]; ok {
		a.DisplayName = displayName
	}
	return nil
}

// Follow operations

func (m *MockDatabase) ReplaceFollow(f *domain.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Follows[followKey(f.ActorFQID, f.ObjectFQID)] = f
	return nil
}

func (m *MockDatabase) DeleteFollowByPair(actorFQID, objectFQID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	delete(m.Follows, followKey(actorFQID, objectFQID))
	return nil
}

func (m *MockDatabase) ReadFollowByPair(actorFQID, objectFQID string) (error, *domain.Follow) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	f, ok := m.Follows[followKey(actorFQID, objectFQID)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, f
}

func (m *MockDatabase) ReadFollowByFQID(fqid string) (error, *domain.Follow) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	for _, f := range m.Follows {
		if util.NormalizeFQID(f.FQID) == util.NormalizeFQID(fqid) {
			return nil, f
		}
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadAcceptedFollowerFQIDs(authorFQID string) (error, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	target := util.NormalizeFQID(authorFQID)
	var fqids []string
	for _, f := range m.Follows {
		if util.NormalizeFQID(f.ObjectFQID) == target && f.State == domain.FollowAccepted {
			fqids = append(fqids, f.ActorFQID)
		}
	}
	return nil, fqids
}

func (m *MockDatabase) ReadAcceptedFollowingFQIDs(authorFQID string) (error, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	actor := util.NormalizeFQID(authorFQID)
	var fqids []string
	for _, f := range m.Follows {
		if util.NormalizeFQID(f.ActorFQID) == actor && f.State == domain.FollowAccepted {
			fqids = append(fqids, f.ObjectFQID)
		}
	}
	return nil, fqids
}

// Entry operations

func (m *MockDatabase) UpsertEntry(e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Entries[util.NormalizeFQID(e.FQID)] = e
	return nil
}

func (m *MockDatabase) UpdateEntryByFQID(e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	existing, ok := m.Entries[util.NormalizeFQID(e.FQID)]
	if !ok {
		return nil
	}
	existing.Title = e.Title
	existing.Content = e.Content
	existing.ContentType = e.ContentType
	existing.Visibility = e.Visibility
	return nil
}

func (m *MockDatabase) SoftDeleteEntryByFQID(fqid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if e, ok := m.Entries[util.NormalizeFQID(fqid)]; ok {
		e.Visibility = domain.VisibilityDeleted
	}
	return nil
}

func (m *MockDatabase) ReadEntryByFQID(fqid string) (error, *domain.Entry) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	e, ok := m.Entries[util.NormalizeFQID(fqid)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, e
}

// Comment operations

func (m *MockDatabase) UpsertComment(c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Comments[util.NormalizeFQID(c.FQID)] = c
	return nil
}

func (m *MockDatabase) DeleteCommentByFQID(fqid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	delete(m.Comments, util.NormalizeFQID(fqid))
	return nil
}

func (m *MockDatabase) ReadCommentByFQID(fqid string) (error, *domain.Comment) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	c, ok := m.Comments[util.NormalizeFQID(fqid)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, c
}

// Like operations

func (m *MockDatabase) ReplaceLike(l *domain.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for fqid, existing := range m.Likes {
		if util.NormalizeFQID(existing.AuthorFQID) == util.NormalizeFQID(l.AuthorFQID) &&
			util.NormalizeFQID(existing.ObjectFQID) == util.NormalizeFQID(l.ObjectFQID) {
			delete(m.Likes, fqid)
		}
	}
	m.Likes[util.NormalizeFQID(l.FQID)] = l
	return nil
}

func (m *MockDatabase) DeleteLikeByPair(authorFQID, objectFQID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for fqid, existing := range m.Likes {
		if util.NormalizeFQID(existing.AuthorFQID) == util.NormalizeFQID(authorFQID) &&
			util.NormalizeFQID(existing.ObjectFQID) == util.NormalizeFQID(objectFQID) {
			delete(m.Likes, fqid)
		}
	}
	return nil
}

func (m *MockDatabase) ReadLikeByFQID(fqid string) (error, *domain.Like) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	l, ok := m.Likes[util.NormalizeFQID(fqid)]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, l
}

// Inbox operations

func (m *MockDatabase) CreateInboxItem(item *domain.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	owner := util.NormalizeFQID(item.AuthorFQID)
	m.Inbox[owner] = append(m.Inbox[owner], item)
	return nil
}

func (m *MockDatabase) ClaimUnprocessedInbox(authorFQID string) (error, *[]domain.InboxItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var claimed []domain.InboxItem
	for _, item := range m.Inbox[util.NormalizeFQID(authorFQID)] {
		if item.Processed {
			continue
		}
		item.Processed = true
		claimed = append(claimed, *item)
	}
	return nil, &claimed
}

func (m *MockDatabase) ReadInboxBacklogAuthors() (error, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var fqids []string
	for owner, items := range m.Inbox {
		for _, item := range items {
			if !item.Processed {
				fqids = append(fqids, owner)
				break
			}
		}
	}
	return nil, fqids
}

// Node operations

func (m *MockDatabase) ReadNodeByHost(host string) (error, *domain.Node) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	n, ok := m.Nodes[host]
	if !ok {
		return sql.ErrNoRows, nil
	}
	return nil, n
}

// Ensure MockDatabase implements Database interface
var _ Database = (*MockDatabase)(nil)
