package activitypub

import (
	"net/http"
	"time"

	"github.com/teamgold/golden/domain"
)

// DeliveryTimeout bounds every outbound inbox POST.
const DeliveryTimeout = 5 * time.Second

// Database defines the database operations required by the federation core.
// This interface allows for dependency injection and testing with mock implementations.
type Database interface {
	// Author operations
	ReadAuthorByFQID(fqid string) (error, *domain.Author)
	CreateAuthor(a *domain.Author) error
	UpdateAuthorProfile(fqid string, displayName string) error

	// Follow operations
	ReplaceFollow(f *domain.Follow) error
	DeleteFollowByPair(actorFQID, objectFQID string) error
	ReadFollowByPair(actorFQID, objectFQID string) (error, *domain.Follow)
	ReadFollowByFQID(fqid string) (error, *domain.Follow)
	ReadAcceptedFollowerFQIDs(authorFQID string) (error, []string)
	ReadAcceptedFollowingFQIDs(authorFQID string) (error, []string)

	// Entry operations
	UpsertEntry(e *domain.Entry) error
	UpdateEntryByFQID(e *domain.Entry) error
	SoftDeleteEntryByFQID(fqid string) error
	ReadEntryByFQID(fqid string) (error, *domain.Entry)

	// Comment operations
	UpsertComment(c *domain.Comment) error
	DeleteCommentByFQID(fqid string) error
	ReadCommentByFQID(fqid string) (error, *domain.Comment)

	// Like operations
	ReplaceLike(l *domain.Like) error
	DeleteLikeByPair(authorFQID, objectFQID string) error
	ReadLikeByFQID(fqid string) (error, *domain.Like)

	// Inbox operations
	CreateInboxItem(item *domain.InboxItem) error
	ClaimUnprocessedInbox(authorFQID string) (error, *[]domain.InboxItem)
	ReadInboxBacklogAuthors() (error, []string)

	// Node operations
	ReadNodeByHost(host string) (error, *domain.Node)
}

// HTTPClient defines the HTTP client operations required by the federation core.
// This interface allows for dependency injection and testing with mock implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client used in production
type DefaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient creates a new default HTTP client with the specified timeout
func NewDefaultHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Do executes the HTTP request
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}
