package activitypub

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// Processor drains inbound activity queues and applies them to local
// state. It is the only place inbound federation data mutates the follow
// graph, entries, comments or likes.
type Processor struct {
	db Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProcessor(db Database) *Processor {
	return &Processor{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// ProcessInbox drains every unprocessed inbox item for one author, in
// receipt order. Items are claimed (and flagged processed) atomically
// before application, so a concurrent call for the same author finds an
// empty queue; an in-process per-author lock keeps the common case cheap.
// There is no retry path: a handler failure is logged and the loop moves
// on.
func (p *Processor) ProcessInbox(authorFQID string) error {
	owner := util.NormalizeFQID(authorFQID)

	lock := p.lockFor(owner)
	lock.Lock()
	defer lock.Unlock()

	err, items := p.db.ClaimUnprocessedInbox(owner)
	if err != nil {
		return err
	}

	for i := range *items {
		p.applyItem(owner, &(*items)[i])
	}
	return nil
}

func (p *Processor) lockFor(owner string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[owner] = lock
	}
	return lock
}

func (p *Processor) applyItem(owner string, item *domain.InboxItem) {
	var activity domain.Activity
	if err := json.Unmarshal([]byte(item.RawJSON), &activity); err != nil {
		log.Printf("processor: dropping malformed inbox item %s: %v", item.Id, err)
		return
	}

	var err error
	switch activity.Type {
	case domain.TypeFollow:
		err = p.applyFollow(owner, &activity)
	case domain.TypeAccept:
		err = p.applyFollowDecision(owner, &activity, domain.FollowAccepted)
	case domain.TypeReject:
		err = p.applyFollowDecision(owner, &activity, domain.FollowRejected)
	case domain.TypeUndo:
		err = p.applyUndo(owner, &activity)
	case domain.TypeRemoveFriend:
		err = p.applyRemoveFriend(owner, &activity)
	case domain.TypeCreate:
		err = p.applyCreate(&activity)
	case domain.TypeUpdate:
		err = p.applyUpdate(&activity)
	case domain.TypeDelete:
		err = p.applyDelete(&activity)
	case domain.TypeComment:
		err = p.applyComment(&activity)
	case domain.TypeLike:
		err = p.applyLike(&activity)
	default:
		// Unknown verbs are consumed without effect.
	}
	if err != nil {
		log.Printf("processor: applying %s item %s for %s: %v", activity.Type, item.Id, owner, err)
	}
}

// applyFollow records an inbound follow request against the inbox owner.
// Any prior row for the pair is replaced, so a re-sent request resets the
// state to REQUESTED.
func (p *Processor) applyFollow(owner string, activity *domain.Activity) error {
	if activity.Actor == "" {
		return nil
	}
	if err := p.ensureAuthor(activity.Actor); err != nil {
		return err
	}
	return p.db.ReplaceFollow(&domain.Follow{
		Id:         uuid.New(),
		FQID:       activity.ID,
		ActorFQID:  activity.Actor,
		ObjectFQID: owner,
		State:      domain.FollowRequested,
		Summary:    activity.Summary,
		Published:  parsePublished(activity.Published),
	})
}

// applyFollowDecision handles Accept and Reject arriving in the original
// follower's inbox. The decided pair is (owner → deciding actor) unless
// the activity carries a resolvable follow record naming it explicitly.
func (p *Processor) applyFollowDecision(owner string, activity *domain.Activity, state string) error {
	actorFQID := owner
	objectFQID := activity.Actor
	followFQID := activity.ID

	switch activity.Object.Kind {
	case domain.ObjectFollow:
		if f := activity.Object.Follow; f.Actor != "" && f.Object != "" {
			actorFQID, objectFQID = f.Actor, f.Object
			if f.ID != "" {
				followFQID = f.ID
			}
		}
	case domain.ObjectReference:
		if err, follow := p.db.ReadFollowByFQID(activity.Object.Ref); err == nil {
			actorFQID, objectFQID = follow.ActorFQID, follow.ObjectFQID
			followFQID = follow.FQID
		}
	}

	if actorFQID == "" || objectFQID == "" {
		return nil
	}
	return p.db.ReplaceFollow(&domain.Follow{
		Id:         uuid.New(),
		FQID:       followFQID,
		ActorFQID:  actorFQID,
		ObjectFQID: objectFQID,
		State:      state,
		Summary:    activity.Summary,
		Published:  parsePublished(activity.Published),
	})
}

// applyUndo retracts a follow or a like, depending on the nested object.
func (p *Processor) applyUndo(owner string, activity *domain.Activity) error {
	switch activity.Object.Kind {
	case domain.ObjectFollow:
		actorFQID := activity.Object.Follow.Actor
		if actorFQID == "" {
			actorFQID = activity.Actor
		}
		objectFQID := activity.Object.Follow.Object
		if objectFQID == "" {
			objectFQID = owner
		}
		return p.db.DeleteFollowByPair(actorFQID, objectFQID)
	case domain.ObjectLike:
		authorFQID := activity.Object.Like.Author
		if authorFQID == "" {
			authorFQID = activity.Actor
		}
		return p.db.DeleteLikeByPair(authorFQID, activity.Object.Like.Object)
	}
	return nil
}

// applyRemoveFriend severs the relationship in both directions.
func (p *Processor) applyRemoveFriend(owner string, activity *domain.Activity) error {
	if activity.Actor == "" {
		return nil
	}
	if err := p.db.DeleteFollowByPair(activity.Actor, owner); err != nil {
		return err
	}
	return p.db.DeleteFollowByPair(owner, activity.Actor)
}

func (p *Processor) applyCreate(activity *domain.Activity) error {
	if activity.Object.Kind != domain.ObjectPost {
		return nil
	}
	post := activity.Object.Post
	if post.ID == "" {
		return nil
	}

	authorFQID := post.Author
	if authorFQID == "" {
		authorFQID = activity.Actor
	}
	if err := p.ensureAuthor(authorFQID); err != nil {
		return err
	}

	return p.db.UpsertEntry(&domain.Entry{
		Id:          uuid.New(),
		FQID:        post.ID,
		AuthorFQID:  authorFQID,
		Title:       post.Title,
		Content:     post.Content,
		ContentType: post.ContentType,
		Visibility:  normalizeVisibility(post.Visibility),
		Published:   parsePublished(post.Published),
	})
}

// applyUpdate overwrites an existing entry's mutable fields or, for a
// profile update, the author's display name. An update for an entry that
// never arrived is a silent no-op; out-of-order delivery loses it.
func (p *Processor) applyUpdate(activity *domain.Activity) error {
	switch activity.Object.Kind {
	case domain.ObjectPost:
		post := activity.Object.Post
		if post.ID == "" {
			return nil
		}
		return p.db.UpdateEntryByFQID(&domain.Entry{
			FQID:        post.ID,
			Title:       post.Title,
			Content:     post.Content,
			ContentType: post.ContentType,
			Visibility:  normalizeVisibility(post.Visibility),
		})
	case domain.ObjectAuthor:
		author := activity.Object.Author
		if author.ID == "" {
			return nil
		}
		return p.db.UpdateAuthorProfile(author.ID, author.DisplayName)
	}
	return nil
}

// applyDelete soft-deletes an entry or hard-deletes a comment, resolved
// by trying the entry first. Unresolvable targets are dropped.
func (p *Processor) applyDelete(activity *domain.Activity) error {
	target := activity.Object.RefID()
	if target == "" {
		return nil
	}
	if err, _ := p.db.ReadEntryByFQID(target); err == nil {
		return p.db.SoftDeleteEntryByFQID(target)
	}
	if err, _ := p.db.ReadCommentByFQID(target); err == nil {
		return p.db.DeleteCommentByFQID(target)
	}
	return nil
}

func (p *Processor) applyComment(activity *domain.Activity) error {
	if activity.Object.Kind != domain.ObjectComment {
		return nil
	}
	comment := activity.Object.Comment
	if comment.ID == "" || comment.Entry == "" {
		return nil
	}
	if err, _ := p.db.ReadEntryByFQID(comment.Entry); err != nil {
		// The commented entry never reached this node.
		return nil
	}

	authorFQID := comment.Author
	if authorFQID == "" {
		authorFQID = activity.Actor
	}
	if err := p.ensureAuthor(authorFQID); err != nil {
		return err
	}

	return p.db.UpsertComment(&domain.Comment{
		Id:          uuid.New(),
		FQID:        comment.ID,
		EntryFQID:   comment.Entry,
		AuthorFQID:  authorFQID,
		InReplyTo:   comment.InReplyTo,
		Content:     comment.Content,
		ContentType: comment.ContentType,
		Published:   parsePublished(comment.Published),
	})
}

// applyLike records a like idempotently: a reused fqid returns the
// existing row, and repeats by the same (author, object) pair replace it.
func (p *Processor) applyLike(activity *domain.Activity) error {
	likeFQID := activity.ID
	authorFQID := activity.Actor
	objectFQID := ""

	switch activity.Object.Kind {
	case domain.ObjectLike:
		objectFQID = activity.Object.Like.Object
		if activity.Object.Like.ID != "" {
			likeFQID = activity.Object.Like.ID
		}
		if activity.Object.Like.Author != "" {
			authorFQID = activity.Object.Like.Author
		}
	case domain.ObjectReference:
		objectFQID = activity.Object.Ref
	}
	if likeFQID == "" || authorFQID == "" || objectFQID == "" {
		return nil
	}

	if err, _ := p.db.ReadLikeByFQID(likeFQID); err == nil {
		return nil
	}
	if err := p.ensureAuthor(authorFQID); err != nil {
		return err
	}

	return p.db.ReplaceLike(&domain.Like{
		Id:         uuid.New(),
		FQID:       likeFQID,
		AuthorFQID: authorFQID,
		ObjectFQID: objectFQID,
		Published:  parsePublished(activity.Published),
	})
}

// ensureAuthor lazily materializes a remote author row on first reference.
func (p *Processor) ensureAuthor(fqid string) error {
	normalized := util.NormalizeFQID(fqid)
	if normalized == "" {
		return nil
	}
	if err, _ := p.db.ReadAuthorByFQID(normalized); err == nil {
		return nil
	}

	username := normalized
	if idx := strings.LastIndex(normalized, "/"); idx >= 0 {
		username = normalized[idx+1:]
	}
	return p.db.CreateAuthor(&domain.Author{
		Id:        uuid.New(),
		FQID:      normalized,
		Host:      util.FQIDHost(normalized),
		Username:  username,
		Local:     false,
		CreatedAt: time.Now().UTC(),
	})
}

func parsePublished(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

func normalizeVisibility(value string) string {
	switch strings.ToUpper(value) {
	case domain.VisibilityPublic, domain.VisibilityUnlisted, domain.VisibilityFriends, domain.VisibilityDeleted:
		return strings.ToUpper(value)
	default:
		return value
	}
}
