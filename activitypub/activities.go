package activitypub

import (
	"fmt"
	"time"

	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// Id suffixes for minted activity fqids, one per verb.
const (
	suffixPosts         = "posts"
	suffixComments      = "comments"
	suffixLikes         = "likes"
	suffixFollow        = "follow"
	suffixAccept        = "accept"
	suffixReject        = "reject"
	suffixUndoFollow    = "undo-follow"
	suffixUnfriend      = "unfriend"
	suffixUndoLike      = "undo-like"
	suffixProfileUpdate = "profile-update"
)

// The builders below are pure: they mint a fresh activity id and stamp the
// current time, but never touch storage. Callers persist the underlying
// entity themselves, before or after building.

// NewCreateEntry builds a Create activity carrying the full entry document.
func NewCreateEntry(actor *domain.Author, entry *domain.Entry) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeCreate,
		ID:        util.MintFQID(actor.FQID, suffixPosts),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s created a new entry", actor.Username),
		Object:    postObject(entry),
	}
}

// NewUpdateEntry builds an Update activity carrying the full entry document.
func NewUpdateEntry(actor *domain.Author, entry *domain.Entry) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeUpdate,
		ID:        util.MintFQID(actor.FQID, suffixPosts),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s updated an entry", actor.Username),
		Object:    postObject(entry),
	}
}

// NewDeleteEntry builds a Delete activity. The object is a bare reference;
// recipients already know the entry.
func NewDeleteEntry(actor *domain.Author, entry *domain.Entry) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeDelete,
		ID:        util.MintFQID(actor.FQID, suffixPosts),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s deleted an entry", actor.Username),
		Object:    domain.RefObject(entry.FQID),
	}
}

// NewComment builds a Comment activity from a persisted comment.
func NewComment(actor *domain.Author, comment *domain.Comment) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeComment,
		ID:        util.MintFQID(actor.FQID, suffixComments),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s commented on an entry", actor.Username),
		Object: domain.ActivityObject{
			Kind: domain.ObjectComment,
			Comment: &domain.CommentObject{
				Type:        "comment",
				ID:          comment.FQID,
				Entry:       comment.EntryFQID,
				Author:      comment.AuthorFQID,
				InReplyTo:   comment.InReplyTo,
				Content:     comment.Content,
				ContentType: comment.ContentType,
				Published:   comment.Published.UTC().Format(time.RFC3339),
			},
		},
	}
}

// NewDeleteComment builds a Delete activity targeting a comment.
func NewDeleteComment(actor *domain.Author, comment *domain.Comment) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeDelete,
		ID:        util.MintFQID(actor.FQID, suffixComments),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s deleted a comment", actor.Username),
		Object:    domain.RefObject(comment.FQID),
	}
}

// NewLike builds a Like activity. The activity id doubles as the like
// record's fqid, so delivery-side dedup keys off it.
func NewLike(actor *domain.Author, objectFQID string) *domain.Activity {
	id := util.MintFQID(actor.FQID, suffixLikes)
	return &domain.Activity{
		Type:      domain.TypeLike,
		ID:        id,
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s liked an entry", actor.Username),
		Object: domain.ActivityObject{
			Kind: domain.ObjectLike,
			Like: &domain.LikeObject{
				Type:   "like",
				ID:     id,
				Author: actor.FQID,
				Object: objectFQID,
			},
		},
	}
}

// NewUndoLike builds an Undo activity wrapping an existing like.
func NewUndoLike(actor *domain.Author, like *domain.Like) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeUndo,
		ID:        util.MintFQID(actor.FQID, suffixUndoLike),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s removed a like", actor.Username),
		Object: domain.ActivityObject{
			Kind: domain.ObjectLike,
			Like: &domain.LikeObject{
				Type:   "like",
				ID:     like.FQID,
				Author: like.AuthorFQID,
				Object: like.ObjectFQID,
			},
		},
	}
}

// NewFollow builds a Follow request aimed at the target author.
func NewFollow(actor *domain.Author, target *domain.Author) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeFollow,
		ID:        util.MintFQID(actor.FQID, suffixFollow),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s wants to follow you", actor.Username),
		Object:    domain.RefObject(target.FQID),
	}
}

// NewAccept builds an Accept for a follow request. When the caller resolved
// the originating Follow record, its fqid is the canonical object; otherwise
// the object falls back to an inline follow document naming both parties.
func NewAccept(actor *domain.Author, followerFQID string, follow *domain.Follow) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeAccept,
		ID:        util.MintFQID(actor.FQID, suffixAccept),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s accepted your follow request", actor.Username),
		Object:    followRefOrInline(actor, followerFQID, follow),
	}
}

// NewReject builds a Reject for a follow request, same object resolution as
// NewAccept.
func NewReject(actor *domain.Author, followerFQID string, follow *domain.Follow) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeReject,
		ID:        util.MintFQID(actor.FQID, suffixReject),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s rejected your follow request", actor.Username),
		Object:    followRefOrInline(actor, followerFQID, follow),
	}
}

// NewUndoFollow builds an Undo that retracts the actor's follow of target.
func NewUndoFollow(actor *domain.Author, target *domain.Author) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeUndo,
		ID:        util.MintFQID(actor.FQID, suffixUndoFollow),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s unfollowed you", actor.Username),
		Object: domain.ActivityObject{
			Kind: domain.ObjectFollow,
			Follow: &domain.FollowObject{
				Type:   "follow",
				Actor:  actor.FQID,
				Object: target.FQID,
			},
		},
	}
}

// NewRemoveFriend builds the non-standard RemoveFriend verb, severing a
// mutual follow in both directions.
func NewRemoveFriend(actor *domain.Author, target *domain.Author) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeRemoveFriend,
		ID:        util.MintFQID(actor.FQID, suffixUnfriend),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s removed you as a friend", actor.Username),
		Object:    domain.RefObject(target.FQID),
	}
}

// NewProfileUpdate builds an Update carrying the actor's own profile.
func NewProfileUpdate(actor *domain.Author) *domain.Activity {
	return &domain.Activity{
		Type:      domain.TypeUpdate,
		ID:        util.MintFQID(actor.FQID, suffixProfileUpdate),
		Actor:     actor.FQID,
		Published: util.PublishedNow(),
		Summary:   fmt.Sprintf("%s updated their profile", actor.Username),
		Object: domain.ActivityObject{
			Kind: domain.ObjectAuthor,
			Author: &domain.AuthorObject{
				Type:        "author",
				ID:          actor.FQID,
				Host:        actor.Host,
				DisplayName: actor.DisplayName,
			},
		},
	}
}

func postObject(entry *domain.Entry) domain.ActivityObject {
	return domain.ActivityObject{
		Kind: domain.ObjectPost,
		Post: &domain.PostObject{
			Type:        "post",
			ID:          entry.FQID,
			Title:       entry.Title,
			Content:     entry.Content,
			ContentType: entry.ContentType,
			Visibility:  entry.Visibility,
			Published:   entry.Published.UTC().Format(time.RFC3339),
			Author:      entry.AuthorFQID,
		},
	}
}

func followRefOrInline(actor *domain.Author, followerFQID string, follow *domain.Follow) domain.ActivityObject {
	if follow != nil {
		return domain.RefObject(follow.FQID)
	}
	return domain.ActivityObject{
		Kind: domain.ObjectFollow,
		Follow: &domain.FollowObject{
			Type:   "follow",
			Actor:  followerFQID,
			Object: actor.FQID,
		},
	}
}
