package activitypub

import (
	"log"

	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// Resolver computes the recipient set of one activity. Malformed or
// partially-populated activities resolve to the empty set; the only errors
// it returns come from storage.
type Resolver struct {
	db Database
}

func NewResolver(db Database) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the fqids of every author the activity must reach. The
// actor is never a recipient of their own activity.
func (r *Resolver) Resolve(activity *domain.Activity, actor *domain.Author) (error, []string) {
	var err error
	var recipients []string

	switch activity.Type {
	case domain.TypeCreate, domain.TypeUpdate:
		err, recipients = r.resolveUpdate(activity, actor)
	case domain.TypeDelete:
		// Visibility is not re-checked on delete; the soft-delete must
		// reach everyone who could have seen the entry.
		err, recipients = r.followersAndFriends(actor)
	case domain.TypeComment:
		err, recipients = r.resolveComment(activity)
	case domain.TypeLike:
		err, recipients = r.resolveLike(activity)
	case domain.TypeFollow:
		recipients = r.resolveFollowTarget(activity)
	case domain.TypeAccept, domain.TypeReject:
		recipients = r.resolveFollowActor(activity)
	case domain.TypeUndo:
		err, recipients = r.resolveUndo(activity)
	case domain.TypeRemoveFriend:
		if ref := activity.Object.RefID(); ref != "" {
			recipients = []string{ref}
		}
	default:
		// Unknown verbs reach nobody.
	}
	if err != nil {
		return err, nil
	}
	return nil, dedupe(recipients, actor.FQID)
}

func (r *Resolver) resolveUpdate(activity *domain.Activity, actor *domain.Author) (error, []string) {
	switch activity.Object.Kind {
	case domain.ObjectPost:
		switch activity.Object.Post.Visibility {
		case domain.VisibilityPublic:
			return r.followersAndFriends(actor)
		case domain.VisibilityUnlisted:
			return r.db.ReadAcceptedFollowerFQIDs(actor.FQID)
		case domain.VisibilityFriends:
			return r.friends(actor)
		default:
			return nil, nil
		}
	case domain.ObjectAuthor:
		// Profile updates are public by nature.
		return r.followersAndFriends(actor)
	default:
		return nil, nil
	}
}

func (r *Resolver) resolveComment(activity *domain.Activity) (error, []string) {
	if activity.Object.Kind != domain.ObjectComment {
		return nil, nil
	}
	err, entry := r.db.ReadEntryByFQID(activity.Object.Comment.Entry)
	if err != nil {
		// Dangling entry reference: drop silently.
		return nil, nil
	}
	return nil, []string{entry.AuthorFQID}
}

func (r *Resolver) resolveLike(activity *domain.Activity) (error, []string) {
	target := ""
	switch activity.Object.Kind {
	case domain.ObjectLike:
		target = activity.Object.Like.Object
	case domain.ObjectReference:
		target = activity.Object.Ref
	}
	return nil, r.resolveObjectOwner(target)
}

// resolveObjectOwner finds the author owning the entry or comment at the
// given fqid. Entries are checked first, then comments; an unresolvable
// target yields no recipients.
func (r *Resolver) resolveObjectOwner(fqid string) []string {
	if fqid == "" {
		return nil
	}
	if err, entry := r.db.ReadEntryByFQID(fqid); err == nil {
		return []string{entry.AuthorFQID}
	}
	if err, comment := r.db.ReadCommentByFQID(fqid); err == nil {
		return []string{comment.AuthorFQID}
	}
	log.Printf("resolver: dropping activity aimed at unknown object %s", fqid)
	return nil
}

func (r *Resolver) resolveFollowTarget(activity *domain.Activity) []string {
	switch activity.Object.Kind {
	case domain.ObjectReference:
		return []string{activity.Object.Ref}
	case domain.ObjectAuthor:
		return []string{activity.Object.Author.ID}
	case domain.ObjectFollow:
		if activity.Object.Follow.Object != "" {
			return []string{activity.Object.Follow.Object}
		}
	}
	return nil
}

// resolveFollowActor addresses Accept/Reject back at the author who sent
// the original follow request. The object is either the follow record's
// fqid or an inline follow document.
func (r *Resolver) resolveFollowActor(activity *domain.Activity) []string {
	switch activity.Object.Kind {
	case domain.ObjectFollow:
		if activity.Object.Follow.Actor != "" {
			return []string{activity.Object.Follow.Actor}
		}
	case domain.ObjectReference:
		if err, follow := r.db.ReadFollowByFQID(activity.Object.Ref); err == nil {
			return []string{follow.ActorFQID}
		}
	}
	return nil
}

func (r *Resolver) resolveUndo(activity *domain.Activity) (error, []string) {
	switch activity.Object.Kind {
	case domain.ObjectFollow:
		if activity.Object.Follow.Object != "" {
			return nil, []string{activity.Object.Follow.Object}
		}
	case domain.ObjectLike:
		return nil, r.resolveObjectOwner(activity.Object.Like.Object)
	}
	return nil, nil
}

func (r *Resolver) followersAndFriends(actor *domain.Author) (error, []string) {
	err, followers := r.db.ReadAcceptedFollowerFQIDs(actor.FQID)
	if err != nil {
		return err, nil
	}
	err, friends := r.friends(actor)
	if err != nil {
		return err, nil
	}
	return nil, append(followers, friends...)
}

// friends returns the mutual-accepted follow partners of the actor: the
// intersection of accepted incoming and accepted outgoing follows.
func (r *Resolver) friends(actor *domain.Author) (error, []string) {
	err, followers := r.db.ReadAcceptedFollowerFQIDs(actor.FQID)
	if err != nil {
		return err, nil
	}
	err, following := r.db.ReadAcceptedFollowingFQIDs(actor.FQID)
	if err != nil {
		return err, nil
	}

	incoming := make(map[string]bool, len(followers))
	for _, fqid := range followers {
		incoming[util.NormalizeFQID(fqid)] = true
	}

	var friends []string
	for _, fqid := range following {
		if incoming[util.NormalizeFQID(fqid)] {
			friends = append(friends, fqid)
		}
	}
	return nil, friends
}

func dedupe(recipients []string, actorFQID string) []string {
	seen := map[string]bool{util.NormalizeFQID(actorFQID): true}
	var out []string
	for _, fqid := range recipients {
		normalized := util.NormalizeFQID(fqid)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
