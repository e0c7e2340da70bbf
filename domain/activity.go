package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Canonical activity verbs.
const (
	TypeCreate       = "Create"
	TypeUpdate       = "Update"
	TypeDelete       = "Delete"
	TypeComment      = "Comment"
	TypeLike         = "Like"
	TypeFollow       = "Follow"
	TypeAccept       = "Accept"
	TypeReject       = "Reject"
	TypeUndo         = "Undo"
	TypeRemoveFriend = "RemoveFriend"
)

// Activity is the wire envelope for one state-changing event. The object
// field is polymorphic on the wire (bare fqid string or nested document)
// and is decoded exactly once, into ActivityObject.
type Activity struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Published string         `json:"published"`
	Summary   string         `json:"summary,omitempty"`
	Object    ActivityObject `json:"object"`
}

// ObjectKind tags the decoded variant of an activity object.
type ObjectKind int

const (
	ObjectNone ObjectKind = iota
	ObjectReference
	ObjectPost
	ObjectComment
	ObjectFollow
	ObjectLike
	ObjectAuthor
	ObjectUnknown
)

// PostObject is the nested object of Create/Update/Delete(post).
type PostObject struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Title       string       `json:"title,omitempty"`
	Content     string       `json:"content,omitempty"`
	ContentType string       `json:"contentType,omitempty"`
	Visibility  string       `json:"visibility,omitempty"`
	Published   string       `json:"published,omitempty"`
	Author      string       `json:"author,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is informational only; it never materializes as a row.
type Attachment struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

// CommentObject is the nested object of a Comment activity.
type CommentObject struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Entry       string `json:"entry"`
	Author      string `json:"author,omitempty"`
	InReplyTo   string `json:"inReplyTo,omitempty"`
	Content     string `json:"content,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Published   string `json:"published,omitempty"`
}

// FollowObject is the nested object of Accept/Reject/Undo(Follow).
type FollowObject struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Actor     string `json:"actor"`
	Object    string `json:"object"`
	State     string `json:"state,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Published string `json:"published,omitempty"`
}

// LikeObject is the nested object of Undo(Like).
type LikeObject struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Author string `json:"author,omitempty"`
	Object string `json:"object"`
}

// AuthorObject is the nested object of a profile Update.
type AuthorObject struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Host        string `json:"host,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// ActivityObject is a tagged union over the shapes an activity object can
// take on the wire. Exactly one variant field is set, named by Kind.
// Unrecognized nested documents decode to ObjectUnknown and keep the raw
// bytes; they must never fail the envelope decode.
type ActivityObject struct {
	Kind    ObjectKind
	Ref     string
	Post    *PostObject
	Comment *CommentObject
	Follow  *FollowObject
	Like    *LikeObject
	Author  *AuthorObject
	Raw     json.RawMessage
}

// RefObject wraps a bare fqid reference.
func RefObject(fqid string) ActivityObject {
	return ActivityObject{Kind: ObjectReference, Ref: fqid}
}

// RefID returns the fqid the object points at, whichever variant carries
// it, or an empty string.
func (o ActivityObject) RefID() string {
	switch o.Kind {
	case ObjectReference:
		return o.Ref
	case ObjectPost:
		return o.Post.ID
	case ObjectComment:
		return o.Comment.ID
	case ObjectFollow:
		return o.Follow.ID
	case ObjectLike:
		return o.Like.ID
	case ObjectAuthor:
		return o.Author.ID
	case ObjectUnknown:
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(o.Raw, &probe); err == nil {
			return probe.ID
		}
	}
	return ""
}

func (o ActivityObject) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case ObjectReference:
		return json.Marshal(o.Ref)
	case ObjectPost:
		return json.Marshal(o.Post)
	case ObjectComment:
		return json.Marshal(o.Comment)
	case ObjectFollow:
		return json.Marshal(o.Follow)
	case ObjectLike:
		return json.Marshal(o.Like)
	case ObjectAuthor:
		return json.Marshal(o.Author)
	case ObjectUnknown:
		return o.Raw, nil
	default:
		return []byte("null"), nil
	}
}

func (o *ActivityObject) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = ActivityObject{Kind: ObjectNone}
		return nil
	}

	if data[0] == '"' {
		var ref string
		if err := json.Unmarshal(data, &ref); err != nil {
			return err
		}
		*o = ActivityObject{Kind: ObjectReference, Ref: ref}
		return nil
	}

	if data[0] != '{' {
		// Arrays, numbers etc. are tolerated but carry no meaning.
		*o = ActivityObject{Kind: ObjectUnknown, Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	unknown := func() {
		*o = ActivityObject{Kind: ObjectUnknown, Raw: append(json.RawMessage(nil), data...)}
	}

	switch strings.ToLower(probe.Type) {
	case "post", "entry":
		var post PostObject
		if err := json.Unmarshal(data, &post); err != nil {
			unknown()
			return nil
		}
		*o = ActivityObject{Kind: ObjectPost, Post: &post}
	case "comment":
		var comment CommentObject
		if err := json.Unmarshal(data, &comment); err != nil {
			unknown()
			return nil
		}
		*o = ActivityObject{Kind: ObjectComment, Comment: &comment}
	case "follow":
		var follow FollowObject
		if err := json.Unmarshal(data, &follow); err != nil {
			unknown()
			return nil
		}
		*o = ActivityObject{Kind: ObjectFollow, Follow: &follow}
	case "like":
		var like LikeObject
		if err := json.Unmarshal(data, &like); err != nil {
			unknown()
			return nil
		}
		*o = ActivityObject{Kind: ObjectLike, Like: &like}
	case "author", "person":
		var author AuthorObject
		if err := json.Unmarshal(data, &author); err != nil {
			unknown()
			return nil
		}
		*o = ActivityObject{Kind: ObjectAuthor, Author: &author}
	default:
		unknown()
	}
	return nil
}
