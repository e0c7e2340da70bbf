package activitypub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/teamgold/golden/domain"
)

func enqueue(t *testing.T, mock *MockDatabase, owner string, activity *domain.Activity) {
	t.Helper()
	payload, err := json.Marshal(activity)
	if err != nil {
		t.Fatalf("marshal activity: %v", err)
	}
	item := &domain.InboxItem{
		Id:         uuid.New(),
		AuthorFQID: owner,
		RawJSON:    string(payload),
		ReceivedAt: time.Now().UTC(),
	}
	if err := mock.CreateInboxItem(item); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func enqueueRaw(t *testing.T, mock *MockDatabase, owner, raw string) {
	t.Helper()
	item := &domain.InboxItem{
		Id:         uuid.New(),
		AuthorFQID: owner,
		RawJSON:    raw,
		ReceivedAt: time.Now().UTC(),
	}
	if err := mock.CreateInboxItem(item); err != nil {
		t.Fatalf("enqueue raw: %v", err)
	}
}

func TestProcessFollowCreatesRequestedRow(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	remote := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	follow := NewFollow(remote, &domain.Author{FQID: aliceFQID, Username: "alice"})
	// The follow's object names the target; the inbox owner is the target.
	enqueue(t, mock, aliceFQID, follow)

	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}

	err, row := mock.ReadFollowByPair(carolFQID, aliceFQID)
	if err != nil {
		t.Fatalf("follow row missing: %v", err)
	}
	if row.State != domain.FollowRequested || row.FQID != follow.ID {
		t.Errorf("row = %+v, want REQUESTED carrying the activity id", row)
	}

	// The remote sender was materialized lazily.
	if err, _ := mock.ReadAuthorByFQID(carolFQID); err != nil {
		t.Errorf("remote author not created on first reference: %v", err)
	}
}

func TestFollowStateExclusivity(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	alice := &domain.Author{Id: uuid.New(), FQID: aliceFQID, Host: "node-a.example", Username: "alice"}

	steps := []struct {
		owner     string
		activity  *domain.Activity
		wantState string
		wantGone  bool
	}{
		{aliceFQID, NewFollow(carol, alice), domain.FollowRequested, false},
		{carolFQID, NewAccept(alice, carolFQID, nil), domain.FollowAccepted, false},
		{aliceFQID, NewFollow(carol, alice), domain.FollowRequested, false},
		{carolFQID, NewReject(alice, carolFQID, nil), domain.FollowRejected, false},
		{aliceFQID, NewUndoFollow(carol, alice), "", true},
	}

	for i, step := range steps {
		enqueue(t, mock, step.owner, step.activity)
		if err := processor.ProcessInbox(step.owner); err != nil {
			t.Fatalf("step %d: ProcessInbox: %v", i, err)
		}

		err, row := mock.ReadFollowByPair(carolFQID, aliceFQID)
		if step.wantGone {
			if err == nil {
				t.Fatalf("step %d: row still present: %+v", i, row)
			}
			continue
		}
		if err != nil {
			t.Fatalf("step %d: row missing: %v", i, err)
		}
		if row.State != step.wantState {
			t.Errorf("step %d: state = %s, want %s", i, row.State, step.wantState)
		}
	}
}

func TestProcessCreateUpdateDelete(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	entry := &domain.Entry{
		Id:         uuid.New(),
		FQID:       carolFQID + "/posts/" + uuid.NewString(),
		AuthorFQID: carolFQID,
		Title:      "original",
		Content:    "body",
		Visibility: domain.VisibilityPublic,
		Published:  time.Now().UTC(),
	}

	enqueue(t, mock, aliceFQID, NewCreateEntry(carol, entry))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (create): %v", err)
	}
	err, got := mock.ReadEntryByFQID(entry.FQID)
	if err != nil {
		t.Fatalf("entry not upserted: %v", err)
	}
	if got.Title != "original" {
		t.Errorf("entry = %+v", got)
	}

	entry.Title = "edited"
	entry.Visibility = domain.VisibilityUnlisted
	enqueue(t, mock, aliceFQID, NewUpdateEntry(carol, entry))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (update): %v", err)
	}
	err, got = mock.ReadEntryByFQID(entry.FQID)
	if err != nil {
		t.Fatalf("entry lost on update: %v", err)
	}
	if got.Title != "edited" || got.Visibility != domain.VisibilityUnlisted {
		t.Errorf("update not applied: %+v", got)
	}

	enqueue(t, mock, aliceFQID, NewDeleteEntry(carol, entry))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (delete): %v", err)
	}
	err, got = mock.ReadEntryByFQID(entry.FQID)
	if err != nil {
		t.Fatalf("soft delete removed the row: %v", err)
	}
	if got.Visibility != domain.VisibilityDeleted {
		t.Errorf("visibility = %s, want DELETED", got.Visibility)
	}
	if got.Title != "edited" || got.Content != "body" {
		t.Errorf("soft delete must leave other fields intact: %+v", got)
	}

	// An Update arriving after the Delete still overwrites fields,
	// visibility included, because the row exists.
	entry.Title = "edited again"
	entry.Visibility = domain.VisibilityPublic
	enqueue(t, mock, aliceFQID, NewUpdateEntry(carol, entry))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (update after delete): %v", err)
	}
	err, got = mock.ReadEntryByFQID(entry.FQID)
	if err != nil {
		t.Fatalf("entry lost on update after delete: %v", err)
	}
	if got.Title != "edited again" || got.Visibility != domain.VisibilityPublic {
		t.Errorf("update after delete not applied: %+v", got)
	}
}

func TestProcessUpdateBeforeCreateIsSilentNoop(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	entry := &domain.Entry{
		Id:         uuid.New(),
		FQID:       carolFQID + "/posts/early",
		AuthorFQID: carolFQID,
		Title:      "out of order",
		Visibility: domain.VisibilityPublic,
		Published:  time.Now().UTC(),
	}

	enqueue(t, mock, aliceFQID, NewUpdateEntry(carol, entry))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}
	if err, _ := mock.ReadEntryByFQID(entry.FQID); err == nil {
		t.Error("an update arriving before its create must not materialize the entry")
	}
}

func TestProcessCommentRequiresEntry(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	entry := &domain.Entry{Id: uuid.New(), FQID: aliceFQID + "/posts/1", AuthorFQID: aliceFQID, Visibility: domain.VisibilityPublic}
	mock.AddEntry(entry)

	comment := &domain.Comment{
		Id:         uuid.New(),
		FQID:       carolFQID + "/comments/" + uuid.NewString(),
		EntryFQID:  entry.FQID,
		AuthorFQID: carolFQID,
		Content:    "nice",
		Published:  time.Now().UTC(),
	}
	enqueue(t, mock, aliceFQID, NewComment(carol, comment))

	dangling := &domain.Comment{
		Id:         uuid.New(),
		FQID:       carolFQID + "/comments/" + uuid.NewString(),
		EntryFQID:  "http://node-c.example/api/authors/x/posts/missing",
		AuthorFQID: carolFQID,
		Content:    "into the void",
		Published:  time.Now().UTC(),
	}
	enqueue(t, mock, aliceFQID, NewComment(carol, dangling))

	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}

	if err, _ := mock.ReadCommentByFQID(comment.FQID); err != nil {
		t.Errorf("comment on a known entry not upserted: %v", err)
	}
	if err, _ := mock.ReadCommentByFQID(dangling.FQID); err == nil {
		t.Error("comment on an unknown entry must no-op")
	}

	// Delete(comment) hard-deletes the row.
	enqueue(t, mock, aliceFQID, NewDeleteComment(carol, comment))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (delete comment): %v", err)
	}
	if err, _ := mock.ReadCommentByFQID(comment.FQID); err == nil {
		t.Error("comment row survived its delete")
	}
}

func TestProcessLikeIdempotent(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	entry := &domain.Entry{Id: uuid.New(), FQID: aliceFQID + "/posts/1", AuthorFQID: aliceFQID, Visibility: domain.VisibilityPublic}
	mock.AddEntry(entry)

	like := NewLike(carol, entry.FQID)

	// The same like delivered twice yields exactly one row.
	enqueue(t, mock, aliceFQID, like)
	enqueue(t, mock, aliceFQID, like)
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}
	if len(mock.Likes) != 1 {
		t.Fatalf("got %d like rows, want 1 after duplicate delivery", len(mock.Likes))
	}

	// A fresh like by the same author on the same object replaces, not adds.
	enqueue(t, mock, aliceFQID, NewLike(carol, entry.FQID))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (repeat): %v", err)
	}
	if len(mock.Likes) != 1 {
		t.Fatalf("got %d like rows, want 1 per (author, object) pair", len(mock.Likes))
	}

	// Undo removes the pair.
	err, row := mock.ReadLikeByFQID(firstLikeFQID(mock))
	if err != nil {
		t.Fatalf("like row missing: %v", err)
	}
	enqueue(t, mock, aliceFQID, NewUndoLike(carol, row))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (undo): %v", err)
	}
	if len(mock.Likes) != 0 {
		t.Errorf("got %d like rows after undo, want 0", len(mock.Likes))
	}
}

func firstLikeFQID(mock *MockDatabase) string {
	for fqid := range mock.Likes {
		return fqid
	}
	return ""
}

func TestProcessRemoveFriendSeversBothDirections(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	accepted := func(actor, object string) *domain.Follow {
		return &domain.Follow{Id: uuid.New(), FQID: actor + "/follow/" + uuid.NewString(), ActorFQID: actor, ObjectFQID: object, State: domain.FollowAccepted}
	}
	mock.AddFollow(accepted(aliceFQID, carolFQID))
	mock.AddFollow(accepted(carolFQID, aliceFQID))

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	enqueue(t, mock, aliceFQID, NewRemoveFriend(carol, &domain.Author{FQID: aliceFQID}))

	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}
	if err, _ := mock.ReadFollowByPair(aliceFQID, carolFQID); err == nil {
		t.Error("outgoing follow survived RemoveFriend")
	}
	if err, _ := mock.ReadFollowByPair(carolFQID, aliceFQID); err == nil {
		t.Error("incoming follow survived RemoveFriend")
	}
}

func TestProcessMarksEverythingAndTolerates(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol"}
	entry := &domain.Entry{Id: uuid.New(), FQID: aliceFQID + "/posts/1", AuthorFQID: aliceFQID, Visibility: domain.VisibilityPublic}
	mock.AddEntry(entry)

	enqueueRaw(t, mock, aliceFQID, `{not json`)
	enqueue(t, mock, aliceFQID, &domain.Activity{Type: "Announce", ID: "x", Actor: carolFQID})
	enqueue(t, mock, aliceFQID, NewLike(carol, entry.FQID))

	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}

	for _, item := range mock.Inbox[aliceFQID] {
		if !item.Processed {
			t.Errorf("item %s left unprocessed", item.Id)
		}
	}
	if len(mock.Likes) != 1 {
		t.Errorf("like behind a malformed item was not applied, rows = %d", len(mock.Likes))
	}

	// A second drain with nothing new performs zero mutations.
	likesBefore := len(mock.Likes)
	followsBefore := len(mock.Follows)
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox (idle): %v", err)
	}
	if len(mock.Likes) != likesBefore || len(mock.Follows) != followsBefore {
		t.Error("idle drain mutated state")
	}
}

func TestProcessProfileUpdate(t *testing.T) {
	mock := NewMockDatabase()
	processor := NewProcessor(mock)

	mock.AddAuthor(&domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol", DisplayName: "Carol"})

	carol := &domain.Author{Id: uuid.New(), FQID: carolFQID, Host: "node-b.example", Username: "carol", DisplayName: "Carol R."}
	enqueue(t, mock, aliceFQID, NewProfileUpdate(carol))
	if err := processor.ProcessInbox(aliceFQID); err != nil {
		t.Fatalf("ProcessInbox: %v", err)
	}

	err, got := mock.ReadAuthorByFQID(carolFQID)
	if err != nil {
		t.Fatalf("author missing: %v", err)
	}
	if got.DisplayName != "Carol R." {
		t.Errorf("display name = %q, want updated profile applied", got.DisplayName)
	}
}
