package activitypub

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/teamgold/golden/domain"
)

func TestDistributeSplitsLocalAndRemote(t *testing.T) {
	mock, alice := fanoutFixture()
	client := NewMockHTTPClient()
	distributor := NewDistributor(mock, client, siteURL)

	activity := NewCreateEntry(alice, testEntry(alice, domain.VisibilityPublic))
	if err := distributor.DistributeActivity(activity, alice); err != nil {
		t.Fatalf("DistributeActivity: %v", err)
	}

	// bob is local to node-a, carol lives on node-b.
	if len(mock.Inbox[bobFQID]) != 1 {
		t.Errorf("bob's inbox has %d items, want 1", len(mock.Inbox[bobFQID]))
	}
	if client.RequestCount() != 1 {
		t.Fatalf("got %d remote posts, want 1", client.RequestCount())
	}
	if client.Requests[0].URL.String() != carolFQID+"/inbox/" {
		t.Errorf("remote post went to %s", client.Requests[0].URL)
	}
}

func TestDistributeLocalFailureAborts(t *testing.T) {
	mock, alice := fanoutFixture()
	distributor := NewDistributor(mock, NewMockHTTPClient(), siteURL)

	mock.SetForceError(errors.New("disk full"))
	activity := &domain.Activity{Type: domain.TypeFollow, Actor: alice.FQID, Object: domain.RefObject(bobFQID)}
	if err := distributor.DistributeActivity(activity, alice); err == nil {
		t.Fatal("local inbox failure must abort distribution with an error")
	}
}

func TestDistributeRemoteFailuresDoNotAbort(t *testing.T) {
	mock, alice := fanoutFixture()
	client := NewMockHTTPClient()
	client.Err = errors.New("timeout")
	distributor := NewDistributor(mock, client, siteURL)

	activity := NewCreateEntry(alice, testEntry(alice, domain.VisibilityPublic))
	if err := distributor.DistributeActivity(activity, alice); err != nil {
		t.Fatalf("remote failures must not surface: %v", err)
	}
	if len(mock.Inbox[bobFQID]) != 1 {
		t.Error("local delivery must still land when remote peers are down")
	}
}

func TestDistributeMalformedReachesNobody(t *testing.T) {
	mock, alice := fanoutFixture()
	client := NewMockHTTPClient()
	distributor := NewDistributor(mock, client, siteURL)

	activity := &domain.Activity{Type: "Boost", Actor: alice.FQID}
	if err := distributor.DistributeActivity(activity, alice); err != nil {
		t.Fatalf("unknown verb must not error: %v", err)
	}
	if client.RequestCount() != 0 || len(mock.Inbox[bobFQID]) != 0 {
		t.Error("unknown verb must reach nobody")
	}
}

func TestResolveFollowRef(t *testing.T) {
	mock, alice := fanoutFixture()
	distributor := NewDistributor(mock, NewMockHTTPClient(), siteURL)

	err, existing := mock.ReadFollowByPair(bobFQID, aliceFQID)
	if err != nil {
		t.Fatalf("fixture follow missing: %v", err)
	}

	if got := distributor.ResolveFollowRef(existing.FQID, alice.FQID); got == nil || got.FQID != existing.FQID {
		t.Errorf("follow-record fqid did not resolve: %+v", got)
	}
	if got := distributor.ResolveFollowRef(bobFQID, alice.FQID); got == nil || got.ActorFQID != bobFQID {
		t.Errorf("author fqid did not resolve via the pair: %+v", got)
	}
	if got := distributor.ResolveFollowRef("http://node-c.example/api/authors/zzz", alice.FQID); got != nil {
		t.Errorf("unknown reference must resolve to nil, got %+v", got)
	}
}

// Full local round trip: a follow is accepted, an entry is published, and
// the follower's inbox drain materializes it.
func TestEndToEndLocalDistribution(t *testing.T) {
	mock := NewMockDatabase()
	client := NewMockHTTPClient()
	distributor := NewDistributor(mock, client, siteURL)
	processor := NewProcessor(mock)

	a := &domain.Author{Id: uuid.New(), FQID: siteURL + "/api/authors/a", Host: "node-a.example", Username: "anna", Local: true}
	b := &domain.Author{Id: uuid.New(), FQID: siteURL + "/api/authors/b", Host: "node-a.example", Username: "ben", Local: true}
	mock.AddAuthor(a)
	mock.AddAuthor(b)

	// a asks to follow b.
	follow := NewFollow(a, b)
	if err := distributor.DistributeActivity(follow, a); err != nil {
		t.Fatalf("distribute follow: %v", err)
	}
	if err := processor.ProcessInbox(b.FQID); err != nil {
		t.Fatalf("process b: %v", err)
	}
	err, row := mock.ReadFollowByPair(a.FQID, b.FQID)
	if err != nil || row.State != domain.FollowRequested {
		t.Fatalf("follow row after request = %+v (%v)", row, err)
	}

	// b accepts.
	accept := NewAccept(b, a.FQID, distributor.ResolveFollowRef(a.FQID, b.FQID))
	if err := distributor.DistributeActivity(accept, b); err != nil {
		t.Fatalf("distribute accept: %v", err)
	}
	if err := processor.ProcessInbox(a.FQID); err != nil {
		t.Fatalf("process a: %v", err)
	}
	err, row = mock.ReadFollowByPair(a.FQID, b.FQID)
	if err != nil || row.State != domain.FollowAccepted {
		t.Fatalf("follow row after accept = %+v (%v)", row, err)
	}

	// b publishes a public entry; only a follows b, so fan-out is {a}.
	entry := &domain.Entry{
		Id:         uuid.New(),
		FQID:       b.FQID + "/posts/" + uuid.NewString(),
		AuthorFQID: b.FQID,
		Title:      "first post",
		Content:    "hello",
		Visibility: domain.VisibilityPublic,
		Published:  time.Now().UTC(),
	}
	mock.AddEntry(entry)
	if err := distributor.DistributeActivity(NewCreateEntry(b, entry), b); err != nil {
		t.Fatalf("distribute create: %v", err)
	}

	unprocessed := 0
	for _, item := range mock.Inbox[a.FQID] {
		if !item.Processed {
			unprocessed++
		}
	}
	if unprocessed != 1 {
		t.Fatalf("a's inbox has %d pending items, want exactly the Create", unprocessed)
	}

	if err := processor.ProcessInbox(a.FQID); err != nil {
		t.Fatalf("process a (create): %v", err)
	}
	err, got := mock.ReadEntryByFQID(entry.FQID)
	if err != nil {
		t.Fatalf("entry not materialized after drain: %v", err)
	}
	if got.Title != "first post" || got.AuthorFQID != b.FQID {
		t.Errorf("materialized entry mismatch: %+v", got)
	}
}
