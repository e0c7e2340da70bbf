package activitypub

import (
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
	"golang.org/x/sync/errgroup"
)

// remoteFanoutLimit bounds concurrent outbound deliveries per activity.
const remoteFanoutLimit = 8

// Distributor is the single entry point callers use after building an
// activity: it resolves recipients and hands the activity to the delivery
// channel once per recipient. Local inbox writes are durable before
// DistributeActivity returns; remote deliveries fan out concurrently and
// are best-effort.
type Distributor struct {
	db        Database
	resolver  *Resolver
	deliverer *Deliverer
}

func NewDistributor(db Database, client HTTPClient, siteURL string) *Distributor {
	return &Distributor{
		db:        db,
		resolver:  NewResolver(db),
		deliverer: NewDeliverer(db, client, siteURL),
	}
}

// DistributeActivity fans the activity out to every resolved recipient.
// The only error it returns is a local storage failure; everything else
// degrades to an empty recipient set or a logged remote failure.
func (d *Distributor) DistributeActivity(activity *domain.Activity, actor *domain.Author) error {
	err, recipients := d.resolver.Resolve(activity, actor)
	if err != nil {
		return err
	}

	var remote []string
	for _, fqid := range recipients {
		if util.IsLocal(fqid, d.deliverer.siteURL) {
			if err := d.deliverer.Deliver(fqid, activity); err != nil {
				return err
			}
			continue
		}
		remote = append(remote, fqid)
	}

	var g errgroup.Group
	g.SetLimit(remoteFanoutLimit)
	for _, fqid := range remote {
		fqid := fqid
		g.Go(func() error {
			return d.deliverer.Deliver(fqid, activity)
		})
	}
	return g.Wait()
}

// ResolveFollowRef resolves a follower reference that may be either a
// Follow record fqid or the follower's author fqid, for building
// Accept/Reject activities in their canonical form. Returns nil when no
// matching Follow record exists.
func (d *Distributor) ResolveFollowRef(ref string, targetFQID string) *domain.Follow {
	if err, follow := d.db.ReadFollowByFQID(ref); err == nil {
		return follow
	}
	if err, follow := d.db.ReadFollowByPair(ref, targetFQID); err == nil {
		return follow
	}
	return nil
}
