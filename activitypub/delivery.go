package activitypub

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
)

// Deliverer hands one activity to one recipient. Local recipients get a
// durable inbox row; remote recipients get a best-effort POST to their
// inbox endpoint. The asymmetry is deliberate: the local inbox is the
// audit-of-record, remote peers are unreliable.
type Deliverer struct {
	db      Database
	client  HTTPClient
	siteURL string
}

func NewDeliverer(db Database, client HTTPClient, siteURL string) *Deliverer {
	return &Deliverer{db: db, client: client, siteURL: siteURL}
}

// Deliver routes the activity to the recipient. It returns an error only
// for local storage failures; remote failures are logged and swallowed.
func (d *Deliverer) Deliver(recipientFQID string, activity *domain.Activity) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return err
	}

	if util.IsLocal(recipientFQID, d.siteURL) {
		return d.deliverLocal(recipientFQID, payload)
	}

	d.deliverRemote(recipientFQID, payload)
	return nil
}

func (d *Deliverer) deliverLocal(recipientFQID string, payload []byte) error {
	item := &domain.InboxItem{
		Id:         uuid.New(),
		AuthorFQID: recipientFQID,
		RawJSON:    string(payload),
		Processed:  false,
		ReceivedAt: time.Now().UTC(),
	}
	if err := d.db.CreateInboxItem(item); err != nil {
		log.Printf("delivery: inbox append for %s failed: %v", recipientFQID, err)
		return err
	}
	return nil
}

func (d *Deliverer) deliverRemote(recipientFQID string, payload []byte) {
	inboxURL := util.InboxURL(recipientFQID)

	req, err := http.NewRequest(http.MethodPost, inboxURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("delivery: building request for %s: %v", inboxURL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	if user, pass, ok := d.nodeCredentials(recipientFQID); ok {
		req.SetBasicAuth(user, pass)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("delivery: POST %s failed: %v", inboxURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("delivery: POST %s returned %d", inboxURL, resp.StatusCode)
	}
}

// nodeCredentials looks up the basic-auth credentials we present to the
// node hosting the recipient, if one is registered and active.
func (d *Deliverer) nodeCredentials(recipientFQID string) (string, string, bool) {
	host := util.FQIDHost(recipientFQID)
	if host == "" {
		return "", "", false
	}
	err, node := d.db.ReadNodeByHost(host)
	if err != nil || !node.Active || node.AuthUser == "" {
		return "", "", false
	}
	return node.AuthUser, node.AuthPass, true
}
