package util

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:embed version.txt
var embeddedVersion string

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

// NormalizeFQID strips the trailing slash so that equality checks on
// fully-qualified ids are exact regardless of how a peer formats them.
func NormalizeFQID(fqid string) string {
	return strings.TrimRight(strings.TrimSpace(fqid), "/")
}

// MintFQID mints a fresh fully-qualified id under the given author,
// e.g. https://node/api/authors/<uuid>/posts/<uuid>.
func MintFQID(authorFQID string, suffix string) string {
	return fmt.Sprintf("%s/%s/%s", NormalizeFQID(authorFQID), suffix, uuid.New())
}

// FQIDHost returns the host component of a fully-qualified id, or an
// empty string when the id is not a parseable absolute URL.
func FQIDHost(fqid string) string {
	u, err := url.Parse(NormalizeFQID(fqid))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Host
}

// FQIDBase returns scheme://host of a fully-qualified id.
func FQIDBase(fqid string) string {
	u, err := url.Parse(NormalizeFQID(fqid))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// IsLocal reports whether an entity named by fqid lives on this node.
// The site URL is passed in explicitly so tests can simulate several
// nodes in one process.
func IsLocal(fqid string, siteURL string) bool {
	host := FQIDHost(fqid)
	return host != "" && host == FQIDHost(siteURL)
}

// FQIDToken extracts the trailing uuid token of a minted fqid. Returns
// uuid.Nil when the last path segment is not a uuid. This is the only
// sanctioned fallback lookup; callers must not substring-match ids.
func FQIDToken(fqid string) uuid.UUID {
	fqid = NormalizeFQID(fqid)
	idx := strings.LastIndex(fqid, "/")
	if idx < 0 {
		return uuid.Nil
	}
	token, err := uuid.Parse(fqid[idx+1:])
	if err != nil {
		return uuid.Nil
	}
	return token
}

// AuthorFQID builds the canonical fqid for a local author.
func AuthorFQID(siteURL string, authorId uuid.UUID) string {
	return fmt.Sprintf("%s/api/authors/%s", NormalizeFQID(siteURL), authorId)
}

// InboxURL builds the inbox endpoint for an author fqid, local or remote.
func InboxURL(authorFQID string) string {
	return NormalizeFQID(authorFQID) + "/inbox/"
}

func PublishedNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05 MST"
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}
