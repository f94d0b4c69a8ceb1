package domain

import (
	"regexp"
	"strings"
	"time"
)

// DefaultLinkBase prefixes the handle in public profile links.
const DefaultLinkBase = "https://personar.world/p"

var handlePattern = regexp.MustCompile(`^[a-z0-9._-]{3,32}$`)

// UserRecord is the stored profile document.
type UserRecord struct {
	ID             string
	Email          string
	Handle         string
	DisplayName    string
	StatusText     string
	BioText        string
	Location       string
	Link           string
	CredentialHash string `json:"-"`
	Embeddings     EmbeddingSet
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasCredential reports whether the user can log in with a password.
func (u *UserRecord) HasCredential() bool {
	return u.CredentialHash != ""
}

// Public returns the client-facing view of the record.
func (u *UserRecord) Public() *PublicProfile {
	return &PublicProfile{
		ID:          u.ID,
		Email:       u.Email,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		StatusText:  u.StatusText,
		BioText:     u.BioText,
		Location:    u.Location,
		Link:        u.Link,
	}
}

// PublicProfile is what every read path returns. It has no credential field.
type PublicProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	StatusText  string `json:"status_text,omitempty"`
	BioText     string `json:"bio_text,omitempty"`
	Location    string `json:"location,omitempty"`
	Link        string `json:"link"`
}

// VectorMatch is a profile resolved from a similarity query.
type VectorMatch struct {
	Profile *PublicProfile
	Score   float64
}

// ProfilePatch carries the mutable, non-identity fields of an update.
// A nil field is left untouched.
type ProfilePatch struct {
	DisplayName *string
	StatusText  *string
	BioText     *string
	Location    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.DisplayName == nil && p.StatusText == nil && p.BioText == nil && p.Location == nil
}

// Claims are the identity facts carried by an access token.
type Claims struct {
	Email string
}

// ExternalIdentity is what an external identity provider vouches for.
type ExternalIdentity struct {
	Email       string
	DisplayName string
}

// NormalizeHandle lower-cases and trims a handle.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// ValidHandle reports whether h (already normalized) is an acceptable handle.
func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// ProfileLink builds the public link for a handle.
func ProfileLink(base, handle string) string {
	if base == "" {
		base = DefaultLinkBase
	}
	return strings.TrimRight(base, "/") + "/" + handle
}
