package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/docketapp/docket/internal/docstore"
)

func validProfile() Profile {
	return Profile{UID: "u1", Username: "ana_b", Location: "Lisbon", PhotoURL: "https://x/p.jpg"}
}

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		username string
		ok       bool
	}{
		{"ana_b", true},
		{"Ana99", true},
		{"abc", true},
		{"ab", false},
		{"", false},
		{"ana b", false},
		{"ana-b", false},
		{"ana!", false},
	}
	for _, tc := range cases {
		p := validProfile()
		p.Username = tc.username
		err := Validate(p)
		if tc.ok && err != nil {
			t.Errorf("Validate(username=%q) = %v, want nil", tc.username, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Validate(username=%q) = nil, want error", tc.username)
		}
	}
}

func TestValidateRequiredFields(t *testing.T) {
	p := validProfile()
	p.Location = "   "
	if Validate(p) == nil {
		t.Error("blank location accepted")
	}

	p = validProfile()
	p.PhotoURL = ""
	if Validate(p) == nil {
		t.Error("empty photo accepted")
	}
}

func TestFetchMissing(t *testing.T) {
	store := docstore.NewMemStore()
	_, err := Fetch(context.Background(), store, "nobody")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Fetch(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpsertRoundTripAndIdempotence(t *testing.T) {
	store := docstore.NewMemStore()
	ctx := context.Background()
	p := validProfile()

	if err := Upsert(ctx, store, p); err != nil {
		t.Fatal(err)
	}
	if err := Upsert(ctx, store, p); err != nil {
		t.Fatal(err)
	}

	got, err := Fetch(ctx, store, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "ana_b" || got.Location != "Lisbon" {
		t.Errorf("Fetch() = %+v", got)
	}
	if got.CreatedAt == 0 {
		t.Error("created_at not server-assigned")
	}

	docs, _ := store.List(ctx, docstore.Query{Collection: Collection})
	if len(docs) != 1 {
		t.Errorf("upsert twice produced %d docs, want 1", len(docs))
	}
}

func TestUpsertRejectsInvalid(t *testing.T) {
	store := docstore.NewMemStore()
	p := validProfile()
	p.Username = "x"

	if err := Upsert(context.Background(), store, p); err == nil {
		t.Fatal("invalid profile accepted")
	}
	docs, _ := store.List(context.Background(), docstore.Query{Collection: Collection})
	if len(docs) != 0 {
		t.Error("invalid profile reached the store")
	}
}
