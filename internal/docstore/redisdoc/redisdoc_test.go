package redisdoc

import (
	"testing"

	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/docstore"
)

func TestKeyNamespacing(t *testing.T) {
	s := &Store{namespace: "docket", logger: zap.NewNop()}

	if got := s.docKey("items", "42"); got != "docket:doc:items:42" {
		t.Errorf("docKey = %q", got)
	}
	if got := s.idsKey("items"); got != "docket:ids:items" {
		t.Errorf("idsKey = %q", got)
	}
	if got := s.changeChannel("items"); got != "docket:changes:items" {
		t.Errorf("changeChannel = %q", got)
	}

	other := &Store{namespace: "tenant2", logger: zap.NewNop()}
	if s.docKey("items", "42") == other.docKey("items", "42") {
		t.Error("namespaces must not collide")
	}
}

func TestStampReplacesMarkerAndStaysMonotonic(t *testing.T) {
	s := &Store{namespace: "docket", logger: zap.NewNop()}

	a := s.stamp(map[string]any{"created_at": docstore.ServerTimestamp, "name": "Drill"})
	b := s.stamp(map[string]any{"created_at": docstore.ServerTimestamp})

	ats, ok := a["created_at"].(int64)
	if !ok || ats == 0 {
		t.Fatalf("created_at = %v, want stamped int64", a["created_at"])
	}
	if a["name"] != "Drill" {
		t.Error("plain field was altered")
	}
	bts := b["created_at"].(int64)
	if bts <= ats {
		t.Errorf("timestamps not strictly increasing: %d then %d", ats, bts)
	}
}

func TestStampNestedMaps(t *testing.T) {
	s := &Store{namespace: "docket", logger: zap.NewNop()}

	out := s.stamp(map[string]any{
		"last_message": map[string]any{"sent_at": docstore.ServerTimestamp, "text": "hi"},
	})
	nested := out["last_message"].(map[string]any)
	if _, ok := nested["sent_at"].(int64); !ok {
		t.Errorf("nested sent_at = %v, want stamped int64", nested["sent_at"])
	}
	if nested["text"] != "hi" {
		t.Error("nested plain field was altered")
	}
}
