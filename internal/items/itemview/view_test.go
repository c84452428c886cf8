package itemview

import (
	"testing"

	"github.com/docketapp/docket/internal/items"
)

func inventory() []items.Item {
	return []items.Item{
		{ID: "1", Name: "Drill", Category: "Tools", Location: "Garage Shelf", Price: 120},
		{ID: "2", Name: "Ladder", Category: "Tools", Price: 80,
			Lend: &items.LendInfo{Borrower: "Bob", Date: "2024-01-01"}},
	}
}

func names(got []items.Item) []string {
	out := make([]string, len(got))
	for i, it := range got {
		out[i] = it.Name
	}
	return out
}

func TestQuickLent(t *testing.T) {
	got := Filter(inventory(), QuickLent, "")
	if len(got) != 1 || got[0].Name != "Ladder" {
		t.Errorf("lent filter = %v, want [Ladder]", names(got))
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	got := Filter(inventory(), QuickAll, "gara")
	if len(got) != 1 || got[0].Name != "Drill" {
		t.Errorf("search gara = %v, want [Drill]", names(got))
	}
	// The term is matched as typed, so trailing whitespace is significant.
	if got := Filter(inventory(), QuickAll, "garage "); len(got) != 0 {
		t.Errorf("search %q = %v, want none", "garage ", names(got))
	}
}

func TestSearchSpansFields(t *testing.T) {
	for _, term := range []string{"drill", "TOOLS", "shelf"} {
		got := Filter(inventory(), QuickAll, term)
		if len(got) == 0 {
			t.Errorf("search %q matched nothing", term)
		}
	}
}

func TestFiltersCompose(t *testing.T) {
	// Quick filter and search are both applied.
	if got := Filter(inventory(), QuickLent, "drill"); len(got) != 0 {
		t.Errorf("lent+drill = %v, want none", names(got))
	}
	got := Filter(inventory(), QuickLent, "ladder")
	if len(got) != 1 || got[0].Name != "Ladder" {
		t.Errorf("lent+ladder = %v, want [Ladder]", names(got))
	}
}

func TestSummarizeIgnoresFilters(t *testing.T) {
	s := Summarize(inventory())
	if s.Count != 2 {
		t.Errorf("Count = %d, want 2", s.Count)
	}
	if s.TotalValue != 200 {
		t.Errorf("TotalValue = %v, want 200", s.TotalValue)
	}
	if s.LentCount != 1 {
		t.Errorf("LentCount = %d, want 1", s.LentCount)
	}
}

func TestModeFromString(t *testing.T) {
	if ModeFromString("grid") != ModeGrid {
		t.Error("grid preference not restored")
	}
	for _, s := range []string{"", "list", "banana"} {
		if ModeFromString(s) != ModeList {
			t.Errorf("ModeFromString(%q) != list", s)
		}
	}
	if ModeList.Toggle() != ModeGrid || ModeGrid.Toggle() != ModeList {
		t.Error("Toggle does not alternate")
	}
}
