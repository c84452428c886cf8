package docstore

import "testing"

func TestQueryEqualsFilter(t *testing.T) {
	q := Query{Collection: "items", Equals: &Equals{Field: "owner_id", Value: "u1"}}

	docs := []Document{
		{ID: "a", Fields: map[string]any{"owner_id": "u1"}},
		{ID: "b", Fields: map[string]any{"owner_id": "u2"}},
		{ID: "c", Fields: map[string]any{}},
	}

	out := q.Apply(docs)
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("Apply() = %v, want only doc a", out)
	}
}

func TestQueryContainsFilter(t *testing.T) {
	q := Query{Collection: "threads", Contains: &Contains{Field: "participants", Value: "u1"}}

	docs := []Document{
		{ID: "a", Fields: map[string]any{"participants": []string{"u1", "u2"}}},
		{ID: "b", Fields: map[string]any{"participants": []any{"u3", "u1"}}},
		{ID: "c", Fields: map[string]any{"participants": []string{"u2", "u3"}}},
		{ID: "d", Fields: map[string]any{}},
	}

	out := q.Apply(docs)
	if len(out) != 2 {
		t.Fatalf("Apply() returned %d docs, want 2", len(out))
	}
	for _, d := range out {
		if d.ID != "a" && d.ID != "b" {
			t.Errorf("unexpected doc %q in result", d.ID)
		}
	}
}

func TestQueryOrdering(t *testing.T) {
	docs := []Document{
		{ID: "a", Fields: map[string]any{"created_at": int64(300)}},
		{ID: "b", Fields: map[string]any{"created_at": float64(100)}}, // JSON-widened
		{ID: "c", Fields: map[string]any{"created_at": int64(200)}},
	}

	asc := Query{Collection: "x", OrderBy: "created_at"}.Apply(docs)
	if asc[0].ID != "b" || asc[1].ID != "c" || asc[2].ID != "a" {
		t.Errorf("ascending order = %v", ids(asc))
	}

	desc := Query{Collection: "x", OrderBy: "created_at", Descending: true}.Apply(docs)
	if desc[0].ID != "a" || desc[1].ID != "c" || desc[2].ID != "b" {
		t.Errorf("descending order = %v", ids(desc))
	}
}

func TestQueryNumericEqualsAcrossTypes(t *testing.T) {
	q := Query{Collection: "x", Equals: &Equals{Field: "n", Value: int64(5)}}
	d := Document{ID: "a", Fields: map[string]any{"n": float64(5)}}
	if !q.Match(d) {
		t.Error("int64(5) should match float64(5)")
	}
}

func TestDocumentAccessors(t *testing.T) {
	d := Document{Fields: map[string]any{
		"name":  "Drill",
		"price": float64(120),
		"meta":  map[string]any{"k": "v"},
		"tags":  []any{"a", "b"},
		"on":    true,
	}}

	if d.String("name") != "Drill" {
		t.Errorf("String(name) = %q", d.String("name"))
	}
	if d.String("missing") != "" {
		t.Error("missing string should be empty")
	}
	if d.Float("price") != 120 {
		t.Errorf("Float(price) = %v", d.Float("price"))
	}
	if d.Int64("price") != 120 {
		t.Errorf("Int64(price) = %v", d.Int64("price"))
	}
	if d.Map("meta")["k"] != "v" {
		t.Error("Map(meta) wrong")
	}
	if got := d.Strings("tags"); len(got) != 2 || got[0] != "a" {
		t.Errorf("Strings(tags) = %v", got)
	}
	if !d.Bool("on") {
		t.Error("Bool(on) = false")
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
