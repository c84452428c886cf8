package items

// Collection is the document store collection holding inventory items.
const Collection = "items"

// LendInfo captures an item lent out: who has it and since when. A nil
// LendInfo on Item means the item is available.
type LendInfo struct {
	Borrower string
	Date     string // YYYY-MM-DD
}

// Item is one inventory entry, mirrored from the document store.
type Item struct {
	ID        string
	Name      string
	Category  string
	Location  string
	Price     float64
	Notes     string
	PhotoURL  string
	OwnerID   string
	IsListed  bool
	Lend      *LendInfo
	CreatedAt int64
}

// Draft carries the user-edited fields of an item save. An empty ID means
// create; a set ID means a partial update of exactly these fields. Photo, when
// non-nil, is uploaded to the object store before any document write.
type Draft struct {
	ID       string
	Name     string
	Category string
	Location string
	Price    float64
	Notes    string
	PhotoURL string
	IsListed bool

	Photo            []byte
	PhotoContentType string
}
