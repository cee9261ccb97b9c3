package domain

// FilterAll is the sentinel dropdown value meaning "no restriction".
const FilterAll = "All"

type Place struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	District    string   `json:"district"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Hours       string   `json:"hours"`
	Fees        string   `json:"fees"`
	Tips        string   `json:"tips,omitempty"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Images      []string `json:"images,omitempty"`
}

type Itinerary struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Days  int     `json:"days"`
	Stops []int64 `json:"stops"` // place ids in visit order
}

// Catalog is the full dataset for a session. Loaded once, never mutated.
// A missing or unreadable source yields a Catalog with empty slices.
type Catalog struct {
	Places      []Place
	Itineraries []Itinerary
}

// FilterCriteria is the transient filter selection. An empty district or
// category is equivalent to FilterAll. Values are matched by exact,
// case-sensitive string equality against the literal data; only the free-text
// query is case-folded.
type FilterCriteria struct {
	District string
	Category string
	Query    string
}
