package fhir

import (
	"time"

	"github.com/google/uuid"
)

// Bundle is the collection envelope carrying multiple resources plus
// paging/total metadata.
type Bundle struct {
	Type      string        `json:"resourceType"`
	ID        string        `json:"id,omitempty"`
	Kind      string        `json:"type"`
	Timestamp *time.Time    `json:"timestamp,omitempty"`
	Total     *int          `json:"total,omitempty"`
	Link      []BundleLink  `json:"link,omitempty"`
	Entry     []BundleEntry `json:"entry,omitempty"`
}

func (b *Bundle) ResourceType() string { return "Bundle" }

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// BundleEntry holds exactly one resource from the closed Resource set,
// discriminated by its ResourceType. No runtime type sniffing of raw JSON.
type BundleEntry struct {
	FullURL  string        `json:"fullUrl,omitempty"`
	Resource Resource      `json:"resource,omitempty"`
	Search   *BundleSearch `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode string `json:"mode,omitempty"`
}

// Entry wraps a resource with its locator for inclusion in a bundle.
type Entry struct {
	Locator  string
	Resource Resource
}

// NewSearchset builds a searchset Bundle from located resources. Total is the
// full match count, independent of the page carried in entries.
func NewSearchset(entries []Entry, total int, selfURL string) *Bundle {
	b := newBundle("searchset", entries, &total)
	if selfURL != "" {
		b.Link = []BundleLink{{Relation: "self", URL: selfURL}}
	}
	return b
}

// NewCollection builds a self-describing "collection" envelope over the same
// entry data as a searchset, without search metadata on the entries.
func NewCollection(entries []Entry, total int) *Bundle {
	b := newBundle("collection", entries, &total)
	for i := range b.Entry {
		b.Entry[i].Search = nil
	}
	return b
}

func newBundle(kind string, entries []Entry, total *int) *Bundle {
	now := time.Now().UTC()
	out := make([]BundleEntry, len(entries))
	for i, e := range entries {
		out[i] = BundleEntry{
			FullURL:  e.Locator,
			Resource: e.Resource,
			Search:   &BundleSearch{Mode: "match"},
		}
	}
	return &Bundle{
		Type:      "Bundle",
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: &now,
		Total:     total,
		Entry:     out,
	}
}
