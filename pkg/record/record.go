// Package record holds the extracted Title→Article→Requirement tree for one
// jurisdiction and serializes it to the archive's XML record format.
package record

// Set owns the title-keyed record tree for a single run. Titles are kept in
// encounter order so serialization is deterministic.
type Set struct {
	titles map[string]*Title
	order  []string
}

// NewSet creates an empty record set.
func NewSet() *Set {
	return &Set{titles: make(map[string]*Title)}
}

// Get returns the title for key, or nil.
func (s *Set) Get(key string) *Title {
	return s.titles[key]
}

// Put registers a title under key. The first insertion fixes the title's
// position in encounter order; re-inserting an existing key replaces the
// value in place.
func (s *Set) Put(key string, title *Title) {
	if _, exists := s.titles[key]; !exists {
		s.order = append(s.order, key)
	}
	s.titles[key] = title
}

// Titles returns all titles in encounter order.
func (s *Set) Titles() []*Title {
	titles := make([]*Title, 0, len(s.order))
	for _, key := range s.order {
		titles = append(titles, s.titles[key])
	}
	return titles
}

// Len returns the number of titles.
func (s *Set) Len() int {
	return len(s.order)
}

// Title is one top-level title heading with its associated offices and
// articles.
type Title struct {
	Number            string
	Name              string
	Source            string
	Category          *Category
	OfficesAssociated []string
	Articles          []*Article
}

// Category is an optional grouping wrapping one or more titles.
type Category struct {
	Name   string
	Source string
}

// Article is one article under a title. When TitleContent is set the title
// has no separate article heading and only the domain is emitted.
type Article struct {
	TitleContent bool

	Number string
	Name   string
	Source string
	Domain string

	Subtitle *NamePart
	Part     *Part

	AssociatedFederalRecords []string
	Definitions              []*Definition
	Requirements             []*Requirement
}

// NamePart is a named, numbered hierarchy level with an optional source link.
type NamePart struct {
	Number string
	Name   string
	Source string
}

// Part is a part-level hierarchy entry. AltName records the alternate part
// label when the jurisdiction uses more than one.
type Part struct {
	NamePart
	AltName string
	SubPart *NamePart
}

// Definition is a statute defining one or more terms.
type Definition struct {
	StateCode    string
	Source       string
	DefinedTerms []string
}

// Requirement is one statute-level requirement record.
type Requirement struct {
	Label       string
	Description string
	StateCode   string
	Source      string
	Entities    []string
	Tags        []string
}
