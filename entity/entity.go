package entity

import "strings"

// Relationship link type constants used in entity records and graph links.
const (
	LinkOwnedBy    = "owned_by"
	LinkOwns       = "owns"
	LinkPartner    = "partner"
	LinkCompetitor = "competitor"
	LinkCustomer   = "customer"
	LinkVendor     = "vendor"
)

// LinkTypes lists the recognized relationship types in canonical order.
var LinkTypes = []string{
	LinkOwnedBy,
	LinkOwns,
	LinkPartner,
	LinkCompetitor,
	LinkCustomer,
	LinkVendor,
}

// IsLinkType reports whether s is one of the recognized relationship types.
// Unrecognized types are still stored and rendered; they only draw a
// validation warning.
func IsLinkType(s string) bool {
	switch s {
	case LinkOwnedBy, LinkOwns, LinkPartner, LinkCompetitor, LinkCustomer, LinkVendor:
		return true
	}
	return false
}

// Record is one company's descriptive data. Name is the unique identifier
// within a batch and is used verbatim (case-sensitive) as the graph node key.
type Record struct {
	Name          string         `json:"name" validate:"required"`
	Type          string         `json:"type,omitempty" validate:"required"`
	Parent        string         `json:"parent,omitempty"`
	Revenue       string         `json:"revenue,omitempty"`
	Subsidiaries  []string       `json:"subsidiaries"`
	Relationships []Relationship `json:"relationships"`
}

// Relationship is a directed, typed reference from the owning record to
// another organization.
type Relationship struct {
	Target string `json:"target" validate:"required"`
	Type   string `json:"type" validate:"required"`
}

// Normalize trims surrounding whitespace from every string field and
// replaces nil lists with empty ones so downstream code and serialized
// files always see clean, present values. It returns the receiver for
// chaining.
func (r *Record) Normalize() *Record {
	r.Name = strings.TrimSpace(r.Name)
	r.Type = strings.TrimSpace(r.Type)
	r.Parent = strings.TrimSpace(r.Parent)
	r.Revenue = strings.TrimSpace(r.Revenue)

	if r.Subsidiaries == nil {
		r.Subsidiaries = []string{}
	}
	for i := range r.Subsidiaries {
		r.Subsidiaries[i] = strings.TrimSpace(r.Subsidiaries[i])
	}

	if r.Relationships == nil {
		r.Relationships = []Relationship{}
	}
	for i := range r.Relationships {
		r.Relationships[i].Target = strings.TrimSpace(r.Relationships[i].Target)
		r.Relationships[i].Type = strings.TrimSpace(r.Relationships[i].Type)
	}
	return r
}

// Clone returns a deep copy of the record. Callers that merge or mutate
// records work on copies so loaded inputs stay untouched.
func (r *Record) Clone() *Record {
	c := &Record{
		Name:    r.Name,
		Type:    r.Type,
		Parent:  r.Parent,
		Revenue: r.Revenue,
	}
	c.Subsidiaries = make([]string, len(r.Subsidiaries))
	copy(c.Subsidiaries, r.Subsidiaries)
	c.Relationships = make([]Relationship, len(r.Relationships))
	copy(c.Relationships, r.Relationships)
	return c
}
