package request

import "sort"

const (
	// DefaultPageLimit applies when a query passes limit 0.
	DefaultPageLimit = 50
	// MaxPageLimit caps every page.
	MaxPageLimit = 200
)

// Page selects a window of results.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limits and clamps a negative offset.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Paginate returns the window of items selected by page.
func Paginate(items []*BloodRequest, page Page) []*BloodRequest {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return []*BloodRequest{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

// SortByUrgency orders items most urgent first. Equal urgencies keep their
// relative order.
func SortByUrgency(items []*BloodRequest) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Urgency.IsHigherThan(items[j].Urgency)
	})
}

// Predicate selects requests.
type Predicate func(*BloodRequest) bool

// Filter returns the items matching every predicate.
func Filter(items []*BloodRequest, preds ...Predicate) []*BloodRequest {
	out := make([]*BloodRequest, 0, len(items))
next:
	for _, r := range items {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// WithStatus matches requests in status s. A nil s matches everything.
func WithStatus(s *Status) Predicate {
	return func(r *BloodRequest) bool {
		return s == nil || r.Status == *s
	}
}

// CreatedBetween matches requests created in [start, end].
func CreatedBetween(start, end int64) Predicate {
	return func(r *BloodRequest) bool {
		return r.CreatedAt >= start && r.CreatedAt <= end
	}
}

// WithUrgency matches requests of urgency u.
func WithUrgency(u Urgency) Predicate {
	return func(r *BloodRequest) bool { return r.Urgency == u }
}
