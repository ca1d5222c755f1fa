/*
feeds.go - Read-only input feeds and the per-month input snapshot

PURPOSE:
  The engine does not own persistence. It consumes, per billed month, a set
  of read-only collections from external storage through the Feed interface,
  and snapshots them into MonthInputs before any matching starts. The
  independent collections are fetched concurrently, but matching never sees
  partial data: every fetch completes (or the first failure aborts) before
  a single day is classified.

IMPLEMENTATIONS:
  - store/sqlite: production feed over the roster database
  - billing/store: in-memory feed for tests and demo scenarios

SEE ALSO:
  - calendar.go: business-day resolution over the holiday collection
  - entitlement.go: per-day classification over the snapshot
*/
package billing

import (
	"context"
	"sort"
	"sync"
)

// =============================================================================
// FEED - External storage contract (read-only)
// =============================================================================

// Feed provides the input collections for a billing request. Every method
// may be called concurrently with the others; implementations must be safe
// for concurrent reads.
type Feed interface {
	// Households returns all households with their children and, when the
	// guardian is staff with a cafeteria entitlement, the staff member.
	Households(ctx context.Context) ([]Household, error)

	// HouseholdByID returns one household or ErrHouseholdNotFound.
	HouseholdByID(ctx context.Context, id HouseholdID) (*Household, error)

	// EnrollmentsOverlapping returns every enrollment whose validity range
	// overlaps the month, whether currently active or deactivated within it.
	EnrollmentsOverlapping(ctx context.Context, m Month) ([]Enrollment, error)

	// CancellationsIn returns cancellations with at least one day in the month.
	CancellationsIn(ctx context.Context, m Month) ([]Cancellation, error)

	// ExtraRequestsIn returns extra-day requests dated within the month,
	// regardless of status: the engine filters to approved ones.
	ExtraRequestsIn(ctx context.Context, m Month) ([]ExtraRequest, error)

	// InvitationsIn returns invitations dated within the month.
	InvitationsIn(ctx context.Context, m Month) ([]Invitation, error)

	// HolidaysIn returns the holiday records dated within the month.
	HolidaysIn(ctx context.Context, m Month) ([]Holiday, error)

	// ActivePricing returns the active pricing configuration, or nil when
	// none exists.
	ActivePricing(ctx context.Context) (*PricingConfig, error)
}

// =============================================================================
// MONTH INPUTS - Immutable snapshot of all feeds for one month
// =============================================================================

// personKey attributes day-level records. Records are never matched across
// kinds: a child invitation never applies to a staff member with the same id.
type personKey struct {
	Kind PersonKind
	ID   PersonID
}

// MonthInputs is the complete, indexed input snapshot for one billed month.
// It is immutable once built; per-person computations share it without
// synchronization.
type MonthInputs struct {
	Month        Month
	Pricing      PricingConfig
	BusinessDays []Date
	Holidays     []Date // active holidays within the month

	enrollments map[personKey][]Enrollment
	cancelled   map[personKey]map[string]bool // ISO date set
	extras      map[personKey]map[string]bool // approved requests only
	invited     map[personKey]map[string]bool
}

// LoadMonthInputs fetches all collections concurrently, validates the
// pricing configuration, resolves the business-day calendar, and indexes
// everything by person. The first fetch failure aborts and propagates; no
// retries.
func LoadMonthInputs(ctx context.Context, feed Feed, m Month) (*MonthInputs, error) {
	if !m.Valid() {
		return nil, ErrInvalidMonth
	}

	var (
		enrollments []Enrollment
		cancels     []Cancellation
		extras      []ExtraRequest
		invitations []Invitation
		holidays    []Holiday
		pricing     *PricingConfig
	)

	fetches := []struct {
		collection string
		run        func() error
	}{
		{"enrollments", func() (err error) { enrollments, err = feed.EnrollmentsOverlapping(ctx, m); return }},
		{"cancellations", func() (err error) { cancels, err = feed.CancellationsIn(ctx, m); return }},
		{"extra_requests", func() (err error) { extras, err = feed.ExtraRequestsIn(ctx, m); return }},
		{"invitations", func() (err error) { invitations, err = feed.InvitationsIn(ctx, m); return }},
		{"holidays", func() (err error) { holidays, err = feed.HolidaysIn(ctx, m); return }},
		{"pricing", func() (err error) { pricing, err = feed.ActivePricing(ctx); return }},
	}

	// Independent reads run concurrently, but ALL must complete before any
	// matching: partial data must never be classified.
	errs := make([]error, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, collection string, run func() error) {
			defer wg.Done()
			if err := run(); err != nil {
				errs[i] = &FeedError{Collection: collection, Err: err}
			}
		}(i, f.collection, f.run)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if pricing == nil || !pricing.Applicable() {
		return nil, ErrNoPricingConfig
	}

	in := &MonthInputs{
		Month:       m,
		Pricing:     *pricing,
		enrollments: make(map[personKey][]Enrollment),
		cancelled:   make(map[personKey]map[string]bool),
		extras:      make(map[personKey]map[string]bool),
		invited:     make(map[personKey]map[string]bool),
	}
	in.indexHolidays(holidays)
	in.BusinessDays = businessDays(m, in.Holidays)
	in.indexEnrollments(enrollments)
	in.indexCancellations(cancels)
	in.indexExtras(extras)
	in.indexInvitations(invitations)
	return in, nil
}

func (in *MonthInputs) indexHolidays(holidays []Holiday) {
	for _, h := range holidays {
		if !h.Active || h.Date.IsZero() || !in.Month.Contains(h.Date) {
			continue
		}
		in.Holidays = append(in.Holidays, h.Date)
	}
	sort.Slice(in.Holidays, func(i, j int) bool { return in.Holidays[i].Before(in.Holidays[j]) })
}

func (in *MonthInputs) indexEnrollments(enrollments []Enrollment) {
	for _, e := range enrollments {
		if e.PersonID == "" {
			continue // unattributable, contributes nothing
		}
		k := personKey{Kind: kindOrChild(e.PersonKind), ID: e.PersonID}
		in.enrollments[k] = append(in.enrollments[k], e)
	}
	// Overlapping enrollments are tolerated, not rejected: the first match
	// by ascending start date (then creation time) wins, deterministically,
	// instead of depending on incidental row order.
	for k := range in.enrollments {
		es := in.enrollments[k]
		sort.SliceStable(es, func(i, j int) bool {
			if !es[i].Start.Equal(es[j].Start) {
				return es[i].Start.Before(es[j].Start)
			}
			return es[i].CreatedAt.Before(es[j].CreatedAt)
		})
	}
}

func (in *MonthInputs) indexCancellations(cancels []Cancellation) {
	for _, c := range cancels {
		if c.PersonID == "" {
			continue
		}
		k := personKey{Kind: kindOrChild(c.PersonKind), ID: c.PersonID}
		for _, d := range c.Dates {
			if d.IsZero() || !in.Month.Contains(d) {
				continue // malformed or out-of-month day contributes nothing
			}
			daySet(in.cancelled, k)[d.String()] = true
		}
	}
}

func (in *MonthInputs) indexExtras(extras []ExtraRequest) {
	for _, r := range extras {
		if r.PersonID == "" || r.Status != RequestApproved {
			continue
		}
		if r.Date.IsZero() || !in.Month.Contains(r.Date) {
			continue
		}
		k := personKey{Kind: kindOrChild(r.PersonKind), ID: r.PersonID}
		daySet(in.extras, k)[r.Date.String()] = true
	}
}

func (in *MonthInputs) indexInvitations(invitations []Invitation) {
	for _, inv := range invitations {
		if inv.PersonID == "" {
			continue
		}
		if inv.PersonKind != KindChild && inv.PersonKind != KindStaff {
			continue // cannot be attributed, skipped
		}
		if inv.Date.IsZero() || !in.Month.Contains(inv.Date) {
			continue
		}
		k := personKey{Kind: inv.PersonKind, ID: inv.PersonID}
		daySet(in.invited, k)[inv.Date.String()] = true
	}
}

func daySet(m map[personKey]map[string]bool, k personKey) map[string]bool {
	s, ok := m[k]
	if !ok {
		s = make(map[string]bool)
		m[k] = s
	}
	return s
}

// kindOrChild defaults legacy records without a kind marker to child, the
// overwhelmingly common case in the roster.
func kindOrChild(k PersonKind) PersonKind {
	if k == KindStaff {
		return KindStaff
	}
	return KindChild
}

// =============================================================================
// PER-PERSON VIEW
// =============================================================================

// Entitlements is one person's slice of the month snapshot, ready for
// day-by-day classification.
type Entitlements struct {
	Enrollments []Enrollment // sorted by ascending start date
	Cancelled   map[string]bool
	Extras      map[string]bool
	Invited     map[string]bool
}

// EntitlementsFor resolves the records attributed to the given person.
// A person with no records at all gets empty sets (every day resolves to
// none unless an override applies).
func (in *MonthInputs) EntitlementsFor(p Person) Entitlements {
	k := personKey{Kind: p.Kind(), ID: p.PersonID()}
	return Entitlements{
		Enrollments: in.enrollments[k],
		Cancelled:   in.cancelled[k],
		Extras:      in.extras[k],
		Invited:     in.invited[k],
	}
}

// ActiveEnrollmentsFor returns the person's currently active enrollments,
// used by the sibling ranking.
func (in *MonthInputs) ActiveEnrollmentsFor(id PersonID) []Enrollment {
	var active []Enrollment
	for _, e := range in.enrollments[personKey{Kind: KindChild, ID: id}] {
		if e.Active {
			active = append(active, e)
		}
	}
	return active
}
