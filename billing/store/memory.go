// Package store provides an in-memory Feed implementation for tests and
// demo scenarios.
package store

import (
	"context"
	"sync"

	"github.com/comedor/billing-engine/billing"
)

// =============================================================================
// MEMORY FEED - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	households    []billing.Household
	enrollments   []billing.Enrollment
	cancellations []billing.Cancellation
	extras        []billing.ExtraRequest
	invitations   []billing.Invitation
	holidays      []billing.Holiday
	pricing       *billing.PricingConfig

	// FailWith, when set for a collection name, makes that fetch fail.
	// Lets tests exercise the propagation policy.
	FailWith map[string]error
}

func NewMemory() *Memory {
	return &Memory{FailWith: make(map[string]error)}
}

// Seed helpers. Safe for concurrent use, though tests typically seed first
// and read after.

func (m *Memory) AddHousehold(h billing.Household) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.households = append(m.households, h)
}

func (m *Memory) AddEnrollment(e billing.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments = append(m.enrollments, e)
}

func (m *Memory) AddCancellation(c billing.Cancellation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancellations = append(m.cancellations, c)
}

func (m *Memory) AddExtraRequest(r billing.ExtraRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extras = append(m.extras, r)
}

func (m *Memory) AddInvitation(inv billing.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, inv)
}

func (m *Memory) AddHoliday(h billing.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

func (m *Memory) SetPricing(pc billing.PricingConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing = &pc
}

func (m *Memory) ClearPricing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing = nil
}

// Feed implementation.

func (m *Memory) Households(_ context.Context) ([]billing.Household, error) {
	if err := m.failure("households"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]billing.Household, len(m.households))
	copy(out, m.households)
	return out, nil
}

func (m *Memory) HouseholdByID(_ context.Context, id billing.HouseholdID) (*billing.Household, error) {
	if err := m.failure("households"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.households {
		if h.ID == id {
			hh := h
			return &hh, nil
		}
	}
	return nil, billing.ErrHouseholdNotFound
}

func (m *Memory) EnrollmentsOverlapping(_ context.Context, month billing.Month) ([]billing.Enrollment, error) {
	if err := m.failure("enrollments"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Enrollment
	for _, e := range m.enrollments {
		if overlapsMonth(e, month) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) CancellationsIn(_ context.Context, month billing.Month) ([]billing.Cancellation, error) {
	if err := m.failure("cancellations"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Cancellation
	for _, c := range m.cancellations {
		for _, d := range c.Dates {
			if month.Contains(d) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ExtraRequestsIn(_ context.Context, month billing.Month) ([]billing.ExtraRequest, error) {
	if err := m.failure("extra_requests"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.ExtraRequest
	for _, r := range m.extras {
		if month.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) InvitationsIn(_ context.Context, month billing.Month) ([]billing.Invitation, error) {
	if err := m.failure("invitations"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Invitation
	for _, inv := range m.invitations {
		if month.Contains(inv.Date) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Memory) HolidaysIn(_ context.Context, month billing.Month) ([]billing.Holiday, error) {
	if err := m.failure("holidays"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []billing.Holiday
	for _, h := range m.holidays {
		if month.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *Memory) ActivePricing(_ context.Context) (*billing.PricingConfig, error) {
	if err := m.failure("pricing"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pricing == nil {
		return nil, nil
	}
	pc := *m.pricing
	return &pc, nil
}

func (m *Memory) failure(collection string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FailWith[collection]
}

func overlapsMonth(e billing.Enrollment, m billing.Month) bool {
	if e.Start.After(m.Last()) {
		return false
	}
	if e.End != nil && e.End.Before(m.First()) {
		return false
	}
	return true
}

var _ billing.Feed = (*Memory)(nil)
