/*
Package billing implements the monthly cafeteria fee computation.

PURPOSE:
  Given the read-only entitlement feeds for one month (enrollments,
  cancellations, approved extra-day requests, invitations, holidays and the
  active pricing configuration), reconstruct which calendar days are billable
  for every person, price them, apply the discount and exemption policies,
  and aggregate to household and institution totals.

KEY CONCEPTS IN THIS FILE (types.go):
  - Person: tagged child/staff variant with a shared capability surface
  - Enrollment: standing weekly commitment with bounded validity dates
  - Cancellation / ExtraRequest / Invitation / Holiday: day-level overrides
  - PricingConfig: the single active configuration record
  - BillableDay / PersonResult / HouseholdResult: derived, never persisted

DESIGN PRINCIPLES:
  1. Purity: the engine recomputes everything from scratch on every request;
     nothing is cached or written during a computation.
  2. Precision: decimal.Decimal for every price and total.
  3. Determinism: identical inputs yield identical results, including the
     resolution of overlapping enrollments.
  4. Graceful degradation: a malformed entitlement record contributes
     nothing; it never aborts a household.

SEE ALSO:
  - entitlement.go: per-day classification with fixed precedence
  - accumulate.go: per-person month walk
  - discount.go: sibling ranking, attendance cliff, exemption
  - aggregate.go: household and institution totals
*/
package billing

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string
type HouseholdID string

// PersonKind discriminates the person variant. Invitations and entitlement
// records are attributed by (kind, id) pairs and never matched across kinds.
type PersonKind string

const (
	KindChild PersonKind = "child"
	KindStaff PersonKind = "staff"
)

// =============================================================================
// PERSON - Tagged child/staff variant
// =============================================================================

// Person is the shared capability surface of children and staff members.
// Billing treats both uniformly as "a person with day-level cafeteria
// activity"; only the discount rules distinguish them (staff never receive
// the sibling discount).
type Person interface {
	PersonID() PersonID
	Kind() PersonKind
	DisplayName() string
	ExemptionStatus() Exemption
}

// Child is a roster child belonging to a household.
type Child struct {
	ID        PersonID
	Name      string
	Household HouseholdID
	Exempt    Exemption
	CreatedAt time.Time
}

func (c Child) PersonID() PersonID         { return c.ID }
func (c Child) Kind() PersonKind           { return KindChild }
func (c Child) DisplayName() string        { return c.Name }
func (c Child) ExemptionStatus() Exemption { return c.Exempt }

// Staff is a staff member with their own cafeteria entitlement. When the
// staff member is a guardian of a household, Household links them so the
// aggregator folds their fees into the family total.
type Staff struct {
	ID        PersonID
	Name      string
	Household HouseholdID
	Exempt    Exemption
	CreatedAt time.Time
}

func (s Staff) PersonID() PersonID         { return s.ID }
func (s Staff) Kind() PersonKind           { return KindStaff }
func (s Staff) DisplayName() string        { return s.Name }
func (s Staff) ExemptionStatus() Exemption { return s.Exempt }

var (
	_ Person = Child{}
	_ Person = Staff{}
)

// Household groups the children of one family plus, optionally, the
// guardian's own staff entitlement.
type Household struct {
	ID       HouseholdID
	Name     string
	Children []Child
	Staff    *Staff
}

// Exemption is a full fee waiver with an optional validity window.
// Either side of the window may be open-ended.
type Exemption struct {
	Exempt bool
	Reason string
	From   *Date
	To     *Date
}

// CoversDay reports whether the exemption is in force on the given day.
// An exemption with no window is in force whenever the flag is set.
func (e Exemption) CoversDay(d Date) bool {
	if !e.Exempt {
		return false
	}
	if e.From != nil && d.Before(*e.From) {
		return false
	}
	if e.To != nil && d.After(*e.To) {
		return false
	}
	return true
}

// =============================================================================
// ENTITLEMENT RECORDS - Read-only inputs, owned by the roster
// =============================================================================

// Enrollment is a standing weekly commitment. DailyPrice is already net of
// the sibling discount when one applies; DiscountPercent records what was
// baked in so the theoretical gross price can be reconstructed.
//
// Several enrollments per person may overlap the billed month (one
// deactivated mid-month when a new one starts). For matching, the validity
// range decides, not the Active flag: a record deactivated on the 15th still
// bills the 1st through the 15th.
type Enrollment struct {
	ID              string
	PersonID        PersonID
	PersonKind      PersonKind
	Weekdays        WeekdaySet
	DailyPrice      Money
	DiscountPercent Percent
	Active          bool
	Start           Date
	End             *Date // nil = open-ended
	CreatedAt       time.Time
}

// InRange reports whether the date falls inside [Start, End], both endpoints
// inclusive, date-only semantics.
func (e Enrollment) InRange(d Date) bool {
	if e.Start.IsZero() || d.Before(e.Start) {
		return false
	}
	if e.End != nil && d.After(*e.End) {
		return false
	}
	return true
}

// Covers reports whether the enrollment entitles the person to this exact
// day: the weekday is committed and the date is in range. An enrollment with
// an empty weekday set is malformed and covers nothing.
func (e Enrollment) Covers(d Date) bool {
	if e.Weekdays.IsEmpty() {
		return false
	}
	return e.Weekdays.Has(d.Weekday()) && e.InRange(d)
}

// TheoreticalMonthlyCost reconstructs the pre-discount monthly price used
// for sibling ranking: gross daily price times the number of committed
// weekdays.
func (e Enrollment) TheoreticalMonthlyCost() Money {
	gross := GrossFromNet(e.DailyPrice, e.DiscountPercent)
	return gross.Mul(MoneyFromFloat(float64(e.Weekdays.Count())))
}

// Cancellation withdraws service for specific days. One record may cover
// many days.
type Cancellation struct {
	ID         string
	PersonID   PersonID
	PersonKind PersonKind
	Dates      []Date
}

// RequestStatus is the approval state of an extra-day request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ExtraRequest is a one-off request for a specific day, independent of any
// standing enrollment. Only approved requests bill.
type ExtraRequest struct {
	ID         string
	PersonID   PersonID
	PersonKind PersonKind
	Date       Date
	Status     RequestStatus
}

// Invitation is a complimentary, non-billable day. Highest precedence.
type Invitation struct {
	ID         string
	PersonKind PersonKind
	PersonID   PersonID
	Date       Date
}

// Holiday is an institution-wide non-business date.
type Holiday struct {
	ID     string
	Date   Date
	Name   string
	Active bool
}

// =============================================================================
// PRICING CONFIGURATION
// =============================================================================

// PricingConfig is the active configuration record, loaded once per billing
// request and threaded as a value into every computation. Exactly one active
// record applicable to the 1-5 days/week range must exist; its absence is a
// fatal configuration error, never a silent zero.
type PricingConfig struct {
	ID                     string
	Active                 bool
	DaysMin                int
	DaysMax                int
	BasePrice              Money
	StaffPrice             Money
	StaffChildPrice        Money
	SiblingDiscountPct     Percent
	AttendanceDiscountPct  Percent
	AttendanceThresholdPct Percent
}

// Applicable reports whether this record covers the 1-5 days/week range.
func (pc PricingConfig) Applicable() bool {
	return pc.Active && pc.DaysMin <= 1 && pc.DaysMax >= 5
}

// =============================================================================
// DERIVED RESULTS - Recomputed from scratch on every request
// =============================================================================

// DayCategory is the single category a business day resolves to.
type DayCategory string

const (
	CategoryInvited   DayCategory = "invited"
	CategoryCancelled DayCategory = "cancelled"
	CategoryExtra     DayCategory = "extra"
	CategoryEnrolled  DayCategory = "enrollment"
	CategoryNone      DayCategory = "none"
)

// BillableDay is one charged day for one person. Only enrollment and extra
// days are ever billable.
type BillableDay struct {
	Date        Date
	Category    DayCategory
	Price       Money
	Description string
}

// DayCounts is the per-category breakdown for one person's month.
//
// Enrolled counts enrollment days plus enrolled holidays plus
// invited-while-enrolled days (the inscription tally). EnrolledHolidays and
// Invited are informational sub-tallies; Cancelled and Extra are disjoint
// from all of them.
type DayCounts struct {
	Enrolled         int
	Extra            int
	Cancelled        int
	EnrolledHolidays int
	Invited          int
}

// SiblingDiscountResult reports where the person landed in the household
// ranking. The discount itself is already embedded in enrollment day prices
// upstream; this result exists so callers can see which position a child
// holds and whether the percentage applied.
type SiblingDiscountResult struct {
	Applied  bool
	Percent  Percent
	Position int // 1-based rank by theoretical cost; 0 when ranking undefined
}

// AttendanceDiscountResult is the outcome of the attendance-rate policy.
type AttendanceDiscountResult struct {
	Eligible     bool
	Percent      Percent
	RequiredDays int
	AttendedDays int
	BusinessDays int
	Amount       Money // discount value deducted from the subtotal
}

// ExemptionResult is the outcome of the exemption policy for the month.
type ExemptionResult struct {
	Exempt       bool
	Reason       string
	WaivedAmount Money // the post-discount amount that was zeroed
}

// PersonResult is the complete monthly fee computation for one person.
type PersonResult struct {
	PersonID  PersonID
	Kind      PersonKind
	Name      string
	Household HouseholdID

	BillableDays []BillableDay
	Counts       DayCounts

	// Subtotal is the raw sum of billable-day prices (sibling discount
	// already embedded, attendance discount not yet applied).
	Subtotal Money

	// Total is the final payable amount after the attendance discount and,
	// when applicable, the exemption override.
	Total Money

	Sibling    SiblingDiscountResult
	Attendance AttendanceDiscountResult
	Exemption  ExemptionResult
}

// TotalDays is the number of billable days charged to this person.
func (r PersonResult) TotalDays() int { return len(r.BillableDays) }

// HouseholdResult sums all persons of one family.
type HouseholdResult struct {
	HouseholdID HouseholdID
	Name        string
	Persons     []PersonResult
	Total       Money
	TotalDays   int
}

// InstitutionResult is the institution-wide aggregate for one month.
type InstitutionResult struct {
	Month        Month
	BusinessDays []Date
	Households   []HouseholdResult
	Total        Money
	TotalDays    int
}
