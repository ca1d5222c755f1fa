/*
discount.go - Sibling ranking, attendance cliff, exemption override

PURPOSE:
  Turns a person's raw accumulation into the final payable amount. The
  compounding order is fixed, not configurable:

    1. Sibling discount  - already embedded in enrollment day prices
                           upstream; recomputed here only to report which
                           position a child holds and whether the percentage
                           applies. Never alters stored prices.
    2. Attendance        - a hard cliff against the month's business days,
                           applied multiplicatively to the subtotal.
    3. Exemption         - zeroes the result after both discounts, keeping
                           the pre-exemption amount visible for audit.

SIBLING RANKING:
  Children of a household are ranked by theoretical full-price monthly cost
  (stored price grossed back up by the embedded discount, times the count of
  committed weekdays), descending, ties broken by earliest enrollment
  creation time. The ranking is only defined when the household has three or
  more concurrently active enrollments; the two highest-cost children pay
  full price, positions three and beyond carry the configured percentage.
  Staff are never ranked.

ATTENDANCE:
  Required days = ceil(businessDays x thresholdPct / 100). Eligible iff the
  person's billable days meet the threshold and are non-zero. Missing the
  threshold by one day yields zero discount - a cliff, not a sliding scale.
  The denominator is the month's total business days, NOT the person's
  expected enrolled days; see attendance tests for why the expected-days
  variant was rejected.

EXEMPTION:
  The exemption window is checked against the FIRST business day of the
  month only. A window that starts on the 15th does not exempt a month whose
  first business day is the 1st, even though mid-month days fall inside it.
  Debatable, but it is the documented policy; changing it is a product
  decision, not an engineering one.
*/
package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SIBLING RANKING
// =============================================================================

// siblingRankEntry is one child's position in the household ranking.
type siblingRankEntry struct {
	PersonID  PersonID
	Cost      Money
	CreatedAt int64 // unix nanos of the earliest active enrollment
}

// RankSiblings computes the household's sibling-discount positions.
// The returned map is empty when the ranking is undefined (fewer than three
// children with concurrently active enrollments).
func RankSiblings(children []Child, in *MonthInputs) map[PersonID]SiblingDiscountResult {
	results := make(map[PersonID]SiblingDiscountResult, len(children))

	var entries []siblingRankEntry
	for _, c := range children {
		active := in.ActiveEnrollmentsFor(c.ID)
		if len(active) == 0 {
			continue
		}
		// Deterministic pick among a child's own active enrollments: the
		// slice arrives sorted by start date, so active[0] is the standing
		// commitment in force first.
		first := active[0]
		cost := first.TheoreticalMonthlyCost()
		created := first.CreatedAt.UnixNano()
		for _, e := range active[1:] {
			if e.CreatedAt.UnixNano() < created {
				created = e.CreatedAt.UnixNano()
			}
		}
		entries = append(entries, siblingRankEntry{PersonID: c.ID, Cost: cost, CreatedAt: created})
	}

	if len(entries) < 3 {
		return results
	}

	// Highest theoretical cost first; ties broken by earliest enrollment
	// creation so the ranking never depends on roster order.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Cost.Equal(entries[j].Cost) {
			return entries[i].Cost.GreaterThan(entries[j].Cost)
		}
		return entries[i].CreatedAt < entries[j].CreatedAt
	})

	for i, entry := range entries {
		position := i + 1
		r := SiblingDiscountResult{Position: position}
		if position >= 3 {
			r.Applied = true
			r.Percent = in.Pricing.SiblingDiscountPct
		}
		results[entry.PersonID] = r
	}
	return results
}

// =============================================================================
// ATTENDANCE DISCOUNT
// =============================================================================

// AttendanceDiscount evaluates the attendance-rate policy for one person.
func AttendanceDiscount(billableDays, businessDays int, cfg PricingConfig) AttendanceDiscountResult {
	required := requiredAttendanceDays(businessDays, cfg.AttendanceThresholdPct)
	r := AttendanceDiscountResult{
		RequiredDays: required,
		AttendedDays: billableDays,
		BusinessDays: businessDays,
		Amount:       zeroMoney,
	}
	if billableDays > 0 && billableDays >= required {
		r.Eligible = true
		r.Percent = cfg.AttendanceDiscountPct
	}
	return r
}

// requiredAttendanceDays = ceil(businessDays x thresholdPct / 100).
func requiredAttendanceDays(businessDays int, thresholdPct Percent) int {
	if businessDays <= 0 {
		return 0
	}
	required := decimal.NewFromInt(int64(businessDays)).Mul(thresholdPct).Div(hundred).Ceil()
	return int(required.IntPart())
}

// =============================================================================
// EXEMPTION
// =============================================================================

// ExemptionFor checks the person's exemption window against the first
// business day of the month. Single-day check by policy.
func ExemptionFor(p Person, firstBusinessDay Date) ExemptionResult {
	ex := p.ExemptionStatus()
	if firstBusinessDay.IsZero() || !ex.CoversDay(firstBusinessDay) {
		return ExemptionResult{WaivedAmount: zeroMoney}
	}
	return ExemptionResult{Exempt: true, Reason: ex.Reason, WaivedAmount: zeroMoney}
}

// =============================================================================
// FINALIZATION - fixed compounding order
// =============================================================================

// Finalize applies attendance and exemption to a raw accumulation and
// attaches the person's sibling position. sibling may be the zero value for
// staff and for households where the ranking is undefined.
func Finalize(acc PersonAccumulation, sibling SiblingDiscountResult, in *MonthInputs) PersonResult {
	result := PersonResult{
		PersonID:     acc.Person.PersonID(),
		Kind:         acc.Person.Kind(),
		Name:         acc.Person.DisplayName(),
		BillableDays: acc.BillableDays,
		Counts:       acc.Counts,
		Subtotal:     acc.Subtotal,
		Sibling:      sibling,
	}
	if c, ok := acc.Person.(Child); ok {
		result.Household = c.Household
	}
	if s, ok := acc.Person.(Staff); ok {
		result.Household = s.Household
		result.Sibling = SiblingDiscountResult{} // staff are never ranked
	}

	// Attendance discount on the sibling-discounted subtotal (the sibling
	// percentage is already inside the day prices).
	result.Attendance = AttendanceDiscount(len(acc.BillableDays), len(in.BusinessDays), in.Pricing)
	total := acc.Subtotal
	if result.Attendance.Eligible {
		result.Attendance.Amount = PercentOf(total, result.Attendance.Percent)
		total = total.Sub(result.Attendance.Amount)
	}

	// Exemption zeroes the result after both discounts; the pre-exemption
	// amount stays visible through WaivedAmount and Subtotal.
	var first Date
	if len(in.BusinessDays) > 0 {
		first = in.BusinessDays[0]
	}
	result.Exemption = ExemptionFor(acc.Person, first)
	if result.Exemption.Exempt {
		result.Exemption.WaivedAmount = total
		total = zeroMoney
	}

	result.Total = total
	return result
}
