/*
accumulate.go - Per-person month walk

PURPOSE:
  Walks every business day of the month through the entitlement matcher for
  one person, producing the list of billable days (with per-day price) plus
  the per-category counters, and runs the enrolled-holiday reconciliation.

ENROLLED HOLIDAYS:
  Holiday dates are pre-filtered out of the business-day iteration entirely,
  but a holiday that falls on a day the person would otherwise have been
  enrolled still counts informationally: it increments both the holiday
  counter and the enrolled (inscription) counter, without ever creating a
  billable day. This reconciliation runs once per person per month over the
  holiday set intersected with enrollment coverage, independent of the
  business-day walk.

IDEMPOTENCE:
  Accumulate is a pure function of (person, snapshot). Calling it twice with
  identical inputs yields identical output; nothing is cached or persisted.
*/
package billing

// PersonAccumulation is the raw outcome of the month walk, before the
// discount and exemption policies run.
type PersonAccumulation struct {
	Person       Person
	BillableDays []BillableDay
	Counts       DayCounts
	Subtotal     Money
}

// Accumulate classifies every business day of the snapshot month for one
// person. A person with zero enrollments is fine: days resolve to none
// unless an extra, cancellation or invitation applies.
func Accumulate(p Person, in *MonthInputs) PersonAccumulation {
	e := in.EntitlementsFor(p)

	acc := PersonAccumulation{Person: p, Subtotal: zeroMoney}

	for _, day := range in.BusinessDays {
		decision := Classify(day, e)

		switch decision.Category {
		case CategoryEnrolled, CategoryExtra:
			acc.BillableDays = append(acc.BillableDays, BillableDay{
				Date:        day,
				Category:    decision.Category,
				Price:       decision.Price,
				Description: decision.Description,
			})
			acc.Subtotal = acc.Subtotal.Add(decision.Price)
			if decision.Category == CategoryEnrolled {
				acc.Counts.Enrolled++
			} else {
				acc.Counts.Extra++
			}

		case CategoryCancelled:
			acc.Counts.Cancelled++

		case CategoryInvited:
			acc.Counts.Invited++
			if decision.EnrolledMatch {
				// Invited on an enrolled weekday: counts toward the
				// inscription tally too, but is never billed.
				acc.Counts.Enrolled++
			}

		case CategoryNone:
			// Not counted in any breakdown.
		}
	}

	reconcileEnrolledHolidays(&acc, e, in.Holidays)

	return acc
}

// reconcileEnrolledHolidays tallies holidays that coincide with enrollment
// coverage. These days contribute to the inscription count (the family
// committed them) and the holiday count, and are never billable.
func reconcileEnrolledHolidays(acc *PersonAccumulation, e Entitlements, holidays []Date) {
	for _, h := range holidays {
		if matchEnrollment(h, e.Enrollments) != nil {
			acc.Counts.EnrolledHolidays++
			acc.Counts.Enrolled++
		}
	}
}
