/*
entitlement.go - Per-day classification with fixed precedence

PURPOSE:
  Decides which single category a business day falls into for one person.
  The precedence order is a core correctness contract because categories
  are mutually exclusive per day:

    1. Invitation   - complimentary, never billed. The enrollment match is
                      still checked in parallel, only to feed the enrolled
                      counter: an invited day on an enrolled weekday counts
                      toward both tallies but is never charged.
    2. Cancellation - withdrawal, never billed.
    3. Extra        - approved one-off request. Priced from whichever
                      enrollment overlaps the date, or zero when the person
                      has no overlapping enrollment at all; there is no
                      fallback to a generic default price.
    4. Enrollment   - standing weekday commitment at its stored day price.
    5. None         - no charge, no counter.

OVERLAPPING ENROLLMENTS:
  The roster does not programmatically prevent overlapping weekday+range
  enrollments. When a violation slips through, the matcher stays
  deterministic: enrollments arrive sorted by ascending start date (then
  creation time, see feeds.go) and the first covering record wins.

SEE ALSO:
  - accumulate.go: walks the month through Classify
*/
package billing

// DayDecision is the outcome of classifying one business day.
type DayDecision struct {
	Category DayCategory
	Price    Money

	// EnrolledMatch reports whether an enrollment also covered this day.
	// Only meaningful for invited days, where it feeds the enrolled counter
	// without creating a billable day.
	EnrolledMatch bool

	Description string
}

// Classify resolves the category for one date given a person's entitlement
// view. Exactly one category is selected, in the documented precedence
// order.
func Classify(d Date, e Entitlements) DayDecision {
	key := d.String()

	if e.Invited[key] {
		return DayDecision{
			Category:      CategoryInvited,
			Price:         zeroMoney,
			EnrolledMatch: matchEnrollment(d, e.Enrollments) != nil,
			Description:   "invitación",
		}
	}

	if e.Cancelled[key] {
		return DayDecision{Category: CategoryCancelled, Price: zeroMoney, Description: "baja"}
	}

	if e.Extras[key] {
		// Price from whichever enrollment overlaps this date. A person with
		// no enrollment at all eats for free here rather than inheriting a
		// generic default price; that mirrors the approval workflow, which
		// prices extras off the standing commitment.
		price := zeroMoney
		if enr := overlappingEnrollment(d, e.Enrollments); enr != nil {
			price = enr.DailyPrice
		}
		return DayDecision{Category: CategoryExtra, Price: price, Description: "día puntual"}
	}

	if enr := matchEnrollment(d, e.Enrollments); enr != nil {
		return DayDecision{Category: CategoryEnrolled, Price: enr.DailyPrice, Description: "inscripción"}
	}

	return DayDecision{Category: CategoryNone, Price: zeroMoney}
}

// matchEnrollment returns the first enrollment covering the date (weekday
// committed and date in range), or nil. Enrollments must be pre-sorted by
// ascending start date.
func matchEnrollment(d Date, enrollments []Enrollment) *Enrollment {
	for i := range enrollments {
		if enrollments[i].Covers(d) {
			return &enrollments[i]
		}
	}
	return nil
}

// overlappingEnrollment returns the first enrollment whose validity range
// contains the date, regardless of weekday. Used to price extra days, which
// by definition fall outside the committed weekdays.
func overlappingEnrollment(d Date, enrollments []Enrollment) *Enrollment {
	for i := range enrollments {
		if enrollments[i].Weekdays.IsEmpty() {
			continue // malformed record contributes nothing
		}
		if enrollments[i].InRange(d) {
			return &enrollments[i]
		}
	}
	return nil
}
