package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/billing/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) billing.Date { return billing.NewDate(y, m, d) }

func defaultPricing() billing.PricingConfig {
	return billing.PricingConfig{
		ID:                     "pricing-test",
		Active:                 true,
		DaysMin:                1,
		DaysMax:                5,
		BasePrice:              billing.MustMoney("6.00"),
		StaffPrice:             billing.MustMoney("4.50"),
		StaffChildPrice:        billing.MustMoney("5.00"),
		SiblingDiscountPct:     billing.MustMoney("15"),
		AttendanceDiscountPct:  billing.MustMoney("10"),
		AttendanceThresholdPct: billing.MustMoney("80"),
	}
}

// =============================================================================
// BUSINESS DAY RESOLUTION
// =============================================================================

func TestBusinessDays_December2025_WeekdaysOnly(t *testing.T) {
	// GIVEN: December 2025 (the 1st is a Monday), no holidays
	// WHEN: Resolving business days
	// THEN: 23 Mon-Fri dates in ascending order

	feed := store.NewMemory()
	resolver := billing.CalendarResolver{Feed: feed}

	days, err := resolver.BusinessDays(context.Background(), 2025, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(days) != 23 {
		t.Fatalf("expected 23 business days, got %d", len(days))
	}
	if !days[0].Equal(date(2025, time.December, 1)) {
		t.Errorf("expected first day 2025-12-01, got %s", days[0])
	}
	if !days[22].Equal(date(2025, time.December, 31)) {
		t.Errorf("expected last day 2025-12-31, got %s", days[22])
	}
	for i := 1; i < len(days); i++ {
		if !days[i-1].Before(days[i]) {
			t.Errorf("days not ascending at %d: %s then %s", i, days[i-1], days[i])
		}
		if days[i].IsWeekend() {
			t.Errorf("weekend day in result: %s", days[i])
		}
	}
}

func TestBusinessDays_ActiveHolidayExcluded(t *testing.T) {
	// GIVEN: December 2025 with an active holiday on the 25th
	// WHEN: Resolving business days
	// THEN: The 25th is gone; 22 days remain

	feed := store.NewMemory()
	feed.AddHoliday(billing.Holiday{Date: date(2025, time.December, 25), Name: "Navidad", Active: true})
	resolver := billing.CalendarResolver{Feed: feed}

	days, err := resolver.BusinessDays(context.Background(), 2025, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(days) != 22 {
		t.Fatalf("expected 22 business days, got %d", len(days))
	}
	for _, d := range days {
		if d.Equal(date(2025, time.December, 25)) {
			t.Errorf("holiday 2025-12-25 must not appear")
		}
	}
}

func TestBusinessDays_InactiveHolidayIgnored(t *testing.T) {
	// GIVEN: A holiday record flagged inactive
	// WHEN: Resolving business days
	// THEN: The date still counts as a business day

	feed := store.NewMemory()
	feed.AddHoliday(billing.Holiday{Date: date(2025, time.December, 25), Active: false})
	resolver := billing.CalendarResolver{Feed: feed}

	days, err := resolver.BusinessDays(context.Background(), 2025, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 23 {
		t.Fatalf("expected 23 business days, got %d", len(days))
	}
}

func TestBusinessDays_InvalidMonth(t *testing.T) {
	// GIVEN: month = 13
	// WHEN: Resolving business days
	// THEN: ErrInvalidMonth, no partial result

	resolver := billing.CalendarResolver{Feed: store.NewMemory()}
	days, err := resolver.BusinessDays(context.Background(), 2025, 13)

	if err != billing.ErrInvalidMonth {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if days != nil {
		t.Errorf("expected no days on error, got %d", len(days))
	}
}

func TestBusinessDays_FeedFailurePropagates(t *testing.T) {
	// GIVEN: The holiday feed fails
	// WHEN: Resolving business days
	// THEN: The error propagates unrecovered

	feed := store.NewMemory()
	feed.FailWith["holidays"] = context.DeadlineExceeded
	resolver := billing.CalendarResolver{Feed: feed}

	_, err := resolver.BusinessDays(context.Background(), 2025, 12)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
