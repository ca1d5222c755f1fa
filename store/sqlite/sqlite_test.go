package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comedor/billing-engine/billing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "billing.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPricing() billing.PricingConfig {
	return billing.PricingConfig{
		ID:                     "pricing-1",
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

func TestHouseholdRoundtrip(t *testing.T) {
	// GIVEN: A household with two children and a staff guardian
	// WHEN: Saving and reading back
	// THEN: Members come back attached, exemption window intact

	s := openTestStore(t)
	ctx := context.Background()

	from := billing.NewDate(2025, time.September, 1)
	h := billing.Household{
		ID:   "fam-haddad",
		Name: "Familia Haddad",
		Children: []billing.Child{
			{ID: "yasmin", Name: "Yasmin", Household: "fam-haddad",
				Exempt: billing.Exemption{Exempt: true, Reason: "servicios sociales", From: &from}},
			{ID: "omar", Name: "Omar", Household: "fam-haddad"},
		},
		Staff: &billing.Staff{ID: "staff-nora", Name: "Nora", Household: "fam-haddad"},
	}
	require.NoError(t, s.SaveHousehold(ctx, h))

	got, err := s.HouseholdByID(ctx, "fam-haddad")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Familia Haddad", got.Name)
	require.Len(t, got.Children, 2)
	require.NotNil(t, got.Staff)
	assert.Equal(t, billing.PersonID("staff-nora"), got.Staff.ID)

	var yasmin *billing.Child
	for i := range got.Children {
		if got.Children[i].ID == "yasmin" {
			yasmin = &got.Children[i]
		}
	}
	require.NotNil(t, yasmin)
	assert.True(t, yasmin.Exempt.Exempt)
	assert.Equal(t, "servicios sociales", yasmin.Exempt.Reason)
	require.NotNil(t, yasmin.Exempt.From)
	assert.True(t, yasmin.Exempt.From.Equal(from))
	assert.Nil(t, yasmin.Exempt.To)
}

func TestHouseholdByID_Missing(t *testing.T) {
	s := openTestStore(t)

	got, err := s.HouseholdByID(context.Background(), "fam-nadie")

	assert.ErrorIs(t, err, billing.ErrHouseholdNotFound)
	assert.Nil(t, got)
}

func TestEnrollmentsOverlapping_RangeFilter(t *testing.T) {
	// GIVEN: Enrollments before, inside, spanning and after December 2025
	// WHEN: Fetching the December overlap
	// THEN: Only records whose range touches the month come back, sorted
	//       by start date

	s := openTestStore(t)
	ctx := context.Background()

	save := func(id string, start billing.Date, end *billing.Date) {
		require.NoError(t, s.SaveEnrollment(ctx, billing.Enrollment{
			ID:         id,
			PersonID:   "child-1",
			PersonKind: billing.KindChild,
			Weekdays:   billing.WorkweekSet(),
			DailyPrice: billing.MustMoney("6.00"),
			Active:     true,
			Start:      start,
			End:        end,
			CreatedAt:  time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		}))
	}
	endNov := billing.NewDate(2025, time.November, 30)
	endDec := billing.NewDate(2025, time.December, 15)
	save("ended-before", billing.NewDate(2025, time.September, 1), &endNov)
	save("ends-mid-month", billing.NewDate(2025, time.October, 1), &endDec)
	save("open-ended", billing.NewDate(2025, time.November, 1), nil)
	save("starts-after", billing.NewDate(2026, time.January, 7), nil)

	got, err := s.EnrollmentsOverlapping(ctx, billing.NewMonth(2025, time.December))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "ends-mid-month", got[0].ID)
	assert.Equal(t, "open-ended", got[1].ID)
	assert.True(t, got[0].DailyPrice.Equal(billing.MustMoney("6.00")))
	assert.True(t, got[0].Weekdays.Has(time.Monday))
	assert.False(t, got[0].Weekdays.Has(time.Saturday))
}

func TestCancellationsIn_MonthFilter(t *testing.T) {
	// GIVEN: One record spanning November and December days, one entirely
	//        in October
	// WHEN: Fetching December
	// THEN: Only the record touching December comes back, full date set
	//       intact (the month snapshot trims out-of-month days downstream)

	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCancellation(ctx, billing.Cancellation{
		ID:       "can-1",
		PersonID: "child-1",
		Dates: []billing.Date{
			billing.NewDate(2025, time.November, 28),
			billing.NewDate(2025, time.December, 9),
			billing.NewDate(2025, time.December, 10),
		},
	}))
	require.NoError(t, s.SaveCancellation(ctx, billing.Cancellation{
		ID:       "can-2",
		PersonID: "child-1",
		Dates:    []billing.Date{billing.NewDate(2025, time.October, 3)},
	}))

	got, err := s.CancellationsIn(ctx, billing.NewMonth(2025, time.December))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "can-1", got[0].ID)
	assert.Len(t, got[0].Dates, 3)
	assert.Equal(t, billing.KindChild, got[0].PersonKind)
}

func TestExtraRequestsIn_StatusPreserved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveExtraRequest(ctx, billing.ExtraRequest{
		ID: "ext-1", PersonID: "child-1",
		Date: billing.NewDate(2025, time.December, 10), Status: billing.RequestApproved,
	}))
	require.NoError(t, s.SaveExtraRequest(ctx, billing.ExtraRequest{
		ID: "ext-2", PersonID: "child-1",
		Date: billing.NewDate(2025, time.November, 10), Status: billing.RequestApproved,
	}))

	got, err := s.ExtraRequestsIn(ctx, billing.NewMonth(2025, time.December))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "ext-1", got[0].ID)
	assert.Equal(t, billing.RequestApproved, got[0].Status)
}

func TestActivePricing_NewcomerWins(t *testing.T) {
	// GIVEN: Two pricing configs saved active in sequence
	// WHEN: Fetching the active one
	// THEN: The second save deactivated the first

	s := openTestStore(t)
	ctx := context.Background()

	old := testPricing()
	old.ID = "pricing-old"
	require.NoError(t, s.SavePricingConfig(ctx, old))

	current := testPricing()
	current.ID = "pricing-new"
	current.BasePrice = billing.MustMoney("6.50")
	require.NoError(t, s.SavePricingConfig(ctx, current))

	got, err := s.ActivePricing(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pricing-new", got.ID)
	assert.True(t, got.BasePrice.Equal(billing.MustMoney("6.50")))
}

func TestActivePricing_NoneConfigured(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ActivePricing(context.Background())

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreDrivesEngine(t *testing.T) {
	// GIVEN: A seeded sqlite roster
	// WHEN: Running the billing engine over the store as its feed
	// THEN: Same numbers as the in-memory path

	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePricingConfig(ctx, testPricing()))
	require.NoError(t, s.SaveHousehold(ctx, billing.Household{
		ID:   "fam-garcia",
		Name: "Familia García",
		Children: []billing.Child{
			{ID: "child-lucia", Name: "Lucía", Household: "fam-garcia"},
		},
	}))
	require.NoError(t, s.SaveEnrollment(ctx, billing.Enrollment{
		ID:         "enr-lucia",
		PersonID:   "child-lucia",
		PersonKind: billing.KindChild,
		Weekdays:   billing.WorkweekSet(),
		DailyPrice: billing.MustMoney("6.00"),
		Active:     true,
		Start:      billing.NewDate(2025, time.September, 1),
	}))
	require.NoError(t, s.SaveCancellation(ctx, billing.Cancellation{
		ID: "can-1", PersonID: "child-lucia",
		Dates: []billing.Date{billing.NewDate(2025, time.December, 9)},
	}))
	require.NoError(t, s.SaveExtraRequest(ctx, billing.ExtraRequest{
		ID: "ext-1", PersonID: "child-lucia",
		Date: billing.NewDate(2025, time.December, 10), Status: billing.RequestApproved,
	}))

	result, err := billing.NewEngine(s).ComputeMonth(ctx, billing.NewMonth(2025, time.December))
	require.NoError(t, err)

	require.Len(t, result.Households, 1)
	lucia := result.Households[0].Persons[0]
	assert.Equal(t, 21, lucia.Counts.Enrolled)
	assert.Equal(t, 1, lucia.Counts.Cancelled)
	assert.Equal(t, 1, lucia.Counts.Extra)
	assert.True(t, result.Total.Equal(billing.MustMoney("118.80")), "total %s", result.Total)
}

func TestBillingRuns(t *testing.T) {
	// GIVEN: A completed run for 2025-11 and a failed one for 2025-12
	// WHEN: Listing and probing completion
	// THEN: Both listed, only November reads as complete

	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, 12, 1, 4, 0, 0, 0, time.UTC)
	done := started.Add(2 * time.Second)
	require.NoError(t, s.SaveBillingRun(ctx, BillingRun{
		ID: "run-nov", Year: 2025, Month: 11, Status: "completed",
		Total: "118.80", Households: 1, Persons: 1,
		StartedAt: started, CompletedAt: &done,
	}))
	require.NoError(t, s.SaveBillingRun(ctx, BillingRun{
		ID: "run-dec", Year: 2025, Month: 12, Status: "failed",
		Error: "no active pricing configuration", StartedAt: started.Add(time.Hour),
	}))

	runs, err := s.ListBillingRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-dec", runs[0].ID, "newest first")
	assert.Equal(t, "run-nov", runs[1].ID)
	assert.Equal(t, "118.80", runs[1].Total)
	require.NotNil(t, runs[1].CompletedAt)

	novDone, err := s.IsRunComplete(ctx, 2025, 11)
	require.NoError(t, err)
	assert.True(t, novDone)

	decDone, err := s.IsRunComplete(ctx, 2025, 12)
	require.NoError(t, err)
	assert.False(t, decDone)
}

func TestResetAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePricingConfig(ctx, testPricing()))
	require.NoError(t, s.SaveHoliday(ctx, billing.Holiday{
		ID: "hol-1", Date: billing.NewDate(2025, time.December, 25), Name: "Navidad", Active: true,
	}))

	require.NoError(t, s.ResetAll(ctx))

	pricing, err := s.ActivePricing(ctx)
	require.NoError(t, err)
	assert.Nil(t, pricing)

	holidays, err := s.HolidaysIn(ctx, billing.NewMonth(2025, time.December))
	require.NoError(t, err)
	assert.Empty(t, holidays)
}
