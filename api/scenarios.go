/*
scenarios.go - Demo datasets

PURPOSE:
  Named seed datasets for demos and manual testing. Loading a scenario wipes
  the roster tables and seeds a small, self-consistent dataset that
  exercises a specific billing behavior.

SCENARIOS:
  standard-family  One child, Mon-Fri enrollment, a cancellation and an
                   extra day in December 2025.
  three-siblings   Household with three enrolled children; the third-ranked
                   child carries the sibling discount in its day price.
  staff-family     Guardian is staff with their own entitlement.
  exemption        Child exempt for the full month (social services).
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

// ScenarioList returns the available demo datasets.
func ScenarioList() []ScenarioDTO {
	return []ScenarioDTO{
		{
			ID:          "standard-family",
			Name:        "Standard family",
			Description: "One child enrolled Mon-Fri at 6.00/day with one cancellation and one extra day in 2025-12.",
		},
		{
			ID:          "three-siblings",
			Name:        "Three siblings",
			Description: "Household with three enrolled children; the third-ranked child gets the sibling discount.",
		},
		{
			ID:          "staff-family",
			Name:        "Staff guardian",
			Description: "Guardian is staff with their own cafeteria entitlement plus one enrolled child.",
		},
		{
			ID:          "exemption",
			Name:        "Exempt child",
			Description: "Child with an open-ended fee exemption; amounts are computed but waived.",
		},
	}
}

// LoadScenarioData wipes the store and seeds the selected scenario.
func LoadScenarioData(ctx context.Context, store *sqlite.Store, scenarioID string) error {
	if err := store.ResetAll(ctx); err != nil {
		return err
	}
	if err := seedPricing(ctx, store); err != nil {
		return err
	}

	switch scenarioID {
	case "standard-family":
		return seedStandardFamily(ctx, store)
	case "three-siblings":
		return seedThreeSiblings(ctx, store)
	case "staff-family":
		return seedStaffFamily(ctx, store)
	case "exemption":
		return seedExemption(ctx, store)
	default:
		return fmt.Errorf("unknown scenario: %s", scenarioID)
	}
}

func seedPricing(ctx context.Context, store *sqlite.Store) error {
	return store.SavePricingConfig(ctx, billing.PricingConfig{
		ID:                     "pricing-default",
		Active:                 true,
		DaysMin:                1,
		DaysMax:                5,
		BasePrice:              billing.MustMoney("6.00"),
		StaffPrice:             billing.MustMoney("4.50"),
		StaffChildPrice:        billing.MustMoney("5.00"),
		SiblingDiscountPct:     billing.MustMoney("15"),
		AttendanceDiscountPct:  billing.MustMoney("10"),
		AttendanceThresholdPct: billing.MustMoney("80"),
	})
}

func seedStandardFamily(ctx context.Context, store *sqlite.Store) error {
	if err := store.SaveHousehold(ctx, billing.Household{
		ID:   "fam-garcia",
		Name: "Familia García",
		Children: []billing.Child{
			{ID: "child-lucia", Name: "Lucía García", Household: "fam-garcia"},
		},
	}); err != nil {
		return err
	}

	if err := store.SaveEnrollment(ctx, billing.Enrollment{
		PersonID:   "child-lucia",
		Weekdays:   billing.WorkweekSet(),
		DailyPrice: billing.MustMoney("6.00"),
		Active:     true,
		Start:      billing.NewDate(2025, time.September, 1),
	}); err != nil {
		return err
	}

	if err := store.SaveCancellation(ctx, billing.Cancellation{
		PersonID: "child-lucia",
		Dates:    []billing.Date{billing.NewDate(2025, time.December, 9)},
	}); err != nil {
		return err
	}

	return store.SaveExtraRequest(ctx, billing.ExtraRequest{
		PersonID: "child-lucia",
		Date:     billing.NewDate(2025, time.December, 10),
		Status:   billing.RequestApproved,
	})
}

func seedThreeSiblings(ctx context.Context, store *sqlite.Store) error {
	if err := store.SaveHousehold(ctx, billing.Household{
		ID:   "fam-moreno",
		Name: "Familia Moreno",
		Children: []billing.Child{
			{ID: "child-mateo", Name: "Mateo Moreno", Household: "fam-moreno"},
			{ID: "child-sofia", Name: "Sofía Moreno", Household: "fam-moreno"},
			{ID: "child-leo", Name: "Leo Moreno", Household: "fam-moreno"},
		},
	}); err != nil {
		return err
	}

	start := billing.NewDate(2025, time.September, 1)
	enrollments := []billing.Enrollment{
		{
			PersonID:   "child-mateo",
			Weekdays:   billing.WorkweekSet(),
			DailyPrice: billing.MustMoney("6.00"),
			Active:     true,
			Start:      start,
			CreatedAt:  time.Date(2025, time.August, 20, 10, 0, 0, 0, time.UTC),
		},
		{
			PersonID:   "child-sofia",
			Weekdays:   billing.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday),
			DailyPrice: billing.MustMoney("6.00"),
			Active:     true,
			Start:      start,
			CreatedAt:  time.Date(2025, time.August, 20, 11, 0, 0, 0, time.UTC),
		},
		{
			// Third-ranked: price stored net of the 15% sibling discount.
			PersonID:        "child-leo",
			Weekdays:        billing.NewWeekdaySet(time.Monday, time.Wednesday, time.Friday),
			DailyPrice:      billing.MustMoney("5.10"),
			DiscountPercent: billing.MustMoney("15"),
			Active:          true,
			Start:           start,
			CreatedAt:       time.Date(2025, time.August, 20, 12, 0, 0, 0, time.UTC),
		},
	}
	for _, e := range enrollments {
		if err := store.SaveEnrollment(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func seedStaffFamily(ctx context.Context, store *sqlite.Store) error {
	staff := billing.Staff{ID: "staff-ana", Name: "Ana Ruiz", Household: "fam-ruiz"}
	if err := store.SaveHousehold(ctx, billing.Household{
		ID:   "fam-ruiz",
		Name: "Familia Ruiz",
		Children: []billing.Child{
			{ID: "child-carlos", Name: "Carlos Ruiz", Household: "fam-ruiz"},
		},
		Staff: &staff,
	}); err != nil {
		return err
	}

	if err := store.SaveEnrollment(ctx, billing.Enrollment{
		PersonID:   "child-carlos",
		Weekdays:   billing.WorkweekSet(),
		DailyPrice: billing.MustMoney("5.00"), // staff-child rate
		Active:     true,
		Start:      billing.NewDate(2025, time.September, 1),
	}); err != nil {
		return err
	}

	return store.SaveEnrollment(ctx, billing.Enrollment{
		PersonID:   "staff-ana",
		PersonKind: billing.KindStaff,
		Weekdays:   billing.WorkweekSet(),
		DailyPrice: billing.MustMoney("4.50"), // staff rate
		Active:     true,
		Start:      billing.NewDate(2025, time.September, 1),
	})
}

func seedExemption(ctx context.Context, store *sqlite.Store) error {
	if err := store.SaveHousehold(ctx, billing.Household{
		ID:   "fam-haddad",
		Name: "Familia Haddad",
		Children: []billing.Child{
			{
				ID:        "child-yasmin",
				Name:      "Yasmin Haddad",
				Household: "fam-haddad",
				Exempt: billing.Exemption{
					Exempt: true,
					Reason: "servicios sociales",
				},
			},
		},
	}); err != nil {
		return err
	}

	return store.SaveEnrollment(ctx, billing.Enrollment{
		PersonID:   "child-yasmin",
		Weekdays:   billing.WorkweekSet(),
		DailyPrice: billing.MustMoney("6.00"),
		Active:     true,
		Start:      billing.NewDate(2025, time.September, 1),
	})
}
