/*
aggregate.go - Household and institution aggregation

PURPOSE:
  Drives the full computation for a billing request: snapshot the feeds for
  the month, accumulate and finalize every person, sum to household totals,
  then to the institution-wide total.

FAILURE POLICY:
  No partial-failure tolerance. If any person's computation fails, the whole
  household/institution computation fails: silently omitting a person would
  understate billing. Data-quality problems inside individual entitlement
  records never reach this layer (they degrade to no-match further down);
  what fails here is fetch and configuration, and that must surface.

CONCURRENCY:
  Per-household computations are independent (no shared mutable state) and
  run in parallel over the immutable snapshot. Aggregation is the
  synchronization barrier: it reduces only completed results, in roster
  order, so output is deterministic.
*/
package billing

import (
	"context"
	"sync"
)

// Engine computes monthly fees over a Feed.
type Engine struct {
	Feed Feed
}

func NewEngine(feed Feed) *Engine { return &Engine{Feed: feed} }

// ComputeMonth computes the institution-wide result for one month.
func (en *Engine) ComputeMonth(ctx context.Context, m Month) (*InstitutionResult, error) {
	in, err := LoadMonthInputs(ctx, en.Feed, m)
	if err != nil {
		return nil, err
	}

	households, err := en.Feed.Households(ctx)
	if err != nil {
		return nil, &FeedError{Collection: "households", Err: err}
	}

	results := make([]HouseholdResult, len(households))
	errs := make([]error, len(households))

	var wg sync.WaitGroup
	for i := range households {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = computeHousehold(households[i], in)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	inst := &InstitutionResult{
		Month:        m,
		BusinessDays: in.BusinessDays,
		Households:   results,
		Total:        zeroMoney,
	}
	for _, h := range results {
		inst.Total = inst.Total.Add(h.Total)
		inst.TotalDays += h.TotalDays
	}
	return inst, nil
}

// ComputeHousehold computes one household's result for the month.
func (en *Engine) ComputeHousehold(ctx context.Context, m Month, id HouseholdID) (*HouseholdResult, error) {
	in, err := LoadMonthInputs(ctx, en.Feed, m)
	if err != nil {
		return nil, err
	}

	household, err := en.Feed.HouseholdByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if household == nil {
		return nil, ErrHouseholdNotFound
	}

	result, err := computeHousehold(*household, in)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// computeHousehold accumulates and finalizes every person of one family:
// all children, plus the guardian's own staff entitlement when present.
// Staff are eligible for attendance discount and exemption but never for
// the sibling discount.
func computeHousehold(h Household, in *MonthInputs) (HouseholdResult, error) {
	result := HouseholdResult{
		HouseholdID: h.ID,
		Name:        h.Name,
		Total:       zeroMoney,
	}

	ranking := RankSiblings(h.Children, in)

	for _, child := range h.Children {
		pr, err := computePerson(child, ranking[child.ID], in)
		if err != nil {
			return HouseholdResult{}, err
		}
		result.Persons = append(result.Persons, pr)
	}

	if h.Staff != nil {
		pr, err := computePerson(*h.Staff, SiblingDiscountResult{}, in)
		if err != nil {
			return HouseholdResult{}, err
		}
		result.Persons = append(result.Persons, pr)
	}

	for _, pr := range result.Persons {
		result.Total = result.Total.Add(pr.Total)
		result.TotalDays += pr.TotalDays()
	}
	return result, nil
}

func computePerson(p Person, sibling SiblingDiscountResult, in *MonthInputs) (result PersonResult, err error) {
	// A panic inside the walk (a latent data shape nobody anticipated) must
	// fail the whole computation attributed to the person, not crash the
	// process or vanish into a zero total.
	defer func() {
		if r := recover(); r != nil {
			err = &ComputeError{PersonID: p.PersonID(), Err: panicError(r)}
		}
	}()

	acc := Accumulate(p, in)
	return Finalize(acc, sibling, in), nil
}

type recoveredPanic struct{ value any }

func (e recoveredPanic) Error() string { return "panic during fee computation" }

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return recoveredPanic{value: v}
}
