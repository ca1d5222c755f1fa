/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal result
  model from the external contract.

LEGACY KEYS:
  The per-person day-count keys (diasInscripcion, diasPuntuales, diasBaja,
  diasFestivos, diasInvitacion, totalImporte) are the field names the
  spreadsheet exporter and the admin UI already consume. They are kept
  verbatim on the wire even though the engine uses English names internally.

SEE ALSO:
  - handlers.go: produces these types
*/
package api

import (
	"time"

	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// BillableDayDTO is one charged day.
type BillableDayDTO struct {
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}

// PersonResultDTO is the monthly fee computation for one person.
type PersonResultDTO struct {
	PersonID  string `json:"person_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Household string `json:"household_id,omitempty"`

	BillableDays []BillableDayDTO `json:"billable_days"`

	DiasInscripcion int `json:"diasInscripcion"`
	DiasPuntuales   int `json:"diasPuntuales"`
	DiasBaja        int `json:"diasBaja"`
	DiasFestivos    int `json:"diasFestivos"`
	DiasInvitacion  int `json:"diasInvitacion"`
	TotalDias       int `json:"totalDias"`

	Subtotal     float64 `json:"subtotal"`
	TotalImporte float64 `json:"totalImporte"`

	Sibling    SiblingDTO    `json:"sibling_discount"`
	Attendance AttendanceDTO `json:"attendance_discount"`
	Exemption  ExemptionDTO  `json:"exemption"`
}

// SiblingDTO reports the household ranking outcome.
type SiblingDTO struct {
	Applied  bool    `json:"applied"`
	Percent  float64 `json:"percent,omitempty"`
	Position int     `json:"position,omitempty"`
}

// AttendanceDTO reports the attendance-rate policy outcome.
type AttendanceDTO struct {
	Eligible     bool    `json:"eligible"`
	Percent      float64 `json:"percent,omitempty"`
	RequiredDays int     `json:"required_days"`
	AttendedDays int     `json:"attended_days"`
	BusinessDays int     `json:"business_days"`
	Amount       float64 `json:"amount"`
}

// ExemptionDTO reports the exemption outcome; the waived amount keeps the
// pre-exemption total visible for audit.
type ExemptionDTO struct {
	Exempt       bool    `json:"exempt"`
	Reason       string  `json:"reason,omitempty"`
	WaivedAmount float64 `json:"waived_amount,omitempty"`
}

// HouseholdResultDTO sums one family.
type HouseholdResultDTO struct {
	HouseholdID  string            `json:"household_id"`
	Name         string            `json:"name"`
	Persons      []PersonResultDTO `json:"persons"`
	TotalImporte float64           `json:"totalImporte"`
	TotalDias    int               `json:"totalDias"`
}

// InstitutionResultDTO is the institution-wide aggregate.
type InstitutionResultDTO struct {
	Month        string               `json:"month"`
	BusinessDays []string             `json:"business_days"`
	Households   []HouseholdResultDTO `json:"households"`
	TotalImporte float64              `json:"totalImporte"`
	TotalDias    int                  `json:"totalDias"`
}

// CalendarDTO is the resolved business-day calendar for a month.
type CalendarDTO struct {
	Month        string   `json:"month"`
	BusinessDays []string `json:"business_days"`
	Count        int      `json:"count"`
}

// HouseholdDTO is a roster view of one family.
type HouseholdDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Children []PersonDTO `json:"children"`
	Staff    *PersonDTO  `json:"staff,omitempty"`
}

// PersonDTO is a roster view of one person.
type PersonDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Exempt bool   `json:"exempt,omitempty"`
}

// PricingConfigDTO mirrors the active pricing configuration.
type PricingConfigDTO struct {
	ID                     string  `json:"id"`
	DaysMin                int     `json:"days_min"`
	DaysMax                int     `json:"days_max"`
	BasePrice              float64 `json:"base_price"`
	StaffPrice             float64 `json:"staff_price"`
	StaffChildPrice        float64 `json:"staff_child_price"`
	SiblingDiscountPct     float64 `json:"sibling_discount_pct"`
	AttendanceDiscountPct  float64 `json:"attendance_discount_pct"`
	AttendanceThresholdPct float64 `json:"attendance_threshold_pct"`
}

// BillingRunDTO is one recorded monthly close run.
type BillingRunDTO struct {
	ID          string  `json:"id"`
	Period      string  `json:"period"`
	Status      string  `json:"status"`
	Total       string  `json:"total,omitempty"`
	Households  int     `json:"households"`
	Persons     int     `json:"persons"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// ScenarioDTO describes a loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error payload. Callers rely on receiving
// this (with a non-2xx status) rather than zeroed totals when a computation
// fails.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPersonResultDTO(r billing.PersonResult) PersonResultDTO {
	days := make([]BillableDayDTO, len(r.BillableDays))
	for i, d := range r.BillableDays {
		price, _ := d.Price.Float64()
		days[i] = BillableDayDTO{
			Date:        d.Date.String(),
			Category:    string(d.Category),
			Price:       price,
			Description: d.Description,
		}
	}

	subtotal, _ := r.Subtotal.Float64()
	total, _ := r.Total.Float64()
	siblingPct, _ := r.Sibling.Percent.Float64()
	attPct, _ := r.Attendance.Percent.Float64()
	attAmount, _ := r.Attendance.Amount.Float64()
	waived, _ := r.Exemption.WaivedAmount.Float64()

	return PersonResultDTO{
		PersonID:        string(r.PersonID),
		Kind:            string(r.Kind),
		Name:            r.Name,
		Household:       string(r.Household),
		BillableDays:    days,
		DiasInscripcion: r.Counts.Enrolled,
		DiasPuntuales:   r.Counts.Extra,
		DiasBaja:        r.Counts.Cancelled,
		DiasFestivos:    r.Counts.EnrolledHolidays,
		DiasInvitacion:  r.Counts.Invited,
		TotalDias:       r.TotalDays(),
		Subtotal:        subtotal,
		TotalImporte:    total,
		Sibling: SiblingDTO{
			Applied:  r.Sibling.Applied,
			Percent:  siblingPct,
			Position: r.Sibling.Position,
		},
		Attendance: AttendanceDTO{
			Eligible:     r.Attendance.Eligible,
			Percent:      attPct,
			RequiredDays: r.Attendance.RequiredDays,
			AttendedDays: r.Attendance.AttendedDays,
			BusinessDays: r.Attendance.BusinessDays,
			Amount:       attAmount,
		},
		Exemption: ExemptionDTO{
			Exempt:       r.Exemption.Exempt,
			Reason:       r.Exemption.Reason,
			WaivedAmount: waived,
		},
	}
}

func toHouseholdResultDTO(r billing.HouseholdResult) HouseholdResultDTO {
	persons := make([]PersonResultDTO, len(r.Persons))
	for i, p := range r.Persons {
		persons[i] = toPersonResultDTO(p)
	}
	total, _ := r.Total.Float64()
	return HouseholdResultDTO{
		HouseholdID:  string(r.HouseholdID),
		Name:         r.Name,
		Persons:      persons,
		TotalImporte: total,
		TotalDias:    r.TotalDays,
	}
}

func toInstitutionResultDTO(r *billing.InstitutionResult) InstitutionResultDTO {
	households := make([]HouseholdResultDTO, len(r.Households))
	for i, h := range r.Households {
		households[i] = toHouseholdResultDTO(h)
	}
	total, _ := r.Total.Float64()
	return InstitutionResultDTO{
		Month:        r.Month.String(),
		BusinessDays: isoDates(r.BusinessDays),
		Households:   households,
		TotalImporte: total,
		TotalDias:    r.TotalDays,
	}
}

func toHouseholdDTO(h billing.Household) HouseholdDTO {
	dto := HouseholdDTO{ID: string(h.ID), Name: h.Name}
	for _, c := range h.Children {
		dto.Children = append(dto.Children, PersonDTO{
			ID: string(c.ID), Name: c.Name, Kind: string(billing.KindChild), Exempt: c.Exempt.Exempt,
		})
	}
	if h.Staff != nil {
		staff := PersonDTO{
			ID: string(h.Staff.ID), Name: h.Staff.Name, Kind: string(billing.KindStaff), Exempt: h.Staff.Exempt.Exempt,
		}
		dto.Staff = &staff
	}
	return dto
}

func toBillingRunDTO(run sqlite.BillingRun) BillingRunDTO {
	dto := BillingRunDTO{
		ID:         run.ID,
		Period:     billing.NewMonth(run.Year, time.Month(run.Month)).String(),
		Status:     run.Status,
		Total:      run.Total,
		Households: run.Households,
		Persons:    run.Persons,
		Error:      run.Error,
		StartedAt:  run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &completed
	}
	return dto
}

func isoDates(dates []billing.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}
