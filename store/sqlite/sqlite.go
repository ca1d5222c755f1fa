/*
Package sqlite provides the SQLite-backed implementation of the billing
input feeds.

PURPOSE:
  Implements billing.Feed over the roster database, plus the billing-run
  audit table the monthly close scheduler writes to. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

OWNERSHIP:
  The billing engine reads these tables; it never writes them during a
  computation. The write methods here exist for scenario seeding and for
  recording close runs, not for the administrative CRUD that owns the
  roster upstream.

KEY TABLES:
  households:       family unit
  people:           children and staff (kind column discriminates)
  enrollments:      standing weekly commitments, bounded validity
  cancellations:    day-set withdrawals (dates stored as a JSON array)
  extra_requests:   one-off day requests with approval status
  invitations:      complimentary days, attributed by (kind, person)
  holidays:         institution-wide non-business dates
  pricing_configs:  the active pricing record
  billing_runs:     recorded monthly close computations

DATES:
  All calendar dates are TEXT ISO "2006-01-02"; timestamps are RFC3339.
  Money columns are TEXT decimal strings - never floats.

CONCURRENCY:
  sync.RWMutex for thread-safety, WAL mode for concurrent readers.

SEE ALSO:
  - billing/feeds.go: the Feed contract
  - billing/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/comedor/billing-engine/billing"
)

// Store implements billing.Feed plus the seeding and audit surfaces.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('child','staff')),
		exempt INTEGER NOT NULL DEFAULT 0,
		exempt_reason TEXT,
		exempt_from TEXT,
		exempt_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_household
		ON people(household_id);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		person_kind TEXT NOT NULL DEFAULT 'child',
		weekdays TEXT NOT NULL,
		daily_price TEXT NOT NULL,
		discount_pct TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: every billing request selects enrollments overlapping the month
	CREATE INDEX IF NOT EXISTS idx_enrollments_person
		ON enrollments(person_id);
	CREATE INDEX IF NOT EXISTS idx_enrollments_range
		ON enrollments(start_date, end_date);

	CREATE TABLE IF NOT EXISTS cancellations (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		person_kind TEXT NOT NULL DEFAULT 'child',
		dates_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cancellations_person
		ON cancellations(person_id);

	CREATE TABLE IF NOT EXISTS extra_requests (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL,
		person_kind TEXT NOT NULL DEFAULT 'child',
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extra_requests_date
		ON extra_requests(date);

	CREATE TABLE IF NOT EXISTS invitations (
		id TEXT PRIMARY KEY,
		person_kind TEXT NOT NULL,
		person_id TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invitations_date
		ON invitations(date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_date
		ON holidays(date);

	CREATE TABLE IF NOT EXISTS pricing_configs (
		id TEXT PRIMARY KEY,
		active INTEGER NOT NULL DEFAULT 0,
		days_min INTEGER NOT NULL,
		days_max INTEGER NOT NULL,
		base_price TEXT NOT NULL,
		staff_price TEXT NOT NULL,
		staff_child_price TEXT NOT NULL,
		sibling_discount_pct TEXT NOT NULL,
		attendance_discount_pct TEXT NOT NULL,
		attendance_threshold_pct TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS billing_runs (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		total TEXT,
		households INTEGER,
		persons INTEGER,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_billing_runs_period
		ON billing_runs(year, month);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FEED - read side
// =============================================================================

func (s *Store) Households(ctx context.Context) ([]billing.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM households ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var households []billing.Household
	for rows.Next() {
		var h billing.Household
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		h.ID = billing.HouseholdID(id)
		h.Name = name
		households = append(households, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range households {
		if err := s.loadMembers(ctx, &households[i]); err != nil {
			return nil, err
		}
	}
	return households, nil
}

func (s *Store) HouseholdByID(ctx context.Context, id billing.HouseholdID) (*billing.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h billing.Household
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM households WHERE id = ?`, string(id)).
		Scan((*string)(&h.ID), &name)
	if err == sql.ErrNoRows {
		return nil, billing.ErrHouseholdNotFound
	}
	if err != nil {
		return nil, err
	}
	h.Name = name
	if err := s.loadMembers(ctx, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) loadMembers(ctx context.Context, h *billing.Household) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, exempt, exempt_reason, exempt_from, exempt_to, created_at
		FROM people WHERE household_id = ? ORDER BY created_at, id`, string(h.ID))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name, kind   string
			exempt           int
			reason, from, to sql.NullString
			createdAt        string
		)
		if err := rows.Scan(&id, &name, &kind, &exempt, &reason, &from, &to, &createdAt); err != nil {
			return err
		}

		exemption := billing.Exemption{Exempt: exempt != 0, Reason: reason.String}
		if d, ok := parseDateNull(from); ok {
			exemption.From = &d
		}
		if d, ok := parseDateNull(to); ok {
			exemption.To = &d
		}
		created := parseTimestamp(createdAt)

		switch kind {
		case "staff":
			staff := billing.Staff{
				ID:        billing.PersonID(id),
				Name:      name,
				Household: h.ID,
				Exempt:    exemption,
				CreatedAt: created,
			}
			h.Staff = &staff
		default:
			h.Children = append(h.Children, billing.Child{
				ID:        billing.PersonID(id),
				Name:      name,
				Household: h.ID,
				Exempt:    exemption,
				CreatedAt: created,
			})
		}
	}
	return rows.Err()
}

func (s *Store) EnrollmentsOverlapping(ctx context.Context, m billing.Month) ([]billing.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, person_kind, weekdays, daily_price, discount_pct,
		       active, start_date, end_date, created_at
		FROM enrollments
		WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY start_date, created_at`,
		m.Last().String(), m.First().String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []billing.Enrollment
	for rows.Next() {
		var (
			e               billing.Enrollment
			personID, kind  string
			weekdaysJSON    string
			price, discount string
			active          int
			startDate       string
			endDate         sql.NullString
			createdAt       string
		)
		if err := rows.Scan(&e.ID, &personID, &kind, &weekdaysJSON, &price, &discount,
			&active, &startDate, &endDate, &createdAt); err != nil {
			return nil, err
		}
		e.PersonID = billing.PersonID(personID)
		e.PersonKind = billing.PersonKind(kind)
		e.Weekdays = decodeWeekdays(weekdaysJSON)
		e.DailyPrice = parseMoney(price)
		e.DiscountPercent = parseMoney(discount)
		e.Active = active != 0
		if d, err := billing.ParseDate(startDate); err == nil {
			e.Start = d
		}
		if d, ok := parseDateNull(endDate); ok {
			e.End = &d
		}
		e.CreatedAt = parseTimestamp(createdAt)
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (s *Store) CancellationsIn(ctx context.Context, m billing.Month) ([]billing.Cancellation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, person_id, person_kind, dates_json FROM cancellations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancels []billing.Cancellation
	for rows.Next() {
		var c billing.Cancellation
		var personID, kind, datesJSON string
		if err := rows.Scan(&c.ID, &personID, &kind, &datesJSON); err != nil {
			return nil, err
		}
		c.PersonID = billing.PersonID(personID)
		c.PersonKind = billing.PersonKind(kind)

		var isoDates []string
		if err := json.Unmarshal([]byte(datesJSON), &isoDates); err != nil {
			continue // malformed record contributes nothing
		}
		inMonth := false
		for _, iso := range isoDates {
			d, err := billing.ParseDate(iso)
			if err != nil {
				continue // one bad day does not discard the rest
			}
			c.Dates = append(c.Dates, d)
			if m.Contains(d) {
				inMonth = true
			}
		}
		if inMonth {
			cancels = append(cancels, c)
		}
	}
	return cancels, rows.Err()
}

func (s *Store) ExtraRequestsIn(ctx context.Context, m billing.Month) ([]billing.ExtraRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, person_kind, date, status
		FROM extra_requests WHERE date >= ? AND date <= ?`,
		m.First().String(), m.Last().String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []billing.ExtraRequest
	for rows.Next() {
		var r billing.ExtraRequest
		var personID, kind, date, status string
		if err := rows.Scan(&r.ID, &personID, &kind, &date, &status); err != nil {
			return nil, err
		}
		r.PersonID = billing.PersonID(personID)
		r.PersonKind = billing.PersonKind(kind)
		r.Status = billing.RequestStatus(status)
		if d, err := billing.ParseDate(date); err == nil {
			r.Date = d
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Store) InvitationsIn(ctx context.Context, m billing.Month) ([]billing.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_kind, person_id, date
		FROM invitations WHERE date >= ? AND date <= ?`,
		m.First().String(), m.Last().String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []billing.Invitation
	for rows.Next() {
		var inv billing.Invitation
		var kind, personID, date string
		if err := rows.Scan(&inv.ID, &kind, &personID, &date); err != nil {
			return nil, err
		}
		inv.PersonKind = billing.PersonKind(kind)
		inv.PersonID = billing.PersonID(personID)
		if d, err := billing.ParseDate(date); err == nil {
			inv.Date = d
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (s *Store) HolidaysIn(ctx context.Context, m billing.Month) ([]billing.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name, active FROM holidays WHERE date >= ? AND date <= ?`,
		m.First().String(), m.Last().String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []billing.Holiday
	for rows.Next() {
		var h billing.Holiday
		var date string
		var active int
		if err := rows.Scan(&h.ID, &date, &h.Name, &active); err != nil {
			return nil, err
		}
		h.Active = active != 0
		if d, err := billing.ParseDate(date); err == nil {
			h.Date = d
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) ActivePricing(ctx context.Context) (*billing.PricingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		pc                          billing.PricingConfig
		active                      int
		base, staff, staffChild     string
		sibling, attDisc, attThresh string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, active, days_min, days_max, base_price, staff_price,
		       staff_child_price, sibling_discount_pct, attendance_discount_pct,
		       attendance_threshold_pct
		FROM pricing_configs WHERE active = 1
		ORDER BY created_at DESC LIMIT 1`).
		Scan(&pc.ID, &active, &pc.DaysMin, &pc.DaysMax, &base, &staff,
			&staffChild, &sibling, &attDisc, &attThresh)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pc.Active = active != 0
	pc.BasePrice = parseMoney(base)
	pc.StaffPrice = parseMoney(staff)
	pc.StaffChildPrice = parseMoney(staffChild)
	pc.SiblingDiscountPct = parseMoney(sibling)
	pc.AttendanceDiscountPct = parseMoney(attDisc)
	pc.AttendanceThresholdPct = parseMoney(attThresh)
	return &pc, nil
}

var _ billing.Feed = (*Store)(nil)

// =============================================================================
// SEEDING - scenario/demo writes (the roster CRUD lives upstream)
// =============================================================================

func (s *Store) SaveHousehold(ctx context.Context, h billing.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO households (id, name, created_at) VALUES (?, ?, ?)`,
		string(h.ID), h.Name, now); err != nil {
		return err
	}
	for _, c := range h.Children {
		if err := s.savePerson(ctx, string(c.ID), string(h.ID), c.Name, "child", c.Exempt, c.CreatedAt); err != nil {
			return err
		}
	}
	if h.Staff != nil {
		if err := s.savePerson(ctx, string(h.Staff.ID), string(h.ID), h.Staff.Name, "staff", h.Staff.Exempt, h.Staff.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) savePerson(ctx context.Context, id, householdID, name, kind string, ex billing.Exemption, createdAt time.Time) error {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var from, to any
	if ex.From != nil {
		from = ex.From.String()
	}
	if ex.To != nil {
		to = ex.To.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO people
			(id, household_id, name, kind, exempt, exempt_reason, exempt_from, exempt_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, householdID, name, kind, boolInt(ex.Exempt), ex.Reason, from, to,
		createdAt.Format(time.RFC3339))
	return err
}

func (s *Store) SaveEnrollment(ctx context.Context, e billing.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var end any
	if e.End != nil {
		end = e.End.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO enrollments
			(id, person_id, person_kind, weekdays, daily_price, discount_pct,
			 active, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.PersonID), string(kindOrChild(e.PersonKind)),
		encodeWeekdays(e.Weekdays), e.DailyPrice.String(), e.DiscountPercent.String(),
		boolInt(e.Active), e.Start.String(), end, e.CreatedAt.Format(time.RFC3339))
	return err
}

func (s *Store) SaveCancellation(ctx context.Context, c billing.Cancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	isoDates := make([]string, len(c.Dates))
	for i, d := range c.Dates {
		isoDates[i] = d.String()
	}
	datesJSON, err := json.Marshal(isoDates)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cancellations (id, person_id, person_kind, dates_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, string(c.PersonID), string(kindOrChild(c.PersonKind)),
		string(datesJSON), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveExtraRequest(ctx context.Context, r billing.ExtraRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO extra_requests (id, person_id, person_kind, date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.PersonID), string(kindOrChild(r.PersonKind)),
		r.Date.String(), string(r.Status), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveInvitation(ctx context.Context, inv billing.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO invitations (id, person_kind, person_id, date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		inv.ID, string(inv.PersonKind), string(inv.PersonID),
		inv.Date.String(), time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveHoliday(ctx context.Context, h billing.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO holidays (id, date, name, active) VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.String(), h.Name, boolInt(h.Active))
	return err
}

func (s *Store) SavePricingConfig(ctx context.Context, pc billing.PricingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	if pc.Active {
		// Exactly one record may be active; the newcomer wins.
		if _, err := s.db.ExecContext(ctx, `UPDATE pricing_configs SET active = 0`); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pricing_configs
			(id, active, days_min, days_max, base_price, staff_price, staff_child_price,
			 sibling_discount_pct, attendance_discount_pct, attendance_threshold_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pc.ID, boolInt(pc.Active), pc.DaysMin, pc.DaysMax,
		pc.BasePrice.String(), pc.StaffPrice.String(), pc.StaffChildPrice.String(),
		pc.SiblingDiscountPct.String(), pc.AttendanceDiscountPct.String(),
		pc.AttendanceThresholdPct.String(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// ResetAll wipes every roster table. Scenario loading only.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"households", "people", "enrollments", "cancellations",
		"extra_requests", "invitations", "holidays", "pricing_configs",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// BILLING RUNS - audit records written by the monthly close scheduler
// =============================================================================

// BillingRun records one monthly close computation.
type BillingRun struct {
	ID          string
	Year        int
	Month       int
	Status      string // "running", "completed", "failed"
	Total       string
	Households  int
	Persons     int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (s *Store) SaveBillingRun(ctx context.Context, run BillingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO billing_runs
			(id, year, month, status, total, households, persons, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Year, run.Month, run.Status, run.Total, run.Households,
		run.Persons, run.Error, run.StartedAt.UTC().Format(time.RFC3339), completed)
	return err
}

func (s *Store) ListBillingRuns(ctx context.Context) ([]BillingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, month, status, total, households, persons, error, started_at, completed_at
		FROM billing_runs ORDER BY started_at DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []BillingRun
	for rows.Next() {
		var (
			run                 BillingRun
			total, errMsg       sql.NullString
			households, persons sql.NullInt64
			startedAt           string
			completedAt         sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Year, &run.Month, &run.Status, &total,
			&households, &persons, &errMsg, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Total = total.String
		run.Households = int(households.Int64)
		run.Persons = int(persons.Int64)
		run.Error = errMsg.String
		run.StartedAt = parseTimestamp(startedAt)
		if completedAt.Valid {
			t := parseTimestamp(completedAt.String)
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// IsRunComplete reports whether a completed run already exists for the period.
func (s *Store) IsRunComplete(ctx context.Context, year, month int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM billing_runs
		WHERE year = ? AND month = ? AND status = 'completed'`, year, month).Scan(&count)
	return count > 0, err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func kindOrChild(k billing.PersonKind) billing.PersonKind {
	if k == billing.KindStaff {
		return billing.KindStaff
	}
	return billing.KindChild
}

// encodeWeekdays stores a weekday set as a JSON array of 0-6 ints
// (Sunday = 0), matching the upstream schema.
func encodeWeekdays(s billing.WeekdaySet) string {
	days := s.Weekdays()
	ints := make([]int, len(days))
	for i, d := range days {
		ints[i] = int(d)
	}
	b, _ := json.Marshal(ints)
	return string(b)
}

func decodeWeekdays(raw string) billing.WeekdaySet {
	var ints []int
	if err := json.Unmarshal([]byte(raw), &ints); err != nil {
		return 0 // malformed weekday set covers nothing
	}
	var set billing.WeekdaySet
	for _, i := range ints {
		if i >= 0 && i <= 6 {
			set |= 1 << uint(i)
		}
	}
	return set
}

func parseMoney(s string) billing.Money {
	m, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return m
}

func parseDateNull(ns sql.NullString) (billing.Date, bool) {
	if !ns.Valid || ns.String == "" {
		return billing.Date{}, false
	}
	d, err := billing.ParseDate(ns.String)
	if err != nil {
		return billing.Date{}, false
	}
	return d, true
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
