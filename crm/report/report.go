package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	PeriodThisMonth = "this_month"
	PeriodLastMonth = "last_month"
	PeriodThisYear  = "this_year"
)

// Store answers aggregate report queries over a direct database connection,
// bypassing the row-level gateway the rest of the service uses.
type Store struct {
	db  *bun.DB
	log zerolog.Logger

	now func() time.Time
}

type Config struct {
	DSN          string        `envconfig:"DSN"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"4"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"30s"`
}

// NewStore opens a pooled connection for report queries. An empty DSN is a
// configuration decision, not an error; the caller skips report tools then.
func NewStore(cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("report store requires a dsn")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)

	db := bun.NewDB(sqldb, pgdialect.New())
	return &Store{db: db, log: log, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type BranchRevenue struct {
	BranchID     int     `bun:"branch_id" json:"branch_id"`
	BranchName   string  `bun:"branch_name" json:"branch_name"`
	PaidAmount   float64 `bun:"paid_amount" json:"paid_amount"`
	PaidCount    int     `bun:"paid_count" json:"paid_count"`
	PendingCount int     `bun:"pending_count" json:"pending_count"`
}

type RevenueSummary struct {
	Period      string          `json:"period"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	TotalPaid   float64         `json:"total_paid"`
	Branches    []BranchRevenue `json:"branches"`
}

// RevenueSummary totals paid rent per branch over a named period.
func (s *Store) RevenueSummary(ctx context.Context, branchID int, period string) (*RevenueSummary, error) {
	start, end, err := periodWindow(s.now(), period)
	if err != nil {
		return nil, err
	}

	q := s.db.NewSelect().
		TableExpr("payments AS p").
		Join("JOIN contracts AS c ON c.id = p.contract_id").
		Join("JOIN branches AS b ON b.id = c.branch_id").
		ColumnExpr("b.id AS branch_id").
		ColumnExpr("b.name AS branch_name").
		ColumnExpr("COALESCE(SUM(p.amount) FILTER (WHERE p.payment_status = 'paid'), 0) AS paid_amount").
		ColumnExpr("COUNT(*) FILTER (WHERE p.payment_status = 'paid') AS paid_count").
		ColumnExpr("COUNT(*) FILTER (WHERE p.payment_status = 'pending') AS pending_count").
		Where("p.due_date >= ?", start).
		Where("p.due_date < ?", end).
		GroupExpr("b.id, b.name").
		OrderExpr("b.id")
	if branchID != 0 {
		q = q.Where("b.id = ?", branchID)
	}

	var branches []BranchRevenue
	if err := q.Scan(ctx, &branches); err != nil {
		return nil, fmt.Errorf("revenue summary query: %w", err)
	}

	summary := &RevenueSummary{
		Period:      period,
		PeriodStart: start.Format("2006-01-02"),
		PeriodEnd:   end.AddDate(0, 0, -1).Format("2006-01-02"),
		Branches:    branches,
	}
	for _, b := range branches {
		summary.TotalPaid += b.PaidAmount
	}
	return summary, nil
}

type OverdueEntry struct {
	PaymentID    int     `bun:"payment_id" json:"payment_id"`
	CustomerName string  `bun:"customer_name" json:"customer_name"`
	BranchName   string  `bun:"branch_name" json:"branch_name"`
	Amount       float64 `bun:"amount" json:"amount"`
	DueDate      string  `bun:"due_date" json:"due_date"`
	OverdueDays  int     `bun:"overdue_days" json:"overdue_days"`
	Phone        string  `bun:"phone" json:"phone"`
}

type OverdueReport struct {
	Count       int            `json:"count"`
	TotalAmount float64        `json:"total_amount"`
	Payments    []OverdueEntry `json:"payments"`
}

// OverdueList returns overdue payments with customer contact details, worst
// first.
func (s *Store) OverdueList(ctx context.Context, branchID, minDays int) (*OverdueReport, error) {
	q := s.db.NewSelect().
		TableExpr("payments AS p").
		Join("JOIN contracts AS c ON c.id = p.contract_id").
		Join("JOIN customers AS cu ON cu.id = c.customer_id").
		Join("JOIN branches AS b ON b.id = c.branch_id").
		ColumnExpr("p.id AS payment_id").
		ColumnExpr("cu.name AS customer_name").
		ColumnExpr("b.name AS branch_name").
		ColumnExpr("p.amount AS amount").
		ColumnExpr("p.due_date::text AS due_date").
		ColumnExpr("(CURRENT_DATE - p.due_date) AS overdue_days").
		ColumnExpr("COALESCE(cu.phone, '') AS phone").
		Where("p.payment_status = 'overdue'").
		Where("(CURRENT_DATE - p.due_date) >= ?", minDays).
		OrderExpr("overdue_days DESC")
	if branchID != 0 {
		q = q.Where("b.id = ?", branchID)
	}

	var entries []OverdueEntry
	if err := q.Scan(ctx, &entries); err != nil {
		return nil, fmt.Errorf("overdue list query: %w", err)
	}

	report := &OverdueReport{Count: len(entries), Payments: entries}
	for _, e := range entries {
		report.TotalAmount += e.Amount
	}
	return report, nil
}

type CommissionEntry struct {
	ContractID     int     `bun:"contract_id" json:"contract_id"`
	ContractNumber string  `bun:"contract_number" json:"contract_number"`
	BrokerName     string  `bun:"broker_name" json:"broker_name"`
	CustomerName   string  `bun:"customer_name" json:"customer_name"`
	MonthlyRent    float64 `bun:"monthly_rent" json:"monthly_rent"`
	Status         string  `bun:"status" json:"status"`
	StartDate      string  `bun:"start_date" json:"start_date"`
}

type CommissionReport struct {
	Status    string            `json:"status"`
	Count     int               `json:"count"`
	Contracts []CommissionEntry `json:"contracts"`
}

// CommissionDue lists broker commissions on commission-eligible contracts.
// Status narrows to pending or eligible; "all" keeps both.
func (s *Store) CommissionDue(ctx context.Context, status string) (*CommissionReport, error) {
	if status == "" {
		status = "eligible"
	}
	switch status {
	case "pending", "eligible", "all":
	default:
		return nil, fmt.Errorf("invalid commission status %q", status)
	}

	q := s.db.NewSelect().
		TableExpr("contracts AS c").
		Join("JOIN customers AS cu ON cu.id = c.customer_id").
		ColumnExpr("c.id AS contract_id").
		ColumnExpr("c.contract_number AS contract_number").
		ColumnExpr("COALESCE(c.broker_name, '') AS broker_name").
		ColumnExpr("cu.name AS customer_name").
		ColumnExpr("c.monthly_rent AS monthly_rent").
		ColumnExpr("c.commission_status AS status").
		ColumnExpr("c.start_date::text AS start_date").
		Where("c.commission_eligible = TRUE").
		OrderExpr("c.start_date")
	if status != "all" {
		q = q.Where("c.commission_status = ?", status)
	}

	var entries []CommissionEntry
	if err := q.Scan(ctx, &entries); err != nil {
		return nil, fmt.Errorf("commission due query: %w", err)
	}

	return &CommissionReport{Status: status, Count: len(entries), Contracts: entries}, nil
}

// periodWindow resolves a period name to a [start, end) date range.
func periodWindow(now time.Time, period string) (time.Time, time.Time, error) {
	year, month, _ := now.Date()
	loc := now.Location()

	switch period {
	case PeriodThisMonth, "":
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	case PeriodLastMonth:
		end := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return end.AddDate(0, -1, 0), end, nil
	case PeriodThisYear:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q", period)
	}
}
