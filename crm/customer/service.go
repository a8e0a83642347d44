package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

const (
	defaultSearchLimit   = 20
	defaultCustomerType  = "individual"
	defaultSourceChannel = "others"
	statusProspect       = "prospect"
)

// Service covers the single-call plumbing around customers, payments and
// directly created contracts.
type Service struct {
	gw  contract.DataGateway
	log zerolog.Logger

	now func() time.Time
}

func NewService(gw contract.DataGateway, log zerolog.Logger) (*Service, error) {
	if gw == nil {
		return nil, errors.New("data gateway is required")
	}
	return &Service{gw: gw, log: log, now: time.Now}, nil
}

type SearchFilter struct {
	Query    string
	BranchID int
	Status   string
	Limit    int
}

type SearchResult struct {
	Count     int                `json:"count"`
	Customers []postgrest.Record `json:"customers"`
}

// Search matches name, phone or company name with one OR group.
func (s *Service) Search(ctx context.Context, filter SearchFilter) (*SearchResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := postgrest.NewQuery().Limit(limit)
	if filter.BranchID != 0 {
		q = q.Eq("branch_id", filter.BranchID)
	}
	if filter.Status != "" {
		q = q.Eq("status", filter.Status)
	}
	if filter.Query != "" {
		pattern := "*" + filter.Query + "*"
		q = q.Or(
			"name.ilike."+pattern,
			"phone.ilike."+pattern,
			"company_name.ilike."+pattern,
		)
	}

	customers, err := s.gw.Get(ctx, contract.ViewCustomerSummary, q)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return &SearchResult{Count: len(customers), Customers: customers}, nil
}

type Detail struct {
	Customer       postgrest.Record   `json:"customer"`
	Contracts      []postgrest.Record `json:"contracts"`
	RecentPayments []postgrest.Record `json:"recent_payments"`
}

// GetDetail resolves a customer by id or messaging address and enriches the
// record with contracts and recent payments.
func (s *Service) GetDetail(ctx context.Context, customerID int, lineUserID string) (*Detail, error) {
	if customerID == 0 && lineUserID == "" {
		return nil, fmt.Errorf("%w: customer_id or line_user_id is required", contract.ErrValidation)
	}

	q := postgrest.NewQuery().Limit(1)
	if customerID != 0 {
		q = q.Eq("id", customerID)
	} else {
		q = q.Eq("line_user_id", lineUserID)
	}

	customers, err := s.gw.Get(ctx, contract.ViewCustomerSummary, q)
	if err != nil {
		return nil, fmt.Errorf("read customer: %w", err)
	}
	if len(customers) == 0 {
		return nil, contract.ErrNotFound
	}

	found := customers[0]
	id := found.Int("id")

	contracts, err := s.gw.Get(ctx, contract.CollectionContracts,
		postgrest.NewQuery().Eq("customer_id", id).Order("start_date.desc"))
	if err != nil {
		return nil, fmt.Errorf("read contracts: %w", err)
	}

	payments, err := s.gw.Get(ctx, contract.CollectionPayments,
		postgrest.NewQuery().Eq("customer_id", id).Order("due_date.desc").Limit(10))
	if err != nil {
		return nil, fmt.Errorf("read payments: %w", err)
	}

	return &Detail{Customer: found, Contracts: contracts, RecentPayments: payments}, nil
}

type CreateInput struct {
	Name          string
	BranchID      int
	Phone         string
	Email         string
	CompanyName   string
	CustomerType  string
	SourceChannel string
	LineUserID    string
	Notes         string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (postgrest.Record, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", contract.ErrValidation)
	}
	if in.BranchID == 0 {
		return nil, fmt.Errorf("%w: branch_id is required", contract.ErrValidation)
	}

	customerType := in.CustomerType
	if customerType == "" {
		customerType = defaultCustomerType
	}
	sourceChannel := in.SourceChannel
	if sourceChannel == "" {
		sourceChannel = defaultSourceChannel
	}

	data := map[string]any{
		"name":           in.Name,
		"branch_id":      in.BranchID,
		"customer_type":  customerType,
		"source_channel": sourceChannel,
		"status":         statusProspect,
	}
	setIfString(data, "phone", in.Phone)
	setIfString(data, "email", in.Email)
	setIfString(data, "company_name", in.CompanyName)
	setIfString(data, "line_user_id", in.LineUserID)
	setIfString(data, "notes", in.Notes)

	record, err := s.gw.Create(ctx, contract.CollectionCustomers, data)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return record, nil
}

// updatableFields is the explicit allow-list for customer updates.
var updatableFields = map[string]struct{}{
	"name":              {},
	"phone":             {},
	"email":             {},
	"company_name":      {},
	"company_tax_id":    {},
	"address":           {},
	"line_user_id":      {},
	"line_display_name": {},
	"invoice_title":     {},
	"invoice_tax_id":    {},
	"invoice_delivery":  {},
	"invoice_carrier":   {},
	"status":            {},
	"risk_level":        {},
	"risk_notes":        {},
	"notes":             {},
	"metadata":          {},
}

type UpdateResult struct {
	UpdatedFields []string         `json:"updated_fields"`
	Customer      postgrest.Record `json:"customer"`
}

func (s *Service) Update(ctx context.Context, id int, updates map[string]any) (*UpdateResult, error) {
	if len(updates) == 0 {
		return nil, contract.ErrNoValidFields
	}

	patch := make(map[string]any, len(updates))
	for key, value := range updates {
		if _, ok := updatableFields[key]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", contract.ErrValidation, key)
		}
		patch[key] = value
	}

	rows, err := s.gw.Update(ctx, contract.CollectionCustomers, postgrest.NewQuery().Eq("id", id), patch)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}

	fields := make([]string, 0, len(patch))
	for key := range patch {
		fields = append(fields, key)
	}
	return &UpdateResult{UpdatedFields: fields, Customer: rows[0]}, nil
}

var validPaymentMethods = map[string]struct{}{
	"cash":        {},
	"transfer":    {},
	"credit_card": {},
	"line_pay":    {},
}

// RecordPayment settles one payment: exactly one status/method/paid_at write.
func (s *Service) RecordPayment(ctx context.Context, paymentID int, method, notes string) (postgrest.Record, error) {
	if _, ok := validPaymentMethods[method]; !ok {
		return nil, fmt.Errorf("%w: invalid payment method %q", contract.ErrValidation, method)
	}

	patch := map[string]any{
		"payment_status": "paid",
		"payment_method": method,
		"paid_at":        s.now().Format(time.RFC3339),
	}
	setIfString(patch, "notes", notes)

	rows, err := s.gw.Update(ctx, contract.CollectionPayments, postgrest.NewQuery().Eq("id", paymentID), patch)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}
	return rows[0], nil
}

type ContractInput struct {
	CustomerID   int
	BranchID     int
	StartDate    string
	EndDate      string
	MonthlyRent  float64
	ContractType string
	Deposit      float64
	PaymentCycle string
	PaymentDay   int
	PlanName     string
	BrokerName   string
	BrokerFirmID int
	Notes        string
}

// CreateContract writes a direct draft contract (not via quote conversion).
func (s *Service) CreateContract(ctx context.Context, in ContractInput) (postgrest.Record, error) {
	if in.CustomerID == 0 || in.BranchID == 0 {
		return nil, fmt.Errorf("%w: customer_id and branch_id are required", contract.ErrValidation)
	}
	if in.StartDate == "" || in.EndDate == "" {
		return nil, fmt.Errorf("%w: start_date and end_date are required", contract.ErrValidation)
	}

	contractType := in.ContractType
	if contractType == "" {
		contractType = "virtual_office"
	}
	paymentCycle := in.PaymentCycle
	if paymentCycle == "" {
		paymentCycle = "monthly"
	}
	paymentDay := in.PaymentDay
	if paymentDay == 0 {
		paymentDay = 5
	}

	data := map[string]any{
		"customer_id":   in.CustomerID,
		"branch_id":     in.BranchID,
		"start_date":    in.StartDate,
		"end_date":      in.EndDate,
		"monthly_rent":  in.MonthlyRent,
		"contract_type": contractType,
		"deposit":       in.Deposit,
		"payment_cycle": paymentCycle,
		"payment_day":   paymentDay,
		"status":        "draft",
	}
	setIfString(data, "plan_name", in.PlanName)
	setIfString(data, "broker_name", in.BrokerName)
	if in.BrokerFirmID != 0 {
		data["broker_firm_id"] = in.BrokerFirmID
		data["commission_eligible"] = true
	}
	setIfString(data, "notes", in.Notes)

	record, err := s.gw.Create(ctx, contract.CollectionContracts, data)
	if err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return record, nil
}

type PaymentsDueFilter struct {
	BranchID int
	Urgency  string
	Limit    int
}

type PaymentsDueResult struct {
	Count         int                `json:"count"`
	TotalAmount   float64            `json:"total_amount"`
	OverdueCount  int                `json:"overdue_count"`
	OverdueAmount float64            `json:"overdue_amount"`
	Payments      []postgrest.Record `json:"payments"`
}

func (s *Service) ListPaymentsDue(ctx context.Context, filter PaymentsDueFilter) (*PaymentsDueResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := postgrest.NewQuery().Limit(limit)
	if filter.BranchID != 0 {
		q = q.Eq("branch_id", filter.BranchID)
	}
	if filter.Urgency != "" && filter.Urgency != "all" {
		q = q.Eq("urgency", filter.Urgency)
	}

	payments, err := s.gw.Get(ctx, contract.ViewPaymentsDue, q)
	if err != nil {
		return nil, fmt.Errorf("list payments due: %w", err)
	}

	result := &PaymentsDueResult{Count: len(payments), Payments: payments}
	for _, p := range payments {
		due := p.Float("total_due")
		result.TotalAmount += due
		if p.String("payment_status") == "overdue" {
			result.OverdueCount++
			result.OverdueAmount += due
		}
	}
	return result, nil
}

type RenewalsDueResult struct {
	Count             int                `json:"count"`
	UrgentCount       int                `json:"urgent_count"`
	HighPriorityCount int                `json:"high_priority_count"`
	Renewals          []postgrest.Record `json:"renewals"`
}

func (s *Service) ListRenewalsDue(ctx context.Context, branchID, daysAhead int) (*RenewalsDueResult, error) {
	if daysAhead <= 0 {
		daysAhead = 30
	}

	q := postgrest.NewQuery().
		Lte("days_remaining", daysAhead).
		Order("days_remaining.asc")
	if branchID != 0 {
		q = q.Eq("branch_id", branchID)
	}

	renewals, err := s.gw.Get(ctx, contract.ViewRenewalReminders, q)
	if err != nil {
		return nil, fmt.Errorf("list renewals due: %w", err)
	}

	result := &RenewalsDueResult{Count: len(renewals), Renewals: renewals}
	for _, r := range renewals {
		switch r.String("priority") {
		case "urgent":
			result.UrgentCount++
		case "high":
			result.HighPriorityCount++
		}
	}
	return result, nil
}

func setIfString(data map[string]any, key, value string) {
	if value != "" {
		data[key] = value
	}
}
