package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

const (
	dateLayout           = "2006-01-02"
	defaultContractType  = "virtual_office"
	defaultContractTerm  = 12
	defaultValidDays     = 30
	defaultListLimit     = 50
	terminalStatusDraft  = "draft"
	statusAccepted       = "accepted"
	statusConverted      = "converted"
	statusRejected       = "rejected"
	contractPendingSign  = "pending_sign"
	defaultPaymentCycle  = "monthly"
	defaultPaymentDay    = 5
)

// Service owns the quote lifecycle: creation, allow-listed updates with
// total recomputation, the permissive status machine, and conversion into a
// contract.
type Service struct {
	gw       contract.DataGateway
	renderer contract.DocumentRenderer
	branches BranchDirectory
	log      zerolog.Logger

	now func() time.Time
}

func NewService(gw contract.DataGateway, renderer contract.DocumentRenderer, branches BranchDirectory, log zerolog.Logger) (*Service, error) {
	if gw == nil {
		return nil, errors.New("data gateway is required")
	}
	return &Service{
		gw:       gw,
		renderer: renderer,
		branches: branches,
		log:      log,
		now:      time.Now,
	}, nil
}

type CreateInput struct {
	BranchID          int
	CustomerID        int
	CustomerName      string
	CustomerPhone     string
	CustomerEmail     string
	CompanyName       string
	ContractType      string
	PlanName          string
	ContractMonths    int
	ProposedStartDate string
	Items             []contract.QuoteItem
	DiscountAmount    float64
	DiscountNote      string
	DepositAmount     float64
	ValidDays         int
	InternalNotes     string
	CustomerNotes     string
	CreatedBy         string
}

// Create computes totals and the validity window, then writes a draft quote.
func (s *Service) Create(ctx context.Context, in CreateInput) (postgrest.Record, error) {
	if in.BranchID == 0 {
		return nil, fmt.Errorf("%w: branch_id is required", contract.ErrValidation)
	}

	contractType := in.ContractType
	if contractType == "" {
		contractType = defaultContractType
	}
	months := in.ContractMonths
	if months <= 0 {
		months = defaultContractTerm
	}
	validDays := in.ValidDays
	if validDays <= 0 {
		validDays = defaultValidDays
	}

	subtotal := sumItems(in.Items)
	total := subtotal - in.DiscountAmount

	today := s.now()
	items, err := encodeItems(in.Items)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"branch_id":       in.BranchID,
		"contract_type":   contractType,
		"contract_months": months,
		"items":           items,
		"subtotal":        subtotal,
		"discount_amount": in.DiscountAmount,
		"total_amount":    total,
		"deposit_amount":  in.DepositAmount,
		"valid_from":      today.Format(dateLayout),
		"valid_until":     today.AddDate(0, 0, validDays).Format(dateLayout),
		"status":          terminalStatusDraft,
	}

	setIfInt(data, "customer_id", in.CustomerID)
	setIfString(data, "customer_name", in.CustomerName)
	setIfString(data, "customer_phone", in.CustomerPhone)
	setIfString(data, "customer_email", in.CustomerEmail)
	setIfString(data, "company_name", in.CompanyName)
	setIfString(data, "plan_name", in.PlanName)
	setIfString(data, "proposed_start_date", in.ProposedStartDate)
	setIfString(data, "discount_note", in.DiscountNote)
	setIfString(data, "internal_notes", in.InternalNotes)
	setIfString(data, "customer_notes", in.CustomerNotes)
	setIfString(data, "created_by", in.CreatedBy)

	record, err := s.gw.Create(ctx, contract.CollectionQuotes, data)
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	return record, nil
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindInt
	kindItems
)

// updatableFields is the explicit allow-list for quote updates; unknown keys
// are rejected by name rather than silently dropped.
var updatableFields = map[string]fieldKind{
	"customer_id":         kindInt,
	"customer_name":       kindString,
	"customer_phone":      kindString,
	"customer_email":      kindString,
	"company_name":        kindString,
	"contract_type":       kindString,
	"plan_name":           kindString,
	"contract_months":     kindInt,
	"proposed_start_date": kindString,
	"items":               kindItems,
	"subtotal":            kindNumber,
	"discount_amount":     kindNumber,
	"discount_note":       kindString,
	"tax_amount":          kindNumber,
	"total_amount":        kindNumber,
	"deposit_amount":      kindNumber,
	"valid_from":          kindString,
	"valid_until":         kindString,
	"status":              kindString,
	"internal_notes":      kindString,
	"customer_notes":      kindString,
}

type UpdateResult struct {
	UpdatedFields []string         `json:"updated_fields"`
	Quote         postgrest.Record `json:"quote"`
}

// Update patches the allow-listed fields. When items change, subtotal and
// total are recomputed from the new items and the effective discount.
func (s *Service) Update(ctx context.Context, id int, updates map[string]any) (*UpdateResult, error) {
	if len(updates) == 0 {
		return nil, contract.ErrNoValidFields
	}

	patch := make(map[string]any, len(updates))
	for key, value := range updates {
		kind, ok := updatableFields[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", contract.ErrValidation, key)
		}
		coerced, err := coerceField(key, kind, value)
		if err != nil {
			return nil, err
		}
		patch[key] = coerced
	}

	if rawItems, ok := updates["items"]; ok {
		items, err := decodeItemsValue(rawItems)
		if err != nil {
			return nil, fmt.Errorf("%w: items: %v", contract.ErrValidation, err)
		}

		subtotal := sumItems(items)
		discount, err := s.effectiveDiscount(ctx, id, updates)
		if err != nil {
			return nil, err
		}

		encoded, err := encodeItems(items)
		if err != nil {
			return nil, err
		}
		patch["items"] = encoded
		patch["subtotal"] = subtotal
		patch["total_amount"] = subtotal - discount
	}

	rows, err := s.gw.Update(ctx, contract.CollectionQuotes, postgrest.NewQuery().Eq("id", id), patch)
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}

	fields := make([]string, 0, len(patch))
	for key := range patch {
		fields = append(fields, key)
	}
	return &UpdateResult{UpdatedFields: fields, Quote: rows[0]}, nil
}

func (s *Service) effectiveDiscount(ctx context.Context, id int, updates map[string]any) (float64, error) {
	if raw, ok := updates["discount_amount"]; ok {
		coerced, err := coerceField("discount_amount", kindNumber, raw)
		if err != nil {
			return 0, err
		}
		return coerced.(float64), nil
	}

	// Discount untouched: the recomputation uses the stored one.
	rows, err := s.gw.Get(ctx, contract.CollectionQuotes, postgrest.NewQuery().Eq("id", id))
	if err != nil {
		return 0, fmt.Errorf("read quote for discount: %w", err)
	}
	if len(rows) == 0 {
		return 0, contract.ErrNotFound
	}
	return rows[0].Float("discount_amount"), nil
}

// statusTimestamps keys the fixed timestamp side effect by target status.
// Any status value is accepted; validation, if any, happens upstream.
var statusTimestamps = map[string]string{
	"sent":     "sent_at",
	"viewed":   "viewed_at",
	"accepted": "responded_at",
	"rejected": "responded_at",
}

func (s *Service) SetStatus(ctx context.Context, id int, status, notes string) (postgrest.Record, error) {
	if status == "" {
		return nil, fmt.Errorf("%w: status is required", contract.ErrValidation)
	}

	patch := map[string]any{"status": status}
	if column, ok := statusTimestamps[status]; ok {
		patch[column] = s.now().Format(time.RFC3339)
	}
	if notes != "" {
		patch["internal_notes"] = notes
	}

	rows, err := s.gw.Update(ctx, contract.CollectionQuotes, postgrest.NewQuery().Eq("id", id), patch)
	if err != nil {
		return nil, fmt.Errorf("update quote status: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}
	return rows[0], nil
}

// Delete removes a quote, allowed only while it is still a draft.
func (s *Service) Delete(ctx context.Context, id int) (string, error) {
	rows, err := s.gw.Get(ctx, contract.CollectionQuotes, postgrest.NewQuery().Eq("id", id))
	if err != nil {
		return "", fmt.Errorf("read quote: %w", err)
	}
	if len(rows) == 0 {
		return "", contract.ErrNotFound
	}

	current := rows[0]
	if status := current.String("status"); status != terminalStatusDraft {
		return "", fmt.Errorf("%w: only draft quotes can be deleted, current status is %s", contract.ErrInvalidState, status)
	}

	if err := s.gw.Delete(ctx, contract.CollectionQuotes, postgrest.NewQuery().Eq("id", id)); err != nil {
		return "", fmt.Errorf("delete quote: %w", err)
	}
	return current.String("quote_number"), nil
}

type ListFilter struct {
	BranchID   int
	Status     string
	CustomerID int
	Limit      int
}

type ListResult struct {
	Count  int                `json:"count"`
	Stats  map[string]int     `json:"stats"`
	Quotes []postgrest.Record `json:"quotes"`
}

func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := postgrest.NewQuery().Limit(limit).Order("created_at.desc")
	if filter.BranchID != 0 {
		q = q.Eq("branch_id", filter.BranchID)
	}
	if filter.Status != "" {
		q = q.Eq("status", filter.Status)
	}
	if filter.CustomerID != 0 {
		q = q.Eq("customer_id", filter.CustomerID)
	}

	quotes, err := s.gw.Get(ctx, contract.ViewQuotes, q)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}

	stats := map[string]int{
		"draft":    0,
		"sent":     0,
		"accepted": 0,
		"expired":  0,
	}
	for _, record := range quotes {
		status := record.String("status")
		if _, tracked := stats[status]; tracked {
			stats[status]++
		}
		if record.Bool("is_expired") && status != statusAccepted && status != statusConverted && status != statusRejected {
			stats["expired"]++
		}
	}

	return &ListResult{Count: len(quotes), Stats: stats, Quotes: quotes}, nil
}

func (s *Service) Get(ctx context.Context, id int) (postgrest.Record, error) {
	rows, err := s.gw.Get(ctx, contract.ViewQuotes, postgrest.NewQuery().Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}
	return rows[0], nil
}

func sumItems(items []contract.QuoteItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Amount
	}
	return subtotal
}

// encodeItems stores line items the way the gateway column expects them: as
// an encoded JSON string.
func encodeItems(items []contract.QuoteItem) (string, error) {
	if items == nil {
		items = []contract.QuoteItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(raw), nil
}

func decodeItemsValue(value any) ([]contract.QuoteItem, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var items []contract.QuoteItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func coerceField(key string, kind fieldKind, value any) (any, error) {
	switch kind {
	case kindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: field %q must be a string", contract.ErrValidation, key)
	case kindNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: field %q must be a number", contract.ErrValidation, key)
			}
			return f, nil
		}
		return nil, fmt.Errorf("%w: field %q must be a number", contract.ErrValidation, key)
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		case json.Number:
			i, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("%w: field %q must be an integer", contract.ErrValidation, key)
			}
			return int(i), nil
		}
		return nil, fmt.Errorf("%w: field %q must be an integer", contract.ErrValidation, key)
	case kindItems:
		return value, nil
	}
	return value, nil
}

func setIfString(data map[string]any, key, value string) {
	if value != "" {
		data[key] = value
	}
}

func setIfInt(data map[string]any, key string, value int) {
	if value != 0 {
		data[key] = value
	}
}
