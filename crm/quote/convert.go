package quote

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

// Contract-term arithmetic uses a fixed 30-day month, matching the billing
// convention of the data layer, not calendar months.
const daysPerContractMonth = 30

type ConvertInput struct {
	QuoteID int

	StartDate    string
	EndDate      string
	PaymentCycle string
	PaymentDay   int

	CompanyName           string
	RepresentativeName    string
	RepresentativeAddress string
	IDNumber              string
	CompanyTaxID          string
	Phone                 string
	Email                 string

	// nil means "derive from the quote".
	OriginalPrice  *float64
	MonthlyRent    *float64
	DepositAmount  *float64

	Notes string
}

type ContractSummary struct {
	ID                 int     `json:"id"`
	ContractNumber     string  `json:"contract_number"`
	CustomerID         int     `json:"customer_id"`
	CompanyName        string  `json:"company_name"`
	RepresentativeName string  `json:"representative_name"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	MonthlyRent        float64 `json:"monthly_rent"`
	Deposit            float64 `json:"deposit"`
	Status             string  `json:"status"`
}

type ConvertResult struct {
	Message     string          `json:"message"`
	Contract    ContractSummary `json:"contract"`
	QuoteNumber string          `json:"quote_number"`
}

// Convert turns one accepted quote into one pending_sign contract, at most
// once. The finalize step is a conditional update on the data gateway, so a
// concurrent conversion loses the claim instead of converting twice.
func (s *Service) Convert(ctx context.Context, in ConvertInput) (*ConvertResult, error) {
	rows, err := s.gw.Get(ctx, contract.ViewQuotes, postgrest.NewQuery().Eq("id", in.QuoteID))
	if err != nil {
		return nil, fmt.Errorf("read quote: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}

	var q contract.Quote
	if err := rows[0].Decode(&q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	if q.Status != statusAccepted {
		return nil, fmt.Errorf("%w: only accepted quotes can be converted, current status is %s", contract.ErrInvalidState, q.Status)
	}
	if q.ConvertedContractID != 0 {
		return nil, fmt.Errorf("%w: contract id %d", contract.ErrAlreadyConverted, q.ConvertedContractID)
	}

	startDate := in.StartDate
	if startDate == "" {
		startDate = q.ProposedStartDate
	}
	if startDate == "" {
		startDate = s.now().Format(dateLayout)
	}

	// A zero contract_months yields the quote total unrounded as rent; the
	// end-date arithmetic still needs a term, so it falls back to the default.
	termMonths := q.ContractMonths
	if termMonths <= 0 {
		termMonths = defaultContractTerm
	}

	endDate := in.EndDate
	if endDate == "" {
		start, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid start date %q", contract.ErrValidation, startDate)
		}
		endDate = start.AddDate(0, 0, termMonths*daysPerContractMonth).Format(dateLayout)
	}

	monthlyRent := deriveMonthlyRent(in.MonthlyRent, q.TotalAmount, q.ContractMonths)

	deposit := q.DepositAmount
	if in.DepositAmount != nil {
		deposit = *in.DepositAmount
	}

	paymentCycle := in.PaymentCycle
	if paymentCycle == "" {
		paymentCycle = defaultPaymentCycle
	}
	paymentDay := in.PaymentDay
	if paymentDay == 0 {
		paymentDay = defaultPaymentDay
	}

	contractType := q.ContractType
	if contractType == "" {
		contractType = defaultContractType
	}

	// Customer linkage is resolved by the data layer's own side effects from
	// the renter-identification fields; no customer_id is sent here.
	data := map[string]any{
		"branch_id":           q.BranchID,
		"contract_type":       contractType,
		"start_date":          startDate,
		"end_date":            endDate,
		"monthly_rent":        monthlyRent,
		"payment_cycle":       paymentCycle,
		"payment_day":         paymentDay,
		"deposit":             deposit,
		"status":              contractPendingSign,
		"company_name":        fallback(in.CompanyName, q.CompanyName),
		"representative_name": fallback(in.RepresentativeName, q.CustomerName),
		"phone":               fallback(in.Phone, q.CustomerPhone),
		"email":               fallback(in.Email, q.CustomerEmail),
	}
	setIfString(data, "plan_name", q.PlanName)
	setIfString(data, "representative_address", in.RepresentativeAddress)
	setIfString(data, "id_number", in.IDNumber)
	setIfString(data, "company_tax_id", in.CompanyTaxID)
	if in.OriginalPrice != nil {
		data["original_price"] = *in.OriginalPrice
	}
	if in.Notes != "" {
		data["notes"] = in.Notes
	} else {
		data["notes"] = fmt.Sprintf("converted from quote %s", q.QuoteNumber)
	}

	created, err := s.gw.Create(ctx, contract.CollectionContracts, data)
	if err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	contractID := created.Int("id")

	if err := s.finalizeConversion(ctx, in.QuoteID, contractID); err != nil {
		return nil, err
	}

	return &ConvertResult{
		Message: "quote converted to contract",
		Contract: ContractSummary{
			ID:                 contractID,
			ContractNumber:     created.String("contract_number"),
			CustomerID:         created.Int("customer_id"),
			CompanyName:        created.String("company_name"),
			RepresentativeName: created.String("representative_name"),
			StartDate:          startDate,
			EndDate:            endDate,
			MonthlyRent:        monthlyRent,
			Deposit:            deposit,
			Status:             contractPendingSign,
		},
		QuoteNumber: q.QuoteNumber,
	}, nil
}

// finalizeConversion claims the quote with a conditional update keyed on the
// accepted status and an unset converted_contract_id, so at most one
// conversion can win. The patch is retried once before the contract id is
// surfaced for manual reconciliation.
func (s *Service) finalizeConversion(ctx context.Context, quoteID, contractID int) error {
	claim := postgrest.NewQuery().
		Eq("id", quoteID).
		Eq("status", statusAccepted).
		Is("converted_contract_id", "null")
	patch := map[string]any{
		"status":                statusConverted,
		"converted_contract_id": contractID,
		"converted_at":          s.now().Format(time.RFC3339),
	}

	rows, err := s.gw.Update(ctx, contract.CollectionQuotes, claim, patch)
	if err != nil {
		s.log.Warn().Int("quote_id", quoteID).Int("contract_id", contractID).Err(err).
			Msg("conversion finalize failed, retrying")
		rows, err = s.gw.Update(ctx, contract.CollectionQuotes, claim, patch)
	}
	if err != nil {
		return fmt.Errorf("contract %d created but quote %d could not be finalized: %w", contractID, quoteID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: quote %d was claimed concurrently, contract %d needs reconciliation",
			contract.ErrAlreadyConverted, quoteID, contractID)
	}
	return nil
}

func deriveMonthlyRent(override *float64, totalAmount float64, months int) float64 {
	if override != nil {
		return *override
	}
	if months <= 0 {
		return totalAmount
	}
	return math.Round(totalAmount / float64(months))
}

func fallback(value, alt string) string {
	if value != "" {
		return value
	}
	return alt
}
