package contract

import "encoding/json"

// Collection and view names on the data gateway.
const (
	CollectionQuotes    = "quotes"
	CollectionContracts = "contracts"
	CollectionCustomers = "customers"
	CollectionPayments  = "payments"
	CollectionBranches  = "branches"

	ViewQuotes           = "v_quotes"
	ViewCustomerSummary  = "v_customer_summary"
	ViewPaymentsDue      = "v_payments_due"
	ViewRenewalReminders = "v_renewal_reminders"
	ViewTodayTasks       = "v_today_tasks"
)

type QuoteItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
}

// Quote mirrors the v_quotes view. Items arrive either as a JSON array or as
// an encoded string, so they stay raw until DecodeItems.
type Quote struct {
	ID                  int             `json:"id"`
	QuoteNumber         string          `json:"quote_number"`
	BranchID            int             `json:"branch_id"`
	CustomerID          int             `json:"customer_id"`
	CustomerName        string          `json:"customer_name"`
	CustomerPhone       string          `json:"customer_phone"`
	CustomerEmail       string          `json:"customer_email"`
	CompanyName         string          `json:"company_name"`
	ContractType        string          `json:"contract_type"`
	PlanName            string          `json:"plan_name"`
	ContractMonths      int             `json:"contract_months"`
	ProposedStartDate   string          `json:"proposed_start_date"`
	Items               json.RawMessage `json:"items"`
	Subtotal            float64         `json:"subtotal"`
	DiscountAmount      float64         `json:"discount_amount"`
	TotalAmount         float64         `json:"total_amount"`
	DepositAmount       float64         `json:"deposit_amount"`
	ValidFrom           string          `json:"valid_from"`
	ValidUntil          string          `json:"valid_until"`
	Status              string          `json:"status"`
	ConvertedContractID int             `json:"converted_contract_id"`
	IsExpired           bool            `json:"is_expired"`
}

// DecodeItems tolerates both wire encodings of the items column.
func (q Quote) DecodeItems() ([]QuoteItem, error) {
	raw := q.Items
	if len(raw) == 0 {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var items []QuoteItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PaymentDue mirrors the v_payments_due view.
type PaymentDue struct {
	ID            int     `json:"id"`
	BranchID      int     `json:"branch_id"`
	CustomerName  string  `json:"customer_name"`
	LineUserID    string  `json:"line_user_id"`
	PaymentPeriod string  `json:"payment_period"`
	TotalDue      float64 `json:"total_due"`
	DueDate       string  `json:"due_date"`
	PaymentStatus string  `json:"payment_status"`
	OverdueDays   int     `json:"overdue_days"`
	Urgency       string  `json:"urgency"`
}

// RenewalDue mirrors the v_renewal_reminders view.
type RenewalDue struct {
	ContractID    int    `json:"contract_id"`
	BranchID      int    `json:"branch_id"`
	BranchName    string `json:"branch_name"`
	CustomerName  string `json:"customer_name"`
	LineUserID    string `json:"line_user_id"`
	EndDate       string `json:"end_date"`
	DaysRemaining int    `json:"days_remaining"`
	Priority      string `json:"priority"`
}
