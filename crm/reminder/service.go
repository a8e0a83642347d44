package reminder

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/lineapi"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

const (
	ReminderUpcoming = "upcoming"
	ReminderDue      = "due"
	ReminderOverdue  = "overdue"
)

// Service drives payment and renewal reminders over the messaging gateway.
type Service struct {
	gw        contract.DataGateway
	messenger contract.Messenger
	log       zerolog.Logger
}

func NewService(gw contract.DataGateway, messenger contract.Messenger, log zerolog.Logger) (*Service, error) {
	if gw == nil {
		return nil, errors.New("data gateway is required")
	}
	if messenger == nil {
		return nil, errors.New("messenger is required")
	}
	return &Service{gw: gw, messenger: messenger, log: log}, nil
}

type SendResult struct {
	Message      string `json:"message"`
	PaymentID    int    `json:"payment_id,omitempty"`
	ContractID   int    `json:"contract_id,omitempty"`
	ReminderType string `json:"reminder_type,omitempty"`
	DaysLeft     int    `json:"days_remaining,omitempty"`
}

// SendMessage pushes free-form text to one customer.
func (s *Service) SendMessage(ctx context.Context, customerID int, text string) (*SendResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", contract.ErrValidation)
	}

	rows, err := s.gw.Get(ctx, contract.CollectionCustomers,
		postgrest.NewQuery().Eq("id", customerID).Select("id,name,line_user_id"))
	if err != nil {
		return nil, fmt.Errorf("read customer: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}

	customer := rows[0]
	lineUserID := customer.String("line_user_id")
	if lineUserID == "" {
		return nil, fmt.Errorf("%w: customer %s", contract.ErrNoMessaging, customer.String("name"))
	}

	if err := s.messenger.Push(ctx, lineUserID, []lineapi.Message{lineapi.TextMessage(text)}); err != nil {
		return nil, fmt.Errorf("push message: %w", err)
	}

	return &SendResult{Message: fmt.Sprintf("message sent to %s", customer.String("name"))}, nil
}

// SendPaymentReminder pushes one reminder for a due payment. The type picks
// the template: upcoming, due, or overdue.
func (s *Service) SendPaymentReminder(ctx context.Context, paymentID int, reminderType string) (*SendResult, error) {
	if reminderType == "" {
		reminderType = ReminderUpcoming
	}

	rows, err := s.gw.Get(ctx, contract.ViewPaymentsDue, postgrest.NewQuery().Eq("id", paymentID))
	if err != nil {
		return nil, fmt.Errorf("read payment: %w", err)
	}
	if len(rows) == 0 {
		return nil, contract.ErrNotFound
	}

	var due contract.PaymentDue
	if err := rows[0].Decode(&due); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	if due.LineUserID == "" {
		return nil, fmt.Errorf("%w: customer %s", contract.ErrNoMessaging, due.CustomerName)
	}

	text := paymentReminderText(reminderType, due)
	if err := s.messenger.Push(ctx, due.LineUserID, []lineapi.Message{lineapi.TextMessage(text)}); err != nil {
		return nil, fmt.Errorf("push payment reminder: %w", err)
	}

	s.log.Info().Int("payment_id", paymentID).Str("reminder_type", reminderType).Msg("payment reminder sent")

	return &SendResult{
		Message:      fmt.Sprintf("%s reminder sent to %s", reminderType, due.CustomerName),
		PaymentID:    paymentID,
		ReminderType: reminderType,
	}, nil
}

func paymentReminderText(reminderType string, due contract.PaymentDue) string {
	switch reminderType {
	case ReminderUpcoming:
		return fmt.Sprintf(
			"Dear %s,\n\nThis is a friendly reminder that your rent of $%s for %s is due on %s. Please arrange payment before the due date.\n\nFeel free to contact us with any questions.",
			due.CustomerName, formatAmount(due.TotalDue), due.PaymentPeriod, due.DueDate)
	case ReminderDue:
		return fmt.Sprintf(
			"Dear %s,\n\nYour rent of $%s for %s is due today. Please complete the payment as soon as possible. Thank you for your cooperation.",
			due.CustomerName, formatAmount(due.TotalDue), due.PaymentPeriod)
	case ReminderOverdue:
		return fmt.Sprintf(
			"Dear %s,\n\nYour rent of $%s for %s is now %d day(s) overdue. Please settle it as soon as possible.\n\nIf you are having difficulties, contact us and we will help.",
			due.CustomerName, formatAmount(due.TotalDue), due.PaymentPeriod, due.OverdueDays)
	default:
		return fmt.Sprintf("Dear %s, you have a payment of $%s that needs attention.",
			due.CustomerName, formatAmount(due.TotalDue))
	}
}

// Urgency maps remaining days to the renewal reminder tier.
func Urgency(daysRemaining int) string {
	switch {
	case daysRemaining <= 7:
		return "urgent"
	case daysRemaining <= 30:
		return "important"
	default:
		return "informational"
	}
}

var urgencyLabels = map[string]string{
	"urgent":        "[URGENT] Renewal notice",
	"important":     "[IMPORTANT] Renewal notice",
	"informational": "[NOTICE] Renewal reminder",
}

// SendRenewalReminder pushes a contract renewal notice tiered by the days
// remaining on the contract.
func (s *Service) SendRenewalReminder(ctx context.Context, contractID int) (*SendResult, error) {
	rows, err := s.gw.Get(ctx, contract.ViewRenewalReminders, postgrest.NewQuery().Eq("contract_id", contractID))
	if err != nil {
		return nil, fmt.Errorf("read renewal: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: contract %d is not in the renewal window", contract.ErrNotFound, contractID)
	}

	var renewal contract.RenewalDue
	if err := rows[0].Decode(&renewal); err != nil {
		return nil, fmt.Errorf("decode renewal: %w", err)
	}
	if renewal.LineUserID == "" {
		return nil, fmt.Errorf("%w: customer %s", contract.ErrNoMessaging, renewal.CustomerName)
	}

	text := fmt.Sprintf(
		"%s\n\nDear %s,\n\nYour contract at %s expires on %s, which is %d day(s) from now.\n\nTo renew, or for any questions, please get in touch with us anytime.\n\nThank you for staying with Hour Jungle.",
		urgencyLabels[Urgency(renewal.DaysRemaining)],
		renewal.CustomerName, renewal.BranchName, renewal.EndDate, renewal.DaysRemaining)

	if err := s.messenger.Push(ctx, renewal.LineUserID, []lineapi.Message{lineapi.TextMessage(text)}); err != nil {
		return nil, fmt.Errorf("push renewal reminder: %w", err)
	}

	s.log.Info().Int("contract_id", contractID).Int("days_remaining", renewal.DaysRemaining).
		Msg("renewal reminder sent")

	return &SendResult{
		Message:    fmt.Sprintf("renewal reminder sent to %s", renewal.CustomerName),
		ContractID: contractID,
		DaysLeft:   renewal.DaysRemaining,
	}, nil
}

type BulkFilter struct {
	BranchID int
	Urgency  string
	DryRun   bool
}

type BulkError struct {
	PaymentID int    `json:"payment_id"`
	Customer  string `json:"customer"`
	Error     string `json:"error"`
}

type BulkResult struct {
	DryRun bool `json:"dry_run"`

	// Dry-run accounting.
	TotalPayments int     `json:"total_payments,omitempty"`
	WithLineID    int     `json:"with_line_id,omitempty"`
	WouldSend     int     `json:"would_send,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`

	// Live accounting.
	SentCount   int         `json:"sent_count"`
	FailedCount int         `json:"failed_count"`
	Errors      []BulkError `json:"errors,omitempty"`
}

// SendBulkPaymentReminders dispatches reminders for every due payment with a
// bound messaging address. A dry run reports the counts without touching the
// messenger; a live run isolates per-payment failures and keeps going.
func (s *Service) SendBulkPaymentReminders(ctx context.Context, filter BulkFilter) (*BulkResult, error) {
	urgency := filter.Urgency
	if urgency == "" {
		urgency = ReminderOverdue
	}

	q := postgrest.NewQuery()
	if filter.BranchID != 0 {
		q = q.Eq("branch_id", filter.BranchID)
	}
	if urgency != "all" {
		q = q.Eq("urgency", urgency)
	}

	rows, err := s.gw.Get(ctx, contract.ViewPaymentsDue, q)
	if err != nil {
		return nil, fmt.Errorf("list payments due: %w", err)
	}

	reachable := make([]contract.PaymentDue, 0, len(rows))
	for _, row := range rows {
		var due contract.PaymentDue
		if err := row.Decode(&due); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
		if due.LineUserID != "" {
			reachable = append(reachable, due)
		}
	}

	if filter.DryRun {
		result := &BulkResult{
			DryRun:        true,
			TotalPayments: len(rows),
			WithLineID:    len(reachable),
			WouldSend:     len(reachable),
		}
		for _, due := range reachable {
			result.TotalAmount += due.TotalDue
		}
		return result, nil
	}

	result := &BulkResult{}
	for _, due := range reachable {
		reminderType := ReminderUpcoming
		if due.PaymentStatus == "overdue" {
			reminderType = ReminderOverdue
		}

		if _, err := s.SendPaymentReminder(ctx, due.ID, reminderType); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, BulkError{
				PaymentID: due.ID,
				Customer:  due.CustomerName,
				Error:     err.Error(),
			})
			continue
		}
		result.SentCount++
	}

	s.log.Info().Int("sent", result.SentCount).Int("failed", result.FailedCount).
		Msg("bulk payment reminders dispatched")

	return result, nil
}

func formatAmount(amount float64) string {
	whole := int64(amount + 0.5)
	if whole < 0 {
		whole = 0
	}
	out := fmt.Sprintf("%d", whole)
	if len(out) <= 3 {
		return out
	}
	var grouped []byte
	for i, digit := range []byte(out) {
		if i > 0 && (len(out)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, digit)
	}
	return string(grouped)
}
