package tools

import (
	"context"

	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/crm/reminder"
)

func reminderTools(svc *reminder.Service) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "line_send_message",
			Description: "Send a free-form LINE message to a customer",
			Params: map[string]registry.Param{
				"customer_id": {Type: "integer", Description: "Customer id", Required: true},
				"message":     {Type: "string", Description: "Message text", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.SendMessage(ctx, args.Int("customer_id"), args.String("message"))
			},
		},
		{
			Name:        "line_send_payment_reminder",
			Description: "Send a payment reminder for one due payment",
			Params: map[string]registry.Param{
				"payment_id":    {Type: "integer", Description: "Payment id", Required: true},
				"reminder_type": {Type: "string", Description: "Reminder type (upcoming/due/overdue)", Default: "upcoming"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.SendPaymentReminder(ctx, args.Int("payment_id"), args.String("reminder_type"))
			},
		},
		{
			Name:        "line_send_renewal_reminder",
			Description: "Send a contract renewal reminder",
			Params: map[string]registry.Param{
				"contract_id": {Type: "integer", Description: "Contract id", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.SendRenewalReminder(ctx, args.Int("contract_id"))
			},
		},
		{
			Name:        "line_send_bulk_payment_reminders",
			Description: "Send payment reminders in bulk, with a dry-run mode",
			Params: map[string]registry.Param{
				"branch_id": {Type: "integer", Description: "Branch id"},
				"urgency":   {Type: "string", Description: "Urgency filter", Default: "overdue"},
				"dry_run":   {Type: "boolean", Description: "Count without sending", Default: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.SendBulkPaymentReminders(ctx, reminder.BulkFilter{
					BranchID: args.Int("branch_id"),
					Urgency:  args.String("urgency"),
					DryRun:   args.Bool("dry_run"),
				})
			},
		},
	}
}
