package tools

import (
	"context"

	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/crm/report"
)

func reportTools(store *report.Store) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "report_revenue_summary",
			Description: "Revenue summary per branch for a period",
			Params: map[string]registry.Param{
				"branch_id": {Type: "integer", Description: "Branch id"},
				"period":    {Type: "string", Description: "Period (this_month/last_month/this_year)", Default: "this_month"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return store.RevenueSummary(ctx, args.Int("branch_id"), args.String("period"))
			},
		},
		{
			Name:        "report_overdue_list",
			Description: "Overdue payments with customer contact details",
			Params: map[string]registry.Param{
				"branch_id": {Type: "integer", Description: "Branch id"},
				"min_days":  {Type: "integer", Description: "Minimum days overdue", Default: 0},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return store.OverdueList(ctx, args.Int("branch_id"), args.Int("min_days"))
			},
		},
		{
			Name:        "report_commission_due",
			Description: "Broker commissions due on eligible contracts",
			Params: map[string]registry.Param{
				"status": {Type: "string", Description: "Commission status (pending/eligible/all)", Default: "eligible"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return store.CommissionDue(ctx, args.String("status"))
			},
		},
	}
}
