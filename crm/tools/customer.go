package tools

import (
	"context"

	"github.com/hourjungle/crm-mcp/crm/customer"
	"github.com/hourjungle/crm-mcp/crm/registry"
)

func customerTools(svc *customer.Service) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "crm_search_customers",
			Description: "Search customers by name, phone or company name",
			Params: map[string]registry.Param{
				"query":     {Type: "string", Description: "Search keyword (name / phone / company name)"},
				"branch_id": {Type: "integer", Description: "Branch id"},
				"status":    {Type: "string", Description: "Customer status (active/prospect/churned)"},
				"limit":     {Type: "integer", Description: "Maximum rows returned", Default: 20},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.Search(ctx, customer.SearchFilter{
					Query:    args.String("query"),
					BranchID: args.Int("branch_id"),
					Status:   args.String("status"),
					Limit:    args.Int("limit"),
				})
			},
		},
		{
			Name:        "crm_get_customer_detail",
			Description: "Get one customer with contracts and recent payments",
			Params: map[string]registry.Param{
				"customer_id":  {Type: "integer", Description: "Customer id"},
				"line_user_id": {Type: "string", Description: "LINE user id"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.GetDetail(ctx, args.Int("customer_id"), args.String("line_user_id"))
			},
		},
		{
			Name:        "crm_create_customer",
			Description: "Create a new customer",
			Params: map[string]registry.Param{
				"name":           {Type: "string", Description: "Customer name", Required: true},
				"branch_id":      {Type: "integer", Description: "Branch id", Required: true},
				"phone":          {Type: "string", Description: "Phone number"},
				"email":          {Type: "string", Description: "Email address"},
				"company_name":   {Type: "string", Description: "Company name"},
				"customer_type":  {Type: "string", Description: "Customer type", Default: "individual"},
				"source_channel": {Type: "string", Description: "Acquisition channel", Default: "others"},
				"line_user_id":   {Type: "string", Description: "LINE user id"},
				"notes":          {Type: "string", Description: "Free-form notes"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.Create(ctx, customer.CreateInput{
					Name:          args.String("name"),
					BranchID:      args.Int("branch_id"),
					Phone:         args.String("phone"),
					Email:         args.String("email"),
					CompanyName:   args.String("company_name"),
					CustomerType:  args.String("customer_type"),
					SourceChannel: args.String("source_channel"),
					LineUserID:    args.String("line_user_id"),
					Notes:         args.String("notes"),
				})
			},
		},
		{
			Name:        "crm_update_customer",
			Description: "Update allow-listed customer fields",
			Params: map[string]registry.Param{
				"customer_id": {Type: "integer", Description: "Customer id", Required: true},
				"updates":     {Type: "object", Description: "Fields to update", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.Update(ctx, args.Int("customer_id"), args.Map("updates"))
			},
		},
		{
			Name:        "crm_record_payment",
			Description: "Record a completed payment",
			Params: map[string]registry.Param{
				"payment_id":     {Type: "integer", Description: "Payment id", Required: true},
				"payment_method": {Type: "string", Description: "Payment method (cash/transfer/credit_card/line_pay)", Required: true},
				"notes":          {Type: "string", Description: "Free-form notes"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.RecordPayment(ctx, args.Int("payment_id"), args.String("payment_method"), args.String("notes"))
			},
		},
		{
			Name:        "crm_create_contract",
			Description: "Create a draft contract directly",
			Params: map[string]registry.Param{
				"customer_id":    {Type: "integer", Description: "Customer id", Required: true},
				"branch_id":      {Type: "integer", Description: "Branch id", Required: true},
				"start_date":     {Type: "string", Description: "Start date (YYYY-MM-DD)", Required: true},
				"end_date":       {Type: "string", Description: "End date (YYYY-MM-DD)", Required: true},
				"monthly_rent":   {Type: "number", Description: "Monthly rent", Required: true},
				"contract_type":  {Type: "string", Description: "Contract type", Default: "virtual_office"},
				"deposit":        {Type: "number", Description: "Deposit amount"},
				"payment_cycle":  {Type: "string", Description: "Payment cycle", Default: "monthly"},
				"payment_day":    {Type: "integer", Description: "Payment day of month", Default: 5},
				"plan_name":      {Type: "string", Description: "Plan name"},
				"broker_name":    {Type: "string", Description: "Referring broker name"},
				"broker_firm_id": {Type: "integer", Description: "Referring broker firm id"},
				"notes":          {Type: "string", Description: "Free-form notes"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.CreateContract(ctx, customer.ContractInput{
					CustomerID:   args.Int("customer_id"),
					BranchID:     args.Int("branch_id"),
					StartDate:    args.String("start_date"),
					EndDate:      args.String("end_date"),
					MonthlyRent:  args.Float("monthly_rent"),
					ContractType: args.String("contract_type"),
					Deposit:      args.Float("deposit"),
					PaymentCycle: args.String("payment_cycle"),
					PaymentDay:   args.Int("payment_day"),
					PlanName:     args.String("plan_name"),
					BrokerName:   args.String("broker_name"),
					BrokerFirmID: args.Int("broker_firm_id"),
					Notes:        args.String("notes"),
				})
			},
		},
		{
			Name:        "crm_list_payments_due",
			Description: "List payments due with overdue totals",
			Params: map[string]registry.Param{
				"branch_id": {Type: "integer", Description: "Branch id"},
				"urgency":   {Type: "string", Description: "Urgency filter (critical/high/medium/upcoming/all)"},
				"limit":     {Type: "integer", Description: "Maximum rows returned", Default: 20},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.ListPaymentsDue(ctx, customer.PaymentsDueFilter{
					BranchID: args.Int("branch_id"),
					Urgency:  args.String("urgency"),
					Limit:    args.Int("limit"),
				})
			},
		},
		{
			Name:        "crm_list_renewals_due",
			Description: "List contracts approaching their end date",
			Params: map[string]registry.Param{
				"branch_id":  {Type: "integer", Description: "Branch id"},
				"days_ahead": {Type: "integer", Description: "Window in days", Default: 30},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.ListRenewalsDue(ctx, args.Int("branch_id"), args.Int("days_ahead"))
			},
		},
	}
}
