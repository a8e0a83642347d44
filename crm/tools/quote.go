package tools

import (
	"context"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/crm/quote"
	"github.com/hourjungle/crm-mcp/crm/registry"
)

func quoteTools(svc *quote.Service) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "quote_create",
			Description: "Create a draft quote with computed totals",
			Params: map[string]registry.Param{
				"branch_id":           {Type: "integer", Description: "Branch id", Required: true},
				"items":               {Type: "array", Description: "Line items [{name, quantity, unit_price, amount}]", Required: true},
				"customer_id":         {Type: "integer", Description: "Existing customer id"},
				"customer_name":       {Type: "string", Description: "Customer name"},
				"customer_phone":      {Type: "string", Description: "Customer phone"},
				"customer_email":      {Type: "string", Description: "Customer email"},
				"company_name":        {Type: "string", Description: "Company name"},
				"contract_type":       {Type: "string", Description: "Contract type", Default: "virtual_office"},
				"plan_name":           {Type: "string", Description: "Plan name"},
				"contract_months":     {Type: "integer", Description: "Contract term in months", Default: 12},
				"proposed_start_date": {Type: "string", Description: "Proposed start date (YYYY-MM-DD)"},
				"discount_amount":     {Type: "number", Description: "Discount amount"},
				"discount_note":       {Type: "string", Description: "Discount note"},
				"deposit_amount":      {Type: "number", Description: "Deposit amount"},
				"valid_days":          {Type: "integer", Description: "Validity window in days", Default: 30},
				"internal_notes":      {Type: "string", Description: "Internal notes"},
				"customer_notes":      {Type: "string", Description: "Notes shown to the customer"},
				"created_by":          {Type: "string", Description: "Author"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				items, err := registry.DecodeList[contract.QuoteItem](args, "items")
				if err != nil {
					return nil, err
				}
				return svc.Create(ctx, quote.CreateInput{
					BranchID:          args.Int("branch_id"),
					CustomerID:        args.Int("customer_id"),
					CustomerName:      args.String("customer_name"),
					CustomerPhone:     args.String("customer_phone"),
					CustomerEmail:     args.String("customer_email"),
					CompanyName:       args.String("company_name"),
					ContractType:      args.String("contract_type"),
					PlanName:          args.String("plan_name"),
					ContractMonths:    args.Int("contract_months"),
					ProposedStartDate: args.String("proposed_start_date"),
					Items:             items,
					DiscountAmount:    args.Float("discount_amount"),
					DiscountNote:      args.String("discount_note"),
					DepositAmount:     args.Float("deposit_amount"),
					ValidDays:         args.Int("valid_days"),
					InternalNotes:     args.String("internal_notes"),
					CustomerNotes:     args.String("customer_notes"),
					CreatedBy:         args.String("created_by"),
				})
			},
		},
		{
			Name:        "quote_update",
			Description: "Update allow-listed quote fields, recomputing totals when items change",
			Params: map[string]registry.Param{
				"quote_id": {Type: "integer", Description: "Quote id", Required: true},
				"updates":  {Type: "object", Description: "Fields to update", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.Update(ctx, args.Int("quote_id"), args.Map("updates"))
			},
		},
		{
			Name:        "quote_get",
			Description: "Get one quote",
			Params: map[string]registry.Param{
				"quote_id": {Type: "integer", Description: "Quote id", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.Get(ctx, args.Int("quote_id"))
			},
		},
		{
			Name:        "quote_list",
			Description: "List quotes with status statistics",
			Params: map[string]registry.Param{
				"branch_id":   {Type: "integer", Description: "Branch id"},
				"status":      {Type: "string", Description: "Status filter"},
				"customer_id": {Type: "integer", Description: "Customer id"},
				"limit":       {Type: "integer", Description: "Maximum rows returned", Default: 50},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.List(ctx, quote.ListFilter{
					BranchID:   args.Int("branch_id"),
					Status:     args.String("status"),
					CustomerID: args.Int("customer_id"),
					Limit:      args.Int("limit"),
				})
			},
		},
		{
			Name:        "quote_update_status",
			Description: "Set a quote status, stamping the lifecycle timestamp",
			Params: map[string]registry.Param{
				"quote_id": {Type: "integer", Description: "Quote id", Required: true},
				"status":   {Type: "string", Description: "Target status (draft/sent/viewed/accepted/rejected/expired)", Required: true},
				"notes":    {Type: "string", Description: "Internal notes"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.SetStatus(ctx, args.Int("quote_id"), args.String("status"), args.String("notes"))
			},
		},
		{
			Name:        "quote_delete",
			Description: "Delete a draft quote",
			Params: map[string]registry.Param{
				"quote_id": {Type: "integer", Description: "Quote id", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				number, err := svc.Delete(ctx, args.Int("quote_id"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"message": "quote deleted", "quote_number": number}, nil
			},
		},
		{
			Name:        "quote_convert_to_contract",
			Description: "Convert an accepted quote into a pending_sign contract",
			Params: map[string]registry.Param{
				"quote_id":               {Type: "integer", Description: "Quote id", Required: true},
				"start_date":             {Type: "string", Description: "Contract start date (YYYY-MM-DD)"},
				"end_date":               {Type: "string", Description: "Contract end date (YYYY-MM-DD)"},
				"payment_cycle":          {Type: "string", Description: "Payment cycle", Default: "monthly"},
				"payment_day":            {Type: "integer", Description: "Payment day of month", Default: 5},
				"company_name":           {Type: "string", Description: "Company name override"},
				"representative_name":    {Type: "string", Description: "Representative name override"},
				"representative_address": {Type: "string", Description: "Representative address"},
				"id_number":              {Type: "string", Description: "Representative id number"},
				"company_tax_id":         {Type: "string", Description: "Company tax id"},
				"phone":                  {Type: "string", Description: "Phone override"},
				"email":                  {Type: "string", Description: "Email override"},
				"original_price":         {Type: "number", Description: "Original list price"},
				"monthly_rent":           {Type: "number", Description: "Monthly rent override"},
				"deposit_amount":         {Type: "number", Description: "Deposit override"},
				"notes":                  {Type: "string", Description: "Contract notes"},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				in := quote.ConvertInput{
					QuoteID:               args.Int("quote_id"),
					StartDate:             args.String("start_date"),
					EndDate:               args.String("end_date"),
					PaymentCycle:          args.String("payment_cycle"),
					PaymentDay:            args.Int("payment_day"),
					CompanyName:           args.String("company_name"),
					RepresentativeName:    args.String("representative_name"),
					RepresentativeAddress: args.String("representative_address"),
					IDNumber:              args.String("id_number"),
					CompanyTaxID:          args.String("company_tax_id"),
					Phone:                 args.String("phone"),
					Email:                 args.String("email"),
					Notes:                 args.String("notes"),
				}
				if args.Has("original_price") {
					v := args.Float("original_price")
					in.OriginalPrice = &v
				}
				if args.Has("monthly_rent") {
					v := args.Float("monthly_rent")
					in.MonthlyRent = &v
				}
				if args.Has("deposit_amount") {
					v := args.Float("deposit_amount")
					in.DepositAmount = &v
				}
				return svc.Convert(ctx, in)
			},
		},
		{
			Name:        "quote_generate_pdf",
			Description: "Render the quote document and return a signed URL",
			Params: map[string]registry.Param{
				"quote_id": {Type: "integer", Description: "Quote id", Required: true},
			},
			Handler: func(ctx context.Context, args registry.Args) (any, error) {
				return svc.GeneratePDF(ctx, args.Int("quote_id"))
			},
		},
	}
}
