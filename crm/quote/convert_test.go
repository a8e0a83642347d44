package quote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

func acceptedQuoteRow() postgrest.Record {
	return postgrest.Record{
		"id":              float64(7),
		"quote_number":    "Q-2026-007",
		"branch_id":       float64(1),
		"status":          "accepted",
		"total_amount":    float64(900),
		"contract_months": float64(12),
		"deposit_amount":  float64(1000),
		"customer_name":   "Alice Chen",
		"customer_phone":  "0912345678",
		"plan_name":       "Virtual Office A",
	}
}

func TestConvertDerivesRentAndEndDate(t *testing.T) {
	t.Parallel()

	var createdFields map[string]any
	var claimQuery postgrest.Query
	var claimPatch map[string]any

	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			if collection != contract.ViewQuotes {
				t.Errorf("read collection = %q", collection)
			}
			return []postgrest.Record{acceptedQuoteRow()}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			createdFields = fields
			return postgrest.Record{"id": float64(42), "contract_number": "C-2026-042"}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			claimQuery = q
			claimPatch = fields
			return []postgrest.Record{{"id": float64(7)}}, nil
		},
	}
	svc := newTestService(t, gw)

	result, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	// 900 over 12 months, rounded.
	if createdFields["monthly_rent"] != 75.0 {
		t.Errorf("monthly_rent = %v, want 75", createdFields["monthly_rent"])
	}
	if createdFields["start_date"] != "2026-01-10" {
		t.Errorf("start_date = %v", createdFields["start_date"])
	}
	// 12 contract months of 30 days each.
	if createdFields["end_date"] != "2027-01-05" {
		t.Errorf("end_date = %v", createdFields["end_date"])
	}
	if createdFields["deposit"] != 1000.0 {
		t.Errorf("deposit = %v, want 1000", createdFields["deposit"])
	}
	if createdFields["status"] != "pending_sign" {
		t.Errorf("status = %v", createdFields["status"])
	}
	if createdFields["representative_name"] != "Alice Chen" {
		t.Errorf("representative_name = %v", createdFields["representative_name"])
	}
	if _, ok := createdFields["customer_id"]; ok {
		t.Error("customer_id must not be sent, linkage is resolved downstream")
	}
	if notes := createdFields["notes"]; notes != "converted from quote Q-2026-007" {
		t.Errorf("notes = %v", notes)
	}

	encoded := claimQuery.Encode()
	for _, fragment := range []string{"id=eq.7", "status=eq.accepted", "converted_contract_id=is.null"} {
		if !strings.Contains(encoded, fragment) {
			t.Errorf("claim query %q missing %q", encoded, fragment)
		}
	}
	if claimPatch["converted_contract_id"] != 42 {
		t.Errorf("claim patch = %v", claimPatch)
	}

	if result.Contract.ID != 42 || result.Contract.MonthlyRent != 75 {
		t.Errorf("result contract = %+v", result.Contract)
	}
	if result.QuoteNumber != "Q-2026-007" {
		t.Errorf("quote number = %q", result.QuoteNumber)
	}
}

func TestConvertZeroMonthsKeepsTotalAsRent(t *testing.T) {
	t.Parallel()

	var createdFields map[string]any
	row := acceptedQuoteRow()
	row["contract_months"] = float64(0)
	row["total_amount"] = float64(1234.56)

	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{row}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			createdFields = fields
			return postgrest.Record{"id": float64(43)}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			return []postgrest.Record{{"id": float64(7)}}, nil
		},
	}
	svc := newTestService(t, gw)

	if _, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	// No term to divide by: the quote total passes through unrounded, while
	// the end date still uses the default term.
	if createdFields["monthly_rent"] != 1234.56 {
		t.Errorf("monthly_rent = %v, want 1234.56", createdFields["monthly_rent"])
	}
	if createdFields["end_date"] != "2027-01-05" {
		t.Errorf("end_date = %v", createdFields["end_date"])
	}
}

func TestConvertOverrides(t *testing.T) {
	t.Parallel()

	var createdFields map[string]any
	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{acceptedQuoteRow()}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			createdFields = fields
			return postgrest.Record{"id": float64(44)}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			return []postgrest.Record{{"id": float64(7)}}, nil
		},
	}
	svc := newTestService(t, gw)

	rent := 80.0
	deposit := 500.0
	_, err := svc.Convert(context.Background(), ConvertInput{
		QuoteID:       7,
		StartDate:     "2026-03-01",
		EndDate:       "2027-03-01",
		MonthlyRent:   &rent,
		DepositAmount: &deposit,
		CompanyName:   "Acme Ltd.",
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if createdFields["monthly_rent"] != 80.0 {
		t.Errorf("monthly_rent = %v, want override 80", createdFields["monthly_rent"])
	}
	if createdFields["deposit"] != 500.0 {
		t.Errorf("deposit = %v, want override 500", createdFields["deposit"])
	}
	if createdFields["start_date"] != "2026-03-01" || createdFields["end_date"] != "2027-03-01" {
		t.Errorf("dates = %v / %v", createdFields["start_date"], createdFields["end_date"])
	}
	if createdFields["company_name"] != "Acme Ltd." {
		t.Errorf("company_name = %v", createdFields["company_name"])
	}
}

func TestConvertRequiresAcceptedStatus(t *testing.T) {
	t.Parallel()

	row := acceptedQuoteRow()
	row["status"] = "sent"
	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{row}, nil
		},
	}
	svc := newTestService(t, gw)

	_, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7})
	if !errors.Is(err, contract.ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
}

func TestConvertAlreadyConverted(t *testing.T) {
	t.Parallel()

	row := acceptedQuoteRow()
	row["converted_contract_id"] = float64(99)
	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{row}, nil
		},
	}
	svc := newTestService(t, gw)

	_, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7})
	if !errors.Is(err, contract.ErrAlreadyConverted) {
		t.Fatalf("error = %v, want ErrAlreadyConverted", err)
	}
}

func TestConvertLosesClaim(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{acceptedQuoteRow()}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			return postgrest.Record{"id": float64(45)}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			// Another conversion won the conditional update.
			return nil, nil
		},
	}
	svc := newTestService(t, gw)

	_, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7})
	if !errors.Is(err, contract.ErrAlreadyConverted) {
		t.Fatalf("error = %v, want ErrAlreadyConverted", err)
	}
	if !strings.Contains(err.Error(), "45") {
		t.Fatalf("error %q should name the orphan contract id", err)
	}
}

func TestConvertFinalizeRetriesOnce(t *testing.T) {
	t.Parallel()

	attempts := 0
	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{acceptedQuoteRow()}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			return postgrest.Record{"id": float64(46)}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("gateway timeout")
			}
			return []postgrest.Record{{"id": float64(7)}}, nil
		},
	}
	svc := newTestService(t, gw)

	if _, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if attempts != 2 {
		t.Fatalf("finalize attempts = %d, want 2", attempts)
	}
}

func TestConvertFinalizeFailureNamesContract(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		get: func(collection string, q postgrest.Query) ([]postgrest.Record, error) {
			return []postgrest.Record{acceptedQuoteRow()}, nil
		},
		create: func(collection string, fields map[string]any) (postgrest.Record, error) {
			return postgrest.Record{"id": float64(47)}, nil
		},
		update: func(collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error) {
			return nil, errors.New("gateway down")
		},
	}
	svc := newTestService(t, gw)

	_, err := svc.Convert(context.Background(), ConvertInput{QuoteID: 7})
	if err == nil {
		t.Fatal("Convert() should fail when the finalize patch cannot land")
	}
	if !strings.Contains(err.Error(), "contract 47") {
		t.Fatalf("error %q should carry the orphan contract id", err)
	}
}

func TestDeriveMonthlyRent(t *testing.T) {
	t.Parallel()

	override := 120.0
	cases := []struct {
		name     string
		override *float64
		total    float64
		months   int
		want     float64
	}{
		{"override wins", &override, 900, 12, 120},
		{"rounded division", nil, 900, 12, 75},
		{"rounds half up", nil, 1000, 3, 333},
		{"zero months passes total", nil, 1234.56, 0, 1234.56},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := deriveMonthlyRent(tc.override, tc.total, tc.months); got != tc.want {
				t.Fatalf("deriveMonthlyRent() = %v, want %v", got, tc.want)
			}
		})
	}
}
