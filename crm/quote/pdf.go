package quote

import (
	"context"
	"fmt"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

const quoteTemplate = "quote"

// PDFPayload is the structured document payload handed to the renderer for
// the quote template.
type PDFPayload struct {
	QuoteID       int                  `json:"quote_id"`
	QuoteNumber   string               `json:"quote_number"`
	QuoteDate     string               `json:"quote_date"`
	ValidUntil    string               `json:"valid_until"`
	BranchName    string               `json:"branch_name"`
	SectionTitle  string               `json:"section_title"`
	Items         []contract.QuoteItem `json:"items"`
	DepositAmount float64              `json:"deposit_amount"`
	TotalAmount   float64              `json:"total_amount"`
	BranchInfo
}

type PDFResult struct {
	Message     string `json:"message"`
	QuoteNumber string `json:"quote_number"`
	PDFURL      string `json:"pdf_url"`
	PDFPath     string `json:"pdf_path"`
	ExpiresAt   string `json:"expires_at"`
}

// GeneratePDF assembles the document payload for a quote and asks the
// renderer for a signed URL.
func (s *Service) GeneratePDF(ctx context.Context, quoteID int) (*PDFResult, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("%w: document renderer", contract.ErrNotConfigured)
	}

	rows, err := s.gw.Get(ctx, contract.ViewQuotes, postgrest.NewQuery().Eq("id", quoteID))
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

	items, err := q.DecodeItems()
	if err != nil {
		return nil, fmt.Errorf("decode quote items: %w", err)
	}
	if items == nil {
		items = []contract.QuoteItem{}
	}

	branchName := s.branchName(ctx, q.BranchID)

	sectionTitle := ""
	if q.PlanName != "" {
		sectionTitle = q.PlanName + " (billed per the payment schedule in the contract)"
	}

	quoteDate := q.ValidFrom
	if quoteDate == "" {
		quoteDate = s.now().Format(dateLayout)
	}

	payload := PDFPayload{
		QuoteID:       q.ID,
		QuoteNumber:   fallback(q.QuoteNumber, fmt.Sprintf("Q-%d", q.ID)),
		QuoteDate:     quoteDate,
		ValidUntil:    q.ValidUntil,
		BranchName:    branchName,
		SectionTitle:  sectionTitle,
		Items:         items,
		DepositAmount: q.DepositAmount,
		TotalAmount:   q.TotalAmount + q.DepositAmount,
		BranchInfo:    s.branches.Lookup(q.BranchID),
	}

	doc, err := s.renderer.Render(ctx, quoteTemplate, payload)
	if err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}

	s.log.Info().Int("quote_id", quoteID).Str("pdf_path", doc.Path).Msg("quote pdf generated")

	return &PDFResult{
		Message:     fallback(doc.Message, "quote pdf generated"),
		QuoteNumber: payload.QuoteNumber,
		PDFURL:      doc.URL,
		PDFPath:     doc.Path,
		ExpiresAt:   doc.ExpiresAt,
	}, nil
}

func (s *Service) branchName(ctx context.Context, branchID int) string {
	rows, err := s.gw.Get(ctx, contract.CollectionBranches, postgrest.NewQuery().Eq("id", branchID))
	if err != nil || len(rows) == 0 {
		return ""
	}
	return rows[0].String("name")
}
