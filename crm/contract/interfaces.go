package contract

import (
	"context"

	"github.com/hourjungle/crm-mcp/pkg/lineapi"
	"github.com/hourjungle/crm-mcp/pkg/pdfgen"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

// DataGateway is the filtered read/write contract against named record
// collections. Update returns the patched records; an empty slice means the
// filter matched nothing.
type DataGateway interface {
	Get(ctx context.Context, collection string, q postgrest.Query) ([]postgrest.Record, error)
	Create(ctx context.Context, collection string, fields map[string]any) (postgrest.Record, error)
	Update(ctx context.Context, collection string, q postgrest.Query, fields map[string]any) ([]postgrest.Record, error)
	Delete(ctx context.Context, collection string, q postgrest.Query) error
}

// Messenger delivers content blocks to one end-user address.
type Messenger interface {
	Push(ctx context.Context, to string, messages []lineapi.Message) error
}

// DocumentRenderer turns a structured payload into a durable, time-limited
// document reference.
type DocumentRenderer interface {
	Render(ctx context.Context, template string, payload any) (*pdfgen.Document, error)
}
