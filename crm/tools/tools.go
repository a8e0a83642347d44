// Package tools binds the business services into the tool registry: every
// entry declares its parameter schema and adapts raw arguments into typed
// service calls.
package tools

import (
	"github.com/hourjungle/crm-mcp/crm/customer"
	"github.com/hourjungle/crm-mcp/crm/quote"
	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/crm/reminder"
	"github.com/hourjungle/crm-mcp/crm/report"
)

type Deps struct {
	Customers *customer.Service
	Quotes    *quote.Service
	Reminders *reminder.Service

	// Reports is optional; report tools are skipped when it is nil.
	Reports *report.Store
}

// Register installs the full catalog on the registry.
func Register(reg *registry.Registry, deps Deps) {
	reg.MustRegister(customerTools(deps.Customers)...)
	reg.MustRegister(quoteTools(deps.Quotes)...)
	reg.MustRegister(reminderTools(deps.Reminders)...)
	if deps.Reports != nil {
		reg.MustRegister(reportTools(deps.Reports)...)
	}
}
