package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnknownTool is the only failure Invoke surfaces as an error; everything
// a handler raises is folded into the result envelope instead.
var ErrUnknownTool = errors.New("unknown tool")

// Param describes one declared tool parameter.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

type Handler func(ctx context.Context, args Args) (any, error)

type Tool struct {
	Name        string
	Description string
	Params      map[string]Param
	Handler     Handler
}

// Registry is a pure dispatch table: it resolves tool names, applies declared
// defaults, and normalizes handler outcomes into uniform envelopes.
type Registry struct {
	tools map[string]Tool
	order []string
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   log,
	}
}

func (r *Registry) Register(tool Tool) error {
	name := strings.TrimSpace(tool.Name)
	if name == "" {
		return errors.New("tool name is empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s is already registered", name)
	}

	tool.Name = name
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Result is the uniform invocation envelope.
type Result struct {
	Success bool   `json:"success"`
	Tool    string `json:"tool"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Invoke dispatches to the named handler. Handler errors never propagate;
// they come back as a failure envelope.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (Result, error) {
	tool, ok := r.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	invocationID := uuid.NewString()
	merged := r.applyDefaults(tool, args)

	out, err := tool.Handler(ctx, merged)
	if err != nil {
		r.log.Warn().
			Str("tool", name).
			Str("invocation_id", invocationID).
			Err(err).
			Msg("tool invocation failed")
		return Result{Success: false, Tool: name, Error: err.Error()}, nil
	}

	r.log.Debug().
		Str("tool", name).
		Str("invocation_id", invocationID).
		Msg("tool invocation succeeded")
	return Result{Success: true, Tool: name, Result: out}, nil
}

func (r *Registry) applyDefaults(tool Tool, args map[string]any) Args {
	merged := make(Args, len(args)+len(tool.Params))
	for k, v := range args {
		merged[k] = v
	}
	for name, param := range tool.Params {
		if param.Default == nil {
			continue
		}
		if v, ok := merged[name]; !ok || v == nil {
			merged[name] = param.Default
		}
	}
	return merged
}

// CatalogEntry is the flat discovery surface.
type CatalogEntry struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  map[string]Param `json:"parameters"`
}

func (r *Registry) Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		entries = append(entries, CatalogEntry{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Params,
		})
	}
	return entries
}

// MCPTool is the JSON-Schema-style discovery surface.
type MCPTool struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InputSchema MCPSchema `json:"inputSchema"`
}

type MCPSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]MCPProperty `json:"properties"`
	Required   []string               `json:"required"`
}

type MCPProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (r *Registry) MCPTools() []MCPTool {
	tools := make([]MCPTool, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		schema := MCPSchema{
			Type:       "object",
			Properties: make(map[string]MCPProperty, len(tool.Params)),
			Required:   []string{},
		}
		for paramName, param := range tool.Params {
			schema.Properties[paramName] = MCPProperty{
				Type:        param.Type,
				Description: param.Description,
			}
			if param.Required {
				schema.Required = append(schema.Required, paramName)
			}
		}
		tools = append(tools, MCPTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return tools
}

// ContentBlock and MCPResult form the content-block invocation envelope.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type MCPResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

func (r *Registry) InvokeMCP(ctx context.Context, name string, args map[string]any) MCPResult {
	result, err := r.Invoke(ctx, name, args)
	if err != nil {
		return MCPResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
			IsError: true,
		}
	}
	if !result.Success {
		return MCPResult{
			Content: []ContentBlock{{Type: "text", Text: "Error: " + result.Error}},
			IsError: true,
		}
	}

	text, err := json.Marshal(result.Result)
	if err != nil {
		return MCPResult{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: encode result: %v", err)}},
			IsError: true,
		}
	}
	return MCPResult{
		Content: []ContentBlock{{Type: "text", Text: string(text)}},
		IsError: false,
	}
}
