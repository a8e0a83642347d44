// Package server exposes the tool registry and a few direct data views over
// HTTP: a flat catalog surface, the content-block protocol surface, and thin
// read endpoints for the web frontend.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
)

const (
	serviceName     = "crm-mcp"
	serviceVersion  = "1.0.0"
	protocolVersion = "2024-11-05"
)

type Config struct {
	Host         string   `envconfig:"HOST" default:"0.0.0.0"`
	Port         int      `envconfig:"PORT" default:"8000"`
	JWTSecret    string   `envconfig:"JWT_SECRET" split_words:"true"`
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" split_words:"true" default:"*"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type Handler struct {
	registry *registry.Registry
	gw       contract.DataGateway
	log      zerolog.Logger
}

func NewHandler(reg *registry.Registry, gw contract.DataGateway, log zerolog.Logger) *Handler {
	return &Handler{registry: reg, gw: gw, log: log}
}

// NewRouter wires all routes. The /api group is guarded by a bearer token
// only when a JWT secret is configured.
func NewRouter(h *Handler, cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/health", h.health)
	router.GET("/tools", h.listTools)
	router.POST("/tools/call", h.callTool)

	mcp := router.Group("/mcp")
	mcp.POST("/initialize", h.mcpInitialize)
	mcp.POST("/tools/list", h.mcpListTools)
	mcp.POST("/tools/call", h.mcpCallTool)

	api := router.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(BearerAuth(cfg.JWTSecret))
	}
	api.GET("/customers", h.apiCustomers)
	api.GET("/payments/due", h.apiPaymentsDue)
	api.GET("/today-tasks", h.apiTodayTasks)

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (h *Handler) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.registry.Catalog()})
}

type toolCallRequest struct {
	Tool       string         `json:"tool" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

func (h *Handler) callTool(c *gin.Context) {
	var req toolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.registry.Invoke(c.Request.Context(), req.Tool, req.Parameters)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownTool) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("tool", req.Tool).Msg("tool call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) mcpInitialize(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"protocolVersion": protocolVersion,
		"serverInfo": gin.H{
			"name":    "hourjungle-crm",
			"version": serviceVersion,
		},
		"capabilities": gin.H{
			"tools": gin.H{},
		},
	})
}

func (h *Handler) mcpListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.registry.MCPTools()})
}

type mcpCallRequest struct {
	Name      string         `json:"name" binding:"required"`
	Arguments map[string]any `json:"arguments"`
}

func (h *Handler) mcpCallTool(c *gin.Context) {
	var req mcpCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.registry.InvokeMCP(c.Request.Context(), req.Name, req.Arguments))
}

func (h *Handler) apiCustomers(c *gin.Context) {
	q := postgrest.NewQuery().
		Limit(intQuery(c, "limit", 50)).
		Offset(intQuery(c, "offset", 0))
	if branchID := intQuery(c, "branch_id", 0); branchID != 0 {
		q = q.Eq("branch_id", branchID)
	}
	if status := c.Query("status"); status != "" {
		q = q.Eq("status", status)
	}
	h.passthrough(c, contract.ViewCustomerSummary, q)
}

func (h *Handler) apiPaymentsDue(c *gin.Context) {
	q := postgrest.NewQuery()
	if branchID := intQuery(c, "branch_id", 0); branchID != 0 {
		q = q.Eq("branch_id", branchID)
	}
	if urgency := c.Query("urgency"); urgency != "" && urgency != "all" {
		q = q.Eq("urgency", urgency)
	}
	h.passthrough(c, contract.ViewPaymentsDue, q)
}

func (h *Handler) apiTodayTasks(c *gin.Context) {
	q := postgrest.NewQuery()
	if branchID := intQuery(c, "branch_id", 0); branchID != 0 {
		q = q.Eq("branch_id", branchID)
	}
	h.passthrough(c, contract.ViewTodayTasks, q)
}

func (h *Handler) passthrough(c *gin.Context, view string, q postgrest.Query) {
	rows, err := h.gw.Get(c.Request.Context(), view, q)
	if err != nil {
		h.log.Error().Err(err).Str("view", view).Msg("view read failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "data gateway error"})
		return
	}
	if rows == nil {
		rows = []postgrest.Record{}
	}
	c.JSON(http.StatusOK, rows)
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return def
	}
	return v
}
