package main

import (
	"os"

	"github.com/hourjungle/crm-mcp/crm/contract"
	"github.com/hourjungle/crm-mcp/crm/customer"
	"github.com/hourjungle/crm-mcp/crm/quote"
	"github.com/hourjungle/crm-mcp/crm/registry"
	"github.com/hourjungle/crm-mcp/crm/reminder"
	"github.com/hourjungle/crm-mcp/crm/report"
	"github.com/hourjungle/crm-mcp/crm/tools"
	"github.com/hourjungle/crm-mcp/pkg/config"
	"github.com/hourjungle/crm-mcp/pkg/lineapi"
	logx "github.com/hourjungle/crm-mcp/pkg/logger"
	"github.com/hourjungle/crm-mcp/pkg/pdfgen"
	"github.com/hourjungle/crm-mcp/pkg/postgrest"
	"github.com/hourjungle/crm-mcp/server"
)

func main() {
	logConf := config.MustNew[logx.Config]("LOG")
	logx.Init(*logConf)
	log := logx.Component("main")

	gatewayConf := config.MustNew[postgrest.Config]("POSTGREST")
	gateway, err := postgrest.NewClient(*gatewayConf)
	if err != nil {
		log.Fatal().Err(err).Msg("data gateway init failed")
	}

	lineConf := config.MustNew[lineapi.Config]("LINE")
	messenger := lineapi.NewClient(*lineConf)
	if lineConf.ChannelAccessToken == "" {
		log.Warn().Msg("line channel access token not set, pushes will fail")
	}

	var renderer *pdfgen.Client
	pdfConf, err := config.New[pdfgen.Config]("PDF_GENERATOR")
	if err != nil || pdfConf.URL == "" {
		log.Warn().Msg("pdf generator not configured, quote pdf tool disabled")
	} else {
		renderer, err = pdfgen.NewClient(*pdfConf)
		if err != nil {
			log.Fatal().Err(err).Msg("pdf generator init failed")
		}
	}

	branchConf := config.MustNew[quote.BranchConfig]("BRANCH")
	branches := quote.DirectoryFromConfig(*branchConf)

	quotes, err := quote.NewService(gateway, rendererOrNil(renderer), branches, logx.Component("quote"))
	if err != nil {
		log.Fatal().Err(err).Msg("quote service init failed")
	}
	customers, err := customer.NewService(gateway, logx.Component("customer"))
	if err != nil {
		log.Fatal().Err(err).Msg("customer service init failed")
	}
	reminders, err := reminder.NewService(gateway, messenger, logx.Component("reminder"))
	if err != nil {
		log.Fatal().Err(err).Msg("reminder service init failed")
	}

	var reports *report.Store
	reportConf := config.MustNew[report.Config]("REPORT")
	if reportConf.DSN == "" {
		log.Warn().Msg("report dsn not set, report tools disabled")
	} else {
		reports, err = report.NewStore(*reportConf, logx.Component("report"))
		if err != nil {
			log.Fatal().Err(err).Msg("report store init failed")
		}
		defer reports.Close()
	}

	reg := registry.New(logx.Component("registry"))
	tools.Register(reg, tools.Deps{
		Customers: customers,
		Quotes:    quotes,
		Reminders: reminders,
		Reports:   reports,
	})

	serverConf := config.MustNew[server.Config]("SERVER")
	handler := server.NewHandler(reg, gateway, logx.Component("server"))
	router := server.NewRouter(handler, *serverConf)

	log.Info().Str("addr", serverConf.Addr()).Int("tools", len(reg.Catalog())).Msg("crm tool server starting")
	if err := router.Run(serverConf.Addr()); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// rendererOrNil keeps the renderer interface value nil when no client exists,
// so the service's not-configured check works.
func rendererOrNil(client *pdfgen.Client) contract.DocumentRenderer {
	if client == nil {
		return nil
	}
	return client
}
