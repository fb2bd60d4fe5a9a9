package cmd

import (
	"github.com/spf13/cobra"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation API over HTTP",
	Long: `Serve starts the HTTP API:

  GET  /health                     liveness
  POST /validate-json              validate a JSON array of invoice records
  POST /extract-and-validate-pdfs  extract and validate uploaded documents (field "files")

The server shuts down gracefully on SIGINT or SIGTERM.`,
	Example: `  invoiceqc serve
  invoiceqc serve --addr :9000 --ocr-engine vision`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().Int64("max-upload-mb", 100, "Maximum size of an upload request in MB")
	addEngineFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	maxUploadMB, _ := cmd.Flags().GetInt64("max-upload-mb")
	c := effectiveConfig(cmd)
	if addr == "" {
		addr = c.HTTPAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	processor, closeText, err := newProcessor(ctx, c, log)
	if err != nil {
		return err
	}
	defer closeText()

	handler := server.NewHandler(
		invoice.NewValidator(c.ValidatorConfig()),
		processor,
		0,
		maxUploadMB*1024*1024,
	)

	srv := server.New(server.Options{
		Addr:           addr,
		AllowedOrigins: c.CORSAllowedOrigins,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
	}, handler)

	log.Info().
		Str("addr", addr).
		Str("engine", c.OCREngine).
		Strs("cors_origins", c.CORSAllowedOrigins).
		Msg("Starting HTTP server")

	return srv.Start(ctx)
}
