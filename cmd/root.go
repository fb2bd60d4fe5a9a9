package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoiceqc/internal/config"
	"invoiceqc/internal/logger"
)

var version = "1.0.0"

// Exit codes returned by Execute.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitInvalid = 2
)

// cfg is set by Execute before any command runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "invoiceqc",
	Short: "Invoice QC - extract invoice fields from documents and validate them",
	Long: `Invoice QC reads invoice documents (PDF or plain text), extracts the
invoice fields and line items, and validates every record against
completeness, format, arithmetic and duplicate rules.

Commands exit with status 2 when at least one invoice is invalid, so the
tool can gate a pipeline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExitCodeError carries a process exit code through cobra's error return.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// errInvalidInvoices signals a completed run that found invalid invoices.
var errInvalidInvoices = errors.New("invalid invoices found")

// Execute runs the root command with c and returns the process exit code.
func Execute(c *config.Config) int {
	log := logger.WithComponent("cmd")

	if c != nil {
		cfg = c
	}

	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		log.Debug().Int("code", exitErr.Code).Err(exitErr.Err).Msg("Command finished with exit code")
		return exitErr.Code
	}

	log.Error().
		Err(err).
		Msg("Command execution failed")
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitError
}
