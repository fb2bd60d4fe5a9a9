package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"invoiceqc/internal/invoice"
	"invoiceqc/internal/logger"
	"invoiceqc/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run full-run whenever documents in a folder change",
	Long: `Watch runs full-run once, then watches the folder and re-runs it after
documents are added or rewritten. Bursts of changes are coalesced by the
debounce interval. Stop with Ctrl+C.`,
	Example: `  invoiceqc watch --pdf-dir ./inbox --report report.json --xlsx report.xlsx`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("pdf-dir", "", "Folder containing invoice documents (required)")
	_ = watchCmd.MarkFlagRequired("pdf-dir")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a re-run")
	addEngineFlags(watchCmd)
	addOutputFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("watch")

	pdfDir, _ := cmd.Flags().GetString("pdf-dir")
	debounce, _ := cmd.Flags().GetDuration("debounce")
	opts := readOutputFlags(cmd)
	c := effectiveConfig(cmd)

	if err := requireDir(pdfDir); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	processor, closeText, err := newProcessor(ctx, c, log)
	if err != nil {
		return err
	}
	defer closeText()

	validator := invoice.NewValidator(c.ValidatorConfig())
	out := cmd.OutOrStdout()

	w := watch.New(watch.Config{
		Dir:        pdfDir,
		Debounce:   debounce,
		RunOnStart: true,
	}, func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			log.Info().Strs("changed", changed).Msg("Documents changed, re-running")
		}
		summary, err := fullRun(ctx, processor, validator, pdfDir, opts, c, log)
		if err != nil {
			return err
		}
		printRun(out, opts.reportPath, summary)
		log.Info().Msg("Waiting for changes")
		return nil
	})

	return w.Run(ctx)
}
