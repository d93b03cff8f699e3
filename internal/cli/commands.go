package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"NoiseGate/internal/app"
	"NoiseGate/internal/usecase"
)

var flagPreviewURL string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify pending items once and print the run summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		trigger := map[string]string{"source": "cli", "time": time.Now().UTC().Format(time.RFC3339)}
		return printJSON(cmd.OutOrStdout(), application.Classify(cmd.Context(), trigger))
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch all configured feeds and store new items",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		return printJSON(cmd.OutOrStdout(), application.Ingest(cmd.Context()))
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview [url]",
	Short: "Fetch and parse a feed without storing it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		req := usecase.PreviewRequest{FeedURL: flagPreviewURL}
		if len(args) == 1 {
			req.URL = args[0]
		}

		resp := app.NewPreviewer(cfg, logger).Preview(cmd.Context(), req)
		if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("preview failed: %s", resp.Error)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest and classify on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.RunScheduled(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the preview and classification HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(cmd.Context())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item and story group counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		application, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()

		stats, err := application.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	previewCmd.Flags().StringVar(&flagPreviewURL, "url", "", "feed URL to preview")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
