package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"permguard-lab/internal/config"
	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
	"permguard-lab/internal/inventory"
	"permguard-lab/internal/streaming"
	"permguard-lab/pkg/logger"
)

var (
	scanInventory string
	scanSample    bool
	scanOut       string
	scanFormat    string
	scanSend      string
)

func init() {
	scanCmd.Flags().StringVarP(&scanInventory, "inventory", "i", "", "inventory file (.json, .yaml, .yml)")
	scanCmd.Flags().BoolVar(&scanSample, "sample", false, "scan the built-in sample inventory")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "write the report to a file instead of stdout")
	scanCmd.Flags().StringVar(&scanFormat, "format", "json", "report format: json, yaml or table")
	scanCmd.Flags().StringVar(&scanSend, "send", "", "transmit the report to this endpoint (overrides transmit.endpoint)")
	scanCmd.MarkFlagsMutuallyExclusive("inventory", "sample")
	scanCmd.MarkFlagsOneRequired("inventory", "sample")
	cobra.CheckErr(scanCmd.MarkFlagFilename("inventory", "json", "yaml", "yml"))

	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score an app inventory and write the privacy report",
	Long: `Scores every app in an inventory file (or the built-in sample) and
writes the assembled report. With --send, or transmit.endpoint in the
config, the report is also POSTed to the lab endpoint.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	switch scanFormat {
	case "json", "yaml", "table":
	default:
		return fmt.Errorf("unsupported format %q (want json, yaml or table)", scanFormat)
	}

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var source services.AppSource = inventory.NewSampleSource()
	if scanInventory != "" {
		fileSource, err := inventory.NewFileSource(scanInventory)
		if err != nil {
			return err
		}
		source = fileSource
	}

	var publisher services.ReportPublisher
	if cfg.NATS.Enabled {
		natsPublisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, report event not published")
		} else {
			bus := streaming.NewEventBus(natsPublisher, log)
			defer bus.Close()
			publisher = streaming.NewEventBusPublisher(bus, nil)
		}
	}

	scan := services.NewScanService(services.ScanServiceConfig{}, nil, nil, nil, publisher, log)
	generated, err := scan.Scan(ctx, source)
	if err != nil {
		return err
	}

	if err := writeReport(cmd, generated.Report); err != nil {
		return err
	}

	endpoint := cfg.Transmit.Endpoint
	if scanSend != "" {
		endpoint = scanSend
	}
	if endpoint == "" {
		return nil
	}

	result, err := newTransmitter(cfg.Transmit, endpoint, log).Send(ctx, generated.Report)
	if err != nil {
		return fmt.Errorf("failed to transmit report: %w", err)
	}
	log.Info().
		Str("report_id", generated.ID).
		Str("endpoint", result.Endpoint).
		Int("status", result.StatusCode).
		Int("attempts", result.Attempts).
		Msg("report transmitted")
	return nil
}

func newTransmitter(cfg config.TransmitConfig, endpoint string, log *logger.Logger) *services.Transmitter {
	return services.NewTransmitter(services.TransmitterConfig{
		Endpoint:   endpoint,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Headers:    cfg.Headers,
	}, log)
}

func writeReport(cmd *cobra.Command, report *models.Report) error {
	out := cmd.OutOrStdout()
	if scanOut != "" {
		f, err := os.Create(scanOut)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return encodeReport(out, report, scanFormat)
}

func encodeReport(w io.Writer, report *models.Report, format string) error {
	if format == "table" {
		return writeReportTable(w, report)
	}
	if format == "yaml" {
		// round trip through JSON so keys keep their wire names
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
