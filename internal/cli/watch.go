package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/streaming"
)

var (
	watchMinRisk string
	watchTypes   []string
)

func init() {
	watchCmd.Flags().StringVar(&watchMinRisk, "min-risk", "", "only show reports whose riskiest app is at least this tier (LOW, MEDIUM, HIGH)")
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "event types to show (report_generated, report_transmitted)")

	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream report events from NATS",
	Long:  "Follows the report event stream and prints one JSON event per line until interrupted. Requires nats.enabled.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	sub, err := watchSubscription(watchMinRisk, watchTypes)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.NATS.Enabled {
		return errors.New("NATS is disabled; set nats.enabled or PERMGUARD_NATS_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := streaming.NewNATSPublisher(ctx, cfg.NATS, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	events, err := publisher.Subscribe(ctx, sub)
	if err != nil {
		return err
	}

	log.Info().Str("url", cfg.NATS.URL).Msg("watching report events")

	enc := json.NewEncoder(cmd.OutOrStdout())
	for event := range events {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	return nil
}

func watchSubscription(minRisk string, types []string) (*streaming.Subscription, error) {
	sub := &streaming.Subscription{}

	if minRisk != "" {
		level := models.RiskLevel(strings.ToUpper(strings.TrimSpace(minRisk)))
		if !level.IsValid() {
			return nil, fmt.Errorf("invalid --min-risk %q", minRisk)
		}
		sub.MinRiskLevel = level
	}

	for _, t := range types {
		switch et := streaming.EventType(strings.ToLower(strings.TrimSpace(t))); et {
		case streaming.EventTypeReportGenerated, streaming.EventTypeReportTransmitted:
			sub.Types = append(sub.Types, et)
		default:
			return nil, fmt.Errorf("unknown event type %q", t)
		}
	}

	return sub, nil
}
