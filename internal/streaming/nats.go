package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"permguard-lab/internal/config"
	"permguard-lab/pkg/logger"
)

// SubjectRoot is the subject namespace captured by the report stream
const SubjectRoot = "reports"

// ErrNATSUnavailable is returned when the publisher is closed or disconnected
var ErrNATSUnavailable = errors.New("NATS not connected")

// NATSPublisher writes report events to a JetStream stream and reads them back
// for watchers. Subjects follow <type subject>.<highest risk>.
type NATSPublisher struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	subjects config.NATSSubjectsConfig
	logger   *logger.Logger
	closed   atomic.Bool
}

func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	cfg = withNATSDefaults(cfg)
	log = log.WithComponent("nats").WithFields(map[string]any{"url": cfg.URL, "stream": cfg.StreamName})

	conn, err := nats.Connect(cfg.URL, connectOptions(log)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, reportStreamConfig(cfg.StreamName))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.StreamName, err)
	}
	log.Info().Msg("report stream ready")

	return &NATSPublisher{
		conn:     conn,
		js:       js,
		stream:   stream,
		subjects: cfg.Subjects,
		logger:   log,
	}, nil
}

func withNATSDefaults(cfg config.NATSConfig) config.NATSConfig {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "PERMGUARD_REPORTS"
	}
	if cfg.Subjects.ReportGenerated == "" {
		cfg.Subjects.ReportGenerated = SubjectRoot + ".generated"
	}
	if cfg.Subjects.ReportTransmitted == "" {
		cfg.Subjects.ReportTransmitted = SubjectRoot + ".transmitted"
	}
	return cfg
}

func connectOptions(log *logger.Logger) []nats.Option {
	return []nats.Option{
		nats.Name("permguard-lab"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn().Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	}
}

// reportStreamConfig keeps a day of report events, discarding the oldest first.
func reportStreamConfig(name string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        name,
		Description: "Permission risk report events",
		Subjects:    []string{SubjectRoot + ".>"},
		Retention:   jetstream.LimitsPolicy,
		Discard:     jetstream.DiscardOld,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     100_000,
		MaxBytes:    64 << 20,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}
}

// Close shuts the connection down; later calls are no-ops.
func (p *NATSPublisher) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.conn.Close()
}

func (p *NATSPublisher) IsConnected() bool {
	return p != nil && !p.closed.Load() && p.conn.IsConnected()
}

// PublishReportEvent stores event on the stream and waits for the ack.
func (p *NATSPublisher) PublishReportEvent(ctx context.Context, event *ReportEvent) error {
	if !p.IsConnected() {
		return ErrNATSUnavailable
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := SubjectFor(p.subjects, event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Str("report_id", event.ReportID).Msg("report event published")
	return nil
}

// SubjectFor returns the subject of an event, e.g. reports.generated.high.
func SubjectFor(subjects config.NATSSubjectsConfig, event *ReportEvent) string {
	base := subjects.ReportGenerated
	if event.Type == EventTypeReportTransmitted {
		base = subjects.ReportTransmitted
	}
	level := strings.ToLower(string(event.HighestRisk))
	if level == "" {
		level = "none"
	}
	return base + "." + level
}

// Subscribe follows new events on the stream through an ephemeral consumer.
// The channel closes when ctx is done or the connection goes away. A nil sub
// receives everything.
func (p *NATSPublisher) Subscribe(ctx context.Context, sub *Subscription) (<-chan *ReportEvent, error) {
	if !p.IsConnected() {
		return nil, ErrNATSUnavailable
	}

	consumer, err := p.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
		FilterSubject: SubjectRoot + ".>",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	events := make(chan *ReportEvent, 100)
	handle := func(msg jetstream.Msg) {
		var event ReportEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			p.logger.WithError(err).Warn().Str("subject", msg.Subject()).Msg("discarding undecodable event")
			msg.Term()
			return
		}
		if sub != nil && !sub.Matches(&event) {
			msg.Ack()
			return
		}
		select {
		case events <- &event:
			msg.Ack()
		case <-ctx.Done():
		}
	}

	cc, err := consumer.Consume(handle, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		p.logger.WithError(err).Debug().Msg("consumer error")
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-cc.Closed():
		}
		cc.Stop()
		<-cc.Closed()
		close(events)
	}()

	return events, nil
}
