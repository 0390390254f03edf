package streaming

import (
	"context"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
)

// EventBusPublisher implements services.ReportPublisher using the EventBus
// and the WebSocket hub
type EventBusPublisher struct {
	eventBus *EventBus
	wsHub    *WebSocketHub
}

var _ services.ReportPublisher = (*EventBusPublisher)(nil)

// NewEventBusPublisher creates a new publisher adapter. Either side may be nil.
func NewEventBusPublisher(eventBus *EventBus, wsHub *WebSocketHub) *EventBusPublisher {
	return &EventBusPublisher{
		eventBus: eventBus,
		wsHub:    wsHub,
	}
}

// PublishReportGenerated announces a newly generated report
func (p *EventBusPublisher) PublishReportGenerated(ctx context.Context, id string, report *models.Report) error {
	return p.publish(ctx, NewReportGeneratedEvent(id, report))
}

// PublishReportTransmitted announces a successful delivery
func (p *EventBusPublisher) PublishReportTransmitted(ctx context.Context, id string, result *services.TransmissionResult) error {
	return p.publish(ctx, NewReportTransmittedEvent(id, result))
}

func (p *EventBusPublisher) publish(ctx context.Context, event *ReportEvent) error {
	if p.eventBus != nil {
		if err := p.eventBus.Publish(ctx, event); err != nil {
			return err
		}
	}

	if p.wsHub != nil {
		p.wsHub.BroadcastEvent(event)
	}

	return nil
}
