package violations

import (
	"context"
	"fmt"

	"parking-monitor-go/internal/helpers"
	"parking-monitor-go/internal/models"
)

// PublisherSink publishes records as ViolationEvents on the message bus
type PublisherSink struct {
	publisher models.MessagePublisher
	subject   string
	workerID  string
}

// NewPublisherSink creates a sink for the given subject
func NewPublisherSink(publisher models.MessagePublisher, subject, workerID string) (*PublisherSink, error) {
	if publisher == nil {
		return nil, fmt.Errorf("message publisher is required")
	}
	if subject == "" {
		subject = "parking.violations"
	}
	return &PublisherSink{publisher: publisher, subject: subject, workerID: workerID}, nil
}

// HandleViolation publishes the record with its snapshot attached when small enough
func (p *PublisherSink) HandleViolation(ctx context.Context, record models.ViolationRecord) error {
	event := models.NewViolationEvent(p.workerID, record, helpers.JPEGDataURL(record.Snapshot, helpers.MaxEventImageSize))
	if err := p.publisher.Publish(p.subject, event); err != nil {
		return fmt.Errorf("failed to publish violation %s: %w", record.ID, err)
	}
	return nil
}
