package probe

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher is responsible for publishing finished reports to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.PublisherConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("logspectra-analyzer"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes the report to Protobuf and publishes it to the configured subject.
func (p *Publisher) Publish(report *model.Report) error {
	data, err := EncodeReport(report)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	log.Printf("Published report %s (%d bytes) to '%s'", report.ID, len(data), p.subject)
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
