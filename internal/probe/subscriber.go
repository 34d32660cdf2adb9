package probe

import (
	"LogSpectra/internal/config"
	"LogSpectra/internal/model"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReportHandler processes a received report along with its raw Struct form.
type ReportHandler func(report *model.Report, raw *structpb.Struct)

// Subscriber is responsible for subscribing to a NATS subject and processing reports.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.PublisherConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("logspectra-watch"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject and hands every decoded report to handler.
func (s *Subscriber) Start(handler ReportHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		report, raw, err := DecodeReport(msg.Data)
		if err != nil {
			log.Printf("Warning: dropping message on '%s': %v", msg.Subject, err)
			return
		}
		handler(report, raw)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for reports...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
