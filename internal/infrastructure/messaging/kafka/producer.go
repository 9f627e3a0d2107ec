// Package kafka hands passing candidates off to the downstream placement
// service.  The contract is one JSON message per passing candidate on the
// placement topic, keyed by candidate name so re-runs of a pair land on the
// same partition.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/chem"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// PlacementMessage is the wire payload consumed by the placement service.
type PlacementMessage struct {
	Candidate   string    `json:"candidate"`
	SMILES      string    `json:"smiles"`
	FragmentA   string    `json:"fragment_a"`
	FragmentB   string    `json:"fragment_b"`
	Synthon     string    `json:"synthon,omitempty"`
	PoseMolfile string    `json:"pose_molfile,omitempty"`
	FilteredAt  time.Time `json:"filtered_at"`
}

// writer abstracts kafka.Writer for testing.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes passing candidates to the placement topic.
type Producer struct {
	writer writer
	topic  string
	logger logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
}

// NewProducer builds a producer from config.  The writer batches with a short
// linger so a burst of passes from one pair goes out as a single request.
func NewProducer(cfg config.KafkaConfig, log logging.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.PlacementTopic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  max(cfg.ProducerRetries, 1),
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w, topic: cfg.PlacementTopic, logger: log.Named("placement")}
}

func newProducerWithWriter(w writer, topic string, log logging.Logger) *Producer {
	return &Producer{writer: w, topic: topic, logger: log}
}

// PublishPass sends one passing candidate to the placement topic.
func (p *Producer) PublishPass(ctx context.Context, result *merge.FilterResult) error {
	if p.closed.Load() {
		return errors.New(errors.CodeMessagingError, "placement producer is closed")
	}
	if !result.Passed() {
		return errors.New(errors.CodeInvalidParam,
			"only passing candidates are handed to placement")
	}

	msg := PlacementMessage{
		Candidate:  result.Candidate.Name,
		SMILES:     result.Candidate.SMILES,
		FragmentA:  result.Candidate.FragmentA,
		FragmentB:  result.Candidate.FragmentB,
		Synthon:    result.Candidate.Synthon,
		FilteredAt: time.Now().UTC(),
	}
	if result.Pose != nil && result.Pose.HasConformer() {
		msg.PoseMolfile = chem.MolToMolBlock(result.Pose)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to marshal placement message")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.Candidate.Name),
		Value: payload,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeMessagingError, "failed to publish placement message")
	}

	p.sent.Add(1)
	p.logger.Debug("published placement candidate",
		logging.String("candidate", result.Candidate.Name),
		logging.String("topic", p.topic),
	)
	return nil
}

// Sent returns the number of messages published since construction.
func (p *Producer) Sent() int64 { return p.sent.Load() }

// Close flushes and shuts the writer down.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
