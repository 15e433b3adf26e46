package kafka

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// JobEnvelope is the wire format for one dispatched background job.
type JobEnvelope struct {
	JobID      string          `json:"job_id"`
	JobName    string          `json:"job_name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt int64           `json:"enqueued_at"`
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string, config *sarama.Config) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{producer: producer, topic: topic}, nil
}

// Enqueue publishes one job and returns its generated job id. The
// caller is expected to create exactly one Task record keyed by it.
func (p *Producer) Enqueue(jobName string, payload any) (string, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	envelope := JobEnvelope{
		JobID:      uuid.NewString(),
		JobName:    jobName,
		Payload:    rawPayload,
		EnqueuedAt: time.Now().Unix(),
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(envelope.JobID),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		log.Printf("Failed to enqueue job %s: %v", jobName, err)
		return "", err
	}

	log.Printf("Job %s (%s) enqueued to partition %d at offset %d", jobName, envelope.JobID, partition, offset)
	return envelope.JobID, nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
