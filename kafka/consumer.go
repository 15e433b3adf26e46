package kafka

import (
	"context"
	"errors"
	"log"

	"github.com/IBM/sarama"
)

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topics        []string
	handler       *JobHandler
}

func NewConsumer(brokers []string, groupID string, topics []string,
	config *sarama.Config, handler *JobHandler) (*Consumer, error) {
	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		topics:        topics,
		handler:       handler,
	}, nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		// Job outcomes land on the Task record; a handler error here
		// means the envelope was undeliverable, and redelivering it
		// would not help, so the offset is marked either way.
		if err := c.handler.Handle(session.Context(), message); err != nil {
			log.Printf("Failed to process message: %v", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := c.consumerGroup.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Printf("Consumer group error: %v", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}
