package kafka

import (
	"log"

	"github.com/IBM/sarama"
)

// JobInterceptor stamps outgoing job messages so consumers can tell
// which producer build emitted them.
type JobInterceptor struct{}

func (i *JobInterceptor) OnSend(msg *sarama.ProducerMessage) {
	log.Printf("Dispatching job message, topic: %s", msg.Topic)
	msg.Headers = append(msg.Headers, sarama.RecordHeader{
		Key:   []byte("dispatched-by"),
		Value: []byte("notification-bot"),
	})
}

func NewJobInterceptor() *JobInterceptor {
	return &JobInterceptor{}
}
