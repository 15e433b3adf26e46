package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"
)

// JobRunner executes one kind of background job. Runners report the
// job outcome through the Task record; an error returned here means
// the envelope itself could not be processed.
type JobRunner interface {
	Name() string
	Run(ctx context.Context, jobID string, payload json.RawMessage) error
}

// JobHandler decodes job envelopes and dispatches them to the runner
// registered under the envelope's job name.
type JobHandler struct {
	runners map[string]JobRunner
}

func NewJobHandler(runners ...JobRunner) *JobHandler {
	m := make(map[string]JobRunner, len(runners))
	for _, r := range runners {
		m[r.Name()] = r
	}
	return &JobHandler{runners: m}
}

func (h *JobHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var envelope JobEnvelope

	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		log.Printf("Failed to unmarshal job envelope: %v", err)
		return err
	}

	runner, ok := h.runners[envelope.JobName]
	if !ok {
		return fmt.Errorf("no runner registered for job %q", envelope.JobName)
	}

	log.Printf("Processing job %s (%s)", envelope.JobName, envelope.JobID)

	if err := runner.Run(ctx, envelope.JobID, envelope.Payload); err != nil {
		log.Printf("Job %s (%s) failed: %v", envelope.JobName, envelope.JobID, err)
		return err
	}

	return nil
}
