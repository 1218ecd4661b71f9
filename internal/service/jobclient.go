package service

import (
	"brandpulse/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient enqueues background work. Satisfied by AsynqJobClient in
// production and by fakes in tests.
type JobClient interface {
	EnqueueDispatch(interactionID string) error
	EnqueueViewReassign(viewID string) error
}

// AsynqJobClient enqueues through the shared asynq client
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) EnqueueDispatch(interactionID string) error {
	return jobs.EnqueueDispatch(c.client, interactionID)
}

func (c *AsynqJobClient) EnqueueViewReassign(viewID string) error {
	return jobs.EnqueueViewReassign(c.client, viewID)
}
