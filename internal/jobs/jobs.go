package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brandpulse/internal/engine"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeInteractionDispatch = "interaction:dispatch"
	TypeViewReassign        = "view:reassign"
)

type dispatchPayload struct {
	InteractionID string `json:"interaction_id"`
}

type reassignPayload struct {
	ViewID string `json:"view_id"`
}

// EnqueueDispatch schedules a dispatch pass for one interaction. Runs
// on the critical queue so automation stays close to real time.
func EnqueueDispatch(client *asynq.Client, interactionID string) error {
	payload, err := json.Marshal(dispatchPayload{InteractionID: interactionID})
	if err != nil {
		return err
	}
	_, err = client.Enqueue(
		asynq.NewTask(TypeInteractionDispatch, payload),
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	)
	return err
}

// EnqueueViewReassign schedules membership recomputation after a view
// definition changes. Low priority; dispatch work always wins.
func EnqueueViewReassign(client *asynq.Client, viewID string) error {
	payload, err := json.Marshal(reassignPayload{ViewID: viewID})
	if err != nil {
		return err
	}
	_, err = client.Enqueue(
		asynq.NewTask(TypeViewReassign, payload),
		asynq.Queue("low"),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	)
	return err
}

// ViewReassigner is the slice of the view service the worker needs
type ViewReassigner interface {
	ReassignView(ctx context.Context, viewID string) error
}

// JobServer runs the asynq worker pool
type JobServer struct {
	server *asynq.Server
	engine *engine.Engine
	views  ViewReassigner
	log    *zap.Logger
}

func NewJobServer(redisAddr string, eng *engine.Engine, views ViewReassigner, log *zap.Logger) *JobServer {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)
	return &JobServer{server: server, engine: eng, views: views, log: log}
}

// Start runs the worker pool until Shutdown
func (s *JobServer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInteractionDispatch, s.handleDispatch)
	mux.HandleFunc(TypeViewReassign, s.handleViewReassign)
	return s.server.Start(mux)
}

func (s *JobServer) Shutdown() {
	s.server.Shutdown()
}

// handleDispatch runs one dispatch pass. Returning an error hands the
// task back to asynq for retry with backoff; a recorded exhausted pass
// is success.
func (s *JobServer) handleDispatch(ctx context.Context, t *asynq.Task) error {
	var p dispatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid dispatch payload: %w", err)
	}

	rec, err := s.engine.Dispatch(ctx, p.InteractionID)
	if err != nil {
		s.log.Warn("dispatch failed, will retry",
			zap.String("interaction_id", p.InteractionID),
			zap.Error(err))
		return err
	}
	if rec != nil {
		s.log.Info("dispatch complete",
			zap.String("interaction_id", p.InteractionID),
			zap.String("outcome", string(rec.Outcome)),
			zap.Int("evaluated", rec.Evaluated))
	}
	return nil
}

func (s *JobServer) handleViewReassign(ctx context.Context, t *asynq.Task) error {
	var p reassignPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid reassign payload: %w", err)
	}
	return s.views.ReassignView(ctx, p.ViewID)
}
