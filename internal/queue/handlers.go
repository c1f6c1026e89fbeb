package queue

import (
	"github.com/hibiken/asynq"
)

// HandlersRegistry maps task types (backup:run, backup:sweep) to their
// handlers. The worker binary registers everything here before serving, so
// there is one place to see which tasks this deployment understands.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
