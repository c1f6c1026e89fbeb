package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/prompthive/server/internal/backup"
	"github.com/prompthive/server/internal/queue"
	"github.com/prompthive/server/internal/store"
)

// BackupWorker runs account snapshots in the background. backup:run snapshots
// one user; backup:sweep fans out a run task per known user and is what the
// periodic scheduler enqueues.
type BackupWorker struct {
	svc    *backup.Service
	store  store.Store
	client *queue.Client
}

func NewBackupWorker(svc *backup.Service, s store.Store, client *queue.Client) *BackupWorker {
	return &BackupWorker{svc: svc, store: s, client: client}
}

func (w *BackupWorker) ProcessRun(ctx context.Context, t *asynq.Task) error {
	var payload queue.BackupRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode backup payload: %w", err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", payload.UserID, err)
	}

	file, err := w.svc.Run(ctx, userID)
	if err != nil {
		return fmt.Errorf("backup user %s: %w", userID, err)
	}
	slog.Info("scheduled backup complete", "user", userID, "file", file)
	return nil
}

func (w *BackupWorker) ProcessSweep(ctx context.Context, t *asynq.Task) error {
	ids, err := w.store.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users for sweep: %w", err)
	}
	for _, id := range ids {
		if err := w.client.EnqueueBackupRun(queue.BackupRunPayload{UserID: id.String()}); err != nil {
			slog.Warn("sweep enqueue failed", "user", id, "error", err)
		}
	}
	slog.Info("backup sweep enqueued", "users", len(ids))
	return nil
}
