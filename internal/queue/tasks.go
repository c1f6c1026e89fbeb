package queue

const (
	TypeBackupRun   = "backup:run"
	TypeBackupSweep = "backup:sweep"
)

type BackupRunPayload struct {
	UserID string `json:"user_id"`
}
