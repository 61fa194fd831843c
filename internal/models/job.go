package models

import (
	"time"

	"github.com/google/uuid"
)

// RemoteDeleteJob asks the cleanup worker to delete a remote file that could
// not be deleted on the request path.
type RemoteDeleteJob struct {
	ID         uuid.UUID `json:"id"`
	FileName   string    `json:"file_name"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
