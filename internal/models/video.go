package models

import "time"

// UploadedVideo is a transient local copy of an upload. It belongs to the
// request that created it and is removed when that request ends.
type UploadedVideo struct {
	Path             string    `json:"-"`
	OriginalFilename string    `json:"original_filename"`
	MIMEType         string    `json:"mime_type"`
	Size             int64     `json:"size"`
	CreatedAt        time.Time `json:"created_at"`
}

type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
	FileStateUnknown    FileState = "STATE_UNSPECIFIED"
)

// RemoteFile references a video after it has been copied to the analysis
// service. It must be ACTIVE before a generation request may use it.
type RemoteFile struct {
	Name     string    `json:"name"`
	URI      string    `json:"uri"`
	MIMEType string    `json:"mime_type"`
	State    FileState `json:"state"`
}

func (f *RemoteFile) Ready() bool {
	return f != nil && f.State == FileStateActive
}
