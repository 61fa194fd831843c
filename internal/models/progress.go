package models

// AnalysisState is a step of one analysis request.
type AnalysisState string

const (
	StateReceived        AnalysisState = "RECEIVED"
	StateUploadingRemote AnalysisState = "UPLOADING_REMOTE"
	StatePolling         AnalysisState = "POLLING"
	StateAnalyzing       AnalysisState = "ANALYZING"
	StateExtracting      AnalysisState = "EXTRACTING"
	StateResponding      AnalysisState = "RESPONDING"
	StateFailed          AnalysisState = "FAILED"
	StateCleanedUp       AnalysisState = "CLEANED_UP"
)

// Step numbers the happy path for progress bars. FAILED and CLEANED_UP are
// terminal and share the last slot.
func (s AnalysisState) Step() int {
	switch s {
	case StateReceived:
		return 1
	case StateUploadingRemote:
		return 2
	case StatePolling:
		return 3
	case StateAnalyzing:
		return 4
	case StateExtracting:
		return 5
	case StateResponding:
		return 6
	default:
		return 7
	}
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	AnalysisID  string        `json:"analysis_id"`
	State       AnalysisState `json:"state"`
	Step        int           `json:"step"`
	PollAttempt int           `json:"poll_attempt,omitempty"`
}
