package models

// CategoryScore is one scored category of the feedback.
type CategoryScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// AnalysisResult is the structured payload the model returns for one video.
type AnalysisResult struct {
	EnglishSpeaking CategoryScore `json:"english_speaking"`
	Confidence      CategoryScore `json:"confidence"`
	Humility        CategoryScore `json:"humility"`
	OverallSummary  string        `json:"overall_summary"`
}

type AnalyzeURLRequest struct {
	URL string `json:"url"`
}

type TicketResponse struct {
	AnalysisID string `json:"analysis_id"`
	Ticket     string `json:"ticket"`
	ExpiresIn  int    `json:"expires_in"`
}

// ErrorResponse is the body of every non-200 answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client-facing error messages. Failure causes stay in the server logs.
const (
	MsgNoVideo        = "No video file uploaded."
	MsgAnalysisFailed = "Failed to analyze the video. Please check the server logs."
	MsgTooLarge       = "Video file is too large."
	MsgInvalidURL     = "A valid YouTube video URL is required."
	MsgRateLimited    = "Too many requests. Please try again later."
)
