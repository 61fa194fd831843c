package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/middleware"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/services"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/storage"
)

const (
	videoField = "video"

	// Room for multipart boundaries and small fields on top of the file limit.
	multipartOverhead = 1 << 20
	maxJSONBody       = 64 << 10
)

type Analyzer interface {
	Analyze(ctx context.Context, analysisID string, video *models.UploadedVideo) (*models.AnalysisResult, error)
}

type VideoReceiver interface {
	ReceiveVideo(r *http.Request, field string) (*models.UploadedVideo, error)
}

type VideoFetcher interface {
	FetchVideo(ctx context.Context, rawURL string) (*models.UploadedVideo, error)
}

type AnalyzeHandler struct {
	analyzer Analyzer
	receiver VideoReceiver
	fetcher  VideoFetcher
	tickets  *middleware.Tickets
	maxBytes int64
}

func NewAnalyzeHandler(analyzer Analyzer, receiver VideoReceiver, fetcher VideoFetcher, tickets *middleware.Tickets, maxBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		receiver: receiver,
		fetcher:  fetcher,
		tickets:  tickets,
		maxBytes: maxBytes,
	}
}

// Analyze handles POST /analyze with a multipart "video" field.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}

	video, err := h.receiver.ReceiveVideo(r, videoField)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNoVideo):
			writeError(w, http.StatusBadRequest, models.MsgNoVideo)
		case errors.Is(err, storage.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, models.MsgTooLarge)
		default:
			log.Printf("ERROR: receive upload (request %s): %v", middleware.GetRequestID(r.Context()), err)
			writeError(w, http.StatusInternalServerError, models.MsgAnalysisFailed)
		}
		return
	}

	h.run(w, r, video)
}

// AnalyzeURL handles POST /analyze/url with a JSON {"url": "..."} body.
func (h *AnalyzeHandler) AnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, models.MsgInvalidURL)
		return
	}

	video, err := h.fetcher.FetchVideo(r.Context(), req.URL)
	if err != nil {
		if services.KindOf(err) == services.KindInvalidRequest {
			writeError(w, http.StatusBadRequest, models.MsgInvalidURL)
			return
		}
		log.Printf("Fetch of %q failed (%s): %v", req.URL, services.KindOf(err), err)
		writeError(w, http.StatusInternalServerError, models.MsgAnalysisFailed)
		return
	}

	h.run(w, r, video)
}

// IssueTicket handles POST /analyze/tickets.
func (h *AnalyzeHandler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	id := uuid.New()
	ticket, err := h.tickets.Issue(id)
	if err != nil {
		log.Printf("ERROR: issue ticket: %v", err)
		writeError(w, http.StatusInternalServerError, models.MsgAnalysisFailed)
		return
	}

	writeJSON(w, http.StatusCreated, models.TicketResponse{
		AnalysisID: id.String(),
		Ticket:     ticket,
		ExpiresIn:  int(h.tickets.TTL / time.Second),
	})
}

// run hands video to the analyzer, which owns it from here on.
func (h *AnalyzeHandler) run(w http.ResponseWriter, r *http.Request, video *models.UploadedVideo) {
	analysisID := analysisIDFor(r)

	result, err := h.analyzer.Analyze(r.Context(), analysisID, video)
	if err != nil {
		log.Printf("Request %s: analysis %s answered 500 (%s)", middleware.GetRequestID(r.Context()), analysisID, services.KindOf(err))
		writeError(w, http.StatusInternalServerError, models.MsgAnalysisFailed)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func analysisIDFor(r *http.Request) string {
	if id, ok := middleware.GetAnalysisID(r.Context()); ok {
		return id.String()
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
