package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

const remoteDeleteTimeout = 30 * time.Second

// RemoteFileAPI is the upload/poll/generate/delete protocol of the remote
// analysis service. GeminiService is the production implementation.
type RemoteFileAPI interface {
	UploadFile(ctx context.Context, path, mimeType string) (*models.RemoteFile, error)
	GetFile(ctx context.Context, name string) (*models.RemoteFile, error)
	DeleteFile(ctx context.Context, name string) error
	GenerateFromFile(ctx context.Context, file *models.RemoteFile, prompt string) (string, error)
}

// LocalReleaser deletes a request's temp file.
type LocalReleaser interface {
	Release(video *models.UploadedVideo) error
}

// RemoteCleanupQueue takes remote deletes that failed on the request path.
type RemoteCleanupQueue interface {
	EnqueueRemoteDelete(ctx context.Context, name string) error
}

type AnalysisOptions struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	Timeout         time.Duration
}

type AnalysisService struct {
	remote   RemoteFileAPI
	local    LocalReleaser
	progress ProgressPublisher
	retries  RemoteCleanupQueue
	metrics  *metrics.Recorder
	opts     AnalysisOptions
}

func NewAnalysisService(
	remote RemoteFileAPI,
	local LocalReleaser,
	progress ProgressPublisher,
	retries RemoteCleanupQueue,
	recorder *metrics.Recorder,
	opts AnalysisOptions,
) *AnalysisService {
	if progress == nil {
		progress = NopProgress{}
	}
	if recorder == nil {
		recorder = metrics.New()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	return &AnalysisService{
		remote:   remote,
		local:    local,
		progress: progress,
		retries:  retries,
		metrics:  recorder,
		opts:     opts,
	}
}

// Analyze runs the whole flow for one uploaded video. It takes ownership of
// video: the local file, and the remote copy if one was created, are
// released before Analyze returns, whatever the outcome.
func (s *AnalysisService) Analyze(ctx context.Context, analysisID string, video *models.UploadedVideo) (*models.AnalysisResult, error) {
	if video == nil {
		return nil, newError(KindInvalidRequest, "analyze", errors.New("no video"))
	}

	cleanup := s.newCleanup(analysisID, video)
	defer cleanup.Run()

	s.metrics.AnalysisStarted()
	outcome := "panic"
	defer func() { s.metrics.AnalysisFinished(outcome) }()

	s.publish(analysisID, models.StateReceived, 0)
	log.Printf("Analysis %s: received %q (%s, %d bytes)", analysisID, video.OriginalFilename, video.MIMEType, video.Size)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	result, err := s.run(ctx, analysisID, video, cleanup)
	if err != nil {
		kind := KindOf(err)
		log.Printf("Analysis %s failed (%s): %v", analysisID, kind, err)
		outcome = string(kind)
		s.publish(analysisID, models.StateFailed, 0)
		return nil, err
	}

	outcome = "success"
	s.publish(analysisID, models.StateResponding, 0)
	log.Printf("Analysis %s completed (prompt %s)", analysisID, PromptVersion)
	return result, nil
}

func (s *AnalysisService) run(ctx context.Context, analysisID string, video *models.UploadedVideo, cleanup *Cleanup) (*models.AnalysisResult, error) {
	s.publish(analysisID, models.StateUploadingRemote, 0)
	start := time.Now()
	file, err := s.UploadRemote(ctx, video)
	s.metrics.ObserveStage("uploading_remote", time.Since(start))
	if err != nil {
		return nil, err
	}
	cleanup.TrackRemote(file)
	log.Printf("Analysis %s: uploaded as %s (state %s)", analysisID, file.Name, file.State)

	s.publish(analysisID, models.StatePolling, 0)
	start = time.Now()
	file, err = s.awaitReady(ctx, file, func(attempt int) {
		s.publish(analysisID, models.StatePolling, attempt)
	})
	s.metrics.ObserveStage("polling", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.publish(analysisID, models.StateAnalyzing, 0)
	start = time.Now()
	raw, err := s.RequestAnalysis(ctx, file)
	s.metrics.ObserveStage("analyzing", time.Since(start))
	if err != nil {
		return nil, err
	}

	s.publish(analysisID, models.StateExtracting, 0)
	return ExtractAnalysis(raw)
}

// UploadRemote copies the local video to the remote service.
func (s *AnalysisService) UploadRemote(ctx context.Context, video *models.UploadedVideo) (*models.RemoteFile, error) {
	file, err := s.remote.UploadFile(ctx, video.Path, video.MIMEType)
	if err != nil {
		return nil, wrap(KindTransport, "upload_remote", err)
	}
	if file == nil || file.Name == "" {
		return nil, newError(KindTransport, "upload_remote", errors.New("remote service returned no file handle"))
	}
	return file, nil
}

// AwaitReady polls the remote file at a fixed interval until it leaves
// PROCESSING. ACTIVE returns the fresh handle; FAILED, an unknown state, or
// running out of attempts is an error.
func (s *AnalysisService) AwaitReady(ctx context.Context, file *models.RemoteFile) (*models.RemoteFile, error) {
	return s.awaitReady(ctx, file, nil)
}

func (s *AnalysisService) awaitReady(ctx context.Context, file *models.RemoteFile, onCheck func(attempt int)) (*models.RemoteFile, error) {
	current := file
	for checks := 0; ; checks++ {
		switch current.State {
		case models.FileStateActive:
			s.metrics.ObservePollChecks(checks)
			return current, nil
		case models.FileStateFailed:
			return nil, newError(KindProcessing, "await_ready", fmt.Errorf("remote file %s failed processing", current.Name))
		case models.FileStateProcessing:
		default:
			return nil, newError(KindProcessing, "await_ready", fmt.Errorf("remote file %s in unexpected state %s", current.Name, current.State))
		}

		if s.opts.PollMaxAttempts > 0 && checks >= s.opts.PollMaxAttempts {
			return nil, newError(KindTimeout, "await_ready", fmt.Errorf("remote file %s still processing after %d checks", current.Name, checks))
		}

		select {
		case <-ctx.Done():
			return nil, wrap(KindInternal, "await_ready", ctx.Err())
		case <-time.After(s.opts.PollInterval):
		}

		if onCheck != nil {
			onCheck(checks + 1)
		}

		next, err := s.remote.GetFile(ctx, current.Name)
		if err != nil {
			return nil, wrap(KindTransport, "await_ready", err)
		}
		current = next
	}
}

// RequestAnalysis sends the fixed instruction with a reference to the ready
// file and returns the model's raw text.
func (s *AnalysisService) RequestAnalysis(ctx context.Context, file *models.RemoteFile) (string, error) {
	if !file.Ready() {
		return "", newError(KindProcessing, "request_analysis", errors.New("remote file is not ACTIVE"))
	}
	raw, err := s.remote.GenerateFromFile(ctx, file, AnalysisPrompt())
	if err != nil {
		return "", wrap(KindUpstream, "request_analysis", err)
	}
	return raw, nil
}

// ReleaseRemote deletes the remote copy. Failure is logged and, when a
// retry queue is configured, handed to it. It never reaches the caller.
func (s *AnalysisService) ReleaseRemote(file *models.RemoteFile) {
	if file == nil || file.Name == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteDeleteTimeout)
	err := s.remote.DeleteFile(ctx, file.Name)
	cancel()
	if err == nil {
		log.Printf("Deleted remote file %s", file.Name)
		return
	}

	log.Printf("WARNING: failed to delete remote file %s: %v", file.Name, err)
	s.metrics.RemoteDeleteFailed()

	if s.retries == nil {
		return
	}
	qctx, qcancel := context.WithTimeout(context.Background(), publishTimeout)
	defer qcancel()
	if qerr := s.retries.EnqueueRemoteDelete(qctx, file.Name); qerr != nil {
		log.Printf("WARNING: failed to queue remote delete retry for %s: %v", file.Name, qerr)
	}
}

func (s *AnalysisService) publish(analysisID string, state models.AnalysisState, pollAttempt int) {
	s.progress.Publish(models.StatusUpdate{
		AnalysisID:  analysisID,
		State:       state,
		Step:        state.Step(),
		PollAttempt: pollAttempt,
	})
}

// wrap tags err with kind, except that an expired deadline is always a
// timeout.
func wrap(kind ErrorKind, op string, err error) *AnalysisError {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return newError(kind, op, err)
}
