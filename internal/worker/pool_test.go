package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/metrics"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

type stubDeleter struct {
	err   error
	names []string
}

func (s *stubDeleter) DeleteFile(ctx context.Context, name string) error {
	s.names = append(s.names, name)
	return s.err
}

func assertExposed(t *testing.T, recorder *metrics.Recorder, line string) {
	t.Helper()
	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), line) {
		t.Fatalf("expected %q in metrics exposition", line)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}

	for _, tc := range tests {
		if got := backoff(tc.attempts); got != tc.want {
			t.Errorf("backoff(%d) = %s, want %s", tc.attempts, got, tc.want)
		}
	}
}

func TestDecodeJob(t *testing.T) {
	job, err := decodeJob(`{"id":"7f0c9a57-8b43-4d8e-9a39-0d9f1f3f3c11","file_name":"files/abc","attempts":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.FileName != "files/abc" || job.Attempts != 1 {
		t.Fatalf("unexpected job: %+v", job)
	}

	for _, raw := range []string{`not json`, `{"id":"7f0c9a57-8b43-4d8e-9a39-0d9f1f3f3c11"}`} {
		if _, err := decodeJob(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestProcess_Success(t *testing.T) {
	recorder := metrics.New()
	deleter := &stubDeleter{}
	pool := NewPool(nil, deleter, recorder, 1)

	pool.process(context.Background(), 0, &models.RemoteDeleteJob{FileName: "files/abc"})

	if len(deleter.names) != 1 || deleter.names[0] != "files/abc" {
		t.Fatalf("expected delete of files/abc, got %v", deleter.names)
	}
	assertExposed(t, recorder, `interview_analyzer_remote_delete_retries_total{result="deleted"} 1`)
}

func TestHandleFailure_GivesUpAfterMaxAttempts(t *testing.T) {
	recorder := metrics.New()
	pool := NewPool(nil, &stubDeleter{}, recorder, 1)

	job := &models.RemoteDeleteJob{FileName: "files/abc", Attempts: maxAttempts - 1}
	pool.handleFailure(job, errors.New("permission denied"))

	if job.Attempts != maxAttempts {
		t.Fatalf("expected attempts %d, got %d", maxAttempts, job.Attempts)
	}
	if job.LastError != "permission denied" {
		t.Fatalf("expected last error to be recorded, got %q", job.LastError)
	}
	assertExposed(t, recorder, `interview_analyzer_remote_delete_retries_total{result="abandoned"} 1`)
}
