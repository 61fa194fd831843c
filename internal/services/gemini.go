package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

// GeminiService talks to the Gemini File API and model endpoint. It holds no
// per-request state and is shared by all requests.
type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// UploadFile sends the local file to the Gemini File API.
func (s *GeminiService) UploadFile(ctx context.Context, path, mimeType string) (*models.RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := s.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload video to Gemini: %w", err)
	}

	return toRemoteFile(file), nil
}

func (s *GeminiService) GetFile(ctx context.Context, name string) (*models.RemoteFile, error) {
	file, err := s.client.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded file status: %w", err)
	}
	return toRemoteFile(file), nil
}

func (s *GeminiService) DeleteFile(ctx context.Context, name string) error {
	if err := s.client.DeleteFile(ctx, name); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete Gemini file %s: %w", name, err)
	}
	return nil
}

// isNotFound reports a 404 from the Files API; a file that is already gone
// counts as deleted.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// GenerateFromFile asks the model to follow prompt against an ACTIVE file and
// returns the concatenated text of the response.
func (s *GeminiService) GenerateFromFile(ctx context.Context, file *models.RemoteFile, prompt string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx,
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", errors.New("Gemini returned empty text")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func toRemoteFile(f *genai.File) *models.RemoteFile {
	return &models.RemoteFile{
		Name:     f.Name,
		URI:      f.URI,
		MIMEType: f.MIMEType,
		State:    toFileState(f.State),
	}
}

func toFileState(state genai.FileState) models.FileState {
	switch state {
	case genai.FileStateProcessing:
		return models.FileStateProcessing
	case genai.FileStateActive:
		return models.FileStateActive
	case genai.FileStateFailed:
		return models.FileStateFailed
	default:
		return models.FileStateUnknown
	}
}
