package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

var (
	// ErrNoVideo means the request carried no usable video field.
	ErrNoVideo = errors.New("no video file uploaded")
	// ErrTooLarge means the upload exceeded the configured limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

const sniffLen = 3072

// TempStore owns the directory that holds uploads while they are analyzed.
// Every upload gets its own uuid-named file, so concurrent requests never
// share a path.
type TempStore struct {
	dir      string
	maxBytes int64
}

func NewTempStore(dir string, maxBytes int64) (*TempStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &TempStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *TempStore) Dir() string {
	return s.dir
}

// ReceiveVideo streams the named multipart file field to a temp file. Other
// parts are skipped. Nothing is written to disk unless the field is present
// and non-empty.
func (s *TempStore) ReceiveVideo(r *http.Request, field string) (*models.UploadedVideo, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrNoVideo
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrNoVideo
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, ErrTooLarge
			}
			return nil, ErrNoVideo
		}

		if part.FormName() != field || part.FileName() == "" {
			part.Close()
			continue
		}

		video, err := s.Save(part, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		return video, err
	}
}

// Save copies src into a fresh temp file. An empty src yields ErrNoVideo and
// leaves no file behind.
func (s *TempStore) Save(src io.Reader, filename, contentType string) (*models.UploadedVideo, error) {
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	br := bufio.NewReaderSize(src, sniffLen)
	sample, err := br.Peek(sniffLen)
	if len(sample) == 0 {
		if err == nil || err == io.EOF {
			return nil, ErrNoVideo
		}
		if isTooLarge(err) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("read upload sample: %w", err)
	}

	mimeType := resolveMIMEType(contentType, sample, filename)
	path := filepath.Join(s.dir, uuid.NewString()+normalizeExtension(filename, mimeType))

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(out, br)
	if err != nil {
		out.Close()
		os.Remove(path)
		if isTooLarge(err) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &models.UploadedVideo{
		Path:             path,
		OriginalFilename: filepath.Base(filename),
		MIMEType:         mimeType,
		Size:             written,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Release deletes the local copy. A file that is already gone is not an
// error.
func (s *TempStore) Release(video *models.UploadedVideo) error {
	if video == nil || video.Path == "" {
		return nil
	}
	if err := os.Remove(video.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp file %s: %w", video.Path, err)
	}
	return nil
}

func resolveMIMEType(declared string, sample []byte, filename string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}

	detected := mimetype.Detect(sample).String()
	detected = strings.TrimSpace(strings.Split(detected, ";")[0])
	if detected != "" && detected != "application/octet-stream" {
		return detected
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return strings.TrimSpace(strings.Split(byExt, ";")[0])
	}
	return "application/octet-stream"
}

func normalizeExtension(filename, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 1 && len(ext) <= 8 && isAlnum(ext[1:]) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
