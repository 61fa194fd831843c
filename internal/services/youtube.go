package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	urlpkg "net/url"
	"regexp"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

var videoIDPattern = regexp.MustCompile(`(?:v=|\/v\/|youtu\.be\/|embed\/|shorts\/)([a-zA-Z0-9_-]{11})`)

// VideoSaver persists a stream as a request-scoped temp file.
type VideoSaver interface {
	Save(src io.Reader, filename, contentType string) (*models.UploadedVideo, error)
}

// YouTubeService fetches a public YouTube video so it can go through the
// same analysis as an uploaded recording.
type YouTubeService struct {
	ytClient     *yt.Client
	store        VideoSaver
	maxBytes     int64
	fetchTimeout time.Duration
}

// NewYouTubeService builds a fetcher whose downloads are cut off after
// fetchTimeout. Zero leaves only the caller's context in charge.
func NewYouTubeService(store VideoSaver, maxBytes int64, fetchTimeout time.Duration) *YouTubeService {
	return &YouTubeService{
		ytClient:     &yt.Client{},
		store:        store,
		maxBytes:     maxBytes,
		fetchTimeout: fetchTimeout,
	}
}

// FetchVideo downloads a muxed audio+video stream for rawURL into the temp
// store. The returned video belongs to the caller.
func (s *YouTubeService) FetchVideo(ctx context.Context, rawURL string) (*models.UploadedVideo, error) {
	videoID := ExtractVideoID(rawURL)
	if videoID == "" {
		return nil, newError(KindInvalidRequest, "fetch_video", fmt.Errorf("not a YouTube video URL: %q", rawURL))
	}

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, s.fetchError(ctx, fmt.Errorf("failed to fetch YouTube video metadata: %w", err))
	}

	format, err := pickFormat(video.Formats.WithAudioChannels(), s.maxBytes)
	if err != nil {
		return nil, newError(KindProcessing, "fetch_video", err)
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, s.fetchError(ctx, fmt.Errorf("failed to open video stream: %w", err))
	}
	defer stream.Close()

	mimeType := strings.TrimSpace(strings.Split(format.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	log.Printf("Downloading YouTube video %s (itag %d, %s)", videoID, format.ItagNo, mimeType)
	saved, err := s.store.Save(stream, videoID+extensionFor(mimeType), mimeType)
	if err != nil {
		return nil, s.fetchError(ctx, err)
	}
	return saved, nil
}

// fetchError reports a download that ran out of time as KindTimeout even when
// the library hands back its own error instead of the context's.
func (s *YouTubeService) fetchError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, "fetch_video", fmt.Errorf("YouTube download timed out: %w", err))
	}
	return wrap(KindTransport, "fetch_video", err)
}

// pickFormat prefers the highest-bitrate mp4 that carries both picture and
// sound and is known to fit under maxBytes.
func pickFormat(formats yt.FormatList, maxBytes int64) (*yt.Format, error) {
	var best *yt.Format
	for i := range formats {
		f := &formats[i]
		if f.Width == 0 && f.QualityLabel == "" {
			continue
		}
		if maxBytes > 0 && f.ContentLength > maxBytes {
			continue
		}
		if best == nil || betterFormat(f, best) {
			best = f
		}
	}
	if best == nil {
		return nil, errors.New("no downloadable video format with audio")
	}
	return best, nil
}

func betterFormat(a, b *yt.Format) bool {
	aMP4 := strings.HasPrefix(a.MimeType, "video/mp4")
	bMP4 := strings.HasPrefix(b.MimeType, "video/mp4")
	if aMP4 != bMP4 {
		return aMP4
	}
	return a.Bitrate > b.Bitrate
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "video/webm":
		return ".webm"
	case "video/3gpp":
		return ".3gp"
	default:
		return ".mp4"
	}
}

// ExtractVideoID returns the 11-character video id of a YouTube URL, or ""
// when rawURL is not one.
func ExtractVideoID(rawURL string) string {
	parsed, err := urlpkg.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Host)
	path := strings.Trim(parsed.Path, "/")

	// youtube.com/watch?v=VIDEO_ID
	if host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") {
		if v := parsed.Query().Get("v"); isVideoID(v) {
			return v
		}

		parts := strings.Split(path, "/")
		if len(parts) >= 2 {
			switch parts[0] {
			case "shorts", "embed", "v", "live":
				if isVideoID(parts[1]) {
					return parts[1]
				}
			}
		}
		return ""
	}

	// youtu.be/VIDEO_ID
	if host == "youtu.be" {
		if candidate := strings.Split(path, "/")[0]; isVideoID(candidate) {
			return candidate
		}
		return ""
	}

	return ""
}

func isVideoID(s string) bool {
	if len(s) != 11 {
		return false
	}
	m := videoIDPattern.FindStringSubmatch("v=" + s)
	return len(m) > 1 && m[1] == s
}
