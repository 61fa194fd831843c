package services

import (
	"log"
	"sync"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

// Cleanup releases what one analysis acquired. The local file is always
// deleted; the remote file only if one was created. Run is safe to call more
// than once and does the work exactly once.
type Cleanup struct {
	svc        *AnalysisService
	analysisID string
	video      *models.UploadedVideo
	remote     *models.RemoteFile
	once       sync.Once
}

func (s *AnalysisService) newCleanup(analysisID string, video *models.UploadedVideo) *Cleanup {
	return &Cleanup{svc: s, analysisID: analysisID, video: video}
}

// TrackRemote registers the remote copy once the upload succeeded.
func (c *Cleanup) TrackRemote(file *models.RemoteFile) {
	c.remote = file
}

func (c *Cleanup) Run() {
	c.once.Do(func() {
		if c.remote != nil {
			c.svc.ReleaseRemote(c.remote)
		}
		if err := c.svc.local.Release(c.video); err != nil {
			log.Printf("ERROR: analysis %s: %v", c.analysisID, err)
		}
		c.svc.publish(c.analysisID, models.StateCleanedUp, 0)
	})
}
