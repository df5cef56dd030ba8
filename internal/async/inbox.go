package async

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

// InboxConfig configures CollectBatches.
type InboxConfig struct {
	Root        string        // inbox root; files live under Root/<user id>/
	Idle        time.Duration // flush once no new file arrived for this long
	MaxFileSize int64         // larger files are submitted without content and fail ingestion
	Logger      *slog.Logger
}

// CollectBatches groups watcher paths into one batch per user directory.
// A user's batch is flushed after Idle without new files; everything
// pending is flushed when paths closes. The returned channel closes after
// the final flush.
func CollectBatches(ctx context.Context, cfg InboxConfig, paths <-chan string) <-chan pipeline.Batch {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Idle <= 0 {
		cfg.Idle = 2 * time.Second
	}
	out := make(chan pipeline.Batch)

	go func() {
		defer close(out)
		pending := map[string][]pipeline.Submission{}
		seen := map[string]bool{}
		timer := time.NewTimer(cfg.Idle)
		timer.Stop()

		flush := func() bool {
			users := make([]string, 0, len(pending))
			for u := range pending {
				users = append(users, u)
			}
			sort.Strings(users)
			for _, u := range users {
				b := pipeline.Batch{ID: uuid.NewString(), UserID: u, Submissions: pending[u]}
				for i := range b.Submissions {
					b.Submissions[i].BatchID = b.ID
				}
				select {
				case out <- b:
				case <-ctx.Done():
					return false
				}
				delete(pending, u)
			}
			seen = map[string]bool{}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-paths:
				if !ok {
					flush()
					return
				}
				if seen[p] {
					continue
				}
				sub, user, ok := submissionFor(cfg, p, logger)
				if !ok {
					continue
				}
				seen[p] = true
				pending[user] = append(pending[user], sub)
				timer.Reset(cfg.Idle)
			case <-timer.C:
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}

func submissionFor(cfg InboxConfig, path string, logger *slog.Logger) (pipeline.Submission, string, bool) {
	rel, err := filepath.Rel(cfg.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		logger.Warn("inbox.path.outside_root", "path", path)
		return pipeline.Submission{}, "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		logger.Warn("inbox.path.no_user_dir", "path", path)
		return pipeline.Submission{}, "", false
	}
	user := parts[0]

	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("inbox.stat.failed", "path", path, "error", err)
		return pipeline.Submission{}, "", false
	}
	sub := pipeline.Submission{
		DocumentID:       pipeline.NewDocumentID(time.Now()),
		UserID:           user,
		OriginalFilename: filepath.Base(path),
		Path:             filepath.ToSlash(rel),
		DeclaredSize:     info.Size(),
	}
	sub.UploadID = sub.DocumentID
	if cfg.MaxFileSize <= 0 || info.Size() <= cfg.MaxFileSize {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("inbox.read.failed", "path", path, "error", err)
			return pipeline.Submission{}, "", false
		}
		sub.Data = data
	}
	return sub, user, true
}
