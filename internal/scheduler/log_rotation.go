package scheduler

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vpnbroker/broker/internal/config"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
)

// LogRotation archives the broker's per-level log files once a day and
// prunes archives past the retention window (§4.7 "Log rotation", §6
// "logs_YYYY-MM-DD.tar.gz"). Archiving is grounded on the same
// archive/tar + compress/gzip pattern volaticloud-volaticloud's
// data_packager.go uses for its own directory snapshots.
type LogRotation struct {
	bus           *notify.Bus
	logger        *logger.Logger
	dir           string
	localTime     string
	retentionDays int
}

func NewLogRotation(bus *notify.Bus, log *logger.Logger, cfg *config.Configuration) *LogRotation {
	return &LogRotation{
		bus:           bus,
		logger:        log,
		dir:           cfg.Logging.Dir,
		localTime:     cfg.Scheduler.LogRotationLocalTime,
		retentionDays: cfg.Scheduler.LogRetentionDays,
	}
}

func (r *LogRotation) Run(ctx context.Context) {
	if r.dir == "" || r.localTime == "" {
		return
	}
	for {
		if !waitUntilDaily(ctx, r.logger, "log_rotation", r.localTime) {
			return
		}
		r.rotate(ctx)
	}
}

func (r *LogRotation) rotate(ctx context.Context) {
	today := time.Now().UTC().Format("2006-01-02")
	archiveName := fmt.Sprintf("logs_%s.tar.gz", today)
	archivePath := filepath.Join(r.dir, archiveName)

	if err := r.archiveLogDir(archivePath); err != nil {
		r.logger.WithContext(ctx).Errorw("log rotation failed to archive log directory", "error", err)
		return
	}

	pruned, err := r.pruneOld(archiveName)
	if err != nil {
		r.logger.WithContext(ctx).Warnw("log rotation failed to prune old archives", "error", err)
	}

	r.bus.NotifyAdmin(ctx, notify.Message{
		Event: "log_rotated",
		Text:  fmt.Sprintf("logs archived to %s, pruned %d old archive(s)", archiveName, pruned),
		Extra: map[string]string{"archive": archiveName},
	})
	r.logger.WithContext(ctx).Infow("log rotation complete", "archive", archivePath, "pruned", pruned)
}

// archiveLogDir tars and gzips every *.log file directly under r.dir into
// archivePath, skipping archives from previous runs.
func (r *LogRotation) archiveLogDir(archivePath string) error {
	out, err := os.Create(archivePath) // #nosec G304 -- path built from configured log dir + date stamp
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	defer gzWriter.Close()
	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading log dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", entry.Name(), err)
		}
		header.Name = entry.Name()
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", entry.Name(), err)
		}
		file, err := os.Open(path) // #nosec G304 -- path built from directory listing of configured log dir
		if err != nil {
			return fmt.Errorf("opening %s: %w", entry.Name(), err)
		}
		_, copyErr := io.Copy(tarWriter, file)
		file.Close()
		if copyErr != nil {
			return fmt.Errorf("archiving %s: %w", entry.Name(), copyErr)
		}
	}
	return nil
}

// pruneOld removes archived logs_*.tar.gz files older than retentionDays,
// keeping skip (today's archive, already written).
func (r *LogRotation) pruneOld(skip string) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}

	var archives []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == skip || !strings.HasPrefix(name, "logs_") || !strings.HasSuffix(name, ".tar.gz") {
			continue
		}
		archives = append(archives, name)
	}
	sort.Strings(archives)

	cutoff := time.Now().UTC().AddDate(0, 0, -r.retentionDays)
	pruned := 0
	for _, name := range archives {
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, "logs_"), ".tar.gz")
		ts, err := time.Parse("2006-01-02", stamp)
		if err != nil || ts.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, name)); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
