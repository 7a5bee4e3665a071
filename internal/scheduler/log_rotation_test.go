package scheduler

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestLogRotation_ArchivesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte("line one\nline two\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.log"), []byte("boom\n"), 0o600))

	staleName := "logs_2000-01-01.tar.gz"
	require.NoError(t, os.WriteFile(filepath.Join(dir, staleName), []byte("old archive"), 0o600))

	admin := &recordingChannel{}
	cfg := testConfig()
	cfg.Logging.Dir = dir
	cfg.Scheduler.LogRetentionDays = 30

	r := NewLogRotation(notify.NewBus(logger.GetLogger(), &recordingChannel{}, admin), logger.GetLogger(), cfg)
	r.rotate(context.Background())

	today := time.Now().UTC().Format("2006-01-02")
	archivePath := filepath.Join(dir, "logs_"+today+".tar.gz")
	_, err := os.Stat(archivePath)
	require.NoError(t, err, "today's archive should exist")

	_, err = os.Stat(filepath.Join(dir, staleName))
	require.True(t, os.IsNotExist(err), "stale archive should have been pruned")

	names := readTarGzNames(t, archivePath)
	require.ElementsMatch(t, []string{"app.log", "error.log"}, names)

	require.Len(t, admin.sent, 1)
	require.Equal(t, "log_rotated", admin.sent[0].Event)
}

func readTarGzNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}
