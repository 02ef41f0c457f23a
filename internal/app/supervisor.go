package app

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/metrics"
	"go.uber.org/zap"
)

const titlePlaceholder = "%(title)s"

var (
	progressPattern    = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%(?:\s+of\s+~?\s*\S+)?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)
	destinationPattern = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
	mergerPattern      = regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`)
	alreadyPattern     = regexp.MustCompile(`^\[download\] (.+) has already been downloaded`)
	unsafeFilenameChar = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
)

// outputLine is what one stdout line of the fetcher means for the ledger
type outputLine struct {
	patch domain.RecordPatch
	path  string // resolved output file, if the line announced one
}

// parseOutputLine recognizes progress, destination, merge and already-downloaded lines
func parseOutputLine(line string) (outputLine, bool) {
	line = strings.TrimSpace(line)
	downloading := domain.StatusDownloading

	if m := progressPattern.FindStringSubmatch(line); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return outputLine{}, false
		}
		patch := domain.RecordPatch{Status: &downloading, Progress: &pct}
		if m[2] != "" && !strings.HasPrefix(m[2], "Unknown") {
			patch.Speed = domain.Ptr(m[2])
		}
		if m[3] != "" && !strings.HasPrefix(m[3], "Unknown") {
			patch.ETA = domain.Ptr(m[3])
		}
		return outputLine{patch: patch}, true
	}

	for _, p := range []*regexp.Regexp{destinationPattern, mergerPattern} {
		if m := p.FindStringSubmatch(line); m != nil {
			return outputLine{
				patch: domain.RecordPatch{Status: &downloading, Filename: domain.Ptr(filepath.Base(m[1]))},
				path:  m[1],
			}, true
		}
	}

	if m := alreadyPattern.FindStringSubmatch(line); m != nil {
		return outputLine{
			patch: domain.RecordPatch{
				Status:   &downloading,
				Progress: domain.Ptr(100.0),
				Filename: domain.Ptr(filepath.Base(m[1])),
			},
			path: m[1],
		}, true
	}

	return outputLine{}, false
}

// SanitizeFilename replaces characters that are not allowed in file names
func SanitizeFilename(name string) string {
	name = unsafeFilenameChar.ReplaceAllString(name, "_")
	return strings.Trim(strings.TrimSpace(name), ".")
}

// outputName is the file stem the fetcher will write for a record
func outputName(rec *domain.DownloadRecord) string {
	name := titlePlaceholder
	if rec.Title != nil {
		if clean := SanitizeFilename(*rec.Title); clean != "" {
			name = clean
		}
	}
	if rec.IsBatch() && rec.Index != nil {
		name = fmt.Sprintf("%02d - %s", *rec.Index, name)
	}
	return name
}

// outputTemplate builds the -o argument below the base directory; saveDir cannot escape it
func (m *DownloadManager) outputTemplate(rec *domain.DownloadRecord) string {
	dir := filepath.Clean(string(filepath.Separator) + rec.SaveDir)
	return filepath.Join(m.config.Download.BaseDir, dir, outputName(rec)+".%(ext)s")
}

// buildArgs assembles the fetcher command line for a record
func (m *DownloadManager) buildArgs(rec *domain.DownloadRecord, template string) []string {
	cfg := m.config.Download
	formatID := rec.FormatID
	if formatID == "" {
		formatID = domain.DefaultFormatSelector
	}

	args := []string{
		"--newline",
		"-f", formatID,
		"-o", template,
		"--retries", strconv.Itoa(cfg.Retries),
		"--fragment-retries", strconv.Itoa(cfg.FragmentRetries),
		"--socket-timeout", strconv.Itoa(cfg.SocketTimeout),
		"--continue",
	}

	name := strings.TrimSuffix(filepath.Base(template), ".%(ext)s")
	if m.thumbnails == nil || !m.thumbnails.HasThumbnail(name) {
		args = append(args, "--write-thumbnail", "--convert-thumbnails", cfg.ThumbnailFormat)
	}

	if strings.Contains(formatID, "+") {
		args = append(args, "--merge-output-format", cfg.MergeFormat)
	}

	return append(args, rec.URL)
}

// supervise streams a worker's stdout into the ledger and reconciles state when it exits
func (m *DownloadManager) supervise(id string, attempt uint64, batch bool, proc domain.Process) {
	defer m.workers.Done()
	started := time.Now()

	scanner := bufio.NewScanner(proc.Stdout())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if out, ok := parseOutputLine(scanner.Text()); ok {
			m.applyOutput(id, attempt, out)
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.Warn("Fetcher output stream failed", zap.String("id", id), zap.Error(err))
	}

	code, err := proc.Wait()
	m.handleExit(id, attempt, batch, code, err, proc.StderrTail(), time.Since(started))
}

func (m *DownloadManager) applyOutput(id string, attempt uint64, out outputLine) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.registry[id]
	if entry == nil || entry.attempt != attempt {
		return
	}
	if out.path != "" {
		entry.destination = out.path
	}
	m.updateProgressLocked(id, out.patch)
}

// handleExit reconciles the ledger after a worker process exits
func (m *DownloadManager) handleExit(id string, attempt uint64, batch bool, code int, waitErr error, stderrTail string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batch {
		defer m.releaseBatchSlotLocked(id)
	}

	entry := m.registry[id]
	mine := entry != nil && entry.attempt == attempt

	if _, terminated := m.terminated[id]; terminated {
		// cancel/pause already wrote the final state
		if mine {
			delete(m.registry, id)
		}
		return
	}
	if !mine {
		return
	}
	delete(m.registry, id)

	if entry.cancelled || entry.paused {
		return
	}
	rec, ok := m.ledger[id]
	if !ok || rec.Status.IsIntentionalStop() {
		return
	}

	zero := "0"
	if code == 0 && waitErr == nil {
		finished := domain.StatusFinished
		m.updateProgressLocked(id, domain.RecordPatch{
			Status: &finished, Progress: domain.Ptr(100.0), Speed: &zero, ETA: &zero, Touch: true,
		})
		metrics.DownloadsFinished.Inc()
		metrics.DownloadDuration.Observe(elapsed.Seconds())
		m.logEvent("download_finished", zap.String("id", id), zap.Duration("elapsed", elapsed))
		if m.notifier != nil {
			go m.notifier.NotifyDownloadFinished(rec.Clone())
		}
		return
	}

	msg := fmt.Sprintf("fetcher exited with code %d", code)
	if waitErr != nil {
		msg = fmt.Sprintf("%s (%v)", msg, waitErr)
	}
	if tail := strings.TrimSpace(stderrTail); tail != "" {
		msg += ": " + tail
	}
	failed := domain.StatusError
	m.updateProgressLocked(id, domain.RecordPatch{Status: &failed, Speed: &zero, ETA: &zero, Error: &msg, Touch: true})
	metrics.DownloadsFailed.Inc()
	m.logEvent("download_failed", zap.String("id", id), zap.Int("exit_code", code))
	if m.notifier != nil {
		go m.notifier.NotifyDownloadFailed(rec.Clone())
	}
}
