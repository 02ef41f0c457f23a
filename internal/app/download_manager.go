package app

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/metrics"
	"github.com/yourusername/mediashelf/pkg/logger"
	"go.uber.org/zap"
)

// Broadcaster fans ledger mutations out to observers. Publish must not block.
type Broadcaster interface {
	Publish(event domain.ProgressEvent)
}

// processEntry is the registry's view of one live worker
type processEntry struct {
	proc        domain.Process
	filePath    string // output template passed to the fetcher
	destination string // concrete file announced by the fetcher, if any
	attempt     uint64
	batch       bool
	cancelled   bool
	paused      bool
}

// cleanupPath is the best path for locating this worker's partial files
func (e *processEntry) cleanupPath() string {
	if strings.Contains(filepath.Base(e.filePath), titlePlaceholder) && e.destination != "" {
		return e.destination
	}
	return e.filePath
}

// Dependencies are the collaborators a DownloadManager drives
type Dependencies struct {
	Spawner     domain.ProcessSpawner
	Pauses      domain.PauseStore
	Settings    domain.SettingsStore
	Broadcaster Broadcaster
	Cleaner     domain.FileCleaner
	Thumbnails  domain.ThumbnailIndex
	Notifier    domain.Notifier     // optional
	EventLogger *logger.MultiLogger // optional
	Logger      *zap.Logger
}

// DownloadManager owns the download ledger, the process registry, the termination set
// and the batch queue. Every mutation of that state goes through its methods.
type DownloadManager struct {
	config      *domain.Config
	spawner     domain.ProcessSpawner
	pauses      domain.PauseStore
	store       domain.SettingsStore
	broadcaster Broadcaster
	cleaner     domain.FileCleaner
	thumbnails  domain.ThumbnailIndex
	notifier    domain.Notifier
	eventLogger *logger.MultiLogger
	logger      *zap.Logger

	mu          sync.Mutex
	ledger      map[string]*domain.DownloadRecord
	order       map[string]uint64 // insertion sequence, breaks timestamp ties
	seq         uint64
	registry    map[string]*processEntry
	terminated  map[string]struct{}
	queue       []queueItem
	activeBatch int
	settings    domain.Settings
	attempts    uint64
	stopped     bool

	workers sync.WaitGroup
}

// NewDownloadManager creates a download manager
func NewDownloadManager(config *domain.Config, deps Dependencies) *DownloadManager {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	settings := domain.DefaultSettings()
	if config.Queue.MaxConcurrentPlaylistDownloads > 0 {
		settings.MaxConcurrentPlaylistDownloads = config.Queue.MaxConcurrentPlaylistDownloads
	}

	return &DownloadManager{
		config:      config,
		spawner:     deps.Spawner,
		pauses:      deps.Pauses,
		store:       deps.Settings,
		broadcaster: deps.Broadcaster,
		cleaner:     deps.Cleaner,
		thumbnails:  deps.Thumbnails,
		notifier:    deps.Notifier,
		eventLogger: deps.EventLogger,
		logger:      log,
		ledger:      make(map[string]*domain.DownloadRecord),
		order:       make(map[string]uint64),
		registry:    make(map[string]*processEntry),
		terminated:  make(map[string]struct{}),
		settings:    *settings,
	}
}

// Restore loads persisted settings and repopulates the ledger with paused downloads.
// Persistence failures are logged and defaults are used instead.
func (m *DownloadManager) Restore() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stored, err := m.store.LoadSettings(); err != nil {
		m.logger.Error("Failed to load settings, using defaults", zap.Error(err))
	} else if stored != nil {
		if err := stored.Validate(); err != nil {
			m.logger.Warn("Ignoring invalid stored settings", zap.Error(err))
		} else {
			m.settings = *stored
		}
	}
	metrics.BatchWorkersActive.Set(0)

	infos, err := m.pauses.ListPaused()
	if err != nil {
		m.logger.Error("Failed to load paused downloads", zap.Error(err))
		return 0
	}
	for _, info := range infos {
		rec := recordFromPaused(info.DownloadID, info, domain.StatusPaused)
		rec.Progress = info.Progress
		rec.Filename = info.Filename
		rec.Timestamp = info.Timestamp
		m.registerDownloadLocked(rec)
		m.terminated[info.DownloadID] = struct{}{}
	}

	m.logger.Info("Restored paused downloads", zap.Int("count", len(infos)))
	return len(infos)
}

// Start registers a single download and spawns it immediately
func (m *DownloadManager) Start(req domain.DownloadRequest) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", fmt.Errorf("url is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return "", domain.ErrShuttingDown
	}

	rec := recordFromRequest(domain.NewDownloadID(), req, domain.StatusStarting)
	m.registerDownloadLocked(rec)
	m.logEvent("download_started", zap.String("id", rec.ID), zap.String("url", rec.URL), zap.String("format", rec.FormatID))
	_ = m.spawnLocked(rec, "", false)
	return rec.ID, nil
}

// StartBatch registers a batch download and places it in the batch queue
func (m *DownloadManager) StartBatch(req domain.DownloadRequest) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", fmt.Errorf("url is required")
	}
	if req.BatchID == nil {
		req.BatchID = domain.Ptr(domain.NewDownloadID())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return "", domain.ErrShuttingDown
	}

	rec := recordFromRequest(domain.NewDownloadID(), req, domain.StatusQueued)
	m.registerDownloadLocked(rec)
	m.enqueueLocked(queueItem{downloadID: rec.ID})
	return rec.ID, nil
}

// GetStatus returns a copy of the ledger entry for id
func (m *DownloadManager) GetStatus(id string) (*domain.DownloadRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.ledger[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// GetAll returns every ledger entry, newest first
func (m *DownloadManager) GetAll() []*domain.DownloadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Observe passes the ledger to fn with the engine lock held. No event is published while fn
// runs, so an observer subscribed inside fn sees the snapshot followed by every later change.
func (m *DownloadManager) Observe(fn func(records []*domain.DownloadRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.snapshotLocked())
}

func (m *DownloadManager) snapshotLocked() []*domain.DownloadRecord {
	out := make([]*domain.DownloadRecord, 0, len(m.ledger))
	for _, rec := range m.ledger {
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return m.order[out[i].ID] < m.order[out[j].ID]
	})
	return out
}

// UpdateProgress merges a partial update into a ledger entry, subject to the termination guards.
// It reports whether the update was applied.
func (m *DownloadManager) UpdateProgress(id string, patch domain.RecordPatch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProgressLocked(id, patch)
}

// Cancel stops a download for good and discards its partial files
func (m *DownloadManager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLocked(id, "Cancelled before start")
}

// Pause stops a running download and persists what is needed to resume it.
// A download that is still queued is cancelled instead.
func (m *DownloadManager) Pause(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isQueuedLocked(id) {
		return m.cancelLocked(id, "Paused before start, removed from queue")
	}
	return m.pauseLocked(id)
}

// Resume restarts a paused download as a new attempt. The new id is returned.
func (m *DownloadManager) Resume(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return "", false
	}

	delete(m.terminated, id)

	info, err := m.pauses.GetPaused(id)
	if err != nil {
		m.logger.Error("Failed to read paused download", zap.String("id", id), zap.Error(err))
		return "", false
	}
	if info == nil {
		return "", false
	}
	if err := m.pauses.DeletePaused(id); err != nil {
		m.logger.Error("Failed to delete paused download", zap.String("id", id), zap.Error(err))
	}

	newID := m.restartLocked(info)
	return newID, true
}

// PauseAll pauses every starting, downloading or queued download and returns how many were paused
func (m *DownloadManager) PauseAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseAllLocked()
}

// ResumeAll restarts every persisted paused download and empties the pause store
func (m *DownloadManager) ResumeAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0
	}

	m.terminated = make(map[string]struct{})

	infos, err := m.pauses.ListPaused()
	if err != nil {
		m.logger.Error("Failed to list paused downloads", zap.Error(err))
		return 0
	}
	for _, info := range infos {
		m.restartLocked(info)
	}
	if err := m.pauses.ClearPaused(); err != nil {
		m.logger.Error("Failed to clear paused downloads", zap.Error(err))
	}

	m.logEvent("resume_all", zap.Int("count", len(infos)))
	return len(infos)
}

// Retry restarts an errored or cancelled download under the same id
func (m *DownloadManager) Retry(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.ledger[id]
	if !ok || m.stopped || (rec.Status != domain.StatusError && rec.Status != domain.StatusCancelled) {
		return false
	}

	delete(m.terminated, id)
	if err := m.pauses.DeletePaused(id); err != nil {
		m.logger.Warn("Failed to delete stale paused record", zap.String("id", id), zap.Error(err))
	}

	// a retry is a fresh attempt, not a ledger transition
	rec.Status = domain.StatusStarting
	if rec.IsBatch() {
		rec.Status = domain.StatusQueued
	}
	rec.Progress = 0
	rec.Speed = "0"
	rec.ETA = "0"
	rec.Error = nil
	rec.Timestamp = time.Now()
	m.publishLocked(rec)

	m.logEvent("download_retried", zap.String("id", id), zap.Bool("batch", rec.IsBatch()))
	if rec.IsBatch() {
		m.enqueueLocked(queueItem{downloadID: id})
		return true
	}
	return m.spawnLocked(rec, "", false) == nil
}

// Remove purges a download from history, stopping it first if it is still running
func (m *DownloadManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inLedger := m.ledger[id]
	info, err := m.pauses.GetPaused(id)
	if err != nil {
		m.logger.Warn("Failed to read paused download", zap.String("id", id), zap.Error(err))
	}
	if !inLedger && info == nil {
		return false
	}

	m.dequeueLocked(id)
	if entry := m.registry[id]; entry != nil {
		entry.cancelled = true
		delete(m.registry, id)
		go m.terminate(id, entry.attempt, entry.proc, entry.cleanupPath(), true)
	}
	if err := m.pauses.DeletePaused(id); err != nil {
		m.logger.Warn("Failed to delete paused download", zap.String("id", id), zap.Error(err))
	}
	delete(m.terminated, id)
	m.removeDownloadLocked(id)

	m.logEvent("download_removed", zap.String("id", id))
	return true
}

// Settings returns the current runtime settings
func (m *DownloadManager) Settings() domain.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// UpdateSettings applies a partial settings update, persists it and re-evaluates the batch gate
func (m *DownloadManager) UpdateSettings(patch domain.SettingsPatch) (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, err := m.settings.Merge(patch)
	if err != nil {
		return nil, err
	}
	m.settings = *merged
	if err := m.store.SaveSettings(merged); err != nil {
		m.logger.Error("Failed to persist settings", zap.Error(err))
	}

	m.logEvent("settings_updated", zap.Int("max_concurrent_playlist_downloads", merged.MaxConcurrentPlaylistDownloads))
	m.drainLocked()
	out := m.settings
	return &out, nil
}

// Stats counts ledger entries per status
func (m *DownloadManager) Stats() domain.DownloadStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := domain.DownloadStats{
		Total:        len(m.ledger),
		QueueLength:  len(m.queue),
		BatchWorkers: m.activeBatch,
		MaxBatch:     m.settings.MaxConcurrentPlaylistDownloads,
	}
	for _, rec := range m.ledger {
		switch rec.Status {
		case domain.StatusStarting:
			stats.Starting++
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusDownloading:
			stats.Downloading++
		case domain.StatusFinished:
			stats.Finished++
		case domain.StatusError:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		case domain.StatusPaused:
			stats.Paused++
		}
	}
	return stats
}

// Shutdown pauses everything that is still active so it can be resumed after a restart,
// then waits for the workers to exit or for the timeout to pass.
func (m *DownloadManager) Shutdown(timeout time.Duration) int {
	m.mu.Lock()
	n := m.pauseAllLocked()
	m.stopped = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		m.logger.Warn("Timed out waiting for fetcher processes to exit")
	}
	return n
}

// registerDownloadLocked inserts a ledger entry and broadcasts it
func (m *DownloadManager) registerDownloadLocked(rec *domain.DownloadRecord) {
	m.seq++
	m.order[rec.ID] = m.seq
	m.ledger[rec.ID] = rec
	m.publishLocked(rec)
}

func (m *DownloadManager) removeDownloadLocked(id string) {
	if _, ok := m.ledger[id]; !ok {
		return
	}
	delete(m.ledger, id)
	delete(m.order, id)
	if m.broadcaster != nil {
		m.broadcaster.Publish(domain.ProgressEvent{Type: domain.EventRemoved, DownloadID: id})
	}
}

func (m *DownloadManager) publishLocked(rec *domain.DownloadRecord) {
	if m.broadcaster == nil {
		return
	}
	m.broadcaster.Publish(domain.ProgressEvent{
		Type:           domain.EventProgress,
		DownloadID:     rec.ID,
		DownloadRecord: rec.Clone(),
	})
}

func (m *DownloadManager) updateProgressLocked(id string, patch domain.RecordPatch) bool {
	rec, ok := m.ledger[id]
	if !ok {
		return false
	}
	if entry := m.registry[id]; entry != nil && (entry.cancelled || entry.paused) {
		return false
	}
	if _, terminated := m.terminated[id]; terminated && !patch.IsIntentionalStop() {
		return false
	}
	if patch.Status != nil && !domain.CanTransition(rec.Status, *patch.Status) {
		return false
	}
	patch.Apply(rec)
	m.publishLocked(rec)
	return true
}

// spawnLocked starts a worker for rec and registers it. On failure the record moves to error.
func (m *DownloadManager) spawnLocked(rec *domain.DownloadRecord, outputPath string, batch bool) error {
	if outputPath == "" {
		outputPath = m.outputTemplate(rec)
	}
	args := m.buildArgs(rec, outputPath)

	proc, err := m.spawner.Spawn(rec.ID, args)
	if err != nil {
		msg := fmt.Sprintf("failed to start fetcher: %v", err)
		rec.Status = domain.StatusError
		rec.Error = &msg
		rec.Speed = "0"
		rec.ETA = "0"
		m.publishLocked(rec)
		metrics.DownloadsFailed.Inc()
		m.logger.Error("Failed to spawn fetcher", zap.String("id", rec.ID), zap.Error(err))
		if m.eventLogger != nil {
			m.eventLogger.LogAppError("spawn_failed", zap.String("id", rec.ID), zap.Error(err))
		}
		return err
	}

	m.attempts++
	entry := &processEntry{
		proc:     proc,
		filePath: outputPath,
		attempt:  m.attempts,
		batch:    batch,
	}
	m.registry[rec.ID] = entry
	metrics.DownloadsStarted.Inc()

	m.workers.Add(1)
	go m.supervise(rec.ID, entry.attempt, batch, proc)
	return nil
}

func (m *DownloadManager) cancelLocked(id, queuedMessage string) bool {
	rec, ok := m.ledger[id]
	if !ok || rec.Status == domain.StatusFinished {
		return false
	}

	m.terminated[id] = struct{}{}
	zero := "0"
	cancelled := domain.StatusCancelled

	if m.dequeueLocked(id) {
		if !m.updateProgressLocked(id, domain.RecordPatch{Status: &cancelled, Error: &queuedMessage}) {
			return false
		}
		metrics.DownloadsCancelled.Inc()
		m.logEvent("download_cancelled", zap.String("id", id), zap.Bool("queued", true))
		return true
	}

	if !m.updateProgressLocked(id, domain.RecordPatch{
		Status: &cancelled, Progress: domain.Ptr(0.0), Speed: &zero, ETA: &zero,
	}) {
		return false
	}

	entry := m.registry[id]
	if entry != nil {
		entry.cancelled = true
		delete(m.registry, id)
	}

	info, err := m.pauses.GetPaused(id)
	if err != nil {
		m.logger.Warn("Failed to read paused download", zap.String("id", id), zap.Error(err))
	}
	if err := m.pauses.DeletePaused(id); err != nil {
		m.logger.Warn("Failed to delete paused download", zap.String("id", id), zap.Error(err))
	}

	switch {
	case entry != nil:
		go m.terminate(id, entry.attempt, entry.proc, entry.cleanupPath(), true)
	case info != nil && info.FilePath != "":
		go m.terminate(id, 0, nil, info.FilePath, true)
	}

	metrics.DownloadsCancelled.Inc()
	m.logEvent("download_cancelled", zap.String("id", id))
	return true
}

func (m *DownloadManager) pauseLocked(id string) bool {
	rec, ok := m.ledger[id]
	if !ok {
		return false
	}
	if rec.Status == domain.StatusPaused {
		return true
	}
	if rec.Status != domain.StatusStarting && rec.Status != domain.StatusDownloading {
		return false
	}

	m.terminated[id] = struct{}{}
	zero := "0"
	paused := domain.StatusPaused
	if !m.updateProgressLocked(id, domain.RecordPatch{Status: &paused, Speed: &zero, ETA: &zero}) {
		return false
	}

	entry := m.registry[id]
	filePath := m.outputTemplate(rec)
	if entry != nil {
		entry.paused = true
		filePath = entry.filePath
		delete(m.registry, id)
	}

	m.savePausedLocked(rec, filePath)
	if entry != nil {
		go m.terminate(id, entry.attempt, entry.proc, "", false)
	}

	metrics.DownloadsPaused.Inc()
	m.logEvent("download_paused", zap.String("id", id), zap.Float64("progress", rec.Progress))
	return true
}

func (m *DownloadManager) pauseAllLocked() int {
	var ids []string
	for id, rec := range m.ledger {
		if rec.Status == domain.StatusDownloading || rec.Status == domain.StatusStarting || rec.Status == domain.StatusQueued {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return m.order[ids[i]] < m.order[ids[j]] })

	for _, id := range ids {
		m.terminated[id] = struct{}{}
	}

	count := 0
	for _, id := range ids {
		if m.isQueuedLocked(id) {
			if m.parkQueuedLocked(id) {
				count++
			}
			continue
		}
		if m.pauseLocked(id) {
			count++
		}
	}

	m.logEvent("pause_all", zap.Int("count", count))
	return count
}

// parkQueuedLocked takes a never-started batch item out of the queue and persists it as paused,
// so a bulk pause can be undone by a bulk resume.
func (m *DownloadManager) parkQueuedLocked(id string) bool {
	item, ok := m.takeQueuedLocked(id)
	if !ok {
		return false
	}
	rec := m.ledger[id]
	paused := domain.StatusPaused
	if !m.updateProgressLocked(id, domain.RecordPatch{Status: &paused}) {
		// queued cannot move to paused through the transition table
		rec.Status = domain.StatusPaused
		m.publishLocked(rec)
	}
	filePath := item.outputPath
	if filePath == "" {
		filePath = m.outputTemplate(rec)
	}
	m.savePausedLocked(rec, filePath)
	metrics.DownloadsPaused.Inc()
	return true
}

func (m *DownloadManager) savePausedLocked(rec *domain.DownloadRecord, filePath string) {
	info := &domain.PausedDownloadInfo{
		DownloadID: rec.ID,
		URL:        rec.URL,
		FormatID:   rec.FormatID,
		SaveDir:    rec.SaveDir,
		Title:      rec.Title,
		Thumbnail:  rec.Thumbnail,
		Filename:   rec.Filename,
		Progress:   rec.Progress,
		FilePath:   filePath,
		BatchID:    rec.BatchID,
		Index:      rec.Index,
		Timestamp:  time.Now(),
	}
	if err := m.pauses.SavePaused(info); err != nil {
		m.logger.Error("Failed to persist paused download", zap.String("id", rec.ID), zap.Error(err))
		if m.eventLogger != nil {
			m.eventLogger.LogAppError("pause_persist_failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}
}

// restartLocked replaces a paused record with a new attempt writing to the same output path
func (m *DownloadManager) restartLocked(info *domain.PausedDownloadInfo) string {
	m.removeDownloadLocked(info.DownloadID)

	newID := domain.NewDownloadID()
	if info.BatchID != nil {
		rec := recordFromPaused(newID, info, domain.StatusQueued)
		m.registerDownloadLocked(rec)
		m.enqueueLocked(queueItem{downloadID: newID, outputPath: info.FilePath})
	} else {
		rec := recordFromPaused(newID, info, domain.StatusStarting)
		m.registerDownloadLocked(rec)
		_ = m.spawnLocked(rec, info.FilePath, false)
	}

	m.logEvent("download_resumed", zap.String("previous_id", info.DownloadID), zap.String("id", newID))
	return newID
}

// terminate kills a worker's process group and, for a cancel, removes its partial files once it is gone.
// attempt is the killed worker's attempt, 0 when no process was running.
func (m *DownloadManager) terminate(id string, attempt uint64, proc domain.Process, cleanupPath string, withThumbnails bool) {
	if proc != nil {
		if err := proc.Terminate(); err != nil {
			m.logger.Warn("Failed to terminate fetcher", zap.String("id", id), zap.Error(err))
		}
		select {
		case <-proc.Exited():
		case <-time.After(m.config.Queue.KillGracePeriod):
			m.logger.Warn("Fetcher still running after kill", zap.String("id", id), zap.Int("pid", proc.Pid()))
		}
	}
	if cleanupPath == "" || m.cleaner == nil {
		return
	}

	// held across the removal so a retry cannot spawn onto the same template meanwhile
	m.mu.Lock()
	defer m.mu.Unlock()
	if current := m.registry[id]; current != nil && current.attempt > attempt {
		m.logger.Debug("Skipping partial file cleanup, download restarted",
			zap.String("id", id), zap.Uint64("attempt", current.attempt))
		return
	}
	if _, err := m.cleaner.RemovePartialFiles(cleanupPath, withThumbnails); err != nil {
		m.logger.Warn("Failed to remove partial files", zap.String("id", id), zap.Error(err))
	}
}

func (m *DownloadManager) logEvent(event string, fields ...zap.Field) {
	m.logger.Info(event, fields...)
	if m.eventLogger != nil {
		m.eventLogger.LogQueueEvent(event, fields...)
	}
}

func recordFromRequest(id string, req domain.DownloadRequest, status domain.DownloadStatus) *domain.DownloadRecord {
	rec := domain.NewDownloadRecord(id, status)
	rec.URL = req.URL
	rec.FormatID = req.FormatID
	rec.SaveDir = req.SaveDir
	rec.Title = req.Title
	rec.Thumbnail = req.Thumbnail
	rec.BatchID = req.BatchID
	rec.Index = req.Index
	return rec.Clone()
}

func recordFromPaused(id string, info *domain.PausedDownloadInfo, status domain.DownloadStatus) *domain.DownloadRecord {
	return recordFromRequest(id, domain.DownloadRequest{
		URL:       info.URL,
		FormatID:  info.FormatID,
		SaveDir:   info.SaveDir,
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		BatchID:   info.BatchID,
		Index:     info.Index,
	}, status)
}
