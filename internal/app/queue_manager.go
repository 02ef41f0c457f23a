package app

import (
	"time"

	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/metrics"
	"go.uber.org/zap"
)

// queueItem is a batch download waiting for a worker slot
type queueItem struct {
	downloadID string
	outputPath string // set when a paused item re-enters the queue
	enqueuedAt time.Time
}

// enqueueLocked appends an item and starts it right away if a slot is free
func (m *DownloadManager) enqueueLocked(item queueItem) {
	item.enqueuedAt = time.Now()
	m.queue = append(m.queue, item)
	metrics.BatchQueueLength.Set(float64(len(m.queue)))

	m.logEvent("download_queued",
		zap.String("id", item.downloadID),
		zap.Int("queue_length", len(m.queue)))

	m.drainLocked()
}

// drainLocked starts queued items, oldest first, while batch slots are free
func (m *DownloadManager) drainLocked() {
	if m.stopped {
		return
	}

	for m.activeBatch < m.settings.MaxConcurrentPlaylistDownloads && len(m.queue) > 0 {
		item := m.queue[0]
		m.queue = m.queue[1:]

		rec, ok := m.ledger[item.downloadID]
		if !ok || rec.Status == domain.StatusCancelled {
			continue
		}

		m.activeBatch++
		m.updateProgressLocked(item.downloadID, domain.StatusPatch(domain.StatusStarting))

		m.logEvent("download_dequeued",
			zap.String("id", item.downloadID),
			zap.Duration("waited", time.Since(item.enqueuedAt)),
			zap.Int("active_batch_workers", m.activeBatch))

		if err := m.spawnLocked(rec, item.outputPath, true); err != nil {
			// a spawn failure never held the slot
			m.activeBatch--
		}
	}

	metrics.BatchQueueLength.Set(float64(len(m.queue)))
	metrics.BatchWorkersActive.Set(float64(m.activeBatch))
}

// releaseBatchSlotLocked frees the slot of an exited batch worker and drains again,
// once now and once more after the cooldown.
func (m *DownloadManager) releaseBatchSlotLocked(id string) {
	if m.activeBatch > 0 {
		m.activeBatch--
	}
	m.logEvent("batch_worker_released",
		zap.String("id", id),
		zap.Int("active_batch_workers", m.activeBatch),
		zap.Int("queue_length", len(m.queue)))

	m.drainLocked()

	time.AfterFunc(m.config.Queue.DrainCooldown, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.drainLocked()
	})
}

// isQueuedLocked reports whether id is waiting in the batch queue
func (m *DownloadManager) isQueuedLocked(id string) bool {
	for _, item := range m.queue {
		if item.downloadID == id {
			return true
		}
	}
	return false
}

// takeQueuedLocked removes id from the queue in place and returns its item
func (m *DownloadManager) takeQueuedLocked(id string) (queueItem, bool) {
	for i, item := range m.queue {
		if item.downloadID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			metrics.BatchQueueLength.Set(float64(len(m.queue)))
			return item, true
		}
	}
	return queueItem{}, false
}

// dequeueLocked removes id from the queue and reports whether it was there
func (m *DownloadManager) dequeueLocked(id string) bool {
	_, ok := m.takeQueuedLocked(id)
	return ok
}
