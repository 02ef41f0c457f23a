package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediashelf_downloads_started_total",
		Help: "Total number of fetcher processes spawned",
	})

	DownloadsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediashelf_downloads_finished_total",
		Help: "Total number of downloads that exited successfully",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediashelf_downloads_failed_total",
		Help: "Total number of downloads that failed to spawn or exited nonzero",
	})

	DownloadsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediashelf_downloads_cancelled_total",
		Help: "Total number of downloads cancelled by the user",
	})

	DownloadsPaused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediashelf_downloads_paused_total",
		Help: "Total number of downloads paused",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediashelf_download_duration_seconds",
		Help:    "Wall time of successful fetcher runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	BatchQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediashelf_batch_queue_length",
		Help: "Number of batch items waiting for a worker slot",
	})

	BatchWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediashelf_batch_workers_active",
		Help: "Number of batch worker slots in use",
	})
)
