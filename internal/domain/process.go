package domain

import "io"

// Process is a running fetcher worker as seen by the supervisor
type Process interface {
	// Pid returns the operating system process id
	Pid() int

	// Stdout streams the fetcher's standard output
	Stdout() io.Reader

	// Wait blocks until the process exits and returns its exit code.
	// It must be called once, after Stdout has been drained.
	Wait() (int, error)

	// Exited is closed as soon as the process has exited
	Exited() <-chan struct{}

	// StderrTail returns the last bytes the process wrote to stderr
	StderrTail() string

	// Terminate force-kills the whole process group
	Terminate() error
}

// ProcessSpawner starts fetcher processes with a fully formed argument list
type ProcessSpawner interface {
	Spawn(downloadID string, args []string) (Process, error)
}

// FileCleaner removes temporary files left behind by an interrupted fetcher
type FileCleaner interface {
	// RemovePartialFiles deletes partial/fragment files for an output template.
	// Thumbnail files written mid-download are removed too when withThumbnails is set.
	RemovePartialFiles(outputTemplate string, withThumbnails bool) ([]string, error)
}

// ThumbnailIndex answers whether a thumbnail already exists for a logical name
type ThumbnailIndex interface {
	HasThumbnail(name string) bool
}

// Notifier is told about downloads that reached a final outcome
type Notifier interface {
	NotifyDownloadFinished(record *DownloadRecord)
	NotifyDownloadFailed(record *DownloadRecord)
}
