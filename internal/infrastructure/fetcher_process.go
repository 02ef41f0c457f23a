package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/pkg/logger"
	"go.uber.org/zap"
)

// StderrTailSize is how much trailing diagnostic output is kept per process
const StderrTailSize = 2048

// waitDelay bounds how long Wait keeps copying stderr after the fetcher exits
const waitDelay = 5 * time.Second

// FetcherSpawner launches the external fetcher binary in its own process group
type FetcherSpawner struct {
	binary      string
	eventLogger *logger.MultiLogger // raw output goes to the daily download log when set
	logger      *zap.Logger
}

// NewFetcherSpawner creates a spawner for the given binary
func NewFetcherSpawner(binary string, eventLogger *logger.MultiLogger, log *zap.Logger) *FetcherSpawner {
	if log == nil {
		log = zap.NewNop()
	}
	return &FetcherSpawner{
		binary:      binary,
		eventLogger: eventLogger,
		logger:      log,
	}
}

// Spawn starts the fetcher with args. Stdout is handed back unbuffered so progress can be parsed line by line.
func (s *FetcherSpawner) Spawn(downloadID string, args []string) (domain.Process, error) {
	cmd := exec.Command(s.binary, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	dlog := s.openDownloadLog(downloadID, args)

	// a plain os.Pipe keeps the read end open after Wait so no trailing output is lost
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		dlog.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	tail := newTailBuffer(StderrTailSize)
	cmd.Stderr = io.MultiWriter(tail, dlog)

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		dlog.footer(false, err.Error())
		dlog.Close()
		return nil, fmt.Errorf("failed to start %s: %w", s.binary, err)
	}
	stdoutW.Close()

	p := &fetcherProcess{
		cmd:    cmd,
		stdout: stdoutR,
		reader: io.TeeReader(stdoutR, dlog),
		tail:   tail,
		dlog:   dlog,
		exited: make(chan struct{}),
	}
	go p.reap()

	s.logger.Debug("Fetcher started",
		zap.String("download_id", downloadID),
		zap.Int("pid", cmd.Process.Pid))
	return p, nil
}

func (s *FetcherSpawner) openDownloadLog(downloadID string, args []string) *downloadLog {
	if s.eventLogger == nil {
		return &downloadLog{}
	}
	file, err := s.eventLogger.OpenDownloadLog()
	if err != nil {
		s.logger.Warn("Failed to open download log", zap.Error(err))
		return &downloadLog{}
	}
	dl := &downloadLog{file: file}
	dl.header(downloadID, shellescape.QuoteCommand(append([]string{s.binary}, args...)))
	return dl
}

type fetcherProcess struct {
	cmd    *exec.Cmd
	stdout *os.File
	reader io.Reader
	tail   *tailBuffer
	dlog   *downloadLog

	exited   chan struct{}
	code     int
	waitErr  error
	waitOnce sync.Once
}

func (p *fetcherProcess) reap() {
	err := p.cmd.Wait()
	p.code = p.cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		p.waitErr = err
	}
	close(p.exited)
}

func (p *fetcherProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *fetcherProcess) Stdout() io.Reader {
	return p.reader
}

func (p *fetcherProcess) Exited() <-chan struct{} {
	return p.exited
}

// Wait blocks until the fetcher exits and returns its exit code; -1 means killed by a signal
func (p *fetcherProcess) Wait() (int, error) {
	<-p.exited
	p.waitOnce.Do(func() {
		p.stdout.Close()
		if p.code == 0 {
			p.dlog.footer(true, "exit code 0")
		} else {
			p.dlog.footer(false, fmt.Sprintf("exit code %d", p.code))
		}
		p.dlog.Close()
	})
	return p.code, p.waitErr
}

func (p *fetcherProcess) StderrTail() string {
	return p.tail.String()
}

func (p *fetcherProcess) Terminate() error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	return terminateProcessGroup(p.cmd)
}

// downloadLog is the raw per-day fetcher transcript. Writes after Close are dropped.
type downloadLog struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

func (l *downloadLog) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && !l.closed {
		_, _ = l.file.Write(b)
	}
	return len(b), nil
}

func (l *downloadLog) header(downloadID, cmdLine string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l, "\n=== [%s] Download: %s ===\n$ %s\n", ts, downloadID, cmdLine)
}

func (l *downloadLog) footer(success bool, message string) {
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l, "[%s] %s: %s\n=== END ===\n\n", ts, status, message)
}

func (l *downloadLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil && !l.closed {
		_ = l.file.Close()
	}
	l.closed = true
}

// tailBuffer keeps only the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0:0], t.buf[over:]...)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
