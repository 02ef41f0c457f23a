package app

import (
	"errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/mediashelf/internal/domain"
)

// fakeProcess is a fetcher whose output and exit are driven by the test
type fakeProcess struct {
	pid     int
	args    []string
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	exited  chan struct{}
	once    sync.Once

	mu         sync.Mutex
	code       int
	stderr     string
	terminated atomic.Bool
	ignoreKill atomic.Bool // survives Terminate, like a hung fetcher
}

func newFakeProcess(pid int, args []string) *fakeProcess {
	r, w := io.Pipe()
	return &fakeProcess{pid: pid, args: args, stdoutR: r, stdoutW: w, exited: make(chan struct{})}
}

func (p *fakeProcess) emit(lines ...string) {
	for _, l := range lines {
		_, _ = p.stdoutW.Write([]byte(l + "\n"))
	}
}

func (p *fakeProcess) exit(code int, stderr string) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code = code
		p.stderr = stderr
		p.mu.Unlock()
		_ = p.stdoutW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) isExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// arg returns the value following flag in the argument list
func (p *fakeProcess) arg(flag string) string {
	for i := 0; i < len(p.args)-1; i++ {
		if p.args[i] == flag {
			return p.args[i+1]
		}
	}
	return ""
}

func (p *fakeProcess) Pid() int                { return p.pid }
func (p *fakeProcess) Stdout() io.Reader       { return p.stdoutR }
func (p *fakeProcess) Exited() <-chan struct{} { return p.exited }

func (p *fakeProcess) Wait() (int, error) {
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, nil
}

func (p *fakeProcess) StderrTail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stderr
}

func (p *fakeProcess) Terminate() error {
	p.terminated.Store(true)
	if !p.ignoreKill.Load() {
		p.exit(-1, "")
	}
	return nil
}

type fakeSpawner struct {
	mu    sync.Mutex
	procs []*fakeProcess
	byID  map[string][]*fakeProcess
	err   error
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{byID: make(map[string][]*fakeProcess)}
}

func (s *fakeSpawner) Spawn(downloadID string, args []string) (domain.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(1000+len(s.procs), append([]string(nil), args...))
	s.procs = append(s.procs, p)
	s.byID[downloadID] = append(s.byID[downloadID], p)
	return p, nil
}

func (s *fakeSpawner) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSpawner) last(id string) *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.byID[id]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

func (s *fakeSpawner) spawnCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID[id])
}

func (s *fakeSpawner) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *fakeSpawner) running() []*fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeProcess
	for _, p := range s.procs {
		if !p.isExited() {
			out = append(out, p)
		}
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

type memPauseStore struct {
	mu      sync.Mutex
	records map[string]*domain.PausedDownloadInfo
	seq     map[string]int
	next    int
	fail    bool
}

func newMemPauseStore() *memPauseStore {
	return &memPauseStore{records: make(map[string]*domain.PausedDownloadInfo), seq: make(map[string]int)}
}

func (s *memPauseStore) SavePaused(info *domain.PausedDownloadInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	c := *info
	if _, ok := s.records[info.DownloadID]; !ok {
		s.next++
		s.seq[info.DownloadID] = s.next
	}
	s.records[info.DownloadID] = &c
	return nil
}

func (s *memPauseStore) GetPaused(id string) (*domain.PausedDownloadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	if r, ok := s.records[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, nil
}

func (s *memPauseStore) DeletePaused(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	delete(s.records, id)
	delete(s.seq, id)
	return nil
}

func (s *memPauseStore) ListPaused() ([]*domain.PausedDownloadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	out := make([]*domain.PausedDownloadInfo, 0, len(s.records))
	for _, r := range s.records {
		c := *r
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return s.seq[out[i].DownloadID] < s.seq[out[j].DownloadID]
	})
	return out, nil
}

func (s *memPauseStore) ClearPaused() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	s.records = make(map[string]*domain.PausedDownloadInfo)
	s.seq = make(map[string]int)
	return nil
}

func (s *memPauseStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memSettingsStore struct {
	mu       sync.Mutex
	settings *domain.Settings
	fail     bool
}

func (s *memSettingsStore) LoadSettings() (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	if s.settings == nil {
		return nil, nil
	}
	c := *s.settings
	return &c, nil
}

func (s *memSettingsStore) SaveSettings(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	c := *settings
	s.settings = &c
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (b *recordingBroadcaster) Publish(e domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBroadcaster) removed(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Type == domain.EventRemoved && e.DownloadID == id {
			return true
		}
	}
	return false
}

func (b *recordingBroadcaster) statuses(id string) []domain.DownloadStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.DownloadStatus
	for _, e := range b.events {
		if e.Type == domain.EventProgress && e.DownloadID == id {
			if len(out) == 0 || out[len(out)-1] != e.Status {
				out = append(out, e.Status)
			}
		}
	}
	return out
}

type cleanupCall struct {
	path           string
	withThumbnails bool
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls []cleanupCall
}

func (c *fakeCleaner) RemovePartialFiles(path string, withThumbnails bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cleanupCall{path: path, withThumbnails: withThumbnails})
	return nil, nil
}

func (c *fakeCleaner) snapshot() []cleanupCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cleanupCall(nil), c.calls...)
}

type fakeThumbnails map[string]bool

func (f fakeThumbnails) HasThumbnail(name string) bool { return f[name] }

type fakeNotifier struct {
	finished atomic.Int32
	failed   atomic.Int32
}

func (n *fakeNotifier) NotifyDownloadFinished(*domain.DownloadRecord) { n.finished.Add(1) }
func (n *fakeNotifier) NotifyDownloadFailed(*domain.DownloadRecord)   { n.failed.Add(1) }

type testEnv struct {
	m           *DownloadManager
	spawner     *fakeSpawner
	pauses      *memPauseStore
	settings    *memSettingsStore
	broadcaster *recordingBroadcaster
	cleaner     *fakeCleaner
	notifier    *fakeNotifier
}

func testConfig(maxBatch int) *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Download.BaseDir = "/videos"
	cfg.Queue.MaxConcurrentPlaylistDownloads = maxBatch
	cfg.Queue.DrainCooldown = 10 * time.Millisecond
	cfg.Queue.KillGracePeriod = 200 * time.Millisecond
	return cfg
}

func newTestEnv(t *testing.T, maxBatch int) *testEnv {
	t.Helper()
	env := &testEnv{
		spawner:     newFakeSpawner(),
		pauses:      newMemPauseStore(),
		settings:    &memSettingsStore{},
		broadcaster: &recordingBroadcaster{},
		cleaner:     &fakeCleaner{},
		notifier:    &fakeNotifier{},
	}
	env.m = NewDownloadManager(testConfig(maxBatch), Dependencies{
		Spawner:     env.spawner,
		Pauses:      env.pauses,
		Settings:    env.settings,
		Broadcaster: env.broadcaster,
		Cleaner:     env.cleaner,
		Thumbnails:  fakeThumbnails{},
		Notifier:    env.notifier,
	})
	t.Cleanup(func() {
		for _, p := range env.spawner.running() {
			p.exit(0, "")
		}
	})
	return env
}

func (env *testEnv) status(id string) domain.DownloadStatus {
	rec, ok := env.m.GetStatus(id)
	if !ok {
		return ""
	}
	return rec.Status
}

func (env *testEnv) waitStatus(t *testing.T, id string, want domain.DownloadStatus) {
	t.Helper()
	assert.Eventually(t, func() bool { return env.status(id) == want },
		2*time.Second, 5*time.Millisecond, "download %s never reached %s (now %s)", id, want, env.status(id))
}

func (env *testEnv) waitSpawned(t *testing.T, id string, n int) *fakeProcess {
	t.Helper()
	assert.Eventually(t, func() bool { return env.spawner.spawnCount(id) >= n },
		2*time.Second, 5*time.Millisecond, "download %s spawned fewer than %d times", id, n)
	return env.spawner.last(id)
}

func request(url string) domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:      url,
		FormatID: "137+140",
		SaveDir:  "Talks",
		Title:    domain.Ptr("My Talk"),
	}
}

func batchRequest(url, batchID string, index int) domain.DownloadRequest {
	req := request(url)
	req.Title = domain.Ptr("Episode")
	req.BatchID = domain.Ptr(batchID)
	req.Index = domain.Ptr(index)
	return req
}
