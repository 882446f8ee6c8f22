// Package recorder implements the face-capture recording session: header
// initialization, per-tick sampling with duplicate suppression, and CSV export.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/scheduler"
	"github.com/OCAP2/facecsv/internal/storage"
	"github.com/OCAP2/facecsv/internal/storage/csvfile"
	"github.com/OCAP2/facecsv/pkg/core"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultFilename   = "LiveLinkFaceData.csv"
	DefaultSaveFolder = "LiveLinkExports"
	DefaultExportRoot = "Saved"
)

var (
	// ErrNoSubject is returned by Start when no subject has been set.
	ErrNoSubject = errors.New("no subject set")

	// ErrNothingToExport is returned by Export when the buffer is empty.
	ErrNothingToExport = errors.New("no data to export")

	// ErrNoClient is returned when no upstream client is configured.
	ErrNoClient = errors.New("no livelink client")
)

// Config holds the initial session settings.
type Config struct {
	Subject    string
	Filename   string
	ExportRoot string // relative save folders resolve against this
	SaveFolder string
}

// Dependencies holds collaborators injected into the recorder.
type Dependencies struct {
	Client    livelink.Client
	Scheduler scheduler.Scheduler
	Archives  []storage.Backend
	Logger    *slog.Logger
	Now       func() time.Time
}

// Stats are cumulative counters since the recorder was created.
type Stats struct {
	Ticks         int64
	Appended      int64
	Duplicates    int64
	Skipped       int64
	Exports       int64
	ArchiveErrors int64
}

// Status is a point-in-time view of the session.
type Status struct {
	Subject       string
	Recording     bool
	HeaderWritten bool
	Rows          int
	Filename      string
	SaveFolder    string
	Stats         Stats
}

// StateFunc observes subject and recording changes. It is called with the
// session lock held and must not call back into the Recorder.
type StateFunc func(subject string, recording bool)

// Recorder is the recording session. It is owned by one host component and
// safe for use from the tick goroutine and the command thread concurrently.
type Recorder struct {
	mu        sync.Mutex
	archiveMu sync.Mutex
	onState   StateFunc

	client   livelink.Client
	sched    scheduler.Scheduler
	archives []storage.Backend
	logger   *slog.Logger
	now      func() time.Time
	metrics  *metrics

	exportRoot string
	subject    string
	filename   string
	folder     string

	recording     bool
	headerWritten bool
	rows          []string
	columnNames   []string
	lastValues    []float64
	hasLast       bool
	frames        []core.FrameRecord
	startedAt     time.Time

	stats Stats
}

// New creates a recorder in the Idle state.
func New(cfg Config, deps Dependencies) (*Recorder, error) {
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.NewManual()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		client:     deps.Client,
		sched:      deps.Scheduler,
		archives:   deps.Archives,
		logger:     deps.Logger,
		now:        deps.Now,
		metrics:    m,
		exportRoot: cfg.ExportRoot,
		subject:    cfg.Subject,
		filename:   DefaultFilename,
	}
	if r.exportRoot == "" {
		r.exportRoot = DefaultExportRoot
	}
	if cfg.Filename != "" {
		r.filename = csvfile.EnsureExtension(cfg.Filename)
	}
	saveFolder := cfg.SaveFolder
	if saveFolder == "" {
		saveFolder = DefaultSaveFolder
	}
	r.folder = r.resolveFolder(saveFolder)

	return r, nil
}

// SetSubjectName selects the subject to record. Clearing the subject while
// recording stops the recording.
func (r *Recorder) SetSubjectName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subject = name
	r.logger.Info("Subject set", "subject", name)

	if name == "" && r.recording {
		r.stopLocked()
	}
	r.notifyLocked()
}

// SubjectName returns the current subject, empty when unset.
func (r *Recorder) SubjectName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subject
}

// SetFilename sets the output filename, appending ".csv" when missing.
func (r *Recorder) SetFilename(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filename = csvfile.EnsureExtension(name)
	r.logger.Info("Filename set", "filename", r.filename)
}

// Filename returns the output filename.
func (r *Recorder) Filename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filename
}

// SetSaveFolder sets the output folder. Relative paths resolve against the
// export root; trailing separators are dropped.
func (r *Recorder) SetSaveFolder(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.folder = r.resolveFolder(path)
	r.logger.Info("Export folder set", "folder", r.folder)
}

// SaveFolder returns the resolved output folder.
func (r *Recorder) SaveFolder() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.folder
}

// OutputPath returns the file Export writes to.
func (r *Recorder) OutputPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filepath.Join(r.folder, r.filename)
}

func (r *Recorder) resolveFolder(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.exportRoot, path)
	}
	return filepath.Clean(path)
}

// IsSubjectAvailable reports whether the upstream client currently knows the subject.
func (r *Recorder) IsSubjectAvailable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return livelink.HasSubject(r.client, r.subject)
}

// Start begins a new recording, discarding any unexported rows.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subject == "" {
		r.logger.Error("Cannot start recording: no subject set")
		return ErrNoSubject
	}

	r.recording = true
	r.headerWritten = false
	r.rows = nil
	r.columnNames = nil
	r.lastValues = nil
	r.hasLast = false
	r.frames = nil
	r.startedAt = r.now()
	r.sched.Register(r.tick)
	r.notifyLocked()

	r.logger.Info("Started recording", "subject", r.subject)
	return nil
}

// Stop ends sampling. Buffered rows are kept for Export.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Recorder) stopLocked() {
	r.recording = false
	r.sched.Unregister()
	r.notifyLocked()
	r.logger.Info("Stopped recording", "rows", len(r.rows))
}

// OnStateChange installs fn and calls it once with the current state. Stops
// made by the tick goroutine are reported too.
func (r *Recorder) OnStateChange(fn StateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onState = fn
	r.notifyLocked()
}

func (r *Recorder) notifyLocked() {
	if r.onState != nil {
		r.onState(r.subject, r.recording)
	}
}

// IsRecording reports whether the session is sampling.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// HeaderWritten reports whether the header row has been initialized.
func (r *Recorder) HeaderWritten() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headerWritten
}

// Rows returns a copy of the buffered rows, header first.
func (r *Recorder) Rows() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rows)
}

// ColumnNames returns a copy of the property names from the header.
func (r *Recorder) ColumnNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.columnNames)
}

// Status returns a snapshot of the session.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Subject:       r.subject,
		Recording:     r.recording,
		HeaderWritten: r.headerWritten,
		Rows:          len(r.rows),
		Filename:      r.filename,
		SaveFolder:    r.folder,
		Stats:         r.stats,
	}
}

// Export writes the buffered rows to SaveFolder/Filename and returns the
// path written. The recording is then handed to every archive backend after
// the session lock is released, so sampling continues while archives work.
// Archive failures are logged only.
func (r *Recorder) Export() (string, error) {
	r.mu.Lock()
	if len(r.rows) == 0 {
		r.mu.Unlock()
		r.logger.Warn("No data to export")
		return "", ErrNothingToExport
	}

	path := filepath.Join(r.folder, r.filename)
	if err := csvfile.Write(path, r.rows); err != nil {
		r.mu.Unlock()
		r.logger.Error("Failed to save CSV", "path", path, "error", err)
		return "", fmt.Errorf("export %s: %w", path, err)
	}

	r.stats.Exports++
	r.metrics.exported(len(r.rows))
	r.logger.Info("Exported rows", "rows", len(r.rows), "path", path)

	var rec *core.Recording
	if len(r.archives) > 0 {
		rec = r.recordingLocked(path)
	}
	r.mu.Unlock()

	if rec != nil {
		r.archive(rec)
	}
	return path, nil
}

// archive runs the backends one export at a time.
func (r *Recorder) archive(rec *core.Recording) {
	r.archiveMu.Lock()
	defer r.archiveMu.Unlock()

	for _, b := range r.archives {
		if err := b.StoreRecording(rec); err != nil {
			r.mu.Lock()
			r.stats.ArchiveErrors++
			r.mu.Unlock()
			r.metrics.archiveFailed(storage.NameOf(b))
			r.logger.Error("Failed to archive recording", "backend", storage.NameOf(b), "error", err)
		}
	}
}

func (r *Recorder) recordingLocked(path string) *core.Recording {
	frames := make([]core.FrameRecord, len(r.frames))
	for i, f := range r.frames {
		f.Values = slices.Clone(f.Values)
		frames[i] = f
	}
	return &core.Recording{
		Subject:     r.subject,
		FilePath:    path,
		ColumnNames: slices.Clone(r.columnNames),
		Rows:        slices.Clone(r.rows),
		Frames:      frames,
		StartedAt:   r.startedAt,
		ExportedAt:  r.now(),
	}
}
