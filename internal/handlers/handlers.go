// Package handlers exposes the recorder to the host as dispatcher commands.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/facecsv/internal/dispatcher"
	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/logging"
	"github.com/OCAP2/facecsv/internal/recorder"
	"github.com/OCAP2/facecsv/internal/scheduler"
	"github.com/OCAP2/facecsv/internal/util"
)

// Command names understood by the extension.
const (
	CmdVersion          = ":VERSION:"
	CmdSetSubject       = ":SET:SUBJECT:"
	CmdSetFilename      = ":SET:FILENAME:"
	CmdSetFolder        = ":SET:FOLDER:"
	CmdGetFolder        = ":GET:FOLDER:"
	CmdStart            = ":START:"
	CmdStop             = ":STOP:"
	CmdExport           = ":EXPORT:"
	CmdExportAsync      = ":EXPORT:ASYNC:"
	CmdSubjectAvailable = ":SUBJECT:AVAILABLE:"
	CmdSubjects         = ":SUBJECTS:"
	CmdStatus           = ":STATUS:"
	CmdTick             = ":TICK:"
)

// Callback names sent after an asynchronous export.
const (
	CallbackExportDone   = ":EXPORT:DONE:"
	CallbackExportFailed = ":EXPORT:FAILED:"
)

// exportQueueSize bounds pending asynchronous exports.
const exportQueueSize = 4

var (
	// ErrEmptyValue is returned when a setter receives an empty string.
	ErrEmptyValue = errors.New("value must not be empty")

	// ErrNotHostTicked is returned by :TICK: when a timer drives sampling.
	ErrNotHostTicked = errors.New("sampling is not host-driven")
)

// Notifier delivers asynchronous results back to the host.
type Notifier func(function string, data ...string) bool

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Recorder  *recorder.Recorder
	Client    livelink.Client
	Manual    *scheduler.Manual // nil unless the host drives ticks
	Session   *logging.SessionAttrs
	Notify    Notifier
	Logger    *slog.Logger
	Version   string
	BuildDate string
}

// Service implements the command handlers.
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = &logging.SessionAttrs{}
	}
	s := &Service{deps: deps}
	deps.Recorder.OnStateChange(deps.Session.Set)
	return s
}

// Register adds every command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdVersion, s.Version)
	d.Register(CmdSetSubject, s.SetSubject, dispatcher.Logged())
	d.Register(CmdSetFilename, s.SetFilename, dispatcher.Logged())
	d.Register(CmdSetFolder, s.SetFolder, dispatcher.Logged())
	d.Register(CmdGetFolder, s.GetFolder)
	d.Register(CmdStart, s.Start, dispatcher.Logged())
	d.Register(CmdStop, s.Stop, dispatcher.Logged())
	d.Register(CmdExport, s.Export, dispatcher.Logged())
	d.Register(CmdExportAsync, s.ExportAsync, dispatcher.Buffered(exportQueueSize), dispatcher.Logged())
	d.Register(CmdSubjectAvailable, s.SubjectAvailable)
	d.Register(CmdSubjects, s.Subjects)
	d.Register(CmdStatus, s.Status)
	if s.deps.Manual != nil {
		d.Register(CmdTick, s.Tick)
	}
}

// Version returns the extension version and build date.
func (s *Service) Version(dispatcher.Event) (any, error) {
	return []string{s.deps.Version, s.deps.BuildDate}, nil
}

// SetSubject selects the subject. An empty name clears it and stops any recording.
func (s *Service) SetSubject(e dispatcher.Event) (any, error) {
	name, err := util.ArgAt(e.Args, 0)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	s.deps.Recorder.SetSubjectName(name)
	return "ok", nil
}

// SetFilename sets the output filename.
func (s *Service) SetFilename(e dispatcher.Event) (any, error) {
	name, err := util.ArgAt(e.Args, 0)
	if err != nil {
		return nil, fmt.Errorf("filename: %w", err)
	}
	if name == "" {
		return nil, fmt.Errorf("filename: %w", ErrEmptyValue)
	}
	s.deps.Recorder.SetFilename(name)
	return s.deps.Recorder.Filename(), nil
}

// SetFolder sets the output folder and returns the resolved path.
func (s *Service) SetFolder(e dispatcher.Event) (any, error) {
	path, err := util.ArgAt(e.Args, 0)
	if err != nil {
		return nil, fmt.Errorf("folder: %w", err)
	}
	if path == "" {
		return nil, fmt.Errorf("folder: %w", ErrEmptyValue)
	}
	s.deps.Recorder.SetSaveFolder(path)
	return s.deps.Recorder.SaveFolder(), nil
}

// GetFolder returns the resolved output folder.
func (s *Service) GetFolder(dispatcher.Event) (any, error) {
	return s.deps.Recorder.SaveFolder(), nil
}

// Start begins recording. An optional first argument sets the subject first.
func (s *Service) Start(e dispatcher.Event) (any, error) {
	if name := util.OptionalArg(e.Args, 0); name != "" {
		s.deps.Recorder.SetSubjectName(name)
	}
	if err := s.deps.Recorder.Start(); err != nil {
		return nil, err
	}
	return "ok", nil
}

// Stop ends sampling; buffered rows are kept.
func (s *Service) Stop(dispatcher.Event) (any, error) {
	s.deps.Recorder.Stop()
	return nil, nil
}

// Export writes the buffer to disk and returns the file path.
func (s *Service) Export(dispatcher.Event) (any, error) {
	path, err := s.deps.Recorder.Export()
	if err != nil {
		return nil, err
	}
	return path, nil
}

// ExportAsync runs Export off the host thread and reports through Notify.
func (s *Service) ExportAsync(e dispatcher.Event) (any, error) {
	result, err := s.Export(e)
	if err != nil {
		s.notify(CallbackExportFailed, err.Error())
		return nil, err
	}
	s.notify(CallbackExportDone, fmt.Sprint(result))
	return result, nil
}

// SubjectAvailable reports whether the current subject is streaming.
func (s *Service) SubjectAvailable(dispatcher.Event) (any, error) {
	return s.deps.Recorder.IsSubjectAvailable(), nil
}

// Subjects lists every subject the upstream client knows.
func (s *Service) Subjects(dispatcher.Event) (any, error) {
	if s.deps.Client == nil {
		return []string{}, nil
	}
	return s.deps.Client.ListSubjects(), nil
}

// Status returns [subject, recording, headerWritten, rows, filename, folder].
func (s *Service) Status(dispatcher.Event) (any, error) {
	st := s.deps.Recorder.Status()
	return []any{st.Subject, st.Recording, st.HeaderWritten, st.Rows, st.Filename, st.SaveFolder}, nil
}

// Tick runs one sampling pass when the host drives the scheduler.
func (s *Service) Tick(dispatcher.Event) (any, error) {
	if s.deps.Manual == nil {
		return nil, ErrNotHostTicked
	}
	return s.deps.Manual.Tick(), nil
}

func (s *Service) notify(function string, data ...string) {
	if s.deps.Notify == nil {
		return
	}
	if !s.deps.Notify(function, data...) {
		s.deps.Logger.Debug("Host callback not delivered", "function", function)
	}
}
