// Package monitor periodically writes a status snapshot of the recorder to a
// file in the addon folder so operators can watch a session from outside the host.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/recorder"
)

// StatusFileName is written inside the addon folder.
const StatusFileName = "status.json"

// DefaultInterval is used when Dependencies.Interval is not set.
const DefaultInterval = time.Second

// StatusSource is satisfied by *recorder.Recorder.
type StatusSource interface {
	Status() recorder.Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Recorder   StatusSource
	Client     livelink.Client // optional
	Reconnects func() int      // optional, relay reconnect count
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
	Now        func() time.Time
}

// Snapshot is the content of the status file.
type Snapshot struct {
	Time            time.Time      `json:"time"`
	Subject         string         `json:"subject"`
	Recording       bool           `json:"recording"`
	HeaderWritten   bool           `json:"headerWritten"`
	Rows            int            `json:"rows"`
	Filename        string         `json:"filename"`
	SaveFolder      string         `json:"saveFolder"`
	Stats           recorder.Stats `json:"stats"`
	Subjects        []string       `json:"subjects"`
	RelayReconnects int            `json:"relayReconnects"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Snapshot {
	st := s.deps.Recorder.Status()
	snap := Snapshot{
		Time:          s.deps.Now().UTC(),
		Subject:       st.Subject,
		Recording:     st.Recording,
		HeaderWritten: st.HeaderWritten,
		Rows:          st.Rows,
		Filename:      st.Filename,
		SaveFolder:    st.SaveFolder,
		Stats:         st.Stats,
		Subjects:      []string{},
	}
	if s.deps.Client != nil {
		snap.Subjects = s.deps.Client.ListSubjects()
	}
	if s.deps.Reconnects != nil {
		snap.RelayReconnects = s.deps.Reconnects()
	}
	return snap
}

// WriteStatus replaces the status file with the current snapshot.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := os.WriteFile(s.deps.StatusPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s.deps.Logger.Debug("Starting status monitor", "path", s.deps.StatusPath, "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := s.WriteStatus()
			// log transitions only, not every tick
			if err != nil && !failing {
				s.deps.Logger.Error("Error writing status file", "error", err)
			}
			failing = err != nil
		}
	}
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
