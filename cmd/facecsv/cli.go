package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/dispatcher"
	"github.com/OCAP2/facecsv/internal/handlers"
)

const usage = `usage:
  facecsv record <subject> <duration> [file]
  facecsv subjects`

// subjectWait bounds how long `subjects` waits for the relay's first frames.
const subjectWait = 2 * time.Second

var errNoSource = errors.New("no source connected; set source.enabled and source.url in " + config.FileName)

func runCLI(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, "No arguments provided.")
		fmt.Fprintln(out, usage)
		return nil
	}
	if App == nil {
		return errors.New("extension not initialized")
	}

	switch strings.ToLower(args[0]) {
	case "record":
		if len(args) < 3 {
			return fmt.Errorf("record needs a subject and a duration\n%s", usage)
		}
		d, err := time.ParseDuration(args[2])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[2], err)
		}
		file := ""
		if len(args) > 3 {
			file = args[3]
		}
		return record(out, args[1], d, file)

	case "subjects":
		return listSubjects(out)

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func call(command string, args ...string) (any, error) {
	return App.Dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args})
}

func record(out io.Writer, subject string, d time.Duration, file string) error {
	if App.Relay == nil {
		return errNoSource
	}
	if file != "" {
		if _, err := call(handlers.CmdSetFilename, file); err != nil {
			return err
		}
	}
	if _, err := call(handlers.CmdStart, subject); err != nil {
		return err
	}
	Logger.Info("Recording", "subject", subject, "duration", d)

	deadline := time.After(d)
	if App.Manual != nil {
		// host tick mode: the CLI stands in for the host
		ticker := time.NewTicker(config.GetRecorderConfig().TickInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-deadline:
				break loop
			case <-ticker.C:
				if _, err := call(handlers.CmdTick); err != nil {
					return err
				}
			}
		}
	} else {
		<-deadline
	}

	if _, err := call(handlers.CmdStop); err != nil {
		return err
	}
	path, err := call(handlers.CmdExport)
	if err != nil {
		return err
	}

	st := App.Recorder.Status()
	fmt.Fprintf(out, "wrote %d rows to %s\n", st.Rows, path)
	return nil
}

func listSubjects(out io.Writer) error {
	if App.Relay == nil {
		return errNoSource
	}

	var subjects []string
	for start := time.Now(); time.Since(start) < subjectWait; time.Sleep(100 * time.Millisecond) {
		if subjects = App.Registry.ListSubjects(); len(subjects) > 0 {
			break
		}
	}
	if len(subjects) == 0 {
		fmt.Fprintln(out, "No subjects streaming.")
		return nil
	}
	for _, s := range subjects {
		fmt.Fprintln(out, s)
	}
	return nil
}
