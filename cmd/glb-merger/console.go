package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"glb-merger/internal/domain"
	"glb-merger/internal/jobs"
)

const (
	colorReset = "\x1b[0m"
	colorRed   = "\x1b[31m"
	colorGreen = "\x1b[32m"
	colorDim   = "\x1b[2m"
)

// consoleSink prints merge events as they arrive.
type consoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, color: writerIsTerminal(out)}
}

func (s *consoleSink) Publish(event jobs.Event) jobs.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if event.JobID != "" {
		prefix = "[" + event.JobID + "] "
	}

	switch event.Kind {
	case jobs.EventKindLog:
		color := ""
		switch event.Type {
		case domain.LogTypeErr:
			color = colorRed
		case domain.LogTypeOut:
			color = colorDim
		}
		fmt.Fprintln(s.out, prefix+s.paint(color, event.Text))
	case jobs.EventKindStatus:
		text := string(event.Status)
		switch event.Status {
		case domain.JobStatusSuccess:
			text = s.paint(colorGreen, text)
		case domain.JobStatusFailed:
			text = s.paint(colorRed, text)
		}
		if event.OutputPath != "" {
			text += " " + event.OutputPath
		}
		fmt.Fprintln(s.out, prefix+"status: "+text)
	}
	return event
}

func (s *consoleSink) paint(color, text string) string {
	if !s.color || color == "" {
		return text
	}
	return color + text + colorReset
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
