package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// CombinedWriter duplicates writes to several writers. A failing writer does
// not stop the others; all errors are combined.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{Writers: append([]io.Writer(nil), writers...)}
}

func (cw CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = multierr.Append(err, werr)
			continue
		}
		n += written
	}
	return n, err
}

// UIHook forwards log entries to the terminal UI log pane as tview-colored
// lines. Entries are dropped when the pane is not keeping up.
type UIHook struct {
	lines  chan<- string
	levels []logrus.Level
}

func NewUIHook(lines chan<- string, levels []logrus.Level) *UIHook {
	if lines == nil {
		panic("UIHook: lines channel cannot be nil")
	}
	return &UIHook{lines: lines, levels: levels}
}

func (h *UIHook) Levels() []logrus.Level {
	return h.levels
}

func (h *UIHook) Fire(entry *logrus.Entry) error {
	select {
	case h.lines <- FormatUILine(entry):
	default:
	}
	return nil
}

// FormatUILine renders entry as "[hh:mm:ss] message" with a level color.
func FormatUILine(entry *logrus.Entry) string {
	color := "white"
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		color = "red"
	case logrus.WarnLevel:
		color = "yellow"
	case logrus.DebugLevel, logrus.TraceLevel:
		color = "gray"
	}
	msg := tview.Escape(strings.TrimRight(entry.Message, "\n"))
	return fmt.Sprintf("[gray]%s[-] [%s]%s[-]\n", entry.Time.Format("15:04:05"), color, msg)
}
