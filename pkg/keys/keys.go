// Package keys maps single key presses to tracker commands, from the
// terminal or from the preview window.
package keys

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/gaze"
)

const (
	ctrlC  = 3
	escape = 27
)

// ErrNotTerminal is returned by Raw when stdin is not a terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Command maps a key to a command: q quits, space toggles the preview,
// c calibrates, x or Esc cancels calibration. Ctrl-C quits because raw mode
// swallows SIGINT.
func Command(key int) (gaze.Command, bool) {
	switch key {
	case 'q', 'Q', ctrlC:
		return gaze.CommandQuit, true
	case ' ':
		return gaze.CommandToggleView, true
	case 'c', 'C':
		return gaze.CommandCalibrate, true
	case 'x', 'X', escape:
		return gaze.CommandCancelCalibration, true
	default:
		return 0, false
	}
}

// Help is the one-line key legend.
const Help = "C: calibrate | X: cancel calibration | Space: toggle preview | Q: quit"

// Listen reads keys from r until EOF or a read error and forwards mapped
// commands to send. Commands dropped by send are logged.
func Listen(r io.Reader, send func(gaze.Command) bool) {
	l := log.Component("keys")
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		cmd, ok := Command(int(b))
		if !ok {
			continue
		}
		if !send(cmd) {
			l.Warn("command queue full, key ignored", "cmd", cmd)
		}
	}
}

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Raw puts stdin into raw mode so keys arrive without Enter. The returned
// function restores the terminal.
func Raw() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !Interactive() {
		return func() {}, ErrNotTerminal
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}, errors.Wrap(err, "enable raw terminal mode")
	}
	return func() { term.Restore(fd, state) }, nil
}

// CRLF wraps a writer so "\n" becomes "\r\n". Raw mode disables output
// post-processing, which would otherwise staircase log lines.
func CRLF(w io.Writer) io.Writer {
	return crlfWriter{w}
}

type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
