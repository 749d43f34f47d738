package shell

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// errInterrupted is returned by a prompter when the user aborts the current
// line. The shell keeps running.
var errInterrupted = errors.New("interrupted")

type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// interactive edits lines with liner and keeps a history file.
type interactive struct {
	line        *liner.State
	historyPath string
}

func newInteractive(historyPath string, completions []string) *interactive {
	i := &interactive{
		line:        liner.NewLiner(),
		historyPath: historyPath,
	}
	i.line.SetCtrlCAborts(true)
	i.line.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range completions {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	})
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			i.line.ReadHistory(f)
			f.Close()
		}
	}
	return i
}

func (i *interactive) Prompt(prompt string) (string, error) {
	text, err := i.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", errInterrupted
	}
	return text, err
}

func (i *interactive) AppendHistory(line string) {
	i.line.AppendHistory(line)
}

func (i *interactive) Close() error {
	if i.historyPath != "" {
		if f, err := os.Create(i.historyPath); err == nil {
			i.line.WriteHistory(f)
			f.Close()
		}
	}
	return i.line.Close()
}

// script reads lines from a non-terminal input, such as a pipe.
type script struct {
	input *bufio.Reader
}

func newScript(r io.Reader) *script {
	return &script{input: bufio.NewReader(r)}
}

func (s *script) Prompt(string) (string, error) {
	line, err := s.input.ReadString('\n')
	if err == io.EOF && line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *script) AppendHistory(string) {}

func (s *script) Close() error {
	return nil
}
