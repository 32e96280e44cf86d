package shell

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal reads lines from an interactive terminal with line editing,
// history recall and tab completion. Output meant for the user must be
// written to the Terminal so that it is rendered correctly in raw mode.
type Terminal struct {
	*term.Terminal
	fd    int
	state *term.State
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewTerminal puts in into raw mode. Close must be called to restore it.
func NewTerminal(in *os.File, out io.Writer, history *History) (*Terminal, error) {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, Prompt)
	if history != nil {
		t.History = history
	}
	t.AutoCompleteCallback = complete
	return &Terminal{Terminal: t, fd: fd, state: state}, nil
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	return term.Restore(t.fd, t.state)
}

// complete expands the command word under the cursor on Tab.
func complete(line string, pos int, key rune) (newLine string, newPos int, ok bool) {
	if key != '\t' {
		return "", 0, false
	}
	word := line[:pos]
	if strings.ContainsAny(word, " \t") {
		return "", 0, false
	}

	var matches []string
	for _, cmd := range Commands {
		if strings.HasPrefix(cmd, word) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 0 {
		return "", 0, false
	}

	prefix := matches[0]
	for _, m := range matches[1:] {
		prefix = commonPrefix(prefix, m)
	}
	if len(matches) == 1 {
		prefix += " "
	}
	if prefix == word {
		return "", 0, false
	}
	return prefix + line[pos:], len(prefix), true
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// Scanner reads lines from a non-interactive input such as a pipe. When
// echo is set the prompt is written before each line.
type Scanner struct {
	scanner *bufio.Scanner
	echo    io.Writer
}

// NewScanner creates a Scanner. echo may be nil.
func NewScanner(r io.Reader, echo io.Writer) *Scanner {
	return &Scanner{scanner: bufio.NewScanner(r), echo: echo}
}

// ReadLine returns the next line without its terminator.
func (s *Scanner) ReadLine() (string, error) {
	if s.echo != nil {
		io.WriteString(s.echo, Prompt)
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}
