// Package shell implements the interactive APDU terminal.
//
// Every input line is normalized (a '#' starts a comment, surrounding space
// is dropped) and then either runs a built-in command or is sent to the card
// as hex bytes:
//
//	APDU% 00 A4 04 00 07 A0000000031010 00   # select VISA
//	> 00 A4 04 00 07 A0 00 00 00 03 10 10 00
//	< 6F 1E 84 07 ... Status: 90 00
//	APDU% bertlv-decode 6F 07 84 02 A000 50 01 41
//	0x6F
//	  0x84: (RAW) A0 00
//	  0x50: (RAW) 41
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/gregLibert/pcsc-terminal/pkg/iso7816"
	"github.com/gregLibert/pcsc-terminal/pkg/logging"
	"github.com/gregLibert/pcsc-terminal/pkg/tlv"
)

var logger = logging.New("Shell")

// Prompt is shown before every input line.
const Prompt = "APDU% "

// Built-in commands.
const (
	CmdExit         = "exit"
	CmdQuit         = "quit"
	CmdHelp         = "help"
	CmdBERTLVDecode = "bertlv-decode"
)

// Commands lists the built-in commands offered by completion.
var Commands = []string{CmdBERTLVDecode, CmdExit, CmdHelp, CmdQuit}

// LineReader provides input lines. It returns io.EOF when input ends.
type LineReader interface {
	ReadLine() (string, error)
}

// Shell is the read-eval-print loop.
type Shell struct {
	client  *iso7816.Client
	decoder *tlv.Decoder
	in      LineReader
	out     io.Writer
}

// Option configures a Shell.
type Option func(*Shell)

// WithDecoder sets the decoder used by bertlv-decode.
func WithDecoder(d *tlv.Decoder) Option {
	return func(s *Shell) {
		s.decoder = d
	}
}

// New creates a Shell. client may be nil when no card is connected; APDUs
// then fail with a communication error.
func New(client *iso7816.Client, in LineReader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		client:  client,
		decoder: tlv.NewDecoder(),
		in:      in,
		out:     out,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PrintBanner writes the greeting shown once the card is connected.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, "Card connected, starting REPL shell.")
	fmt.Fprintln(w, `Type "exit" or "quit" to exit program, or press Ctrl+D.`)
}

// Run reads and executes lines until exit, end of input or ctx cancellation.
// Command failures are printed and do not end the loop.
func (s *Shell) Run(ctx context.Context) error {
	for {
		line, err := s.readLine(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := s.Execute(line); quit {
			return nil
		}
	}
}

type lineResult struct {
	line string
	err  error
}

func (s *Shell) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// ReadLine cannot be interrupted. On cancellation the goroutine is left
	// blocked until the input yields a line or closes; the buffered channel
	// lets it exit then.
	ch := make(chan lineResult, 1)
	go func() {
		line, err := s.in.ReadLine()
		ch <- lineResult{line, err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Normalize strips the comment and the surrounding spaces. A comment is a
// '#' followed by at least one character; a lone trailing '#' is kept.
func Normalize(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 && i < len(line)-1 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// Execute runs one input line. It reports whether the shell should quit.
func (s *Shell) Execute(line string) (quit bool) {
	line = Normalize(line)
	if line == "" {
		return false
	}

	words, err := shellquote.Split(line)
	if err != nil || len(words) == 0 {
		fmt.Fprintln(s.out, ">>> Invalid command")
		return false
	}
	logger.Debug("command", zap.Strings("words", words))

	switch words[0] {
	case CmdExit, CmdQuit:
		return true
	case CmdHelp:
		s.printHelp()
	case CmdBERTLVDecode:
		s.decode(words[1:])
	default:
		s.transmit(words)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Additional commands:")
	fmt.Fprintln(s.out, "  "+CmdBERTLVDecode+" BYTES")
}

func (s *Shell) decode(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, ">>> Invalid command")
		return
	}

	data, err := tlv.ParseHex(strings.Join(args, ""))
	if err != nil {
		fmt.Fprintf(s.out, ">>> Invalid input data: %v\n", err)
		return
	}

	elements, err := s.decoder.Decode(data)
	if err != nil {
		fmt.Fprintf(s.out, ">>> Invalid input data: %v\n", err)
		return
	}
	if err := tlv.Render(s.out, elements); err != nil {
		logger.Warn("render failed", zap.Error(err))
	}
}

func (s *Shell) transmit(words []string) {
	apdu, err := tlv.ParseHex(strings.Join(words, ""))
	if err != nil || len(apdu) == 0 {
		fmt.Fprintln(s.out, ">>> Invalid command")
		return
	}

	fmt.Fprintln(s.out, ">", tlv.HexString(apdu))

	if s.client == nil {
		fmt.Fprintln(s.out, "<<< Reader communication error: no card connected")
		return
	}

	trace, err := s.client.SendRaw(apdu)
	for i, tx := range trace {
		if i > 0 {
			fmt.Fprintln(s.out, ">", tlv.HexString(tx.Raw))
		}
		fmt.Fprintln(s.out, formatResponse(tx.Response))
	}
	if err != nil {
		fmt.Fprintf(s.out, "<<< Reader communication error: %v\n", err)
	}
}

func formatResponse(r *iso7816.ResponseAPDU) string {
	data := "[empty response]"
	if len(r.Data) > 0 {
		data = tlv.HexString(r.Data)
	}
	return fmt.Sprintf("< %s Status: %s", data, r.Status.Hex())
}
