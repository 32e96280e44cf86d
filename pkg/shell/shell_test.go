package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregLibert/pcsc-terminal/pkg/iso7816"
	"github.com/gregLibert/pcsc-terminal/pkg/tlv"
)

// fakeCard answers commands from a table keyed by the upper case hex command.
type fakeCard struct {
	answers map[string]string
	err     error
	sent    []string
}

func (c *fakeCard) Transmit(cmd []byte) ([]byte, error) {
	key := strings.ReplaceAll(tlv.HexString(cmd), " ", "")
	c.sent = append(c.sent, key)
	if c.err != nil {
		return nil, c.err
	}
	if resp, ok := c.answers[key]; ok {
		return tlv.Hex(resp), nil
	}
	return tlv.Hex("6D 00"), nil
}

func runScript(t *testing.T, card *fakeCard, script string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	var client *iso7816.Client
	if card != nil {
		client = iso7816.NewClient(card)
	}
	s := New(client, NewScanner(strings.NewReader(script), nil), &out, opts...)
	require.NoError(t, s.Run(context.Background()))
	return out.String()
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  00 A4 04 00  ", "00 A4 04 00"},
		{"00 A4 04 00 # select", "00 A4 04 00"},
		{"# only a comment", ""},
		{"exit#", "exit#"},
		{"00 A4 #", "00 A4 #"},
		{"00 A4 ##", "00 A4"},
		{"\t\n", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShell_APDU(t *testing.T) {
	card := &fakeCard{answers: map[string]string{
		"00A4040007A000000003101000": "6F 05 84 03 A0 00 00 90 00",
		"00B0000000":                 "90 00",
	}}

	got := runScript(t, card, `
00 A4 04 00 07 A0000000031010 00   # select
00b0000000
`)

	want := `> 00 A4 04 00 07 A0 00 00 00 03 10 10 00
< 6F 05 84 03 A0 00 00 Status: 90 00
> 00 B0 00 00 00
< [empty response] Status: 90 00
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestShell_AutoResponseTrace(t *testing.T) {
	card := &fakeCard{answers: map[string]string{
		"00A4040000": "61 02",
		"00C0000002": "6F 00 90 00",
	}}

	got := runScript(t, card, "00 A4 04 00 00\n")

	want := `> 00 A4 04 00 00
< [empty response] Status: 61 02
> 00 C0 00 00 02
< 6F 00 Status: 90 00
`
	assert.Equal(t, want, got)
}

func TestShell_InvalidCommand(t *testing.T) {
	card := &fakeCard{}
	got := runScript(t, card, "00 A4 0\nselect\n00 'A4\n")

	assert.Equal(t, strings.Repeat(">>> Invalid command\n", 3), got)
	assert.Empty(t, card.sent)
}

func TestShell_CommunicationError(t *testing.T) {
	card := &fakeCard{err: errors.New("card removed")}
	got := runScript(t, card, "00 A4 04 00\n")

	assert.Equal(t, "> 00 A4 04 00\n<<< Reader communication error: transmission error: card removed\n", got)
}

func TestShell_NoCard(t *testing.T) {
	got := runScript(t, nil, "00 A4 04 00\n")
	assert.Contains(t, got, "<<< Reader communication error: no card connected")
}

func TestShell_Decode(t *testing.T) {
	got := runScript(t, nil, "bertlv-decode 6F 0B 84 02 A000 A5 05 50 03 56 49 53\n")

	want := `0x6F
  0x84: (RAW) A0 00
  0xA5
    0x50: (RAW) 56 49 53
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestShell_TrailingHash(t *testing.T) {
	card := &fakeCard{}
	got := runScript(t, card, "00 A4 04 00 #\nexit#\n")

	assert.Equal(t, ">>> Invalid command\n>>> Invalid command\n", got)
	assert.Empty(t, card.sent)
}

func TestShell_DecodeWithoutData(t *testing.T) {
	got := runScript(t, nil, "bertlv-decode\nbertlv-decode   # nothing\n")
	assert.Equal(t, ">>> Invalid command\n>>> Invalid command\n", got)
}

func TestShell_DecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		contains string
	}{
		{"Bad hex", "bertlv-decode 6F 0", "invalid hex input"},
		{"Truncated", "bertlv-decode 6F 05 84 01", "length exceeds remaining bytes"},
		{"Indefinite", "bertlv-decode 6F 80 00 00", "indefinite length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runScript(t, nil, tt.line+"\n")
			assert.True(t, strings.HasPrefix(got, ">>> Invalid input data: "), got)
			assert.Contains(t, got, tt.contains)
			assert.Equal(t, 1, strings.Count(got, "\n"), "no partial tree is printed")
		})
	}
}

func TestShell_DecodeMaxDepth(t *testing.T) {
	line := "bertlv-decode 70 04 71 02 72 00\n"

	got := runScript(t, nil, line, WithDecoder(tlv.NewDecoder(tlv.WithMaxDepth(2))))
	assert.Contains(t, got, "depth")

	got = runScript(t, nil, line, WithDecoder(tlv.NewDecoder(tlv.WithMaxDepth(3))))
	assert.Equal(t, "0x70\n  0x71\n    0x72\n", got)
}

func TestShell_HelpAndExit(t *testing.T) {
	card := &fakeCard{}
	got := runScript(t, card, "help\n\n   # nothing\nquit\n00 A4 04 00\n")

	assert.Equal(t, "Additional commands:\n  bertlv-decode BYTES\n", got)
	assert.Empty(t, card.sent, "lines after quit are not executed")
}

// blockingReader never returns a line.
type blockingReader struct{}

func (blockingReader) ReadLine() (string, error) {
	select {}
}

func TestShell_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(nil, blockingReader{}, &bytes.Buffer{})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPrintBanner(t *testing.T) {
	var out bytes.Buffer
	PrintBanner(&out)
	assert.Equal(t, "Card connected, starting REPL shell.\nType \"exit\" or \"quit\" to exit program, or press Ctrl+D.\n", out.String())
}
