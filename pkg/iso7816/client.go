package iso7816

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gregLibert/pcsc-terminal/pkg/tlv"
)

// CLIENT & PROTOCOL LOGIC:
// The Client acts as a driver over the physical connection. With auto-response
// enabled it handles the ISO 7816-3 transport statuses that T=0 exposes to the
// application layer:
//
// 1. "61 XX" (Response Available):
//    The client sends GET RESPONSE (Le = XX) on the logical channel of the
//    previous command.
//
// 2. "6C XX" (Wrong Length):
//    The client re-sends the previous command with Le = XX. A raw command that
//    cannot be parsed is not repeated.
//
// SendRaw returns a Trace of every exchange made.

// MaxExchanges bounds the exchanges of a single SendRaw, so that a card answering
// 61XX forever cannot hang the terminal.
const MaxExchanges = 32

// ErrTooManyExchanges is returned when a command needed more than MaxExchanges exchanges.
var ErrTooManyExchanges = errors.New("too many chained exchanges")

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the communication with the card.
type Client struct {
	Card         Transmitter
	AutoResponse bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAutoResponse enables or disables the 61XX/6CXX follow-up exchanges.
func WithAutoResponse(enable bool) ClientOption {
	return func(c *Client) {
		c.AutoResponse = enable
	}
}

// NewClient creates a new Client instance. Auto-response is enabled by default.
func NewClient(card Transmitter, opts ...ClientOption) *Client {
	c := &Client{Card: card, AutoResponse: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendRaw transmits raw bytes as typed by the user. The bytes are not
// validated, so reader pseudo-APDUs and proprietary commands pass through.
func (c *Client) SendRaw(raw []byte) (Trace, error) {
	cmd, err := ParseCommandAPDU(raw)
	if err != nil {
		logger.Debug("raw command not parsed", zap.Error(err))
		cmd = nil
	}

	trace, err := c.exchange(raw, cmd)
	if last := trace.Last(); last != nil {
		logger.Debug("command done",
			zap.Int("exchanges", len(trace)),
			zap.String("final-status", last.Response.Status.Verbose()),
			zap.Error(err),
		)
	}
	return trace, err
}

func (c *Client) exchange(raw []byte, cmd *CommandAPDU) (Trace, error) {
	var trace Trace
	for len(trace) < MaxExchanges {
		tx, err := c.transmit(raw, cmd)
		if err != nil {
			return trace, err
		}
		trace = append(trace, tx)

		if !c.AutoResponse {
			return trace, nil
		}

		next := followUp(tx)
		if next == nil {
			return trace, nil
		}
		if raw, err = next.Bytes(); err != nil {
			return trace, fmt.Errorf("encoding error: %w", err)
		}
		cmd = next
	}
	return trace, fmt.Errorf("%w: stopped after %d", ErrTooManyExchanges, MaxExchanges)
}

func (c *Client) transmit(raw []byte, cmd *CommandAPDU) (Transaction, error) {
	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		logger.Debug("transmit failed", zap.String("command", fmt.Sprintf("%X", raw)), zap.Error(err))
		return Transaction{}, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return Transaction{}, err
	}

	fields := []zap.Field{
		zap.String("raw-command", fmt.Sprintf("%X", raw)),
		zap.String("raw-response", fmt.Sprintf("%X", rawResp)),
		zap.String("ascii", tlv.MakeSafeASCII(resp.Data)),
		zap.Stringer("response", resp),
	}
	if cmd != nil {
		fields = append(fields, zap.Stringer("command", cmd))
	}
	logger.Debug("transaction", fields...)
	return Transaction{Raw: raw, Command: cmd, Response: resp}, nil
}

// followUp returns the command answering a 61XX or 6CXX status, or nil.
func followUp(tx Transaction) *CommandAPDU {
	if len(tx.Raw) == 0 {
		return nil
	}
	status := tx.Response.Status

	switch status.SW1() {
	case 0x61:
		// ISO 7816-4: GET RESPONSE must use the same logical channel as the original command.
		cls := ParseClass(tx.Raw[0]).Unchained()
		ins, _ := NewInstruction(INS_GET_RESPONSE)
		return NewCommandAPDU(cls, ins, 0x00, 0x00, nil, shortLe(status.SW2()))

	case 0x6C:
		if tx.Command == nil {
			return nil
		}
		// Copy so the caller's command keeps its Le.
		retry := *tx.Command
		retry.Ne = shortLe(status.SW2())
		return &retry
	}
	return nil
}
