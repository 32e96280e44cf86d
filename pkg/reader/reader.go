// Package reader connects to smart cards through the PC/SC resource manager.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ebfe/scard"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/gregLibert/pcsc-terminal/pkg/logging"
)

var logger = logging.New("Reader")

// PollInterval is the longest GetStatusChange call made while waiting for a
// card, and therefore the latency of cancelling WaitForCard.
const PollInterval = 500 * time.Millisecond

// ErrReaderNotFound indicates that a reader selector matched no reader.
var ErrReaderNotFound = errors.New("cannot find reader with this index or name")

// Resolve picks a reader by index ("0", "1", ...) or by exact name.
// A name match wins over an index match. Negative indexes match nothing.
func Resolve(readers []string, selector string) (string, error) {
	for _, name := range readers {
		if name == selector {
			return name, nil
		}
	}

	if i, err := strconv.Atoi(selector); err == nil && i >= 0 && i < len(readers) {
		return readers[i], nil
	}
	return "", fmt.Errorf("%w: %q", ErrReaderNotFound, selector)
}

// Context is an established PC/SC context.
type Context struct {
	ctx *scard.Context
}

// Establish opens a PC/SC context.
func Establish() (*Context, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing PC/SC context: %w", err)
	}
	return &Context{ctx: ctx}, nil
}

// Readers lists the connected readers. No reader is not an error.
func (c *Context) Readers() ([]string, error) {
	readers, err := c.ctx.ListReaders()
	if errors.Is(err, scard.ErrNoReadersAvailable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing readers: %w", err)
	}
	return readers, nil
}

// WaitForCard blocks until a card is present in the reader or ctx is done.
func (c *Context) WaitForCard(ctx context.Context, reader string) error {
	return waitForCard(ctx, c.ctx, reader)
}

// Connect opens a shared connection to the card, with T=0 or T=1.
func (c *Context) Connect(reader string) (*Card, error) {
	// Forcing T=0|T=1 avoids "Parameter Incorrect" on some readers.
	card, err := c.ctx.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", reader, err)
	}
	logger.Info("card connected", zap.String("reader", reader))
	return &Card{card: card, Reader: reader}, nil
}

// Release closes the PC/SC context.
func (c *Context) Release() error {
	return c.ctx.Release()
}

type statusWaiter interface {
	GetStatusChange(readerStates []scard.ReaderState, timeout time.Duration) error
}

func waitForCard(ctx context.Context, w statusWaiter, reader string) error {
	rs := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}
	for {
		err := w.GetStatusChange(rs, PollInterval)
		switch {
		case err == nil:
		case errors.Is(err, scard.ErrTimeout):
		default:
			return fmt.Errorf("waiting for card in %q: %w", reader, err)
		}

		st := rs[0].EventState
		rs[0].CurrentState = st
		if st&scard.StatePresent != 0 {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Card is a connected card. It implements iso7816.Transmitter.
type Card struct {
	card   *scard.Card
	Reader string
}

// Transmit sends a raw C-APDU and returns the raw R-APDU.
func (c *Card) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

// Disconnect ends the connection and leaves the card powered.
func (c *Card) Disconnect() error {
	return c.card.Disconnect(scard.LeaveCard)
}

// Session is a context together with the card connected through it.
type Session struct {
	*Card
	ctx *Context
}

// Open establishes a context, resolves selector against the connected
// readers, waits for a card and connects to it.
func Open(ctx context.Context, selector string) (s *Session, e error) {
	pc, err := Establish()
	if err != nil {
		return nil, err
	}
	defer func() {
		if e != nil {
			e = multierr.Append(e, pc.Release())
		}
	}()

	readers, err := pc.Readers()
	if err != nil {
		return nil, err
	}
	name, err := Resolve(readers, selector)
	if err != nil {
		return nil, err
	}
	logger.Info("reader selected", zap.String("reader", name))

	if err := pc.WaitForCard(ctx, name); err != nil {
		return nil, err
	}
	card, err := pc.Connect(name)
	if err != nil {
		return nil, err
	}
	return &Session{Card: card, ctx: pc}, nil
}

// Close disconnects the card and releases the context.
func (s *Session) Close() error {
	return multierr.Append(s.Card.Disconnect(), s.ctx.Release())
}
