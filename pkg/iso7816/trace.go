package iso7816

// A command typed at the terminal may need several physical exchanges:
// "61 XX" is followed by GET RESPONSE, "6C XX" by the same command with
// Le = XX. A Trace keeps them all, in order.

// Transaction is one C-APDU and the R-APDU that answered it.
type Transaction struct {
	// Raw is the C-APDU exactly as transmitted.
	Raw []byte
	// Command is the parsed form of Raw. It is nil when a raw command
	// matched none of the ISO encoding cases.
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// Trace is the sequence of exchanges made for one command.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}
