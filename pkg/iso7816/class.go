package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/pcsc-terminal/pkg/bits"
)

// Class Byte (CLA) according to ISO/IEC 7816-4, section 5.4.1.
//
// Bit 8 separates interindustry classes (0) from proprietary ones (1). In the
// interindustry range bit 5 is command chaining and bit 7 picks the layout:
//
//   - First interindustry (000x xxxx): bits 4-3 secure messaging, bits 2-1
//     logical channel 0-3.
//   - Further interindustry (01xx xxxx): bit 6 secure messaging, bits 4-1
//     logical channel minus 4 (channels 4-19).
//
// 'FF' is reserved: PC/SC readers use it for pseudo-APDUs addressed to the
// reader itself (e.g. FF CA 00 00 00, GET UID), so it is decoded rather than
// rejected and flagged as Reserved.

// SecureMessaging defines the security level applied to the APDU.
type SecureMessaging int

const (
	// SMNone indicates no secure messaging or no indication given.
	SMNone SecureMessaging = 0
	// SMProprietary indicates a proprietary secure messaging format (First Interindustry only).
	SMProprietary SecureMessaging = 1
	// SMHeaderNoProc indicates SM according to ISO, where the header is not processed.
	SMHeaderNoProc SecureMessaging = 2
	// SMHeaderAuth indicates SM according to ISO, where the header is authenticated (First Interindustry only).
	SMHeaderAuth SecureMessaging = 3
)

func (sm SecureMessaging) String() string {
	switch sm {
	case SMNone:
		return "None"
	case SMProprietary:
		return "Proprietary"
	case SMHeaderNoProc:
		return "ISO (Header not processed)"
	case SMHeaderAuth:
		return "ISO (Header authenticated)"
	default:
		return fmt.Sprintf("SecureMessaging(%d)", int(sm))
	}
}

// Class represents the parsed Class byte (CLA).
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsReserved      bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // Logical channel number (0-19)
}

// ParseClass decodes a raw CLA byte. Every byte value yields a Class.
func ParseClass(cla byte) Class {
	c := Class{Raw: cla}

	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		c.IsReserved = cla == 0xFF
		return c
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
		return c
	}

	if bits.IsSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bits.GetRange(cla, 4, 1) + 4
	return c
}

// Encode converts the Class back to its byte representation.
// Proprietary classes are returned as they were parsed.
func (c Class) Encode() byte {
	if c.IsProprietary {
		return c.Raw
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}

	if c.Channel <= 3 {
		res = bits.PutRange(res, 4, 3, byte(c.SecureMessaging))
		return bits.PutRange(res, 2, 1, c.Channel)
	}

	res = bits.Set(res, 7)
	if c.SecureMessaging != SMNone {
		res = bits.Set(res, 6)
	}
	return bits.PutRange(res, 4, 1, c.Channel-4)
}

// Unchained returns the class with the chaining bit cleared, as required for
// GET RESPONSE on the channel of the original command.
func (c Class) Unchained() Class {
	if c.IsProprietary {
		return c
	}
	c.IsChained = false
	c.Raw = c.Encode()
	return c
}

// String summarizes the class, e.g. "0x0C (channel 0, SM ISO (Header authenticated))".
func (c Class) String() string {
	switch {
	case c.IsReserved:
		return fmt.Sprintf("0x%02X (reserved, reader pseudo-APDU)", c.Raw)
	case c.IsProprietary:
		return fmt.Sprintf("0x%02X (proprietary)", c.Raw)
	}

	details := []string{fmt.Sprintf("channel %d", c.Channel)}
	if c.IsChained {
		details = append(details, "chained")
	}
	if c.SecureMessaging != SMNone {
		details = append(details, "SM "+c.SecureMessaging.String())
	}
	return fmt.Sprintf("0x%02X (%s)", c.Raw, strings.Join(details, ", "))
}
