package types

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const clientOrderTagLength = 16

// ClientOrderTag is a caller-assigned correlation tag attached to an order
// so that venue acknowledgements and execution reports can be matched back
// to the order that produced them, independent of any venue-assigned id.
type ClientOrderTag [clientOrderTagLength]byte

// NewClientOrderTag returns a randomly generated tag suitable for a new
// order. Collisions are the caller's responsibility to detect (none are
// expected at practical order rates).
func NewClientOrderTag() ClientOrderTag {
	var t ClientOrderTag
	_, _ = rand.Read(t[:])
	return t
}

// BytesToClientOrderTag returns a ClientOrderTag with the value of b. If b
// is longer than the tag, it is cropped from the left.
func BytesToClientOrderTag(b []byte) ClientOrderTag {
	var t ClientOrderTag
	t.SetBytes(b)
	return t
}

// HexToClientOrderTag parses a "0x"-prefixed hex string into a tag.
func HexToClientOrderTag(s string) (ClientOrderTag, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ClientOrderTag{}, fmt.Errorf("parse client order tag %q: %w", s, err)
	}
	return BytesToClientOrderTag(b), nil
}

// SetBytes sets the tag to the value of b, cropping from the left if b is
// longer than the tag.
func (t *ClientOrderTag) SetBytes(b []byte) {
	if len(b) > len(t) {
		b = b[len(b)-clientOrderTagLength:]
	}
	copy(t[clientOrderTagLength-len(b):], b)
}

// Hex renders the tag as a "0x"-prefixed hex string.
func (t ClientOrderTag) Hex() string {
	return "0x" + hex.EncodeToString(t[:])
}

func (t ClientOrderTag) String() string { return t.Hex() }

// IsZero reports whether the tag is the zero value (no tag set).
func (t ClientOrderTag) IsZero() bool {
	return t == ClientOrderTag{}
}

// MarshalText implements encoding.TextMarshaler.
func (t ClientOrderTag) MarshalText() ([]byte, error) {
	return []byte(t.Hex()), nil
}

// UnmarshalJSON parses a client order tag in hex syntax.
func (t *ClientOrderTag) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	if s == "" {
		*t = ClientOrderTag{}
		return nil
	}
	parsed, err := HexToClientOrderTag(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EncodeMsgpack encodes the tag as a hex string, consistent with its JSON
// representation — the statistics sink batches records in msgpack and
// expects the same textual form it would see over JSON.
func (t ClientOrderTag) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(t.Hex())
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (t *ClientOrderTag) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}
	parsed, err := HexToClientOrderTag(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
