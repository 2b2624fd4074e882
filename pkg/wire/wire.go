// Package wire encodes and decodes the protobuf messages exchanged with the
// BudgetBakers Wallet API. The schema lives in this package: messages are not
// self-describing, so callers pick the concrete type for each endpoint.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrDecode = errors.New("wire: decode")
	ErrEncode = errors.New("wire: encode")
)

// Message is implemented by every type of this package's schema.
type Message interface {
	appendWire(b []byte) ([]byte, error)
	consumeWire(b []byte) error
}

// Marshal encodes m, validating required fields first.
func Marshal(m Message) ([]byte, error) {
	return m.appendWire(nil)
}

// Unmarshal decodes b into m. Fields unknown to the schema are skipped.
func Unmarshal(b []byte, m Message) error {
	return m.consumeWire(b)
}

func encodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEncode, fmt.Sprintf(format, args...))
}

func decodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// fieldFunc consumes the value of one field and returns the number of bytes
// it used. Returning -1 hands the field back to walk to be skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walk(msg string, b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return decodeErr("%s: tag: %v", msg, protowire.ParseError(n))
		}
		b = b[n:]

		used, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if used < 0 {
			used = protowire.ConsumeFieldValue(num, typ, b)
			if used < 0 {
				return decodeErr("%s: field %d: %v", msg, num, protowire.ParseError(used))
			}
		}
		b = b[used:]
	}
	return nil
}

func consumeString(field string, typ protowire.Type, b []byte) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, decodeErr("%s: wire type %d, want bytes", field, typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, decodeErr("%s: %v", field, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(field string, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, decodeErr("%s: wire type %d, want bytes", field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, decodeErr("%s: %v", field, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeInt32(field string, typ protowire.Type, b []byte) (int32, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, decodeErr("%s: wire type %d, want varint", field, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, decodeErr("%s: %v", field, protowire.ParseError(n))
	}
	return int32(v), n, nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// int32 values are sign-extended to 64 bits, as protobuf does.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendMessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	sub, err := m.appendWire(nil)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub), nil
}
