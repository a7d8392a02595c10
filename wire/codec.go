package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/internal/common"
)

// MaxMessageSize bounds a single encoded message. Longer JSON lines are rejected.
const MaxMessageSize = 1 << 20

type (
	// Codec turns messages into a byte stream and back.
	Codec interface {
		Name() string
		NewEncoder(w io.Writer) Encoder
		NewDecoder(r io.Reader) Decoder
	}

	Encoder interface {
		Encode(msg Message) error
	}

	// Decoder returns the next validated message. Malformed input is reported as
	// common.ErrProtocol, a closed stream as io.EOF.
	Decoder interface {
		Decode() (Message, error)
	}
)

var (
	// JSON encodes one JSON object per line.
	JSON Codec = jsonCodec{}
	// CBOR encodes a sequence of deterministic CBOR maps with the same field names as JSON.
	CBOR Codec = cborCodec{}
)

// CodecByName returns the codec called "json" or "cbor".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "unknown codec "+name, 0)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) NewEncoder(w io.Writer) Encoder {
	return &jsonEncoder{w: w}
}

func (jsonCodec) NewDecoder(r io.Reader) Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	return &jsonDecoder{scanner: scanner}
}

type jsonEncoder struct {
	w io.Writer
}

func (enc *jsonEncoder) Encode(msg Message) error {
	env, err := toEnvelope(msg)
	if err != nil {
		return err
	}
	bts, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = enc.w.Write(append(bts, '\n'))
	return err
}

type jsonDecoder struct {
	scanner *bufio.Scanner
}

func (dec *jsonDecoder) Decode() (Message, error) {
	if !dec.scanner.Scan() {
		err := dec.scanner.Err()
		if err == nil {
			return nil, io.EOF
		}
		if err == bufio.ErrTooLong {
			return nil, errors.WrapPrefix(common.ErrProtocol, "message exceeds maximum size", 0)
		}
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(dec.scanner.Bytes(), &env); err != nil {
		return nil, errors.WrapPrefix(common.ErrProtocol, "invalid JSON message: "+err.Error(), 0)
	}
	if err := checkKeys(dec.scanner.Bytes()); err != nil {
		return nil, errors.WrapPrefix(common.ErrProtocol, "invalid JSON message: "+err.Error(), 0)
	}
	return env.message()
}

// envelopeKeys are the JSON names of the envelope fields.
var envelopeKeys = map[string]bool{
	"type": true, "role": true, "name": true, "k": true, "t": true, "session": true,
	"round": true, "x": true, "e": true, "y": true, "ok": true, "message": true,
}

// checkKeys rejects a JSON object that repeats a key, ignoring case, or that spells a field
// name in anything but lower case. encoding/json would silently pick one of the values, where
// the CBOR decoder rejects duplicate keys outright. Unknown keys are allowed.
func checkKeys(line []byte) error {
	dec := json.NewDecoder(bytes.NewReader(line))
	if _, err := dec.Token(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("unexpected token %v", tok)
		}
		folded := strings.ToLower(key)
		if seen[folded] {
			return errors.Errorf("duplicate key %q", key)
		}
		seen[folded] = true
		if folded != key && envelopeKeys[folded] {
			return errors.Errorf("key %q is not lower case", key)
		}
		var value json.RawMessage
		if err = dec.Decode(&value); err != nil {
			return err
		}
	}
	return nil
}
