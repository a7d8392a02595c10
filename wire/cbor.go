package wire

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/internal/common"
)

// CBOR messages use Core Deterministic Encoding (RFC 8949 section 4.2.1), so that a message
// has exactly one encoding. Decoding rejects duplicate map keys and anything deeper or larger
// than a flat message can be.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	cborEncMode, err = cbor.EncOptions{
		InfConvert:    cbor.InfConvertFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
		NaNConvert:    cbor.NaNConvert7e00,
		ShortestFloat: cbor.ShortestFloat16,
		Sort:          cbor.SortCoreDeterministic,
		TagsMd:        cbor.TagsForbidden,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDecMode, err = cbor.DecOptions{
		IndefLength:      cbor.IndefLengthForbidden,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 1024 * 64,
		MaxMapPairs:      64,
		MaxNestedLevels:  4,
		TagsMd:           cbor.TagsForbidden,
		TimeTag:          cbor.DecTagIgnored,
		// Unknown fields are ignored so that peers may add optional fields
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) NewEncoder(w io.Writer) Encoder {
	return &cborEncoder{w: w}
}

func (cborCodec) NewDecoder(r io.Reader) Decoder {
	lim := &messageLimit{r: r}
	return &cborDecoder{dec: cborDecMode.NewDecoder(lim), lim: lim}
}

// messageLimit fails reads once MaxMessageSize bytes were read since the last reset. The
// CBOR decoder buffers ahead, so the count may include the start of the next message.
type messageLimit struct {
	r        io.Reader
	n        int
	exceeded bool
}

func (l *messageLimit) reset() {
	l.n = 0
	l.exceeded = false
}

func (l *messageLimit) Read(p []byte) (int, error) {
	if l.n >= MaxMessageSize {
		l.exceeded = true
		return 0, errors.WrapPrefix(common.ErrProtocol, "message exceeds maximum size", 0)
	}
	if len(p) > MaxMessageSize-l.n {
		p = p[:MaxMessageSize-l.n]
	}
	n, err := l.r.Read(p)
	l.n += n
	return n, err
}

type cborEncoder struct {
	w io.Writer
}

func (enc *cborEncoder) Encode(msg Message) error {
	env, err := toEnvelope(msg)
	if err != nil {
		return err
	}
	bts, err := cborEncMode.Marshal(env)
	if err != nil {
		return err
	}
	if len(bts) > MaxMessageSize {
		return errors.WrapPrefix(common.ErrProtocol, "message exceeds maximum size", 0)
	}
	_, err = enc.w.Write(bts)
	return err
}

type cborDecoder struct {
	dec *cbor.Decoder
	lim *messageLimit
}

func (dec *cborDecoder) Decode() (Message, error) {
	dec.lim.reset()
	var env envelope
	if err := dec.dec.Decode(&env); err != nil {
		if dec.lim.exceeded {
			return nil, errors.WrapPrefix(common.ErrProtocol, "message exceeds maximum size", 0)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, err
		}
		return nil, errors.WrapPrefix(common.ErrProtocol, "invalid CBOR message: "+err.Error(), 0)
	}
	return env.message()
}
