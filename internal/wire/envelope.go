// Package wire is the message format between a bridge and an out-of-process
// host. Every exchange is one request Envelope answered by one reply
// Envelope carrying the same ID.
package wire

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Kind names what an envelope carries.
type Kind string

const (
	KindSchedule Kind = "schedule"
	KindFlush    Kind = "flush"
	KindCall     Kind = "call"
	KindSnapshot Kind = "snapshot"
	KindClose    Kind = "close"
	KindResult   Kind = "result"
	KindError    Kind = "error"
)

// IsRequest reports whether k is sent by the bridge.
func (k Kind) IsRequest() bool {
	switch k {
	case KindSchedule, KindFlush, KindCall, KindSnapshot, KindClose:
		return true
	}
	return false
}

// Envelope is one framed message.
type Envelope struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Context    string `json:"context"`
	TraceID    string `json:"trace_id,omitempty"`
	Compressed bool   `json:"compressed,omitempty"`
	Payload    []byte `json:"payload,omitempty"`
}

// DefaultCompressThreshold is the payload size above which payloads are compressed.
const DefaultCompressThreshold = 4096

const maxDecodedPayload = 64 << 20

// Codec packs payloads into envelopes and envelopes into bytes.
// It is safe for concurrent use.
type Codec struct {
	threshold int
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewCodec creates a codec compressing payloads larger than threshold
// bytes. A threshold <= 0 disables compression.
func NewCodec(threshold int) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedPayload))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{threshold: threshold, encoder: enc, decoder: dec}, nil
}

// Close releases the compressor state.
func (c *Codec) Close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}

// Request builds a new request envelope with a fresh id.
func (c *Codec) Request(kind Kind, contextID, traceID string, payload any) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Kind: kind, Context: contextID, TraceID: traceID}
	return env, c.pack(&env, payload)
}

// Reply builds the answer to req.
func (c *Codec) Reply(req Envelope, kind Kind, payload any) (Envelope, error) {
	env := Envelope{ID: req.ID, Kind: kind, Context: req.Context, TraceID: req.TraceID}
	return env, c.pack(&env, payload)
}

// ErrorReply answers req with err encoded as an ErrorDTO.
func (c *Codec) ErrorReply(req Envelope, err error) Envelope {
	env, packErr := c.Reply(req, KindError, ErrorToDTO(err))
	if packErr != nil {
		env = Envelope{ID: req.ID, Kind: KindError, Context: req.Context, TraceID: req.TraceID}
	}
	return env
}

func (c *Codec) pack(env *Envelope, payload any) error {
	if payload == nil {
		return nil
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", env.Kind, err)
	}
	if c.threshold > 0 && len(data) > c.threshold {
		data = c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
		env.Compressed = true
	}
	env.Payload = data
	return nil
}

// Unpack decodes env's payload into v.
func (c *Codec) Unpack(env Envelope, v any) error {
	data := env.Payload
	if env.Compressed {
		var err error
		if data, err = c.decoder.DecodeAll(data, nil); err != nil {
			return fmt.Errorf("decompress %s payload: %w", env.Kind, err)
		}
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	return nil
}

// Marshal frames env.
func Marshal(env Envelope) ([]byte, error) {
	return sonic.Marshal(env)
}

// Unmarshal parses one framed envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.ID == "" || env.Kind == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing id or kind")
	}
	return env, nil
}

// AsError returns the error carried by an error envelope, nil otherwise.
func (c *Codec) AsError(env Envelope) error {
	if env.Kind != KindError {
		return nil
	}
	var dto ErrorDTO
	if err := c.Unpack(env, &dto); err != nil {
		return err
	}
	return ErrorFromDTO(dto)
}
