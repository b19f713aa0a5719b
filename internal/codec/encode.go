package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// EncodeOptions controls payload encoding.
type EncodeOptions struct {
	// Compress stores array buffers lz4-compressed whenever that makes them smaller.
	Compress bool
}

// encoder accumulates the data section while the header is being built.
type encoder struct {
	opts   EncodeOptions
	data   []byte
	arrays int
	flags  uint32
}

// Encode converts a record into payload bytes. Encoding is deterministic: equal records
// with equal options always produce identical bytes.
func Encode(rec *Record, opts EncodeOptions) ([]byte, error) {
	enc := &encoder{opts: opts}

	fields, err := enc.fields(rec.Type, rec.Fields, 0)
	if err != nil {
		return nil, err
	}
	header := payloadHeader{
		Type:          rec.Type,
		FormatVersion: rec.Version,
		Producer:      rec.Producer,
		Upstream:      rec.Upstream,
		Fields:        fields,
	}
	if rec.Upstream != "" {
		enc.flags |= FlagHasUpstream
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	checksum := sha256.Sum256(enc.data)
	headerSize := uint64(len(headerJSON))
	dataSize := uint64(len(enc.data))

	fixed := make([]byte, FixedHeaderSize)
	// 0x00-0x03: Magic bytes
	copy(fixed[0:4], MagicBytes)
	// 0x04-0x07: Wire version
	binary.LittleEndian.PutUint32(fixed[4:8], WireVersion)
	// 0x08-0x0B: Flags
	binary.LittleEndian.PutUint32(fixed[8:12], enc.flags)
	// 0x0C-0x0F: Reserved
	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixed[16:24], headerSize)
	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixed[24:32], dataSize)
	// 0x20-0x3F: SHA-256 of the data section
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	headerEnd := int64(FixedHeaderSize) + int64(len(headerJSON))
	padding := alignUp(headerEnd) - headerEnd

	var buf bytes.Buffer
	buf.Grow(int(headerEnd+padding) + len(enc.data))
	buf.Write(fixed)
	buf.Write(headerJSON)
	buf.Write(make([]byte, padding))
	buf.Write(enc.data)
	return buf.Bytes(), nil
}

func (e *encoder) fields(typeName string, in []Field, depth int) ([]fieldJSON, error) {
	if depth > MaxNestedDepth {
		return nil, fmt.Errorf("%s: objects nested deeper than %d", typeName, MaxNestedDepth)
	}
	out := make([]fieldJSON, 0, len(in))
	for _, f := range in {
		v, err := e.value(typeName, f.Name, f.Value, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldJSON{Name: f.Name, Value: v})
	}
	return out, nil
}

func (e *encoder) value(typeName, name string, v Value, depth int) (valueJSON, error) {
	out := valueJSON{Kind: v.Kind.String()}
	switch v.Kind {
	case KindNull:
	case KindBool:
		out.Bool = v.Bool
	case KindInt:
		out.Int = v.Int
	case KindFloat:
		out.Float = strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		out.Str = v.Str
	case KindStrings:
		out.Strs = v.Strs
	case KindArray:
		if v.Array == nil {
			return valueJSON{}, fmt.Errorf("%s.%s: array value is nil", typeName, name)
		}
		meta, err := e.array(v.Array)
		if err != nil {
			return valueJSON{}, fmt.Errorf("%s.%s: %w", typeName, name, err)
		}
		out.Array = meta
	case KindObject:
		if v.Object == nil {
			return valueJSON{}, fmt.Errorf("%s.%s: object value is nil", typeName, name)
		}
		fields, err := e.fields(v.Object.Type, v.Object.Fields, depth+1)
		if err != nil {
			return valueJSON{}, err
		}
		out.Object = &objectJSON{
			Type:          v.Object.Type,
			FormatVersion: v.Object.Version,
			Fields:        fields,
		}
	default:
		return valueJSON{}, fmt.Errorf("%s.%s: invalid kind %d", typeName, name, v.Kind)
	}
	return out, nil
}

// array appends one buffer to the data section at the next aligned offset.
func (e *encoder) array(a *ndarray.Array) (*ArrayMeta, error) {
	if e.arrays >= MaxArrayCount {
		return nil, fmt.Errorf("too many arrays in payload (max %d)", MaxArrayCount)
	}
	e.arrays++

	offset := alignUp(int64(len(e.data)))
	if pad := offset - int64(len(e.data)); pad > 0 {
		e.data = append(e.data, make([]byte, pad)...)
	}

	raw := a.Bytes()
	stored, encoding := raw, EncodingRaw
	if e.opts.Compress {
		if compressed, ok := compressBlock(raw); ok {
			stored, encoding = compressed, EncodingLZ4
			e.flags |= FlagCompressed
		}
	}
	e.data = append(e.data, stored...)

	shape := a.Shape()
	if shape == nil {
		shape = ndarray.Shape{}
	}
	return &ArrayMeta{
		DType:    a.DType().String(),
		Shape:    []int(shape),
		Offset:   offset,
		Size:     int64(len(stored)),
		RawSize:  int64(len(raw)),
		Encoding: encoding,
	}, nil
}
