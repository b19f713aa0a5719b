package codec

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// Decode parses payload bytes back into a record.
//
// The fixed header, the data checksum and every array's layout are validated before any
// value is materialized.
func Decode(payload []byte) (*Record, error) {
	if len(payload) < FixedHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(payload), FixedHeaderSize)
	}
	if string(payload[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	wire := binary.LittleEndian.Uint32(payload[4:8])
	if wire == 0 || wire > WireVersion {
		return nil, &IncompatibleVersionError{
			Type:         "payload",
			Found:        int(wire),
			MinSupported: 1,
			MaxSupported: WireVersion,
		}
	}

	headerSize := binary.LittleEndian.Uint64(payload[16:24])
	dataSize := binary.LittleEndian.Uint64(payload[24:32])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	//nolint:gosec // G115: headerSize bounded by MaxHeaderSize above
	headerEnd := int64(FixedHeaderSize) + int64(headerSize)
	dataOffset := alignUp(headerEnd)
	if uint64(len(payload)) < uint64(dataOffset) || uint64(len(payload))-uint64(dataOffset) < dataSize {
		return nil, fmt.Errorf("%w: header %d + data %d bytes exceed payload of %d bytes",
			ErrTruncated, headerSize, dataSize, len(payload))
	}
	data := payload[dataOffset : dataOffset+int64(dataSize)] //nolint:gosec // G115: bounded by len(payload)

	var stored [ChecksumSize]byte
	copy(stored[:], payload[ChecksumOffset:ChecksumOffset+ChecksumSize])
	if sha256.Sum256(data) != stored {
		return nil, ErrChecksumMismatch
	}

	var header payloadHeader
	dec := json.NewDecoder(bytes.NewReader(payload[FixedHeaderSize:headerEnd]))
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: header JSON: %w", ErrCorruptPayload, err)
	}

	d := &decoder{data: data}
	fields, err := d.fields(header.Type, "", header.Fields, 0)
	if err != nil {
		return nil, err
	}
	if err := d.checkOverlaps(); err != nil {
		return nil, err
	}

	return &Record{
		Type:     header.Type,
		Version:  header.FormatVersion,
		Producer: header.Producer,
		Upstream: header.Upstream,
		Fields:   fields,
	}, nil
}

// span is the byte range [start, end) one array occupies in the data section.
type span struct {
	field      string
	start, end int64
}

type decoder struct {
	data  []byte
	spans []span
}

// checkOverlaps fails if two arrays claim the same bytes of the data section.
func (d *decoder) checkOverlaps() error {
	byStart := slices.Clone(d.spans)
	slices.SortStableFunc(byStart, func(a, b span) int { return cmp.Compare(a.start, b.start) })
	for i := 1; i < len(byStart); i++ {
		prev, cur := byStart[i-1], byStart[i]
		if cur.start < prev.end {
			return &ValidationError{
				Type:   "offset_overlap",
				Field:  prev.field,
				Field2: cur.field,
				Details: fmt.Sprintf("bytes [%d, %d) and [%d, %d) intersect",
					prev.start, prev.end, cur.start, cur.end),
			}
		}
	}
	return nil
}

func (d *decoder) fields(typeName, prefix string, in []fieldJSON, depth int) ([]Field, error) {
	if depth > MaxNestedDepth {
		return nil, fmt.Errorf("%w: %s: objects nested deeper than %d", ErrCorruptPayload, typeName, MaxNestedDepth)
	}
	out := make([]Field, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, f := range in {
		if seen[f.Name] {
			return nil, &SchemaError{Type: typeName, Field: f.Name, Details: "duplicate field in payload"}
		}
		seen[f.Name] = true
		v, err := d.value(typeName, prefix+f.Name, f.Value, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Name: f.Name, Value: v})
	}
	return out, nil
}

//nolint:gocyclo,cyclop // one case per value kind
func (d *decoder) value(typeName, path string, in valueJSON, depth int) (Value, error) {
	kind, ok := parseKind(in.Kind)
	if !ok {
		return Value{}, &SchemaError{Type: typeName, Field: path, Details: fmt.Sprintf("unknown kind %q", in.Kind)}
	}
	out := Value{Kind: kind}
	switch kind {
	case KindNull:
	case KindBool:
		out.Bool = in.Bool
	case KindInt:
		out.Int = in.Int
	case KindFloat:
		f, err := strconv.ParseFloat(in.Float, 64)
		if err != nil {
			return Value{}, &SchemaError{Type: typeName, Field: path, Details: fmt.Sprintf("bad float %q", in.Float)}
		}
		out.Float = f
	case KindString:
		out.Str = in.Str
	case KindStrings:
		out.Strs = make([]string, len(in.Strs))
		copy(out.Strs, in.Strs)
	case KindArray:
		if in.Array == nil {
			return Value{}, &SchemaError{Type: typeName, Field: path, Details: "array metadata missing"}
		}
		a, err := d.array(path, *in.Array)
		if err != nil {
			return Value{}, err
		}
		out.Array = a
	case KindObject:
		if in.Object == nil {
			return Value{}, &SchemaError{Type: typeName, Field: path, Details: "object body missing"}
		}
		fields, err := d.fields(in.Object.Type, path+".", in.Object.Fields, depth+1)
		if err != nil {
			return Value{}, err
		}
		out.Object = &Record{
			Type:    in.Object.Type,
			Version: in.Object.FormatVersion,
			Fields:  fields,
		}
	}
	return out, nil
}

func (d *decoder) array(path string, meta ArrayMeta) (*ndarray.Array, error) {
	if len(d.spans) >= MaxArrayCount {
		return nil, &ValidationError{Type: "too_many_arrays", Details: fmt.Sprintf("max %d", MaxArrayCount)}
	}

	if meta.Offset < 0 || meta.Size < 0 || meta.RawSize < 0 ||
		meta.Offset > int64(len(d.data)) || meta.Size > int64(len(d.data))-meta.Offset {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Field:   path,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", meta.Offset, meta.Size, len(d.data)),
		}
	}

	d.spans = append(d.spans, span{field: path, start: meta.Offset, end: meta.Offset + meta.Size})

	dtype, err := ndarray.ParseDataType(meta.DType)
	if err != nil {
		return nil, &ValidationError{Type: "bad_dtype", Field: path, Details: err.Error()}
	}
	shape := ndarray.Shape(meta.Shape)
	want, err := dtype.ByteSize(shape)
	if err != nil {
		return nil, &ValidationError{Type: "bad_shape", Field: path, Details: err.Error()}
	}
	if int64(want) != meta.RawSize {
		return nil, &ValidationError{
			Type:    "size_mismatch",
			Field:   path,
			Details: fmt.Sprintf("%s%s needs %d bytes, header says %d", dtype, shape, want, meta.RawSize),
		}
	}

	stored := d.data[meta.Offset : meta.Offset+meta.Size]
	var raw []byte
	switch meta.Encoding {
	case EncodingRaw, "":
		raw = stored
	case EncodingLZ4:
		raw, err = decompressBlock(stored, meta.RawSize)
		if err != nil {
			return nil, &ValidationError{Type: "bad_compression", Field: path, Details: err.Error()}
		}
	default:
		return nil, &ValidationError{Type: "bad_encoding", Field: path, Details: fmt.Sprintf("unknown encoding %q", meta.Encoding)}
	}

	a, err := ndarray.FromBytes(shape, dtype, raw)
	if err != nil {
		return nil, &ValidationError{Type: "size_mismatch", Field: path, Details: err.Error()}
	}
	return a, nil
}
