package codec

// Wire format constants.
const (
	MagicBytes      = "MSPL"
	WireVersion     = 1  // v1: fixed header with SHA-256 of the data section
	FixedHeaderSize = 64 // 0x40 bytes
	ChecksumOffset  = 0x20
	ChecksumSize    = 32
	DataAlignment   = 64 // Array buffers start on 64-byte boundaries
)

// Flags stored in the fixed header.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: at least one array is lz4-compressed
	FlagHasUpstream uint32 = 1 << 1 // bit 1: record links to an upstream group
)

// Array encodings.
const (
	EncodingRaw = "raw"
	EncodingLZ4 = "lz4"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize  = 64 * 1024 * 1024 // 64MB - maximum JSON header size
	MaxArrayCount  = 100_000          // Maximum number of arrays in one payload
	MaxNestedDepth = 64               // Maximum object nesting
)

// payloadHeader is the JSON header of a payload.
type payloadHeader struct {
	Type          string      `json:"type"`
	FormatVersion int         `json:"format_version"`
	Producer      string      `json:"producer_version"`
	Upstream      string      `json:"upstream,omitempty"`
	Fields        []fieldJSON `json:"fields"`
}

// objectJSON is a nested record.
type objectJSON struct {
	Type          string      `json:"type"`
	FormatVersion int         `json:"format_version"`
	Fields        []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	Name  string    `json:"name"`
	Value valueJSON `json:"value"`
}

// valueJSON stores floats as strings so that every finite value, NaN and the
// infinities round-trip exactly.
type valueJSON struct {
	Kind   string      `json:"kind"`
	Bool   bool        `json:"bool,omitempty"`
	Int    int64       `json:"int,omitempty"`
	Float  string      `json:"float,omitempty"`
	Str    string      `json:"str,omitempty"`
	Strs   []string    `json:"strs,omitempty"`
	Array  *ArrayMeta  `json:"array,omitempty"`
	Object *objectJSON `json:"object,omitempty"`
}

// ArrayMeta describes an array buffer in the data section.
type ArrayMeta struct {
	DType    string `json:"dtype"`    // Element type (e.g., "float64")
	Shape    []int  `json:"shape"`    // Array shape
	Offset   int64  `json:"offset"`   // Offset from the start of the data section
	Size     int64  `json:"size"`     // Stored size in bytes
	RawSize  int64  `json:"raw_size"` // Uncompressed size in bytes
	Encoding string `json:"encoding"` // "raw" or "lz4"
}

// alignUp rounds n up to the next multiple of DataAlignment.
func alignUp(n int64) int64 {
	return (n + DataAlignment - 1) / DataAlignment * DataAlignment
}
