package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// scaler is a small persistable used throughout the codec tests.
type scaler struct {
	WithMean bool
	Epsilon  float64
	Iters    int
	Label    string
	Tags     []string
	Mean     *ndarray.Array
	Inner    *scaler
	Callback func()
}

func (s *scaler) TypeName() string { return "test.Scaler" }

func (s *scaler) MarshalState(rec *Record) error {
	for name, v := range map[string]any{
		"with_mean": s.WithMean,
		"epsilon":   s.Epsilon,
		"iters":     s.Iters,
		"label":     s.Label,
		"tags":      s.Tags,
		"mean":      s.Mean,
		"inner":     s.Inner,
	} {
		if err := rec.Set(name, v); err != nil {
			return err
		}
	}
	if s.Callback != nil {
		return rec.Set("callback", s.Callback)
	}
	return nil
}

func (s *scaler) UnmarshalState(rec *Record) error {
	var err error
	if s.WithMean, err = rec.Bool("with_mean"); err != nil {
		return err
	}
	if s.Epsilon, err = rec.Float("epsilon"); err != nil {
		return err
	}
	iters, err := rec.Int("iters")
	if err != nil {
		return err
	}
	s.Iters = int(iters)
	if s.Label, err = rec.Str("label"); err != nil {
		return err
	}
	if s.Tags, err = rec.Strings("tags"); err != nil {
		return err
	}
	if s.Mean, err = rec.Array("mean"); err != nil {
		return err
	}
	inner, err := rec.Object("inner")
	if err != nil {
		return err
	}
	if inner != nil {
		s.Inner = inner.(*scaler)
	}
	return nil
}

func scalerSpec() TypeSpec {
	return TypeSpec{
		Name:    "test.Scaler",
		Version: 1,
		Fields: []FieldSpec{
			{Name: "with_mean", Kind: KindBool},
			{Name: "epsilon", Kind: KindFloat},
			{Name: "iters", Kind: KindInt},
			{Name: "label", Kind: KindString},
			{Name: "tags", Kind: KindStrings},
			{Name: "mean", Kind: KindArray, Optional: true},
			{Name: "inner", Kind: KindObject, Optional: true},
		},
		New: func() Persistable { return &scaler{} },
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(scalerSpec()))
	return reg
}

func sampleScaler() *scaler {
	mean, err := ndarray.FromSlice(ndarray.Shape{2, 3}, []float64{1, -2.5, math.Pi, math.NaN(), math.Inf(1), 1e-310})
	if err != nil {
		panic(err)
	}
	return &scaler{
		WithMean: true,
		Epsilon:  1e-12,
		Iters:    250,
		Label:    "tica \"lag\" 10",
		Tags:     []string{"a", "b"},
		Mean:     mean,
		Inner:    &scaler{Label: "inner", Tags: []string{}, Epsilon: math.Inf(-1)},
	}
}

func roundTrip(t *testing.T, reg *Registry, obj Persistable, opts EncodeOptions) (Persistable, []byte) {
	t.Helper()
	rec, err := reg.Serialize(obj)
	require.NoError(t, err)
	payload, err := Encode(rec, opts)
	require.NoError(t, err)
	decoded, err := Decode(payload)
	require.NoError(t, err)
	out, err := reg.Deserialize(decoded)
	require.NoError(t, err)
	return out, payload
}

func assertScalerEqual(t *testing.T, want, got *scaler) {
	t.Helper()
	assert.Equal(t, want.WithMean, got.WithMean)
	assert.Equal(t, math.Float64bits(want.Epsilon), math.Float64bits(got.Epsilon))
	assert.Equal(t, want.Iters, got.Iters)
	assert.Equal(t, want.Label, got.Label)
	assert.Equal(t, len(want.Tags), len(got.Tags))
	assert.True(t, want.Mean.Equal(got.Mean), "mean arrays differ")
	if want.Inner == nil {
		assert.Nil(t, got.Inner)
		return
	}
	require.NotNil(t, got.Inner)
	assertScalerEqual(t, want.Inner, got.Inner)
}

func TestRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	want := sampleScaler()

	for _, compress := range []bool{false, true} {
		got, _ := roundTrip(t, reg, want, EncodeOptions{Compress: compress})
		assertScalerEqual(t, want, got.(*scaler))
	}
}

func TestRoundTripCompressedArrays(t *testing.T) {
	reg := newTestRegistry(t)
	values := make([]float64, 4096)
	for i := range values {
		values[i] = float64(i % 7)
	}
	obj := &scaler{Tags: []string{}, Mean: ndarray.Vector(values)}

	_, raw := roundTrip(t, reg, obj, EncodeOptions{})
	got, compressed := roundTrip(t, reg, obj, EncodeOptions{Compress: true})

	assert.Less(t, len(compressed), len(raw))
	assert.NotZero(t, binary.LittleEndian.Uint32(compressed[8:12])&FlagCompressed)
	assert.True(t, obj.Mean.Equal(got.(*scaler).Mean))
}

func TestEncodeDeterministic(t *testing.T) {
	reg := newTestRegistry(t)

	rec1, err := reg.Serialize(sampleScaler())
	require.NoError(t, err)
	rec2, err := reg.Serialize(sampleScaler())
	require.NoError(t, err)

	// MarshalState iterates a map, so field insertion order differs between runs;
	// schema ordering must hide that.
	assert.True(t, rec1.Equal(rec2))

	p1, err := Encode(rec1, EncodeOptions{Compress: true})
	require.NoError(t, err)
	p2, err := Encode(rec2, EncodeOptions{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestNotSerializable(t *testing.T) {
	reg := newTestRegistry(t)
	obj := sampleScaler()
	obj.Callback = func() {}

	_, err := reg.Serialize(obj)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSerializable)

	var nse *NotSerializableError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, "callback", nse.Attribute)
	assert.Equal(t, "test.Scaler", nse.Type)
	assert.Contains(t, err.Error(), "callback")
}

func TestSetRejectsUnsupportedValues(t *testing.T) {
	rec := NewRecord("test.Any", 1)
	tests := []struct {
		name  string
		value any
	}{
		{"channel", make(chan int)},
		{"file", os.Stdout},
		{"struct", struct{ X int }{1}},
		{"map", map[string]int{"a": 1}},
		{"huge uint", uint64(math.MaxUint64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rec.Set(tt.name, tt.value)
			assert.ErrorIs(t, err, ErrNotSerializable)
		})
	}
}

func TestSchemaViolations(t *testing.T) {
	reg := newTestRegistry(t)

	t.Run("undeclared field", func(t *testing.T) {
		rec, err := reg.Serialize(sampleScaler())
		require.NoError(t, err)
		require.NoError(t, rec.Set("extra", 1))
		_, err = reg.Deserialize(rec)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("missing required", func(t *testing.T) {
		rec, err := reg.Serialize(sampleScaler())
		require.NoError(t, err)
		rec.Delete("iters")
		_, err = reg.Deserialize(rec)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		rec, err := reg.Serialize(sampleScaler())
		require.NoError(t, err)
		require.NoError(t, rec.Set("iters", "many"))
		_, err = reg.Deserialize(rec)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "iters", se.Field)
	})
}

func TestUnknownType(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Serialize(sampleScaler())
	require.NoError(t, err)

	_, err = NewRegistry().Deserialize(rec)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = NewRegistry().Serialize(sampleScaler())
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestIncompatibleVersion(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Serialize(sampleScaler())
	require.NoError(t, err)

	rec.Version = 2
	obj, err := reg.Deserialize(rec)
	assert.Nil(t, obj)
	var ive *IncompatibleVersionError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, 2, ive.Found)
	assert.Equal(t, 1, ive.MaxSupported)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
	assert.Contains(t, err.Error(), "newer")
}

// renamed is version 3 of a type whose field "lag" became "lagtime" in v2 and gained
// "reversible" in v3.
type renamed struct {
	Lagtime    int64
	Reversible bool
}

func (r *renamed) TypeName() string { return "test.Renamed" }

func (r *renamed) MarshalState(rec *Record) error {
	if err := rec.Set("lagtime", r.Lagtime); err != nil {
		return err
	}
	return rec.Set("reversible", r.Reversible)
}

func (r *renamed) UnmarshalState(rec *Record) error {
	var err error
	if r.Lagtime, err = rec.Int("lagtime"); err != nil {
		return err
	}
	r.Reversible, err = rec.Bool("reversible")
	return err
}

func renamedSpec(migrations map[int]Migration) TypeSpec {
	return TypeSpec{
		Name:       "test.Renamed",
		Version:    3,
		MinVersion: 1,
		Fields: []FieldSpec{
			{Name: "lagtime", Kind: KindInt},
			{Name: "reversible", Kind: KindBool},
		},
		New:        func() Persistable { return &renamed{} },
		Migrations: migrations,
	}
}

func v1Record(t *testing.T) *Record {
	t.Helper()
	rec := NewRecord("test.Renamed", 1)
	require.NoError(t, rec.Set("lag", 10))
	return rec
}

func TestMigrationChain(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(renamedSpec(map[int]Migration{
		1: func(rec *Record) error {
			rec.Rename("lag", "lagtime")
			return nil
		},
		2: func(rec *Record) error {
			return rec.Set("reversible", true)
		},
	})))

	payload, err := Encode(v1Record(t), EncodeOptions{})
	require.NoError(t, err)
	rec, err := Decode(payload)
	require.NoError(t, err)

	obj, err := reg.Deserialize(rec)
	require.NoError(t, err)
	assert.Equal(t, &renamed{Lagtime: 10, Reversible: true}, obj)
	assert.Equal(t, 1, rec.Version, "input record must not be modified")
}

func TestMigrationRequired(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(renamedSpec(map[int]Migration{
		1: func(rec *Record) error {
			rec.Rename("lag", "lagtime")
			return nil
		},
	})))

	obj, err := reg.Deserialize(v1Record(t))
	assert.Nil(t, obj)
	var mre *MigrationRequiredError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, 2, mre.From)
	assert.Equal(t, 3, mre.To)
}

func TestBelowMinVersion(t *testing.T) {
	spec := renamedSpec(map[int]Migration{2: func(*Record) error { return nil }})
	spec.MinVersion = 2
	reg := NewRegistry()
	require.NoError(t, reg.Register(spec))

	_, err := reg.Deserialize(v1Record(t))
	var ive *IncompatibleVersionError
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, 2, ive.MinSupported)
	assert.Contains(t, err.Error(), "no longer supported")
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(scalerSpec()))
	assert.Error(t, reg.Register(scalerSpec()), "duplicate name")

	bad := []TypeSpec{
		{Name: "", Version: 1, New: func() Persistable { return &scaler{} }},
		{Name: "x", Version: 0, New: func() Persistable { return &scaler{} }},
		{Name: "x", Version: 1},
		{Name: "x", Version: 2, MinVersion: 3, New: func() Persistable { return &scaler{} }},
		{Name: "x", Version: 1, New: func() Persistable { return &scaler{} },
			Fields: []FieldSpec{{Name: "a", Kind: KindInt}, {Name: "a", Kind: KindInt}}},
		{Name: "x", Version: 1, New: func() Persistable { return &scaler{} },
			Migrations: map[int]Migration{1: func(*Record) error { return nil }}},
	}
	for i, spec := range bad {
		assert.Error(t, NewRegistry().Register(spec), "spec %d", i)
	}
	assert.Equal(t, []string{"test.Scaler"}, reg.Types())
}

func TestDecodeRejectsDamage(t *testing.T) {
	reg := newTestRegistry(t)
	rec, err := reg.Serialize(sampleScaler())
	require.NoError(t, err)
	payload, err := Encode(rec, EncodeOptions{})
	require.NoError(t, err)

	damage := func(f func(p []byte) []byte) []byte {
		p := make([]byte, len(payload))
		copy(p, payload)
		return f(p)
	}

	t.Run("magic", func(t *testing.T) {
		_, err := Decode(damage(func(p []byte) []byte { p[0] = 'X'; return p }))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("newer wire version", func(t *testing.T) {
		_, err := Decode(damage(func(p []byte) []byte {
			binary.LittleEndian.PutUint32(p[4:8], WireVersion+1)
			return p
		}))
		assert.ErrorIs(t, err, ErrIncompatibleVersion)
	})

	t.Run("data corruption", func(t *testing.T) {
		_, err := Decode(damage(func(p []byte) []byte { p[len(p)-1] ^= 0xFF; return p }))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decode(damage(func(p []byte) []byte { return p[:len(p)-8] }))
		assert.ErrorIs(t, err, ErrTruncated)

		_, err = Decode(payload[:10])
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

// assemble builds a payload around an arbitrary header with a valid data checksum.
func assemble(t *testing.T, header payloadHeader, data []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)
	return assembleRaw(headerJSON, data)
}

func assembleRaw(headerJSON, data []byte) []byte {
	sum := sha256.Sum256(data)
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed, MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], WireVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:], sum[:])

	out := append(fixed, headerJSON...)
	out = append(out, make([]byte, alignUp(int64(len(out)))-int64(len(out)))...)
	return append(out, data...)
}

func arrayField(name string, meta ArrayMeta) fieldJSON {
	return fieldJSON{Name: name, Value: valueJSON{Kind: KindArray.String(), Array: &meta}}
}

func TestDecodeRejectsMalformedHeader(t *testing.T) {
	data := make([]byte, 128)
	tests := []struct {
		name     string
		fields   []fieldJSON
		wantType string
	}{
		{
			name: "element count overflows",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "int64", Shape: []int{1 << 62, 2}, Offset: 0, Size: 0, RawSize: 0, Encoding: EncodingRaw,
			})},
			wantType: "bad_shape",
		},
		{
			name: "byte size overflows",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "int64", Shape: []int{1 << 61}, Offset: 0, Size: 0, RawSize: 0, Encoding: EncodingRaw,
			})},
			wantType: "bad_shape",
		},
		{
			name: "negative dimension",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "uint8", Shape: []int{-1}, Offset: 0, Size: 0, Encoding: EncodingRaw,
			})},
			wantType: "bad_shape",
		},
		{
			name: "out of bounds",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "uint8", Shape: []int{64}, Offset: 100, Size: 64, RawSize: 64, Encoding: EncodingRaw,
			})},
			wantType: "out_of_bounds",
		},
		{
			name: "negative offset",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "uint8", Shape: []int{1}, Offset: -1, Size: 1, RawSize: 1, Encoding: EncodingRaw,
			})},
			wantType: "out_of_bounds",
		},
		{
			name: "overlapping arrays",
			fields: []fieldJSON{
				arrayField("a", ArrayMeta{DType: "uint8", Shape: []int{100}, Offset: 0, Size: 100, RawSize: 100, Encoding: EncodingRaw}),
				arrayField("b", ArrayMeta{DType: "uint8", Shape: []int{10}, Offset: 64, Size: 10, RawSize: 10, Encoding: EncodingRaw}),
			},
			wantType: "offset_overlap",
		},
		{
			name: "size mismatch",
			fields: []fieldJSON{arrayField("w", ArrayMeta{
				DType: "float64", Shape: []int{3}, Offset: 0, Size: 16, RawSize: 16, Encoding: EncodingRaw,
			})},
			wantType: "size_mismatch",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := assemble(t, payloadHeader{Type: "test.Scaler", FormatVersion: 1, Fields: tt.fields}, data)
			rec, err := Decode(payload)
			assert.Nil(t, rec)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantType, ve.Type)
			assert.ErrorIs(t, err, ErrCorruptPayload)
		})
	}

	t.Run("adjacent arrays", func(t *testing.T) {
		payload := assemble(t, payloadHeader{Type: "test.Scaler", FormatVersion: 1, Fields: []fieldJSON{
			arrayField("a", ArrayMeta{DType: "uint8", Shape: []int{64}, Offset: 0, Size: 64, RawSize: 64, Encoding: EncodingRaw}),
			arrayField("b", ArrayMeta{DType: "uint8", Shape: []int{10}, Offset: 64, Size: 10, RawSize: 10, Encoding: EncodingRaw}),
			arrayField("c", ArrayMeta{DType: "uint8", Shape: []int{0}, Offset: 128, Size: 0, RawSize: 0, Encoding: EncodingRaw}),
		}}, data)
		rec, err := Decode(payload)
		require.NoError(t, err)
		a, err := rec.Array("a")
		require.NoError(t, err)
		assert.Equal(t, 64, a.NumElements())
	})

	t.Run("header is not JSON", func(t *testing.T) {
		_, err := Decode(assembleRaw([]byte("{not json"), data))
		assert.ErrorIs(t, err, ErrCorruptPayload)
	})
}

func TestNilAndEmptyStringLists(t *testing.T) {
	rec := NewRecord("test.Lists", 1)
	require.NoError(t, rec.Set("none", []string(nil)))
	require.NoError(t, rec.Set("empty", []string{}))

	payload, err := Encode(rec, EncodeOptions{})
	require.NoError(t, err)
	got, err := Decode(payload)
	require.NoError(t, err)

	assert.True(t, got.IsNull("none"))
	none, err := got.Strings("none")
	require.NoError(t, err)
	assert.Nil(t, none)

	empty, err := got.Strings("empty")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
