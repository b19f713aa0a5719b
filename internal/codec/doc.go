// Package codec converts persistable objects to self-describing payloads and back.
//
// An object contributes its state through MarshalState, filling a Record with named,
// typed fields. The Record is checked against the schema registered for the object's
// type, then encoded into the payload wire format:
//
//	Payload Structure:
//	  [64 bytes: fixed header]
//	    0x00  Magic "MSPL"
//	    0x04  Wire version (uint32 LE)
//	    0x08  Flags (uint32 LE)
//	    0x10  Header size (uint64 LE)
//	    0x18  Data size (uint64 LE)
//	    0x20  SHA-256 of the data section
//	  [Header: JSON description of the record]
//	  [Data: array buffers, 64-byte aligned, little-endian, optionally lz4-compressed]
//
// Decoding reverses the process. Every registered type carries an integer schema version;
// payloads written by an older schema are upgraded through registered migration steps,
// payloads written by a newer schema are rejected.
//
// Example usage:
//
//	reg := codec.NewRegistry()
//	reg.MustRegister(codec.TypeSpec{
//	    Name:    "example.Scaler",
//	    Version: 1,
//	    Fields: []codec.FieldSpec{
//	        {Name: "with_mean", Kind: codec.KindBool},
//	        {Name: "mean", Kind: codec.KindArray, Optional: true},
//	    },
//	    New: func() codec.Persistable { return &Scaler{} },
//	})
//
//	rec, err := reg.Serialize(scaler)
//	payload, err := codec.Encode(rec, codec.EncodeOptions{})
//	...
//	rec, err = codec.Decode(payload)
//	obj, err := reg.Deserialize(rec)
package codec
