package container

import (
	"encoding/binary"
	"time"
)

// Format constants.
const (
	MagicBytes      = "MSTC"
	FormatVersion   = 1    // v1: superblock + JSON index with SHA-256
	SuperblockSize  = 64   // 0x40 bytes
	ChecksumOffset  = 0x20 // Index checksum offset in the superblock
	ChecksumSize    = 32   // SHA-256
	PayloadAlign    = 64   // Payloads and index start on 64-byte boundaries
	DefaultEncoding = "mspl/v1"
)

// Metadata holds the lightweight attributes stored for every group.
type Metadata struct {
	Name             string    `json:"name"`                // Unique key within the file
	Created          time.Time `json:"created"`             // When the group was written
	ClassRepr        string    `json:"class_repr"`          // Canonical textual form of the object
	ClassStr         string    `json:"class_str"`           // Object's own textual form
	Digest           string    `json:"digest"`              // Hex SHA-256 of the payload bytes
	ProducingVersion string    `json:"producing_version"`   // Version of the writing software
	SavedChain       bool      `json:"saved_chain"`         // Ancestor groups were captured
	Type             string    `json:"type"`                // Type tag of the saved object
	FormatVersion    int       `json:"format_version"`      // Schema version of Type
	Encoding         string    `json:"encoding"`            // Payload encoding identifier
	PayloadSize      int64     `json:"payload_size"`        // Payload size in bytes
	Owner            string    `json:"owner,omitempty"`     // Primary group of a chain member
	Upstream         string    `json:"upstream,omitempty"`  // Group holding the upstream producer
}

// IsChainMember reports whether the group is an ancestor captured for another group.
func (m Metadata) IsChainMember() bool {
	return m.Owner != ""
}

// entry is one index record: metadata plus payload location.
type entry struct {
	Metadata
	Offset int64 `json:"payload_offset"`
}

// index is the JSON document the superblock points at.
type index struct {
	Groups []entry `json:"groups"`
}

// superblock is the fixed header at offset 0.
type superblock struct {
	Version     uint32
	Flags       uint32
	Generation  uint32
	IndexOffset uint64
	IndexSize   uint64
	Checksum    [ChecksumSize]byte
}

func (sb *superblock) marshal() []byte {
	buf := make([]byte, SuperblockSize)
	copy(buf[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], sb.Version)
	binary.LittleEndian.PutUint32(buf[8:12], sb.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], sb.Generation)
	binary.LittleEndian.PutUint64(buf[16:24], sb.IndexOffset)
	binary.LittleEndian.PutUint64(buf[24:32], sb.IndexSize)
	copy(buf[ChecksumOffset:ChecksumOffset+ChecksumSize], sb.Checksum[:])
	return buf
}

func (sb *superblock) unmarshal(buf []byte) error {
	if len(buf) < SuperblockSize || string(buf[0:4]) != MagicBytes {
		return ErrInvalidMagic
	}
	sb.Version = binary.LittleEndian.Uint32(buf[4:8])
	sb.Flags = binary.LittleEndian.Uint32(buf[8:12])
	sb.Generation = binary.LittleEndian.Uint32(buf[12:16])
	sb.IndexOffset = binary.LittleEndian.Uint64(buf[16:24])
	sb.IndexSize = binary.LittleEndian.Uint64(buf[24:32])
	copy(sb.Checksum[:], buf[ChecksumOffset:ChecksumOffset+ChecksumSize])
	return nil
}

// alignUp rounds n up to the next multiple of PayloadAlign.
func alignUp(n int64) int64 {
	return (n + PayloadAlign - 1) / PayloadAlign * PayloadAlign
}
