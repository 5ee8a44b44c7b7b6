package local

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "SHST"
	// Current version
	FormatVersion = 1
	// File extension for collection snapshots
	FileExtension = ".shst"
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic    [4]byte // "SHST"
	Version  uint8   // Format version
	Flags    uint8   // Reserved for future use
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer) error {
	header := FileHeader{
		Magic:    [4]byte{'S', 'H', 'S', 'T'},
		Version:  FormatVersion,
		Flags:    0,
		Reserved: [2]byte{0, 0},
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// Snapshot is the persisted content of one collection
type Snapshot struct {
	Database   string                   `msgpack:"database"`
	Collection string                   `msgpack:"collection"`
	Documents  []map[string]interface{} `msgpack:"documents"`
}

// WriteSnapshot writes header + lz4-compressed MessagePack body
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	if err := WriteHeader(w); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	if _, err := ReadHeader(r); err != nil {
		return nil, fmt.Errorf("invalid file header: %w", err)
	}

	var snap Snapshot
	dec := msgpack.NewDecoder(lz4.NewReader(r))
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return &snap, nil
}
