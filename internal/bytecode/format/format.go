// Package format encodes and decodes the on-disk bytecode program
// format: a fixed 48-byte header, a data section, a text section, and
// a trailing foreign-function table, laid out exactly as described in
// the bytecode program format.
package format

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"scathac/internal/ffi"

	"golang.org/x/mod/semver"
)

// headerSize is 2*8 (version) + 8 (total size) + 8 (data offset) +
// 8 (text offset) + 8 (start offset).
const headerSize = 48

// CurrentVersion is the version this toolchain build stamps into
// every program it emits. It is compared against a loaded binary's
// version field with golang.org/x/mod/semver so a binary produced by
// a newer, incompatible linker is rejected rather than silently
// misread.
const CurrentVersion = "v1.0.0"

// Header mirrors the file's first 48 bytes.
type Header struct {
	// Version is the toolchain version that emitted this binary, in
	// the same "vMAJOR.MINOR.PATCH" form semver.Compare expects.
	Version string
	// BuildID is a content-addressed identifier (see
	// internal/driver/buildid) stamped into the version field's
	// second word; zero if the binary wasn't built with -d.
	BuildID uint64

	TotalSize   uint64
	DataOffset  uint64
	TextOffset  uint64
	StartOffset uint64
}

// Program is a fully decoded bytecode file: header, data segment,
// text segment, and the resolved-at-link-time FFI import table. The
// optional .scdsym sidecar lives alongside it on disk, not in this
// struct -- see internal/debuginfo.
type Program struct {
	Header  Header
	Data    []byte
	Text    []byte
	Imports []ffi.Signature
}

func encodeVersion(version string, buildID uint64) (word0, word1 uint64) {
	major, minor, patch := parseSemver(version)
	word0 = uint64(major)<<40 | uint64(minor)<<20 | uint64(patch)
	word1 = buildID
	return word0, word1
}

func parseSemver(version string) (major, minor, patch uint32) {
	if !semver.IsValid(version) {
		return 0, 0, 0
	}
	var maj, min, pat int
	fmt.Sscanf(semver.Canonical(version), "v%d.%d.%d", &maj, &min, &pat)
	return uint32(maj), uint32(min), uint32(pat)
}

func decodeVersion(word0, word1 uint64) (version string, buildID uint64) {
	major := (word0 >> 40) & 0xFFFFF
	minor := (word0 >> 20) & 0xFFFFF
	patch := word0 & 0xFFFFF
	return fmt.Sprintf("v%d.%d.%d", major, minor, patch), word1
}

// Encode writes p's header, data, text, and FFI table to a single
// byte slice in on-disk order.
func Encode(p *Program) ([]byte, error) {
	var buf bytes.Buffer

	word0, word1 := encodeVersion(p.Header.Version, p.Header.BuildID)
	dataOffset := uint64(0)
	textOffset := uint64(len(p.Data))
	totalSize := uint64(headerSize) + uint64(len(p.Data)) + uint64(len(p.Text))

	fields := []uint64{
		word0, word1,
		totalSize,
		dataOffset,
		textOffset,
		p.Header.StartOffset,
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("format: encode header: %w", err)
		}
	}

	buf.Write(p.Data)
	buf.Write(p.Text)

	table, err := encodeFFITable(p.Imports)
	if err != nil {
		return nil, err
	}
	buf.Write(table)

	return buf.Bytes(), nil
}

// Decode parses a byte slice produced by Encode back into a Program.
// It rejects a version newer than CurrentVersion: a binary emitted by
// a future, incompatible linker must not be silently misread.
func Decode(raw []byte) (*Program, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("format: file too short for header: got %d bytes, need %d", len(raw), headerSize)
	}
	r := bytes.NewReader(raw)
	var word0, word1, totalSize, dataOffset, textOffset, startOffset uint64
	for _, dst := range []*uint64{&word0, &word1, &totalSize, &dataOffset, &textOffset, &startOffset} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("format: decode header: %w", err)
		}
	}

	version, buildID := decodeVersion(word0, word1)
	if semver.IsValid(version) && semver.IsValid(CurrentVersion) && semver.Compare(version, CurrentVersion) > 0 {
		return nil, fmt.Errorf("format: binary version %s is newer than this toolchain's %s", version, CurrentVersion)
	}

	if totalSize > uint64(len(raw)) {
		return nil, fmt.Errorf("format: header claims total size %d, file is only %d bytes", totalSize, len(raw))
	}

	body := raw[headerSize:totalSize]
	if textOffset > uint64(len(body)) {
		return nil, fmt.Errorf("format: text offset %d out of range of body length %d", textOffset, len(body))
	}
	data := body[dataOffset:textOffset]
	text := body[textOffset:]

	imports, err := decodeFFITable(raw[totalSize:])
	if err != nil {
		return nil, err
	}

	return &Program{
		Header: Header{
			Version:     version,
			BuildID:     buildID,
			TotalSize:   totalSize,
			DataOffset:  dataOffset,
			TextOffset:  textOffset,
			StartOffset: startOffset,
		},
		Data:    data,
		Text:    text,
		Imports: imports,
	}, nil
}
