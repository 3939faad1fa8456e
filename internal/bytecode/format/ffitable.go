package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"scathac/internal/ffi"
)

// encodeFFITable writes entryCount (u32) followed by each entry as
// {u16 arg count, u8 ret type, u8 arg types[], u16 name length, name
// bytes}. The leading count lets Decode read the table without
// needing to know where end-of-file is relative to it.
func encodeFFITable(sigs []ffi.Signature) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(sigs))); err != nil {
		return nil, fmt.Errorf("format: encode FFI table count: %w", err)
	}
	for _, sig := range sigs {
		if len(sig.ArgTypes) > 0xFFFF {
			return nil, fmt.Errorf("format: FFI function %q has %d arguments, more than fit in a u16", sig.Name, len(sig.ArgTypes))
		}
		if len(sig.Name) > 0xFFFF {
			return nil, fmt.Errorf("format: FFI function name %q is longer than a u16 can address", sig.Name)
		}
		binary.Write(&buf, binary.LittleEndian, uint16(len(sig.ArgTypes)))
		buf.WriteByte(byte(sig.ReturnType))
		for _, a := range sig.ArgTypes {
			buf.WriteByte(byte(a))
		}
		binary.Write(&buf, binary.LittleEndian, uint16(len(sig.Name)))
		buf.WriteString(sig.Name)
	}
	return buf.Bytes(), nil
}

func decodeFFITable(raw []byte) ([]ffi.Signature, error) {
	r := bytes.NewReader(raw)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		if len(raw) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("format: decode FFI table count: %w", err)
	}

	sigs := make([]ffi.Signature, 0, count)
	for i := uint32(0); i < count; i++ {
		var argCount uint16
		if err := binary.Read(r, binary.LittleEndian, &argCount); err != nil {
			return nil, fmt.Errorf("format: decode FFI entry %d arg count: %w", i, err)
		}
		retByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("format: decode FFI entry %d return type: %w", i, err)
		}
		argTypes := make([]ffi.Type, argCount)
		for j := range argTypes {
			b, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("format: decode FFI entry %d arg type %d: %w", i, j, err)
			}
			argTypes[j] = ffi.Type(b)
		}
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("format: decode FFI entry %d name length: %w", i, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("format: decode FFI entry %d name: %w", i, err)
		}
		sigs = append(sigs, ffi.Signature{
			Name:       string(nameBytes),
			ArgTypes:   argTypes,
			ReturnType: ffi.Type(retByte),
		})
	}
	return sigs, nil
}
