package appfs

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// headerRaw is the byte-exact 128-byte layout of Header, per spec.md §6.1:
// magic(8) + serial(4) + crc32(4) + reserved(112).
type headerRaw struct {
	Magic    [8]byte
	Serial   uint32
	CRC32    uint32
	Reserved [112]byte
}

// Header is the 128-byte metadata header: magic, serial, CRC32, reserved.
type Header struct {
	raw headerRaw
}

// NewHeader returns a default, unformatted Header: all bytes 0xFF.
func NewHeader() Header {
	var h Header
	fill(h.raw.Magic[:], 0xFF)
	h.raw.Serial = 0xFFFFFFFF
	h.raw.CRC32 = 0xFFFFFFFF
	fill(h.raw.Reserved[:], 0xFF)
	return h
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// ParseHeader decodes a 128-byte slice into a Header. It fails with
// ErrInvalidLength if data is not exactly descriptorSize bytes.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) != descriptorSize {
		return h, errors.Wrapf(ErrInvalidLength, "header: got %d bytes, want %d", len(data), descriptorSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h.raw); err != nil {
		return h, errors.Wrap(err, "header: decode")
	}
	return h, nil
}

// Serialize encodes the Header back to its 128-byte wire form. When
// zeroCRC is true the crc32 field is written as four zero bytes, the form
// CRC32 is computed over (spec.md §6.2).
func (h Header) Serialize(zeroCRC bool) []byte {
	out := make([]byte, 0, descriptorSize)
	out = append(out, h.raw.Magic[:]...)

	var serial [4]byte
	binary.LittleEndian.PutUint32(serial[:], h.raw.Serial)
	out = append(out, serial[:]...)

	var crc [4]byte
	if !zeroCRC {
		binary.LittleEndian.PutUint32(crc[:], h.raw.CRC32)
	}
	out = append(out, crc[:]...)

	out = append(out, h.raw.Reserved[:]...)
	return out
}

// Magic returns the raw 8-byte magic field.
func (h Header) Magic() [8]byte { return h.raw.Magic }

// SetMagic sets the magic field to the standard AppFS magic value.
func (h *Header) SetMagic() {
	copy(h.raw.Magic[:], []byte(magic))
}

// CheckMagic reports whether the magic field matches the AppFS magic.
func (h Header) CheckMagic() bool {
	return string(h.raw.Magic[:]) == magic
}

// Serial returns the header's monotonic serial number.
func (h Header) Serial() uint32 { return h.raw.Serial }

// SetSerial sets the header's serial number.
func (h *Header) SetSerial(v uint32) { h.raw.Serial = v }

// CRC32 returns the stored CRC32 value.
func (h Header) CRC32() uint32 { return h.raw.CRC32 }

// SetCRC32 sets the stored CRC32 value.
func (h *Header) SetCRC32(v uint32) { h.raw.CRC32 = v }
