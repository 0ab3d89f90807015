// Package appfs implements the on-disk format and durability protocol for
// an AppFS partition: a 64 KiB-sectored flash image carrying up to 255
// self-contained "app" payloads addressed through a dual-copy, CRC32-backed
// metadata table.
package appfs

const (
	// SectorSize is the fixed size of every sector in the partition, S.
	SectorSize = 64 * 1024

	// PageCount is the maximum number of data pages a partition can
	// describe, P.
	PageCount = 255

	// MetadataCopies is the number of interchangeable metadata copies
	// held in sector 0, C.
	MetadataCopies = 2

	// descriptorSize is the fixed width of a Header or PageInfo record, D.
	descriptorSize = 128

	// metadataSize is the size of one full metadata copy: the header
	// plus PageCount page descriptors, M.
	metadataSize = descriptorSize * (PageCount + 1)

	// magic is the eight ASCII bytes every formatted Header must carry.
	magic = "AppFsDsc"

	nameFieldSize  = 48
	titleFieldSize = 64

	// maxSerial is the modulus used for serial wraparound: spec.md §4.5
	// states the new serial is `(current + 1) mod (2^32 - 1)`, not
	// `mod 2^32`. Kept literal, not "fixed".
	maxSerial = 0xFFFFFFFF
)

// packASCII right-pads s with NUL bytes to width, truncating without error
// if s is longer than width allows for the payload plus terminator.
func packASCII(s string, width int) []byte {
	out := make([]byte, width)
	b := []byte(s)
	if len(b) > width-1 {
		b = b[:width-1]
	}
	copy(out, b)
	return out
}

// unpackASCII decodes a NUL-padded ASCII field, truncating at the first NUL.
// A field with no NUL at all (an unstamped, still-0xFF field on a free or
// continuation page) decodes to the empty string, not the raw bytes.
func unpackASCII(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return ""
}
