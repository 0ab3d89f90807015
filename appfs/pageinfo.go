package appfs

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Used is the tri-state a page descriptor's `used` byte can hold.
type Used uint8

const (
	// Data marks a page as holding live file content.
	Data Used = 0x00
	// Free marks a page as available for allocation.
	Free Used = 0xFF
	// Illegal marks a page whose backing sector lies beyond the
	// partition's actual size; permanently unusable.
	Illegal Used = 0x55
)

func (u Used) String() string {
	switch u {
	case Data:
		return "DATA"
	case Free:
		return "FREE"
	case Illegal:
		return "ILLEGAL"
	default:
		return "UNKNOWN"
	}
}

// pageInfoRaw is the byte-exact 128-byte layout of PageInfo, per spec.md
// §6.1: name(48) + title(64) + size(4) + next_page(1) + used(1) +
// version(2) + reserved(8).
type pageInfoRaw struct {
	Name     [nameFieldSize]byte
	Title    [titleFieldSize]byte
	Size     uint32
	NextPage uint8
	UsedByte uint8
	Version  uint16
	Reserved [8]byte
}

// PageInfo is the per-page descriptor: name, title, size, next_page, used,
// version, reserved. name/title/version/size are authoritative only on a
// file's head page (spec.md §3).
type PageInfo struct {
	raw pageInfoRaw
}

// NewPageInfo returns a default, unallocated PageInfo: all bytes 0xFF,
// i.e. Used() == Free.
func NewPageInfo() PageInfo {
	var p PageInfo
	fill(p.raw.Name[:], 0xFF)
	fill(p.raw.Title[:], 0xFF)
	p.raw.Size = 0xFFFFFFFF
	p.raw.NextPage = 0xFF
	p.raw.UsedByte = byte(Free)
	p.raw.Version = 0xFFFF
	fill(p.raw.Reserved[:], 0xFF)
	return p
}

// ParsePageInfo decodes a 128-byte slice into a PageInfo. It fails with
// ErrInvalidLength if data is not exactly descriptorSize bytes.
func ParsePageInfo(data []byte) (PageInfo, error) {
	var p PageInfo
	if len(data) != descriptorSize {
		return p, errors.Wrapf(ErrInvalidLength, "pageinfo: got %d bytes, want %d", len(data), descriptorSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &p.raw); err != nil {
		return p, errors.Wrap(err, "pageinfo: decode")
	}
	return p, nil
}

// Serialize encodes the PageInfo back to its 128-byte wire form.
func (p PageInfo) Serialize() []byte {
	out := make([]byte, 0, descriptorSize)
	out = append(out, p.raw.Name[:]...)
	out = append(out, p.raw.Title[:]...)

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], p.raw.Size)
	out = append(out, size[:]...)

	out = append(out, p.raw.NextPage, p.raw.UsedByte)

	var version [2]byte
	binary.LittleEndian.PutUint16(version[:], p.raw.Version)
	out = append(out, version[:]...)

	out = append(out, p.raw.Reserved[:]...)
	return out
}

// Name returns the decoded, NUL-truncated file name. Meaningful only on
// head pages; left blank on continuation pages.
func (p PageInfo) Name() string { return unpackASCII(p.raw.Name[:]) }

// SetName sets the file name field, silently truncating to 47 bytes plus
// terminator if longer.
func (p *PageInfo) SetName(name string) {
	copy(p.raw.Name[:], packASCII(name, nameFieldSize))
}

// Title returns the decoded, NUL-truncated file title.
func (p PageInfo) Title() string { return unpackASCII(p.raw.Title[:]) }

// SetTitle sets the file title field, silently truncating to 63 bytes plus
// terminator if longer.
func (p *PageInfo) SetTitle(title string) {
	copy(p.raw.Title[:], packASCII(title, titleFieldSize))
}

// Size returns the total file size in bytes. Meaningful only on the head
// page of a chain.
func (p PageInfo) Size() uint32 { return p.raw.Size }

// SetSize sets the total file size field.
func (p *PageInfo) SetSize(size uint32) { p.raw.Size = size }

// NextPage returns the index of the next page in this file's chain, or 0
// if this page ends the chain.
func (p PageInfo) NextPage() uint8 { return p.raw.NextPage }

// SetNextPage sets the next-page chain pointer.
func (p *PageInfo) SetNextPage(page uint8) { p.raw.NextPage = page }

// Used returns the page's allocation state.
func (p PageInfo) Used() Used { return Used(p.raw.UsedByte) }

// SetUsed sets the page's allocation state.
func (p *PageInfo) SetUsed(u Used) { p.raw.UsedByte = byte(u) }

// Version returns the file format/version tag. Meaningful only on the
// head page.
func (p PageInfo) Version() uint16 { return p.raw.Version }

// SetVersion sets the file version field.
func (p *PageInfo) SetVersion(version uint16) { p.raw.Version = version }
