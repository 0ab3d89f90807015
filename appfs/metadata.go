package appfs

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Metadata is one full metadata copy: a Header followed by PageCount
// PageInfo entries (metadataSize bytes total).
type Metadata struct {
	index  int
	Header Header
	Pages  [PageCount]PageInfo
}

// NewMetadata returns a default, unformatted Metadata: header and every
// page filled with 0xFF (i.e. every page Free).
func NewMetadata(index int) *Metadata {
	m := &Metadata{index: index, Header: NewHeader()}
	for i := range m.Pages {
		m.Pages[i] = NewPageInfo()
	}
	return m
}

// Index reports which of the two metadata slots this copy was read from
// (or is destined for).
func (m *Metadata) Index() int { return m.index }

// ParseMetadata decodes one metadataSize-byte metadata copy. It fails
// with ErrInvalidLength unless len(data) == metadataSize.
func ParseMetadata(data []byte, index int) (*Metadata, error) {
	if len(data) != metadataSize {
		return nil, errors.Wrapf(ErrInvalidLength, "metadata: got %d bytes, want %d", len(data), metadataSize)
	}

	m := &Metadata{index: index}

	header, err := ParseHeader(data[:descriptorSize])
	if err != nil {
		return nil, errors.Wrap(err, "metadata: header")
	}
	m.Header = header

	for i := 0; i < PageCount; i++ {
		offset := descriptorSize + descriptorSize*i
		page, err := ParsePageInfo(data[offset : offset+descriptorSize])
		if err != nil {
			return nil, errors.Wrapf(err, "metadata: page %d", i)
		}
		m.Pages[i] = page
	}

	return m, nil
}

// Serialize encodes the Metadata back to its metadataSize-byte wire form.
// When zeroCRC is true, the header's crc32 field is written as zero
// bytes - the form CalcCRC32 operates over.
func (m *Metadata) Serialize(zeroCRC bool) []byte {
	out := make([]byte, 0, metadataSize)
	out = append(out, m.Header.Serialize(zeroCRC)...)
	for i := range m.Pages {
		out = append(out, m.Pages[i].Serialize()...)
	}
	return out
}

// CalcCRC32 computes the IEEE 802.3 CRC32 over the serialized metadata
// block with the header's crc32 field zeroed, per spec.md §6.2.
func (m *Metadata) CalcCRC32() uint32 {
	return crc32.ChecksumIEEE(m.Serialize(true))
}

// CheckCRC32 reports whether the header's stored CRC32 matches a freshly
// computed one.
func (m *Metadata) CheckCRC32() bool {
	return m.Header.CRC32() == m.CalcCRC32()
}

// SetSize marks every page at or beyond the partition's actual page
// capacity Illegal, leaving already-Illegal pages untouched and not
// touching pages within range (spec.md §4.4). Sector 0 holds metadata,
// so a partitionSize of n sectors yields n-1 addressable pages.
func (m *Metadata) SetSize(partitionSize int) {
	validPages := partitionSize/SectorSize - 1
	if validPages < 0 {
		validPages = 0
	}
	for i := validPages; i < PageCount; i++ {
		m.Pages[i].SetUsed(Illegal)
	}
}

// GetSize returns the usable size in bytes: pages that are Data or Free,
// times SectorSize.
func (m *Metadata) GetSize() int {
	count := 0
	for i := range m.Pages {
		switch m.Pages[i].Used() {
		case Data, Free:
			count++
		}
	}
	return count * SectorSize
}

// GetFree returns the free space in bytes: pages that are Free, times
// SectorSize.
func (m *Metadata) GetFree() int {
	count := 0
	for i := range m.Pages {
		if m.Pages[i].Used() == Free {
			count++
		}
	}
	return count * SectorSize
}

// GetNextFreePage scans pages in ascending order and returns the index
// and a mutable pointer to the first Free page. The second return value
// is false if no page is free. Mutations through the returned pointer are
// only committed once SetPage is called with the same index.
func (m *Metadata) GetNextFreePage() (int, *PageInfo, bool) {
	for i := range m.Pages {
		if m.Pages[i].Used() == Free {
			return i, &m.Pages[i], true
		}
	}
	return 0, nil, false
}

// SetPage replaces the PageInfo at index.
func (m *Metadata) SetPage(index int, info PageInfo) {
	m.Pages[index] = info
}

// PrintUsage renders a diagnostic one-character-per-page usage map: H for
// the header line marker, D/F/X for Data/Free/Illegal pages, wrapped every
// 64 glyphs - the exact grouping original_source/tools/appfs.py uses.
func (m *Metadata) PrintUsage() string {
	var b strings.Builder
	b.WriteString("H")
	for i := range m.Pages {
		switch m.Pages[i].Used() {
		case Data:
			b.WriteString("D")
		case Free:
			b.WriteString("F")
		case Illegal:
			b.WriteString("X")
		default:
			b.WriteString("?")
		}
		if (i+1)%64 == 63 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s used, %s free\n", humanize.Bytes(uint64(m.GetSize()-m.GetFree())), humanize.Bytes(uint64(m.GetFree())))
	return b.String()
}

func (m *Metadata) String() string {
	return fmt.Sprintf("metadata[%d]: serial=%d size=%d free=%d", m.index, m.Header.Serial(), m.GetSize(), m.GetFree())
}
