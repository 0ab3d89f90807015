package appfs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Diagnostic is a non-fatal observation surfaced alongside a successful
// operation: an invalid-CRC metadata slot skipped during mount, or a
// page chain that kept going past a file's declared size. Diagnostics
// never indicate a failed operation; see spec.md §7.
type Diagnostic struct {
	// Page is the page index the diagnostic concerns, or -1 if it isn't
	// page-specific.
	Page    int
	Message string
}

// FileEntry is one extracted file: its head attributes plus its full
// content.
type FileEntry struct {
	Name    string
	Title   string
	Version uint16
	Size    uint32
	Data    []byte
}

// Partition is the whole AppFS image: an owned byte buffer of length at
// least SectorSize, with sector 0 holding the dual metadata copies and
// sectors 1..PageCount holding page payloads.
type Partition struct {
	data []byte
}

// New allocates a fresh, 0xFF-filled partition of size bytes and formats
// it. size need not be a multiple of SectorSize; only whole sectors are
// addressable (spec.md §9 note 4).
func New(size int) (*Partition, []Diagnostic, error) {
	if size <= 0 {
		return nil, nil, errors.Wrap(ErrInvalidPartitionArgument, "size must be positive")
	}
	data := make([]byte, size)
	fill(data, 0xFF)
	return mount(data)
}

// Open mounts an existing partition image. If neither metadata slot is
// valid, the image is formatted in place, matching the Python reference's
// constructor (original_source/tools/appfs.py's AppFS.__init__ applies
// the same format-on-no-mount logic regardless of how it was built).
func Open(data []byte) (*Partition, []Diagnostic, error) {
	if len(data) < SectorSize {
		return nil, nil, errors.Wrap(ErrInvalidPartitionArgument, "image smaller than one sector")
	}
	return mount(data)
}

func mount(data []byte) (*Partition, []Diagnostic, error) {
	p := &Partition{data: data}

	current, diags, err := p.GetMetadata()
	if err != nil {
		return nil, diags, err
	}
	if current != nil {
		return p, diags, nil
	}

	if err := p.format(); err != nil {
		return nil, diags, errors.Wrap(err, "format")
	}

	current, moreDiags, err := p.GetMetadata()
	diags = append(diags, moreDiags...)
	if err != nil {
		return nil, diags, err
	}
	if current == nil {
		return nil, diags, ErrFormatFailed
	}
	return p, diags, nil
}

func (p *Partition) format() error {
	m := NewMetadata(0)
	m.Header.SetMagic()
	m.SetSize(len(p.data))
	return p.SetMetadata(m)
}

// Raw returns a copy of the partition's entire backing byte array.
func (p *Partition) Raw() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// GetSector returns a copy of sector i's SectorSize bytes.
func (p *Partition) GetSector(i int) ([]byte, error) {
	offset := i * SectorSize
	if i < 0 || offset+SectorSize > len(p.data) {
		return nil, errors.Wrapf(ErrPageOutOfRange, "sector %d", i)
	}
	out := make([]byte, SectorSize)
	copy(out, p.data[offset:offset+SectorSize])
	return out, nil
}

// SetSector overwrites sector i. It fails with ErrInvalidSectorSize if
// data isn't exactly SectorSize bytes.
func (p *Partition) SetSector(i int, data []byte) error {
	if len(data) != SectorSize {
		return errors.Wrapf(ErrInvalidSectorSize, "sector %d: got %d bytes", i, len(data))
	}
	offset := i * SectorSize
	if i < 0 || offset+SectorSize > len(p.data) {
		return errors.Wrapf(ErrPageOutOfRange, "sector %d", i)
	}
	copy(p.data[offset:offset+SectorSize], data)
	return nil
}

func (p *Partition) metadataAt(index int) (*Metadata, error) {
	offset := index * metadataSize
	if offset+metadataSize > len(p.data) {
		return nil, errors.Wrapf(ErrInvalidLength, "metadata slot %d out of range", index)
	}
	return ParseMetadata(p.data[offset:offset+metadataSize], index)
}

// GetMetadata selects the current metadata copy: the one with valid
// magic and valid CRC32 carrying the highest serial. It returns nil (not
// an error) if neither slot qualifies. A valid-magic, invalid-CRC slot is
// reported as a Diagnostic, not an error (spec.md §4.5, §7).
func (p *Partition) GetMetadata() (*Metadata, []Diagnostic, error) {
	var diags []Diagnostic
	var current *Metadata

	for i := 0; i < MetadataCopies; i++ {
		m, err := p.metadataAt(i)
		if err != nil {
			return nil, diags, errors.Wrapf(err, "metadata slot %d", i)
		}
		if !m.Header.CheckMagic() {
			continue
		}
		if !m.CheckCRC32() {
			diags = append(diags, Diagnostic{
				Page:    -1,
				Message: fmt.Sprintf("index %d invalid crc: %08x", i, m.Header.CRC32()),
			})
			continue
		}
		if current == nil || m.Header.Serial() > current.Header.Serial() {
			current = m
		}
	}

	return current, diags, nil
}

// SetMetadata commits a new metadata image to the alternate slot from the
// current one (or slot 0 if there is no current one), with serial bumped
// by one (mod 2^32-1, per spec.md §4.5, literal) and a freshly computed
// CRC32. The untouched slot keeps the previous valid metadata, giving
// crash safety against a torn write.
func (p *Partition) SetMetadata(newMeta *Metadata) error {
	current, _, err := p.GetMetadata()
	if err != nil {
		return errors.Wrap(err, "set metadata: read current")
	}

	index := 0
	var serial uint32
	if current != nil {
		index = (current.Index() + 1) % MetadataCopies
		serial = (current.Header.Serial() + 1) % maxSerial
	}

	newMeta.index = index
	newMeta.Header.SetSerial(serial)
	newMeta.Header.SetCRC32(newMeta.CalcCRC32())

	offset := index * metadataSize
	if offset+metadataSize > len(p.data) {
		return errors.Wrapf(ErrInvalidLength, "metadata slot %d out of range", index)
	}
	copy(p.data[offset:offset+metadataSize], newMeta.Serialize(false))
	return nil
}

// CreateFile allocates pages from the current metadata's free list,
// chaining them via next_page as it consumes payload, then commits the
// new metadata. It fails with ErrInsufficientSpace, leaving all
// previously committed state unchanged, if payload exceeds current free
// space (spec.md §4.5).
func (p *Partition) CreateFile(name, title string, version uint16, payload []byte) error {
	metadata, _, err := p.GetMetadata()
	if err != nil {
		return errors.Wrap(err, "create file: read metadata")
	}
	if metadata == nil {
		return errors.Wrap(ErrFormatFailed, "create file: no valid metadata")
	}

	fileSize := len(payload)
	if fileSize > metadata.GetFree() {
		return errors.Wrapf(ErrInsufficientSpace, "need %d bytes, have %d free", fileSize, metadata.GetFree())
	}

	position := 0
	prevIndex := -1
	var prevPage PageInfo

	for position < fileSize {
		idx, page, ok := metadata.GetNextFreePage()
		if !ok {
			return errors.Wrap(ErrInsufficientSpace, "create file: no free page available")
		}
		current := *page

		if prevIndex >= 0 {
			prevPage.SetNextPage(uint8(idx))
			metadata.SetPage(prevIndex, prevPage)
		} else {
			current.SetName(name)
			current.SetTitle(title)
			current.SetVersion(version)
			current.SetSize(uint32(fileSize))
		}
		current.SetNextPage(0)
		current.SetUsed(Data)

		end := position + SectorSize
		if end > fileSize {
			end = fileSize
		}
		chunk := make([]byte, SectorSize)
		fill(chunk, 0xFF)
		copy(chunk, payload[position:end])
		if err := p.SetSector(idx+1, chunk); err != nil {
			return errors.Wrapf(err, "create file: writing page %d", idx)
		}

		metadata.SetPage(idx, current)
		prevIndex = idx
		prevPage = current
		position += SectorSize
	}

	return p.SetMetadata(metadata)
}

// extractFile walks the chain beginning at headIndex, returning its full
// content. A chain that runs past the head's declared size yields a
// Diagnostic rather than an error; a chain that ends early yields a
// silently short result, matching original_source/tools/appfs.py (spec.md
// §9 ambiguities 1-2 - preserved, not "fixed").
func (p *Partition) extractFile(metadata *Metadata, headIndex int) ([]byte, []Diagnostic, error) {
	if headIndex < 0 || headIndex >= PageCount {
		return nil, nil, errors.Wrapf(ErrPageOutOfRange, "head page %d", headIndex)
	}

	pageIndex := headIndex
	page := metadata.Pages[pageIndex]
	remaining := int(page.Size())

	var out []byte
	var diags []Diagnostic
	firstPage := true
	havePage := true

	for (firstPage || pageIndex != 0) && remaining > 0 {
		firstPage = false

		take := remaining
		if take > SectorSize {
			take = SectorSize
		}
		remaining -= take

		sector, err := p.GetSector(pageIndex + 1)
		if err != nil {
			return out, diags, errors.Wrapf(err, "extract: sector for page %d", pageIndex)
		}
		out = append(out, sector[:take]...)

		next := int(page.NextPage())
		if next > 0 {
			if next >= PageCount {
				return out, diags, errors.Wrapf(ErrPageOutOfRange, "page %d", next)
			}
			page = metadata.Pages[next]
			pageIndex = next
			havePage = true
		} else {
			pageIndex = 0
			havePage = false
		}
	}

	if havePage {
		diags = append(diags, Diagnostic{
			Page:    pageIndex,
			Message: fmt.Sprintf("more data after end of file? page %d", pageIndex),
		})
	}

	return out, diags, nil
}

// ExtractAll walks every head page - a Data page with a non-empty name -
// and returns its full content alongside its head attributes.
// Continuation pages carry no name by construction and are skipped
// (spec.md §4.5, §9 ambiguity 1).
func (p *Partition) ExtractAll() ([]FileEntry, []Diagnostic, error) {
	metadata, _, err := p.GetMetadata()
	if err != nil {
		return nil, nil, errors.Wrap(err, "extract all: read metadata")
	}
	if metadata == nil {
		return nil, nil, errors.Wrap(ErrFormatFailed, "extract all: no valid metadata")
	}

	var entries []FileEntry
	var diags []Diagnostic

	for i := 0; i < PageCount; i++ {
		page := metadata.Pages[i]
		if page.Used() != Data || page.Name() == "" {
			continue
		}

		data, fileDiags, err := p.extractFile(metadata, i)
		if err != nil {
			return entries, diags, errors.Wrapf(err, "extract file at head page %d", i)
		}
		diags = append(diags, fileDiags...)

		entries = append(entries, FileEntry{
			Name:    page.Name(),
			Title:   page.Title(),
			Version: page.Version(),
			Size:    page.Size(),
			Data:    data,
		})
	}

	return entries, diags, nil
}
