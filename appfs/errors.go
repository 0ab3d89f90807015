package appfs

import "github.com/pkg/errors"

// Sentinel error kinds surfaced by the core, per spec.md §7. Callers
// discriminate with errors.Is / errors.Cause against these values; call
// sites add context with errors.Wrap / errors.Wrapf without discarding the
// sentinel, the same pattern the teacher package uses throughout.
var (
	// ErrInvalidLength is returned when a byte slice passed to a record
	// parser is not exactly the required width.
	ErrInvalidLength = errors.New("appfs: invalid length")

	// ErrInvalidSerial reports a serial field of the wrong width.
	// Header.SetSerial takes a uint32 and cannot fail, so no function in
	// this package returns it.
	ErrInvalidSerial = errors.New("appfs: invalid serial")

	// ErrInvalidCRC32 reports a crc32 field of the wrong width.
	// Header.SetCRC32 takes a uint32 and cannot fail, so no function in
	// this package returns it.
	ErrInvalidCRC32 = errors.New("appfs: invalid crc32")

	// ErrInvalidSectorSize is returned by Partition.SetSector when the
	// payload isn't exactly SectorSize bytes.
	ErrInvalidSectorSize = errors.New("appfs: invalid sector size")

	// ErrInvalidPartitionArgument is returned by New/Open-equivalents
	// given neither a usable size nor a byte image.
	ErrInvalidPartitionArgument = errors.New("appfs: invalid partition argument")

	// ErrFormatFailed indicates formatting a fresh partition still left
	// it unmountable; this is a bug in the implementation or the
	// backing buffer, not a recoverable user error.
	ErrFormatFailed = errors.New("appfs: format failed")

	// ErrInsufficientSpace is returned by CreateFile when the payload
	// exceeds the partition's current free space. State is unchanged.
	ErrInsufficientSpace = errors.New("appfs: insufficient space")

	// ErrPageOutOfRange is returned when a page chain walk lands on an
	// index outside [0, PageCount).
	ErrPageOutOfRange = errors.New("appfs: page out of range")
)

// IsInsufficientSpace reports whether err is or wraps ErrInsufficientSpace.
func IsInsufficientSpace(err error) bool { return errors.Is(err, ErrInsufficientSpace) }

// IsPageOutOfRange reports whether err is or wraps ErrPageOutOfRange.
func IsPageOutOfRange(err error) bool { return errors.Is(err, ErrPageOutOfRange) }

// IsInvalidSectorSize reports whether err is or wraps ErrInvalidSectorSize.
func IsInvalidSectorSize(err error) bool { return errors.Is(err, ErrInvalidSectorSize) }

// IsFormatFailed reports whether err is or wraps ErrFormatFailed.
func IsFormatFailed(err error) bool { return errors.Is(err, ErrFormatFailed) }
