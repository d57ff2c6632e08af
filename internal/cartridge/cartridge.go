// Package cartridge implements ROM loading and parsing for NES cartridges.
package cartridge

import (
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"os"
)

const (
	// ProgramBankSize is the size of one program ROM bank in the container.
	ProgramBankSize = 0x4000
	// PatternBankSize is the size of one pattern (CHR) bank in the container.
	PatternBankSize = 0x2000

	// ProgramSize is the size of the normalized program image.
	ProgramSize = 2 * ProgramBankSize
	// PatternSize is the size of the normalized pattern image.
	PatternSize = PatternBankSize

	headerSize = 16
	magic      = "NES\x1A"
)

// Header flag bits (byte 6)
const (
	flagVertical   = 1 << 0
	flagSaveRAM    = 1 << 1
	flagTrainer    = 1 << 2
	flagFourScreen = 1 << 3
)

// Mirroring represents nametable mirroring mode
type Mirroring uint8

const (
	MirrorHorizontal Mirroring = iota
	MirrorVertical
)

func (m Mirroring) String() string {
	if m == MirrorVertical {
		return "vertical"
	}
	return "horizontal"
}

// Image is a normalized cartridge: 32 KiB of program data, 8 KiB of pattern
// data and the mirroring mode. Single-bank programs are already mirrored
// into the upper half.
type Image struct {
	Program   [ProgramSize]byte
	Pattern   [PatternSize]byte
	Mirroring Mirroring
}

// header holds the fields of the 16-byte container header that are inspected.
type header struct {
	programBanks int
	patternBanks int
	flags        uint8
}

// LoadFromFile loads a cartridge image from an iNES file
func LoadFromFile(filename string) (*Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// LoadFromBytes loads a cartridge image from an in-memory container.
func LoadFromBytes(data []byte) (*Image, error) {
	return Load(bytes.NewReader(data))
}

// Load reads an iNES container from r. Either a complete image is returned
// or an error; nothing is recovered from a malformed header.
func Load(r io.Reader) (*Image, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	img := &Image{Mirroring: MirrorHorizontal}
	if hdr.flags&flagVertical != 0 {
		img.Mirroring = MirrorVertical
	}

	program := img.Program[:hdr.programBanks*ProgramBankSize]
	if err := readFull(r, program); err != nil {
		return nil, err
	}
	if hdr.programBanks == 1 {
		copy(img.Program[ProgramBankSize:], img.Program[:ProgramBankSize])
	}

	// Zero pattern banks leaves the pattern image zero-filled.
	if hdr.patternBanks == 1 {
		if err := readFull(r, img.Pattern[:]); err != nil {
			return nil, err
		}
	}

	return img, nil
}

func readHeader(r io.Reader) (header, error) {
	var raw [headerSize]byte
	if err := readFull(r, raw[:]); err != nil {
		return header{}, err
	}

	if string(raw[0:4]) != magic {
		return header{}, &FormatError{Reason: "magic not found"}
	}

	hdr := header{
		programBanks: int(raw[4]),
		patternBanks: int(raw[5]),
		flags:        raw[6],
	}

	if hdr.programBanks != 1 && hdr.programBanks != 2 {
		return header{}, formatErrorf("invalid program bank count: %d", hdr.programBanks)
	}
	if hdr.patternBanks != 0 && hdr.patternBanks != 1 {
		return header{}, formatErrorf("invalid pattern bank count: %d", hdr.patternBanks)
	}

	switch {
	case hdr.flags&flagSaveRAM != 0:
		return header{}, &UnsupportedFeatureError{Feature: FeatureSaveRAM}
	case hdr.flags&flagTrainer != 0:
		return header{}, &UnsupportedFeatureError{Feature: FeatureTrainer}
	case hdr.flags&flagFourScreen != 0:
		return header{}, &UnsupportedFeatureError{Feature: FeatureFourScreen}
	}

	if mapper := hdr.flags >> 4; mapper != 0 {
		return header{}, &UnsupportedFeatureError{Feature: FeatureMapper, Mapper: int(mapper)}
	}

	// Byte 7 and the padding are ignored; some dumpers write garbage there.
	return hdr, nil
}

// readFull fills buf completely or reports an incomplete file.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &FormatError{Reason: "incomplete file"}
		}
		return &FormatError{Reason: "read failed", Err: err}
	}
	return nil
}

// Checksum returns the CRC32 of the program and pattern images.
func (img *Image) Checksum() uint32 {
	sum := crc32.NewIEEE()
	sum.Write(img.Program[:])
	sum.Write(img.Pattern[:])
	return sum.Sum32()
}

// WriteTo encodes the image as a two-bank iNES container.
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	var hdr [headerSize]byte
	copy(hdr[:], magic)
	hdr[4] = ProgramSize / ProgramBankSize
	hdr[5] = 1
	if img.Mirroring == MirrorVertical {
		hdr[6] |= flagVertical
	}

	var written int64
	for _, chunk := range [][]byte{hdr[:], img.Program[:], img.Pattern[:]} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
