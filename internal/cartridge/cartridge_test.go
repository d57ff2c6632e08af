package cartridge

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Test data constants for iNES header construction
const (
	validINESMagic = "NES\x1A"
	invalidMagic   = "ROM\x1A"
)

// createINESHeader creates a 16-byte iNES header for testing
func createINESHeader(prgBanks, chrBanks, flags6, flags7 uint8) []byte {
	header := make([]byte, 16)
	copy(header[0:4], validINESMagic)
	header[4] = prgBanks
	header[5] = chrBanks
	header[6] = flags6
	header[7] = flags7
	return header
}

// createROM creates an iNES ROM with recognizable program and pattern bytes
func createROM(prgBanks, chrBanks, flags6 uint8) []byte {
	rom := createINESHeader(prgBanks, chrBanks, flags6, 0)

	prgData := make([]byte, int(prgBanks)*ProgramBankSize)
	for i := range prgData {
		prgData[i] = uint8(i % 251)
	}
	chrData := make([]byte, int(chrBanks)*PatternBankSize)
	for i := range chrData {
		chrData[i] = uint8((i + 128) % 256)
	}

	rom = append(rom, prgData...)
	return append(rom, chrData...)
}

func TestLoad_SingleProgramBank_ShouldMirrorUpperHalf(t *testing.T) {
	img, err := Load(bytes.NewReader(createROM(1, 1, 0)))
	if err != nil {
		t.Fatalf("Expected successful load, got error: %v", err)
	}

	if len(img.Program) != ProgramSize {
		t.Fatalf("Expected program size %d, got %d", ProgramSize, len(img.Program))
	}
	if !bytes.Equal(img.Program[:ProgramBankSize], img.Program[ProgramBankSize:]) {
		t.Error("Expected second program half to equal the first")
	}
	if img.Program[1] != 1 || img.Program[ProgramBankSize+250] != 250 {
		t.Error("Program data does not match source bank")
	}
}

func TestLoad_TwoProgramBanks_ShouldConcatenate(t *testing.T) {
	rom := createROM(2, 1, 0)
	img, err := Load(bytes.NewReader(rom))
	if err != nil {
		t.Fatalf("Expected successful load, got error: %v", err)
	}

	source := rom[16 : 16+ProgramSize]
	if !bytes.Equal(img.Program[:], source) {
		t.Error("Expected program image to be the two source banks unmodified")
	}
	pattern := rom[16+ProgramSize:]
	if !bytes.Equal(img.Pattern[:], pattern) {
		t.Error("Expected pattern image to match source bank")
	}
}

func TestLoad_NoPatternBanks_ShouldZeroFill(t *testing.T) {
	img, err := Load(bytes.NewReader(createROM(2, 0, 0)))
	if err != nil {
		t.Fatalf("Expected successful load, got error: %v", err)
	}

	if !bytes.Equal(img.Pattern[:], make([]byte, PatternSize)) {
		t.Error("Expected 8192 zero bytes of pattern data")
	}
}

func TestLoad_Mirroring(t *testing.T) {
	tests := []struct {
		name     string
		flags6   uint8
		flags7   uint8
		expected Mirroring
	}{
		{"bit0 clear", 0x00, 0x00, MirrorHorizontal},
		{"bit0 set", 0x01, 0x00, MirrorVertical},
		{"bit0 clear with byte 7 garbage", 0x00, 0xFF, MirrorHorizontal},
		{"bit0 set with byte 7 garbage", 0x01, 0xA5, MirrorVertical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rom := createROM(1, 1, tt.flags6)
			rom[7] = tt.flags7

			img, err := Load(bytes.NewReader(rom))
			if err != nil {
				t.Fatalf("Expected successful load, got error: %v", err)
			}
			if img.Mirroring != tt.expected {
				t.Errorf("Expected mirroring %v, got %v", tt.expected, img.Mirroring)
			}
		})
	}
}

func TestLoad_InvalidMagicNumber_ShouldFail(t *testing.T) {
	rom := createROM(1, 1, 0)
	copy(rom[0:4], invalidMagic)

	_, err := Load(bytes.NewReader(rom))

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError, got %v", err)
	}
	if !strings.Contains(err.Error(), "magic not found") {
		t.Errorf("Expected magic error, got %q", err.Error())
	}
}

func TestLoad_InvalidBankCounts_ShouldFail(t *testing.T) {
	tests := []struct {
		name     string
		prgBanks uint8
		chrBanks uint8
		message  string
	}{
		{"zero program banks", 0, 1, "invalid program bank count: 0"},
		{"three program banks", 3, 1, "invalid program bank count: 3"},
		{"two pattern banks", 1, 2, "invalid pattern bank count: 2"},
		{"many pattern banks", 2, 16, "invalid pattern bank count: 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(createROM(tt.prgBanks, tt.chrBanks, 0)))

			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Expected FormatError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected %q in error, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestLoad_UnsupportedFeatures_ShouldFailDistinctly(t *testing.T) {
	tests := []struct {
		name    string
		flags6  uint8
		feature Feature
		message string
	}{
		{"save RAM", 0x02, FeatureSaveRAM, "save RAM is not supported"},
		{"save RAM with vertical mirroring", 0x03, FeatureSaveRAM, "save RAM is not supported"},
		{"trainer", 0x04, FeatureTrainer, "trainer is not supported"},
		{"four-screen", 0x08, FeatureFourScreen, "four-screen mirroring is not supported"},
		{"four-screen with vertical mirroring", 0x09, FeatureFourScreen, "four-screen mirroring is not supported"},
		{"mapper 1", 0x10, FeatureMapper, "unsupported mapper: 1"},
		{"mapper 4 vertical", 0x41, FeatureMapper, "unsupported mapper: 4"},
		{"mapper 15", 0xF0, FeatureMapper, "unsupported mapper: 15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(createROM(1, 1, tt.flags6)))

			var featureErr *UnsupportedFeatureError
			if !errors.As(err, &featureErr) {
				t.Fatalf("Expected UnsupportedFeatureError, got %v", err)
			}
			if featureErr.Feature != tt.feature {
				t.Errorf("Expected feature %d, got %d", tt.feature, featureErr.Feature)
			}
			if err.Error() != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestLoad_TruncatedStream_ShouldReportIncompleteFile(t *testing.T) {
	full := createROM(2, 1, 0)
	cuts := []struct {
		name   string
		length int
	}{
		{"empty", 0},
		{"partial header", 10},
		{"header only", 16},
		{"half program", 16 + ProgramBankSize},
		{"missing last program byte", 16 + ProgramSize - 1},
		{"missing pattern", 16 + ProgramSize},
		{"missing last pattern byte", len(full) - 1},
	}

	for _, tt := range cuts {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Load(bytes.NewReader(full[:tt.length]))
			if img != nil {
				t.Error("Expected no image for a truncated stream")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Expected FormatError, got %v", err)
			}
			if formatErr.Reason != "incomplete file" {
				t.Errorf("Expected incomplete file, got %q", formatErr.Reason)
			}
		})
	}
}

func TestLoad_TrailingDataIgnored(t *testing.T) {
	rom := append(createROM(1, 0, 0), 0xDE, 0xAD)
	if _, err := Load(bytes.NewReader(rom)); err != nil {
		t.Fatalf("Expected trailing bytes to be ignored, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.nes")
	if err := os.WriteFile(path, createROM(1, 1, 1), 0644); err != nil {
		t.Fatalf("Failed to write ROM: %v", err)
	}

	img, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Expected successful load, got error: %v", err)
	}
	if img.Mirroring != MirrorVertical {
		t.Errorf("Expected vertical mirroring, got %v", img.Mirroring)
	}

	if _, err := LoadFromFile(filepath.Join(dir, "missing.nes")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestImage_WriteTo_RoundTrip(t *testing.T) {
	original, err := LoadFromBytes(createROM(1, 1, 1))
	if err != nil {
		t.Fatalf("Expected successful load, got error: %v", err)
	}

	var buf bytes.Buffer
	n, err := original.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(16+ProgramSize+PatternSize) {
		t.Errorf("Expected %d bytes written, got %d", 16+ProgramSize+PatternSize, n)
	}

	decoded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Expected encoded image to load, got %v", err)
	}
	if *decoded != *original {
		t.Error("Expected decoded image to equal the original")
	}
	if decoded.Checksum() != original.Checksum() {
		t.Error("Expected equal checksums")
	}
}
