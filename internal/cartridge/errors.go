package cartridge

import "fmt"

// FormatError reports a container that does not follow the iNES layout.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid cartridge: %s: %v", e.Reason, e.Err)
	}
	return "invalid cartridge: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Feature names a cartridge capability outside the supported NROM subset.
type Feature int

const (
	FeatureSaveRAM Feature = iota + 1
	FeatureTrainer
	FeatureFourScreen
	FeatureMapper
)

// UnsupportedFeatureError reports a structurally valid cartridge that needs
// save RAM, a trainer, four-screen mirroring or a mapper other than 0.
type UnsupportedFeatureError struct {
	Feature Feature
	Mapper  int
}

func (e *UnsupportedFeatureError) Error() string {
	switch e.Feature {
	case FeatureSaveRAM:
		return "save RAM is not supported"
	case FeatureTrainer:
		return "trainer is not supported"
	case FeatureFourScreen:
		return "four-screen mirroring is not supported"
	case FeatureMapper:
		return fmt.Sprintf("unsupported mapper: %d", e.Mapper)
	}
	return "unsupported cartridge feature"
}
