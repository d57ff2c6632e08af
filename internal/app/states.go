// Package app provides save state functionality for the player.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"famiplay/internal/engine"
	"famiplay/internal/version"
)

// StateManager manages save state slots for one cartridge
type StateManager struct {
	saveDirectory string
	maxSlots      int
	romPath       string
	romChecksum   uint32
}

// SaveState is the metadata written next to an engine snapshot
type SaveState struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	ROMChecksum uint32    `json:"rom_checksum"`
	SlotNumber  int       `json:"slot_number"`
	Description string    `json:"description"`
	FrameCount  uint64    `json:"frame_count"`
}

// StateSlotInfo describes one slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Exists      bool      `json:"exists"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	FrameCount  uint64    `json:"frame_count"`
}

// NewStateManager creates a state manager for the cartridge at romPath
func NewStateManager(saveDirectory string, maxSlots int, romPath string, romChecksum uint32) (*StateManager, error) {
	if maxSlots < 1 {
		return nil, fmt.Errorf("invalid slot count: %d", maxSlots)
	}
	if err := os.MkdirAll(saveDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      maxSlots,
		romPath:       romPath,
		romChecksum:   romChecksum,
	}, nil
}

func (sm *StateManager) checkSlot(slot int) error {
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	return nil
}

// SaveState snapshots the engine into slot
func (sm *StateManager) SaveState(snap engine.Snapshotter, slot int, frameCount uint64) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}

	snapshotPath, metaPath := sm.slotPaths(slot)
	if err := snap.SaveState(snapshotPath); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	state := &SaveState{
		Version:     version.GetVersion(),
		Timestamp:   time.Now(),
		ROMPath:     sm.romPath,
		ROMChecksum: sm.romChecksum,
		SlotNumber:  slot,
		Description: fmt.Sprintf("Slot %d at frame %d", slot, frameCount),
		FrameCount:  frameCount,
	}
	if err := writeMetadata(state, metaPath); err != nil {
		os.Remove(snapshotPath)
		return err
	}
	return nil
}

// LoadState restores slot into the engine and returns its metadata
func (sm *StateManager) LoadState(snap engine.Snapshotter, slot int) (*SaveState, error) {
	if err := sm.checkSlot(slot); err != nil {
		return nil, err
	}

	snapshotPath, metaPath := sm.slotPaths(slot)
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("save state not found in slot %d", slot)
	}

	state, err := readMetadata(metaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if err := sm.validate(state); err != nil {
		return nil, fmt.Errorf("invalid save state: %w", err)
	}
	if err := snap.LoadState(snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to restore state: %w", err)
	}
	return state, nil
}

func (sm *StateManager) validate(state *SaveState) error {
	if state.Version == "" {
		return fmt.Errorf("missing version information")
	}
	if state.ROMChecksum != sm.romChecksum {
		return fmt.Errorf("save state is for a different ROM (checksum %08X, want %08X)", state.ROMChecksum, sm.romChecksum)
	}
	return nil
}

func writeMetadata(state *SaveState, path string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func readMetadata(path string) (*SaveState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// slotPaths returns the snapshot and metadata paths for slot
func (sm *StateManager) slotPaths(slot int) (string, string) {
	base := filepath.Base(sm.romPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	stem := filepath.Join(sm.saveDirectory, fmt.Sprintf("%s_slot_%d", base, slot))
	return stem + ".save", stem + ".json"
}

// HasSaveState reports whether slot holds a snapshot
func (sm *StateManager) HasSaveState(slot int) bool {
	if sm.checkSlot(slot) != nil {
		return false
	}
	snapshotPath, _ := sm.slotPaths(slot)
	_, err := os.Stat(snapshotPath)
	return err == nil
}

// DeleteState removes slot
func (sm *StateManager) DeleteState(slot int) error {
	if err := sm.checkSlot(slot); err != nil {
		return err
	}
	snapshotPath, metaPath := sm.slotPaths(slot)
	if err := os.Remove(snapshotPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("save state not found in slot %d", slot)
		}
		return fmt.Errorf("failed to delete save state: %w", err)
	}
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete save state metadata: %w", err)
	}
	return nil
}

// GetSlotInfo lists every slot
func (sm *StateManager) GetSlotInfo() []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)
	for i := range slots {
		slots[i].SlotNumber = i
		if !sm.HasSaveState(i) {
			continue
		}
		slots[i].Exists = true

		_, metaPath := sm.slotPaths(i)
		if state, err := readMetadata(metaPath); err == nil {
			slots[i].Timestamp = state.Timestamp
			slots[i].Description = state.Description
			slots[i].FrameCount = state.FrameCount
		}
	}
	return slots
}

// GetMaxSlots returns the number of slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// GetSaveDirectory returns where slots are written
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}
