package engine

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/fogleman/nes/nes"

	"famiplay/internal/cartridge"
	"famiplay/internal/input"
)

// audioBacklog is larger than the CPU cycles of one frame (29781) so the core
// never drops a sample between two drains.
const audioBacklog = 1 << 16

// paletteIndex maps the core's RGBA output back to 2C02 palette indices.
// Colors that appear twice in the palette resolve to the lower index.
var paletteIndex = func() map[color.RGBA]uint8 {
	index := make(map[color.RGBA]uint8, len(nes.Palette))
	for i := len(nes.Palette) - 1; i >= 0; i-- {
		index[nes.Palette[i]] = uint8(i)
	}
	return index
}()

// Console runs a cartridge on the github.com/fogleman/nes core.
type Console struct {
	img     *cartridge.Image
	console *nes.Console
	samples chan float32

	screen FrameBuffer
	sound  []float32
	ports  [input.Ports]input.Mask
	trace  bool
}

// NewConsole powers up a console with img inserted.
func NewConsole(img *cartridge.Image) (*Console, error) {
	c := &Console{img: img}
	if err := c.powerOn(); err != nil {
		return nil, err
	}
	return c, nil
}

// ConsoleFactory is a Factory building Console engines.
func ConsoleFactory(img *cartridge.Image) (Engine, error) {
	c, err := NewConsole(img)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TracingConsoleFactory builds Console engines that print every CPU
// instruction; see SetTrace.
func TracingConsoleFactory(img *cartridge.Image) (Engine, error) {
	c, err := NewConsole(img)
	if err != nil {
		return nil, err
	}
	c.SetTrace(true)
	return c, nil
}

// SetTrace makes StepFrame print each instruction to standard output before
// it executes: address, opcode bytes, mnemonic, registers and PPU dot.
func (c *Console) SetTrace(on bool) {
	c.trace = on
}

// powerOn builds a fresh core. The core only loads cartridges from a path,
// so the image goes through a temporary file.
func (c *Console) powerOn() error {
	f, err := os.CreateTemp("", "famiplay-*.nes")
	if err != nil {
		return fmt.Errorf("failed to stage cartridge: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := c.img.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to stage cartridge: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to stage cartridge: %w", err)
	}

	console, err := nes.NewConsole(f.Name())
	if err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}

	// One sample per CPU cycle; resampling happens in the mixer.
	c.samples = make(chan float32, audioBacklog)
	console.SetAudioChannel(c.samples)
	console.SetAudioSampleRate(nes.CPUFrequency)

	c.console = console
	c.applyInput()
	return nil
}

// SetInput sets the buttons held on a controller port.
func (c *Console) SetInput(port int, mask input.Mask) {
	if port < 0 || port >= input.Ports {
		return
	}
	c.ports[port] = mask
	c.applyInput()
}

func (c *Console) applyInput() {
	c.console.SetButtons1(c.ports[0].Array())
	c.console.SetButtons2(c.ports[1].Array())
}

// StepFrame runs the core until the PPU completes a frame, then collects
// the picture and the audio produced on the way.
func (c *Console) StepFrame() {
	if c.trace {
		c.stepFrameTraced()
	} else {
		c.console.StepFrame()
	}

	c.sound = c.sound[:0]
	for drained := false; !drained; {
		select {
		case s := <-c.samples:
			c.sound = append(c.sound, s)
		default:
			drained = true
		}
	}

	c.convertScreen(c.console.Buffer())
}

// stepFrameTraced is the core's StepFrame one instruction at a time
func (c *Console) stepFrameTraced() {
	frame := c.console.PPU.Frame
	for frame == c.console.PPU.Frame {
		c.console.CPU.PrintInstruction()
		c.console.Step()
	}
}

func (c *Console) convertScreen(buf *image.RGBA) {
	var last color.RGBA
	var lastIndex uint8
	for y := 0; y < Height; y++ {
		row := buf.Pix[y*buf.Stride : y*buf.Stride+Width*4]
		for x := 0; x < Width; x++ {
			px := color.RGBA{R: row[x*4], G: row[x*4+1], B: row[x*4+2], A: row[x*4+3]}
			if px != last || (x == 0 && y == 0) {
				last = px
				lastIndex = paletteIndex[px]
			}
			c.screen[y*Width+x] = lastIndex
		}
	}
}

// Screen returns the palette indices of the last frame.
func (c *Console) Screen() *FrameBuffer {
	return &c.screen
}

// Sound returns the mixed core output of the last frame.
func (c *Console) Sound() Sound {
	return Sound{Mixed: c.sound}
}

// Reset presses reset, or rebuilds the core for a hard reset. Held buttons
// survive both.
func (c *Console) Reset(kind ResetKind) {
	if kind == HardReset {
		err := c.powerOn()
		if err == nil {
			return
		}
		log.Printf("[ENGINE] Power cycle failed, pressing reset instead: %v", err)
	}
	c.console.Reset()
}

// SaveState writes the core state to path.
func (c *Console) SaveState(path string) error {
	return c.console.SaveState(path)
}

// LoadState restores the core state from path.
func (c *Console) LoadState(path string) error {
	return c.console.LoadState(path)
}

// Close releases the core.
func (c *Console) Close() error {
	c.console = nil
	c.sound = nil
	return nil
}
