package graphics

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/term"

	"famiplay/internal/audio"
	"famiplay/internal/input"
)

const (
	// Terminals report key presses only; a key counts as held this long
	// after its last byte arrived.
	terminalKeyHold = 250 * time.Millisecond

	// Minimum time between two terminal redraws
	terminalFrameInterval = time.Second / 30
)

// TerminalBackend implements the Backend interface for terminal rendering.
// Frames are drawn with 24-bit colour half blocks, keys come from stdin in
// raw mode and audio goes through oto.
type TerminalBackend struct {
	initialized bool
	config      Config
	start       time.Time

	in       io.Reader
	out      io.Writer
	fd       int
	oldState *term.State
	size     func() (cols, rows int, err error)

	mu     sync.Mutex
	closed bool
	held   map[input.Key]time.Time
	events []InputEvent
}

// TerminalSurface keeps the emulator frame in memory and draws a downscaled
// copy on Present
type TerminalSurface struct {
	backend  *TerminalBackend
	frame    *image.RGBA
	scaled   *image.RGBA
	w        *bufio.Writer
	lastDraw time.Time
}

// NewTerminalBackend creates a new terminal backend on stdin and stdout
func NewTerminalBackend() Backend {
	fd := int(os.Stdout.Fd())
	return newTerminalBackend(os.Stdin, os.Stdout, func() (int, int, error) {
		return term.GetSize(fd)
	})
}

func newTerminalBackend(in io.Reader, out io.Writer, size func() (int, int, error)) *TerminalBackend {
	return &TerminalBackend{
		in:   in,
		out:  out,
		fd:   -1,
		size: size,
		held: make(map[input.Key]time.Time),
	}
}

// Initialize switches stdin to raw mode when it is a terminal and starts
// reading keys
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	if f, ok := b.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b.fd = int(f.Fd())
		oldState, err := term.MakeRaw(b.fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		b.oldState = oldState
	}

	b.config = config
	b.start = time.Now()
	b.initialized = true

	go b.readKeys()
	return nil
}

// readKeys decodes stdin until it fails or the backend is cleaned up. A
// Read blocked at Cleanup returns on the next byte and exits.
func (b *TerminalBackend) readKeys() {
	buf := make([]byte, 64)
	for {
		n, err := b.in.Read(buf)
		if n > 0 {
			keys, quit := decodeTerminalKeys(buf[:n])
			if !b.press(keys, quit) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// press records keys and reports whether the backend is still open
func (b *TerminalBackend) press(keys []input.Key, quit bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	now := time.Now()
	for _, k := range keys {
		if _, held := b.held[k]; !held {
			b.events = append(b.events, InputEvent{Type: InputEventTypeKey, Key: k, Pressed: true})
		}
		b.held[k] = now
	}
	if quit {
		b.events = append(b.events, InputEvent{Type: InputEventTypeQuit})
	}
	return true
}

// expire releases keys whose hold ran out. Caller holds b.mu.
func (b *TerminalBackend) expire(now time.Time) {
	for k, t := range b.held {
		if now.Sub(t) >= terminalKeyHold {
			delete(b.held, k)
			b.events = append(b.events, InputEvent{Type: InputEventTypeKey, Key: k, Pressed: false})
		}
	}
}

// decodeTerminalKeys maps raw terminal bytes to keys. Ctrl-C asks to quit.
func decodeTerminalKeys(buf []byte) (keys []input.Key, quit bool) {
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case c == 0x03:
			quit = true
		case c == 0x1b:
			k, n := decodeEscape(buf[i+1:])
			if k != input.KeyUnknown {
				keys = append(keys, k)
			}
			i += n
		case c == '\r' || c == '\n':
			keys = append(keys, input.KeyEnter)
		case c == ' ':
			keys = append(keys, input.KeySpace)
		case c == '\t':
			keys = append(keys, input.KeyTab)
		case c == 0x7f || c == 0x08:
			keys = append(keys, input.KeyBackspace)
		case c >= 'a' && c <= 'z':
			keys = append(keys, input.KeyA+input.Key(c-'a'))
		case c >= 'A' && c <= 'Z':
			keys = append(keys, input.KeyA+input.Key(c-'A'))
		case c >= '0' && c <= '9':
			keys = append(keys, input.Key0+input.Key(c-'0'))
		}
	}
	return keys, quit
}

var escapeKeys = map[string]input.Key{
	"[A": input.KeyUp, "[B": input.KeyDown, "[C": input.KeyRight, "[D": input.KeyLeft,
	"OP": input.KeyF1, "OQ": input.KeyF2, "OR": input.KeyF3, "OS": input.KeyF4,
	"[15~": input.KeyF5, "[17~": input.KeyF6, "[18~": input.KeyF7, "[19~": input.KeyF8,
	"[20~": input.KeyF9, "[21~": input.KeyF10, "[23~": input.KeyF11, "[24~": input.KeyF12,
}

// decodeEscape decodes the bytes following ESC. A bare ESC is the Escape key.
func decodeEscape(rest []byte) (input.Key, int) {
	if len(rest) < 2 || (rest[0] != '[' && rest[0] != 'O') {
		return input.KeyEscape, 0
	}

	n := 2
	for n <= len(rest) && n <= 4 {
		if k, ok := escapeKeys[string(rest[:n])]; ok {
			return k, n
		}
		n++
	}
	return input.KeyUnknown, 2
}

// CreateSurface allocates the frame and clears the screen
func (b *TerminalBackend) CreateSurface(title string, width, height int) (Surface, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	w := bufio.NewWriter(b.out)
	fmt.Fprintf(w, "\033]0;%s\007\033[2J\033[?25l", title)
	if err := w.Flush(); err != nil {
		return nil, err
	}

	return &TerminalSurface{
		backend: b,
		frame:   image.NewRGBA(image.Rect(0, 0, width, height)),
		w:       w,
	}, nil
}

// OpenAudio plays through oto
func (b *TerminalBackend) OpenAudio(want audio.Spec, src audio.Source) (audio.Device, error) {
	d, err := audio.OpenOto(want, src)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// PollEvents returns decoded key presses and synthesized releases
func (b *TerminalBackend) PollEvents() []InputEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expire(time.Now())
	events := b.events
	b.events = nil
	return events
}

// IsKeyPressed reports whether key arrived within the hold time
func (b *TerminalBackend) IsKeyPressed(key input.Key) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.held[key]
	return ok && time.Since(t) < terminalKeyHold
}

// Ticks returns the time since Initialize
func (b *TerminalBackend) Ticks() time.Duration {
	return time.Since(b.start)
}

// Sleep pauses the loop
func (b *TerminalBackend) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Run calls loop on the current goroutine
func (b *TerminalBackend) Run(loop func() error) error {
	return loop()
}

// Cleanup restores the terminal
func (b *TerminalBackend) Cleanup() error {
	if !b.initialized {
		return nil
	}
	b.initialized = false

	b.mu.Lock()
	b.closed = true
	b.events = nil
	b.mu.Unlock()

	fmt.Fprint(b.out, "\033[0m\033[?25h\r\n")
	if b.oldState != nil {
		err := term.Restore(b.fd, b.oldState)
		b.oldState = nil
		return err
	}
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalSurface implementation

// Lock exposes the frame memory
func (s *TerminalSurface) Lock() (Pixels, error) {
	r := s.frame.Bounds()
	return Pixels{
		Pix:    s.frame.Pix,
		Width:  r.Dx(),
		Height: r.Dy(),
		Pitch:  s.frame.Stride,
		Format: FormatRGBA8888,
	}, nil
}

// Unlock is a no-op; the frame is only read by Present on the same goroutine
func (s *TerminalSurface) Unlock() {}

// Present draws the frame scaled to the terminal, at most 30 times a second
func (s *TerminalSurface) Present() error {
	now := time.Now()
	if !s.lastDraw.IsZero() && now.Sub(s.lastDraw) < terminalFrameInterval {
		return nil
	}
	s.lastDraw = now

	cols, rows, err := s.backend.size()
	if err != nil {
		return err
	}
	return s.render(cols, rows)
}

// render writes the frame as rows of upper half blocks, two pixels per cell
func (s *TerminalSurface) render(cols, rows int) error {
	w, h := fitTerminal(s.frame.Bounds().Dx(), s.frame.Bounds().Dy(), cols, rows)
	if w == 0 || h == 0 {
		return nil
	}

	if s.scaled == nil || s.scaled.Bounds().Dx() != w || s.scaled.Bounds().Dy() != h {
		s.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.ApproxBiLinear.Scale(s.scaled, s.scaled.Bounds(), s.frame, s.frame.Bounds(), draw.Src, nil)

	s.w.WriteString("\033[H")
	for y := 0; y < h; y += 2 {
		for x := 0; x < w; x++ {
			top := s.scaled.RGBAAt(x, y)
			bot := s.scaled.RGBAAt(x, y+1)
			fmt.Fprintf(s.w, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		s.w.WriteString("\033[0m\r\n")
	}
	return s.w.Flush()
}

// fitTerminal returns the largest even-height pixel size with the frame's
// aspect ratio that fits cols x rows cells, keeping the last row free
func fitTerminal(fw, fh, cols, rows int) (w, h int) {
	if fw <= 0 || fh <= 0 || cols <= 0 || rows <= 1 {
		return 0, 0
	}

	w = cols
	h = w * fh / fw
	if maxH := (rows - 1) * 2; h > maxH {
		h = maxH
		w = h * fw / fh
	}
	return w, h &^ 1
}

// GetSize returns surface dimensions
func (s *TerminalSurface) GetSize() (width, height int) {
	r := s.frame.Bounds()
	return r.Dx(), r.Dy()
}

// Cleanup releases surface resources
func (s *TerminalSurface) Cleanup() error {
	return s.w.Flush()
}
