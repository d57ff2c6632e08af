package input

import (
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Script is a Source driven by a Lua function named input. It is called once
// per frame with the zero-based frame number and returns the port 0 mask, the
// port 1 mask and an optional command. Masks are numbers or glyph strings
// such as "RA" or "R......A". Returning nil for port 0 ends the input.
//
//	function input(frame)
//	  if frame > 600 then return nil end
//	  if frame % 2 == 0 then return BUTTON_RIGHT + BUTTON_A, 0 end
//	  return "R", 0
//	end
type Script struct {
	state *lua.LState
	fn    lua.LValue
	frame int
	err   error
}

// LoadScript runs the Lua file at path and binds its input function.
func LoadScript(path string) (*Script, error) {
	L := newScriptState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to run input script %s: %w", path, err)
	}
	return bindScript(L)
}

// NewScript is LoadScript for in-memory source.
func NewScript(source string) (*Script, error) {
	L := newScriptState()
	if err := L.DoString(source); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to run input script: %w", err)
	}
	return bindScript(L)
}

func newScriptState() *lua.LState {
	L := lua.NewState()
	for _, b := range Buttons {
		L.SetGlobal("BUTTON_"+strings.ToUpper(b.String()), lua.LNumber(b))
	}
	L.SetGlobal("SOFT_RESET", lua.LNumber(CommandSoftReset))
	L.SetGlobal("HARD_RESET", lua.LNumber(CommandHardReset))
	return L
}

func bindScript(L *lua.LState) (*Script, error) {
	fn := L.GetGlobal("input")
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("input script does not define function input(frame)")
	}
	return &Script{state: L, fn: fn}, nil
}

// Next calls input(frame). A Lua error ends the input and is kept for Err.
func (s *Script) Next() (Frame, bool) {
	if s.err != nil {
		return Frame{}, false
	}

	L := s.state
	if err := L.CallByParam(lua.P{Fn: s.fn, NRet: 3, Protect: true}, lua.LNumber(s.frame)); err != nil {
		s.err = fmt.Errorf("input script failed at frame %d: %w", s.frame, err)
		return Frame{}, false
	}
	p0, p1, cmd := L.Get(-3), L.Get(-2), L.Get(-1)
	L.Pop(3)

	if p0 == lua.LNil {
		return Frame{}, false
	}

	var frame Frame
	var err error
	if frame.Ports[0], err = luaMask(p0); err == nil {
		frame.Ports[1], err = luaMask(p1)
	}
	if err != nil {
		s.err = fmt.Errorf("input script frame %d: %w", s.frame, err)
		return Frame{}, false
	}
	if frame.Command, err = luaCommand(cmd); err != nil {
		s.err = fmt.Errorf("input script frame %d: %w", s.frame, err)
		return Frame{}, false
	}

	s.frame++
	return frame, true
}

// Err returns the error that ended the script, if any.
func (s *Script) Err() error {
	return s.err
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.state.Close()
}

func luaMask(v lua.LValue) (Mask, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return 0, nil
	case lua.LNumber:
		if v < 0 || v > 0xFF || !isIntegral(v) {
			return 0, fmt.Errorf("button mask out of range: %v", v)
		}
		return Mask(uint8(v)), nil
	case lua.LString:
		return ParseGlyphs(string(v))
	}
	return 0, fmt.Errorf("unexpected %s for button mask", v.Type())
}

// luaCommand converts the optional third return value. Anything other than
// nil or a number is ignored.
func luaCommand(v lua.LValue) (Command, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, nil
	}
	if n < 0 || n > math.MaxUint32 || !isIntegral(n) {
		return 0, fmt.Errorf("command out of range: %v", n)
	}
	return Command(uint32(n)), nil
}

func isIntegral(n lua.LNumber) bool {
	f := float64(n)
	return f == math.Trunc(f)
}

// ParseGlyphs decodes button letters (see Glyphs) into a mask; '.' is
// ignored, so both "RA" and "R......A" are accepted.
func ParseGlyphs(s string) (Mask, error) {
	var m Mask
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			continue
		}
		idx := strings.IndexByte(Glyphs, s[i])
		if idx < 0 {
			return 0, fmt.Errorf("unknown button glyph %q", s[i])
		}
		m |= 1 << idx
	}
	return m, nil
}
