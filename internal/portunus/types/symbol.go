package types

// Symbol is one key of the 4x4 keypad.
type Symbol byte

const (
	SymbolClear  Symbol = '*'
	SymbolSubmit Symbol = '#'
)

// KeypadLayout is the physical arrangement of the keypad matrix.  A-D are
// reserved and ignored by the access flow.
var KeypadLayout = [4][4]Symbol{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// ParseSymbol maps a raw key byte onto the keypad alphabet.  Lower-case a-d
// are accepted so terminal input does not depend on caps lock.
func ParseSymbol(b byte) (Symbol, bool) {
	switch {
	case b >= '0' && b <= '9':
		return Symbol(b), true
	case b == '*' || b == '#':
		return Symbol(b), true
	case b >= 'A' && b <= 'D':
		return Symbol(b), true
	case b >= 'a' && b <= 'd':
		return Symbol(b - 'a' + 'A'), true
	}
	return 0, false
}

func (s Symbol) IsDigit() bool { return s >= '0' && s <= '9' }

func (s Symbol) IsReserved() bool { return s >= 'A' && s <= 'D' }

func (s Symbol) String() string { return string(rune(s)) }
