package input

// Keypad is a scanned key matrix.  ScanKey never blocks; ok is false when
// no key is pending.
type Keypad interface {
	ScanKey() (key byte, ok bool)
}

// CardReader is a proximity reader.  ReadUID never blocks; ok is false when
// no new card is in the field.  Halt tells the card to stop answering so
// the same card held in place is not read again.
type CardReader interface {
	ReadUID() (uid []byte, ok bool)
	Halt() error
}

// Keypads polls several keypads in order, e.g. a virtual keypad and a
// terminal.
func Keypads(ks ...Keypad) Keypad {
	return multiKeypad(ks)
}

type multiKeypad []Keypad

func (m multiKeypad) ScanKey() (byte, bool) {
	for _, k := range m {
		if k == nil {
			continue
		}
		if b, ok := k.ScanKey(); ok {
			return b, true
		}
	}
	return 0, false
}
