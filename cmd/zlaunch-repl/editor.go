package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/term"
)

// ErrInterrupt ends the picker on Ctrl-C.
var ErrInterrupt = errors.New("interrupted")

// Key is a navigation key that does not edit the query.
type Key int

const (
	KeyNone Key = iota
	KeyEnter
	KeyUp
	KeyDown
	KeyTab
	KeyBackTab
)

// Control bytes that map straight to a navigation key.
var controlKeys = map[byte]Key{
	'\r': KeyEnter,
	'\n': KeyEnter,
	'\t': KeyTab,
	0x10: KeyUp,   // Ctrl-P
	0x0e: KeyDown, // Ctrl-N
}

// CSI final bytes that map to a navigation key.
var csiKeys = map[byte]Key{
	'A': KeyUp,
	'B': KeyDown,
	'Z': KeyBackTab,
}

// Editor holds the picker query. It reads keystrokes from the controlling
// terminal, so the activation log on stdout can be redirected.
type Editor struct {
	tty   *os.File
	saved *term.State
	in    io.Reader
	query []byte
	pos   int // byte offset of the cursor in query
}

// NewEditor puts the controlling terminal into raw mode.
func NewEditor() (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}
	saved, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("raw mode: %w", err)
	}
	return &Editor{tty: tty, saved: saved, in: tty}, nil
}

// Close gives the terminal back in its previous mode.
func (e *Editor) Close() {
	if e.tty == nil {
		return
	}
	term.Restore(int(e.tty.Fd()), e.saved)
	e.tty.Close()
}

// Tty is where the picker is drawn.
func (e *Editor) Tty() *os.File {
	return e.tty
}

// Text returns the current query.
func (e *Editor) Text() string {
	return string(e.query)
}

// Tail returns the number of runes right of the cursor.
func (e *Editor) Tail() int {
	return utf8.RuneCount(e.query[e.pos:])
}

// Next consumes one keystroke. It returns the navigation key pressed, or
// KeyNone with edited set when the query text changed. Ctrl-C yields
// ErrInterrupt and Ctrl-D on an empty query yields io.EOF.
func (e *Editor) Next() (key Key, edited bool, err error) {
	var b [1]byte
	if _, err := e.in.Read(b[:]); err != nil {
		return KeyNone, false, err
	}
	c := b[0]
	if k, ok := controlKeys[c]; ok {
		return k, false, nil
	}

	switch c {
	case 0x03:
		return KeyNone, false, ErrInterrupt
	case 0x04:
		if len(e.query) == 0 {
			return KeyNone, false, io.EOF
		}
	case 0x7f, 0x08:
		return KeyNone, e.deleteBack(), nil
	case 0x01:
		e.pos = 0
	case 0x05:
		e.pos = len(e.query)
	case 0x15:
		changed := len(e.query) > 0
		e.query, e.pos = e.query[:0], 0
		return KeyNone, changed, nil
	case 0x1b:
		return e.csi()
	default:
		if c < 0x20 {
			return KeyNone, false, nil
		}
		r := []byte{c}
		if n := seqLen(c) - 1; n > 0 {
			rest := make([]byte, n)
			if _, err := io.ReadFull(e.in, rest); err != nil {
				return KeyNone, false, err
			}
			r = append(r, rest...)
		}
		e.insert(r)
		return KeyNone, true, nil
	}
	return KeyNone, false, nil
}

// csi handles the sequence after ESC: arrows, Home/End in both encodings,
// Delete and Shift-Tab. Anything else is ignored.
func (e *Editor) csi() (Key, bool, error) {
	var seq [2]byte
	if n, _ := e.in.Read(seq[:1]); n == 0 || seq[0] != '[' {
		return KeyNone, false, nil
	}
	if n, _ := e.in.Read(seq[1:]); n == 0 {
		return KeyNone, false, nil
	}
	final := seq[1]
	if k, ok := csiKeys[final]; ok {
		return k, false, nil
	}

	switch final {
	case 'D':
		e.pos -= lastRuneLen(e.query[:e.pos])
	case 'C':
		_, size := utf8.DecodeRune(e.query[e.pos:])
		e.pos += size
	case 'H':
		e.pos = 0
	case 'F':
		e.pos = len(e.query)
	case '1', '3', '4':
		// VT sequences end in '~'.
		e.in.Read(seq[:1])
		switch final {
		case '1':
			e.pos = 0
		case '4':
			e.pos = len(e.query)
		case '3':
			return KeyNone, e.deleteForward(), nil
		}
	}
	return KeyNone, false, nil
}

func (e *Editor) insert(r []byte) {
	e.query = append(e.query[:e.pos], append(r, e.query[e.pos:]...)...)
	e.pos += len(r)
}

func (e *Editor) deleteBack() bool {
	size := lastRuneLen(e.query[:e.pos])
	if size == 0 {
		return false
	}
	e.query = append(e.query[:e.pos-size], e.query[e.pos:]...)
	e.pos -= size
	return true
}

func (e *Editor) deleteForward() bool {
	_, size := utf8.DecodeRune(e.query[e.pos:])
	if size == 0 {
		return false
	}
	e.query = append(e.query[:e.pos], e.query[e.pos+size:]...)
	return true
}

// lastRuneLen is the byte length of the final rune of b, 0 for empty b.
func lastRuneLen(b []byte) int {
	_, size := utf8.DecodeLastRune(b)
	return size
}

// seqLen is the length of the UTF-8 sequence that starts with lead.
func seqLen(lead byte) int {
	switch {
	case lead >= 0xf0:
		return 4
	case lead >= 0xe0:
		return 3
	case lead >= 0xc0:
		return 2
	}
	return 1
}
