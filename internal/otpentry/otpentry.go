// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otpentry implements the input state machine for the six-cell
// verification code entry. It owns cell contents, focus movement and the
// single-shot submit guard; rendering and transport belong to the caller.
package otpentry

import "strings"

// CodeLength is the number of digit cells.
const CodeLength = 6

const emptyCell = byte(0)

// Machine tracks the state of a code entry widget.
type Machine struct {
	cells    [CodeLength]byte
	focus    int
	inFlight bool
}

// New returns a machine with all cells empty and focus on the first cell.
func New() *Machine {
	return &Machine{}
}

// Focus reports the index of the focused cell.
func (m *Machine) Focus() int {
	return m.focus
}

// Input feeds a single typed character into the focused cell. Non-digit
// input is rejected. A digit fills the focused cell and advances focus to
// the next empty position. Reports whether the character was accepted.
func (m *Machine) Input(ch byte) bool {
	if ch < '0' || ch > '9' {
		return false
	}
	if m.inFlight {
		return false
	}

	m.cells[m.focus] = ch
	if m.focus < CodeLength-1 {
		m.focus++
	}
	return true
}

// Backspace clears the focused cell if it holds a digit. On an empty cell
// it only moves focus one position to the left.
func (m *Machine) Backspace() {
	if m.inFlight {
		return
	}

	if m.cells[m.focus] != emptyCell {
		m.cells[m.focus] = emptyCell
		return
	}
	if m.focus > 0 {
		m.focus--
	}
}

// Paste distributes a pasted string across the cells starting from the
// first cell, ignoring any non-digit characters. Reports whether at least
// one digit was applied.
func (m *Machine) Paste(text string) bool {
	if m.inFlight {
		return false
	}

	digits := make([]byte, 0, CodeLength)
	for i := 0; i < len(text) && len(digits) < CodeLength; i++ {
		if text[i] >= '0' && text[i] <= '9' {
			digits = append(digits, text[i])
		}
	}
	if len(digits) == 0 {
		return false
	}

	for i, d := range digits {
		m.cells[i] = d
	}
	m.focus = len(digits) - 1
	if len(digits) < CodeLength {
		m.focus = len(digits)
	}
	return true
}

// Complete reports whether every cell holds a digit.
func (m *Machine) Complete() bool {
	for _, c := range m.cells {
		if c == emptyCell {
			return false
		}
	}
	return true
}

// TrySubmit hands out the assembled code exactly once per completion.
// It returns ok=false while cells are missing or while a previous submit
// is still in flight. After a failed verification the caller must Reset
// before another submit can happen.
func (m *Machine) TrySubmit() (code string, ok bool) {
	if m.inFlight || !m.Complete() {
		return "", false
	}
	m.inFlight = true
	return string(m.cells[:]), true
}

// Reset clears all cells, moves focus to the first cell and releases the
// submit guard. Called after a rejected code so the user can retry.
func (m *Machine) Reset() {
	*m = Machine{}
}

// Render returns a printable view of the cells, using the placeholder for
// empty positions.
func (m *Machine) Render(placeholder byte) string {
	var b strings.Builder
	for i, c := range m.cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		if c == emptyCell {
			b.WriteByte(placeholder)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
