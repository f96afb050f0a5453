// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otpentry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuportal/authportal/internal/otpentry"
)

func TestInputAdvancesFocus(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.True(t, m.Input('4'))
	assert.Equal(t, 1, m.Focus())
	assert.True(t, m.Input('9'))
	assert.Equal(t, 2, m.Focus())
}

func TestInputRejectsNonDigits(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.False(t, m.Input('a'))
	assert.False(t, m.Input(' '))
	assert.False(t, m.Input('-'))
	assert.Equal(t, 0, m.Focus())
}

func TestFocusStopsAtLastCell(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	for _, d := range []byte("492017") {
		m.Input(d)
	}

	assert.Equal(t, otpentry.CodeLength-1, m.Focus())
	assert.True(t, m.Complete())
}

func TestBackspaceClearsFilledCell(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Input('4')
	m.Input('9')

	// Focus sits on cell 2 (empty): first backspace only moves left.
	m.Backspace()
	assert.Equal(t, 1, m.Focus())

	// Second backspace clears the digit in cell 1 without moving.
	m.Backspace()
	assert.Equal(t, 1, m.Focus())
	assert.Equal(t, "4 _ _ _ _ _", m.Render('_'))
}

func TestBackspaceOnFirstEmptyCellIsNoop(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Backspace()

	assert.Equal(t, 0, m.Focus())
	assert.False(t, m.Complete())
}

func TestPasteFillsCells(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.True(t, m.Paste("492017"))
	assert.True(t, m.Complete())
	assert.Equal(t, "4 9 2 0 1 7", m.Render('_'))
}

func TestPasteStripsNonDigits(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.True(t, m.Paste("49 20-17"))
	assert.True(t, m.Complete())

	code, ok := m.TrySubmit()
	require.True(t, ok)
	assert.Equal(t, "492017", code)
}

func TestPastePartialLeavesFocusOnNextCell(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.True(t, m.Paste("492"))
	assert.False(t, m.Complete())
	assert.Equal(t, 3, m.Focus())
}

func TestPasteWithoutDigitsRejected(t *testing.T) {
	t.Parallel()

	m := otpentry.New()

	assert.False(t, m.Paste("abc"))
	assert.Equal(t, 0, m.Focus())
}

func TestTrySubmitRequiresCompletion(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Paste("49201")

	_, ok := m.TrySubmit()
	assert.False(t, ok)
}

func TestTrySubmitFiresExactlyOnce(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Paste("492017")

	code, ok := m.TrySubmit()
	require.True(t, ok)
	assert.Equal(t, "492017", code)

	_, ok = m.TrySubmit()
	assert.False(t, ok)
}

func TestInputIgnoredWhileSubmitInFlight(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Paste("492017")
	_, ok := m.TrySubmit()
	require.True(t, ok)

	assert.False(t, m.Input('5'))
	assert.False(t, m.Paste("111111"))
	m.Backspace()
	assert.True(t, m.Complete())
}

func TestResetAllowsRetryAfterRejection(t *testing.T) {
	t.Parallel()

	m := otpentry.New()
	m.Paste("492017")
	_, ok := m.TrySubmit()
	require.True(t, ok)

	m.Reset()

	assert.Equal(t, 0, m.Focus())
	assert.False(t, m.Complete())
	assert.True(t, m.Paste("830154"))

	code, ok := m.TrySubmit()
	require.True(t, ok)
	assert.Equal(t, "830154", code)
}
