//go:build !portaudio

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoDevices(t *testing.T) {
	assert.ErrorIs(t, execute(t, "devices"), errNoDevices)
	assert.ErrorIs(t, execute(t, "beep"), errNoDevices)
	assert.ErrorIs(t, execute(t, "mic"), errNoDevices)
}
