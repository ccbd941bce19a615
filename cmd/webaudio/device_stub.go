//go:build !portaudio

package main

import (
	"errors"

	"pipelined.dev/webaudio/backend"
)

var errNoDevices = errors.New("built without device support, rebuild with portaudio tag")

func listDevices() ([]backend.Device, error) {
	return nil, errNoDevices
}

func openSink(string, float64, *globals) (backend.Sink, error) {
	return nil, errNoDevices
}

func openSource(string, float64, *globals) (backend.Source, error) {
	return nil, errNoDevices
}
