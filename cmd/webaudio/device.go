//go:build portaudio

package main

import (
	"pipelined.dev/webaudio/backend"
	"pipelined.dev/webaudio/portaudio"
)

func listDevices() ([]backend.Device, error) {
	return portaudio.Devices()
}

func openSink(id string, sampleRate float64, g *globals) (backend.Sink, error) {
	return portaudio.NewSink(portaudio.Options{DeviceID: id, SampleRate: sampleRate}, g.logger)
}

func openSource(id string, sampleRate float64, g *globals) (backend.Source, error) {
	return portaudio.NewSource(portaudio.Options{DeviceID: id, SampleRate: sampleRate}, g.logger)
}
