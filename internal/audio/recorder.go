// Package audio wraps cross-platform microphone capture
// (github.com/gen2brain/malgo, a cgo binding over miniaudio) behind a
// Recorder that feeds a FrameDispatcher and a LiveMeter, and exposes
// device enumeration for the --input-device flag.
package audio

import (
	"fmt"
	"math"
	"strings"

	"github.com/gen2brain/malgo"
)

// Device describes one capture device malgo reports.
type Device struct {
	Name string
	ID   string
}

// Recorder owns the malgo context and capture device.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	dispatcher *FrameDispatcher
	meter      *LiveMeter
}

// NewRecorder initializes a malgo context. Callers must call Close
// when done.
func NewRecorder() (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Recorder{ctx: ctx}, nil
}

// ListDevices enumerates capture devices the platform backend reports.
func (r *Recorder) ListDevices() ([]Device, error) {
	infos, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{Name: info.Name(), ID: info.ID.String()})
	}
	return devices, nil
}

// Start opens the first capture device whose name contains deviceID
// (case-insensitive), or the default if deviceID is empty, at
// sampleRate mono and begins streaming frameSize-sample frames into
// a dispatcher with the given channel capacity. The returned
// dispatcher's Frames() channel is the capture stream; meter reports
// live input level for the status banner.
func (r *Recorder) Start(deviceID string, sampleRate, frameSize, channelCapacity int) (*FrameDispatcher, *LiveMeter, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	if deviceID != "" {
		infos, err := r.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, nil, fmt.Errorf("list capture devices: %w", err)
		}
		for i := range infos {
			if strings.Contains(strings.ToLower(infos[i].Name()), strings.ToLower(deviceID)) {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				break
			}
		}
		if deviceConfig.Capture.DeviceID == nil {
			return nil, nil, fmt.Errorf("no capture device name contains %q", deviceID)
		}
	}

	dispatcher := NewFrameDispatcher(frameSize, 1, channelCapacity)
	meter := NewLiveMeter()

	onRecv := func(outputSamples, inputSamples []byte, frameCount uint32) {
		samples := bytesToFloat32(inputSamples)
		meter.UpdateFromSamples(samples)
		dispatcher.Push(samples)
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecv,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, nil, fmt.Errorf("start capture device: %w", err)
	}

	r.device = device
	r.dispatcher = dispatcher
	r.meter = meter
	return dispatcher, meter, nil
}

// Stop halts the active capture device and closes the dispatcher.
func (r *Recorder) Stop() {
	if r.device != nil {
		r.device.Stop()
		r.device.Uninit()
		r.device = nil
	}
	if r.dispatcher != nil {
		r.dispatcher.Close()
		r.dispatcher = nil
	}
}

// Close releases the malgo context. Stop must be called first if a
// device is active.
func (r *Recorder) Close() {
	if r.ctx != nil {
		r.ctx.Uninit()
		r.ctx.Free()
	}
}

func parseDeviceID(id string) (malgo.DeviceID, error) {
	var devID malgo.DeviceID
	if len(id) > len(devID) {
		return devID, fmt.Errorf("input-device id too long")
	}
	copy(devID[:], id)
	return devID, nil
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
