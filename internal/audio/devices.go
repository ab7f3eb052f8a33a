// Package audio handles microphone discovery, selection, and PCM capture.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "gamebox"

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the device can be captured from right now.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the resolved capture source. Warning is set when the
// preferred input could not be used.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return devicesFromInfos(infos, defaultSource.ID()), nil
}

func devicesFromInfos(infos pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		// Monitors of output sinks are not microphones.
		if strings.HasSuffix(info.SourceName, ".monitor") {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultID,
		})
	}
	return devices
}

// SelectDevice resolves input/fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return choose(devices, input, fallback)
}

func isDefaultTerm(term string) bool {
	return term == "" || term == "default"
}

func choose(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no microphones found")
	}

	input = strings.ToLower(strings.TrimSpace(input))
	fallback = strings.ToLower(strings.TrimSpace(fallback))

	primary, err := resolve(devices, input, "audio.input")
	if err != nil {
		return Selection{}, err
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alt, err := resolve(devices, fallback, "audio.fallback")
	if err != nil {
		return Selection{}, fmt.Errorf("microphone %q is %s and no fallback: %w", primary.ID, reason, err)
	}
	switch {
	case alt.Muted:
		return Selection{}, fmt.Errorf("fallback microphone %q is muted", alt.ID)
	case !alt.Available:
		return Selection{}, fmt.Errorf("fallback microphone %q is not available", alt.ID)
	}

	return Selection{
		Device:   alt,
		Warning:  fmt.Sprintf("microphone %q is %s; using %q", primary.ID, reason, alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

// resolve finds the device named by term, or the default source.
func resolve(devices []Device, term string, field string) (Device, error) {
	for _, dev := range devices {
		if isDefaultTerm(term) {
			if dev.Default {
				return dev, nil
			}
			continue
		}
		if matches(dev, term) {
			return dev, nil
		}
	}
	if isDefaultTerm(term) {
		return Device{}, errors.New("default microphone is unavailable")
	}
	return Device{}, fmt.Errorf("%s %q did not match any device", field, term)
}

func matches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// PulseAudio values: unknown=0, no=1, yes=2.
			return port.Available != 1
		}
	}
	return true
}
