package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func cabDevices() []Device {
	return []Device{
		{ID: "alsa_input.usb-visor_mic", Description: "Visor Mic", Available: true, Default: true},
		{ID: "bluez_input.headset", Description: "Rear Headset", Available: true},
	}
}

func TestChooseDefaultDevice(t *testing.T) {
	selection, err := choose(cabDevices(), "default", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-visor_mic", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestChooseByDescription(t *testing.T) {
	selection, err := choose(cabDevices(), "Rear HEADSET", "default")
	require.NoError(t, err)
	require.Equal(t, "bluez_input.headset", selection.Device.ID)
}

func TestChooseMutedPrimaryUsesFallback(t *testing.T) {
	devices := cabDevices()
	devices[0].Muted = true

	selection, err := choose(devices, "visor", "headset")
	require.NoError(t, err)
	require.Equal(t, "bluez_input.headset", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestChooseUnavailablePrimaryFallsBackToDefault(t *testing.T) {
	devices := cabDevices()
	devices[1].Available = false

	selection, err := choose(devices, "headset", "")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb-visor_mic", selection.Device.ID)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestChooseFailsWhenOnlyDeviceMuted(t *testing.T) {
	devices := []Device{{ID: "visor", Available: true, Muted: true, Default: true}}

	_, err := choose(devices, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "muted")
}

func TestChooseUnknownInput(t *testing.T) {
	_, err := choose(cabDevices(), "missing", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")
}

func TestChooseMissingFallback(t *testing.T) {
	devices := cabDevices()
	devices[0].Muted = true

	_, err := choose(devices, "default", "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no fallback")
}

func TestChooseEmptyList(t *testing.T) {
	_, err := choose(nil, "default", "default")
	require.Error(t, err)
}

func TestDevicesFromInfosSkipsMonitors(t *testing.T) {
	infos := pulseproto.GetSourceInfoListReply{
		{SourceName: "visor", Device: "Visor Mic", State: 1},
		nil,
		{SourceName: "speakers.monitor", Device: "Monitor"},
		{SourceName: "headset", Device: "Headset", Mute: true, State: 2},
	}

	devices := devicesFromInfos(infos, "visor")
	require.Len(t, devices, 2)
	require.Equal(t, Device{ID: "visor", Description: "Visor Mic", State: "idle", Available: true, Default: true}, devices[0])
	require.True(t, devices[1].Muted)
	require.Equal(t, "suspended", devices[1].State)
	require.False(t, devices[1].Usable())
}

func TestSourceState(t *testing.T) {
	require.Equal(t, "running", sourceState(0))
	require.Equal(t, "unknown(9)", sourceState(9))
}

func TestPortAvailable(t *testing.T) {
	require.False(t, portAvailable(nil))
	require.True(t, portAvailable(&pulseproto.GetSourceInfoReply{}))

	yes := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setPorts(t, yes, map[string]uint32{"mic": 2})
	require.True(t, portAvailable(yes))

	no := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setPorts(t, no, map[string]uint32{"mic": 1})
	require.False(t, portAvailable(no))
}

func TestListDevicesFailsWithoutPulse(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/gamebox-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = DeviceCapture("default", "", nil)(context.Background())
	require.Error(t, err)
}

// setPorts fills the unexported port element type through reflection.
func setPorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports map[string]uint32) {
	t.Helper()

	slice := reflect.MakeSlice(reflect.TypeOf(reply.Ports), 0, len(ports))
	elem := slice.Type().Elem()
	for name, available := range ports {
		item := reflect.New(elem).Elem()
		item.FieldByName("Name").SetString(name)
		item.FieldByName("Available").SetUint(uint64(available))
		slice = reflect.Append(slice, item)
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(slice)
}
