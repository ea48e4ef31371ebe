package pcm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDevices() []Device {
	return []Device{
		{ID: "alsa_input.wave3", Description: "Elgato Wave:3", Available: true, Default: true},
		{ID: "alsa_input.webcam", Description: "Webcam Microphone", Available: true},
		{ID: "alsa_input.headset", Description: "USB Headset", Available: false},
		{ID: "alsa_input.muted", Description: "Muted Mic", Available: true, Muted: true},
	}
}

func TestSelectDeviceFromListDefault(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "default", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.wave3", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestSelectDeviceFromListByName(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "webcam", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.webcam", selection.Device.ID)
}

func TestSelectDeviceFromListUnavailablePrimaryFallsBack(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "headset", "webcam")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.webcam", selection.Device.ID)
	require.True(t, selection.Fallback)
	require.Contains(t, selection.Warning, "unavailable")
}

func TestSelectDeviceFromListMutedPrimaryFallsBackToDefault(t *testing.T) {
	selection, err := selectDeviceFromList(testDevices(), "muted", "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_input.wave3", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
}

func TestSelectDeviceFromListNoMatch(t *testing.T) {
	_, err := selectDeviceFromList(testDevices(), "nonexistent", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match any device")
}

func TestSelectDeviceFromListEmpty(t *testing.T) {
	_, err := selectDeviceFromList(nil, "default", "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no audio input devices")
}

func TestSelectDeviceFromListMutedFallbackRejected(t *testing.T) {
	_, err := selectDeviceFromList(testDevices(), "headset", "muted")
	require.Error(t, err)
	require.Contains(t, err.Error(), "muted")
}

func TestDeviceDescribe(t *testing.T) {
	require.Equal(t, "Elgato (alsa_input.wave3)", Device{Description: "Elgato", ID: "alsa_input.wave3"}.Describe())
	require.Equal(t, "Elgato", Device{Description: "Elgato"}.Describe())
	require.Equal(t, "alsa_input.wave3", Device{ID: "alsa_input.wave3"}.Describe())
}
