package session

import (
	"fmt"

	"github.com/mj1618/mobile-cli/internal/protocol"
)

// SelectDevice applies the device selection policy to a device list:
//
//  1. deviceID given: that device if connected, else ErrNotConnected.
//  2. platform given: the only connected device of that platform, else
//     ErrNoDeviceForPlatform or ErrAmbiguousDevice.
//  3. neither: the only connected device, else ErrNoDeviceConnected or
//     ErrAmbiguousDevice.
//
// Devices that are not connected are never candidates.
func SelectDevice(devices []protocol.DeviceInfo, deviceID, platform string) (protocol.DeviceInfo, error) {
	if deviceID != "" {
		for _, d := range devices {
			if d.DeviceID == deviceID && d.Connected {
				return d, nil
			}
		}
		return protocol.DeviceInfo{}, fmt.Errorf("%w: %s", ErrNotConnected, deviceID)
	}

	var candidates []protocol.DeviceInfo
	for _, d := range devices {
		if d.Connected && (platform == "" || d.Platform == platform) {
			candidates = append(candidates, d)
		}
	}

	switch len(candidates) {
	case 0:
		if platform != "" {
			return protocol.DeviceInfo{}, fmt.Errorf("%w: %s", ErrNoDeviceForPlatform, platform)
		}
		return protocol.DeviceInfo{}, ErrNoDeviceConnected
	case 1:
		return candidates[0], nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DeviceID
	}
	return protocol.DeviceInfo{}, fmt.Errorf("%w (%v)", ErrAmbiguousDevice, ids)
}
