package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

// DefaultDeviceID names the device used when the caller does not pick one.
const DefaultDeviceID = "default"

// StreamConstraints describe the stream a session wants from a device.
type StreamConstraints struct {
	DeviceID string
	Mode     shared.SessionMode
	Width    int
	Height   int

	// Audio tracks are only requested in video mode.
	Audio bool
}

// TargetResolution returns the capture resolution requested for a mode.
func TargetResolution(mode shared.SessionMode) (w, h int) {
	switch mode {
	case shared.ModeBarcode:
		return 1280, 720
	case shared.ModeVideo:
		return 1280, 720
	default:
		return 1920, 1080
	}
}

// DeviceStream is an exclusively owned camera/device stream.
type DeviceStream interface {
	DeviceID() string

	// Stop releases the stream. Idempotent.
	Stop() error
}

// DeviceProvider acquires device streams. Acquisition is exclusive: a device
// held by one owner cannot be acquired again until its stream is stopped.
type DeviceProvider interface {
	Acquire(ctx context.Context, c StreamConstraints) (DeviceStream, error)
}

// LeaseProvider is the in-process DeviceProvider. It tracks which device ids
// are leased and refuses a second concurrent acquisition of the same device.
type LeaseProvider struct {
	logger *slog.Logger

	mu     sync.Mutex
	leases map[string]*lease
}

func NewLeaseProvider(logger *slog.Logger) *LeaseProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaseProvider{
		logger: logger.With("component", "device-provider"),
		leases: make(map[string]*lease),
	}
}

func (p *LeaseProvider) Acquire(ctx context.Context, c StreamConstraints) (DeviceStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrDeviceAccess, err)
	}
	if c.DeviceID == "" {
		c.DeviceID = DefaultDeviceID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, held := p.leases[c.DeviceID]; held {
		return nil, fmt.Errorf("%w: device %s", shared.ErrDeviceBusy, c.DeviceID)
	}

	l := &lease{provider: p, deviceID: c.DeviceID, constraints: c}
	p.leases[c.DeviceID] = l
	p.logger.Debug("device stream acquired",
		"device_id", c.DeviceID, "mode", c.Mode, "audio", c.Audio,
		"resolution", fmt.Sprintf("%dx%d", c.Width, c.Height))
	return l, nil
}

// Held reports whether a device is currently leased.
func (p *LeaseProvider) Held(deviceID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, held := p.leases[deviceID]
	return held
}

type lease struct {
	provider    *LeaseProvider
	deviceID    string
	constraints StreamConstraints

	mu      sync.Mutex
	stopped bool
}

func (l *lease) DeviceID() string {
	return l.deviceID
}

func (l *lease) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true

	l.provider.mu.Lock()
	if l.provider.leases[l.deviceID] == l {
		delete(l.provider.leases, l.deviceID)
	}
	l.provider.mu.Unlock()

	l.provider.logger.Debug("device stream released", "device_id", l.deviceID)
	return nil
}
