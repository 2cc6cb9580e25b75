package bridge

import "context"

// DeviceInfo is one device as the bridge knows it. Name matches the name
// used in the automation manifest; ID is the bridge's own address for it.
type DeviceInfo struct {
	ID     string `json:"device_id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// Bridge hands out connections to the physical device controller.
type Bridge interface {
	// Connect acquires a connection. Failures wrap ErrConnect.
	Connect(ctx context.Context) (Conn, error)
}

// Conn is one acquired bridge connection. Every blocking call honours ctx.
// A Conn must be closed by whoever acquired it; Close is idempotent.
type Conn interface {
	// Devices enumerates the devices in a domain such as "cover".
	Devices(ctx context.Context, domain string) ([]DeviceInfo, error)

	// Lower closes a shade or turns a switch on.
	Lower(ctx context.Context, deviceID string) error

	// Raise opens a shade or turns a switch off.
	Raise(ctx context.Context, deviceID string) error

	// SetValue moves a device to percent (0-100).
	SetValue(ctx context.Context, deviceID string, percent int) error

	Close() error
}
