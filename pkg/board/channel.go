package board

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Channel is a half-duplex byte-oriented endpoint bound to one bus address.
// Both operations block until the transfer completes; at most one operation
// may be in flight at a time.
//
// Implementations may additionally implement io.Closer; Device.Close releases
// the channel when they do.
type Channel interface {
	// Write transfers p to the device.
	Write(p []byte) error

	// Read fills p with len(p) bytes from the device.
	Read(p []byte) error
}

// DeviceFault is returned for any failed I2C write or read. The bus offers
// no transactional guarantee, so a fault is considered hardware-unrecoverable
// and is never retried by the driver.
type DeviceFault struct {
	// Op names the driver operation that failed (e.g. "clear display").
	Op string

	// Err is the underlying channel error.
	Err error
}

// Error returns the fault description.
func (f *DeviceFault) Error() string {
	return fmt.Sprintf("rpiui: %s: %v", f.Op, f.Err)
}

// Unwrap returns the underlying channel error.
func (f *DeviceFault) Unwrap() error { return f.Err }

// fault wraps err into a *DeviceFault for operation op.
func fault(op string, err error) error {
	return &DeviceFault{Op: op, Err: err}
}

// i2cChannel adapts a periph.io I2C device to the Channel interface.
type i2cChannel struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

func (c *i2cChannel) Write(p []byte) error { return c.dev.Tx(p, nil) }
func (c *i2cChannel) Read(p []byte) error  { return c.dev.Tx(nil, p) }
func (c *i2cChannel) Close() error         { return c.bus.Close() }

// OpenI2C opens the named I2C bus (e.g. "1" on a Raspberry Pi) and binds it
// to the board's fixed 7-bit address. periph's host.Init must have been
// called before; cmd/rpiui-demo does this at startup.
func OpenI2C(busName string) (Channel, error) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	return &i2cChannel{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: DeviceAddress},
	}, nil
}
