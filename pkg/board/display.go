package board

// Display geometry.
const (
	DisplayWidth = 16
	DisplayLines = 2
)

// DisplayDriver renders two lines of ASCII text through the device's
// clear/cursor/text commands. Not safe for concurrent use.
type DisplayDriver struct {
	dev *Device
}

// NewDisplayDriver returns a display driver over dev.
func NewDisplayDriver(dev *Device) *DisplayDriver {
	return &DisplayDriver{dev: dev}
}

// Clear clears the display.
func (d *DisplayDriver) Clear() error {
	return d.dev.ClearDisplay()
}

// Line writes text at the start of line n (1 or 2). Text longer than the
// display simply runs off the visible area; the protocol does not care.
func (d *DisplayDriver) Line(n int, text string) error {
	if err := d.dev.SetCursor(n, 0); err != nil {
		return err
	}
	return d.dev.WriteText([]byte(text))
}

// Show clears the display and writes both lines. An empty line2 leaves the
// second line blank.
func (d *DisplayDriver) Show(line1, line2 string) error {
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Line(1, line1); err != nil {
		return err
	}
	if line2 == "" {
		return nil
	}
	return d.Line(2, line2)
}
