package board

import (
	"io"
	"time"
)

// DeviceConfig configures a Device at open time.
type DeviceConfig struct {
	// Contrast is the initial LCD contrast level (default: DefaultContrast).
	Contrast byte
}

// Device is the protocol driver for one RPi_UI board. It owns no state
// beyond the channel handle; every operation is a single blocking command
// round-trip. Device is not safe for concurrent use.
type Device struct {
	ch Channel
}

// Open initializes the board over ch and returns the driver handle.
//
// The sequence mirrors what the firmware expects on a cold attach: reinit
// plus settle delay, one priming buttons read, contrast, then the ADC setup
// for both temperature channels. The priming read matters because a reinit
// does not clear the firmware's pushed-buttons register; without it the
// first poll could report a phantom press left over from before startup.
func Open(ch Channel, cfg DeviceConfig) (*Device, error) {
	if cfg.Contrast == 0 {
		cfg.Contrast = DefaultContrast
	}

	d := &Device{ch: ch}

	if err := d.Reinitialize(); err != nil {
		return nil, err
	}
	time.Sleep(SettleDelay)

	if _, err := d.ReadPushedButtonsMask(); err != nil {
		return nil, err
	}
	if err := d.SetContrast(cfg.Contrast); err != nil {
		return nil, err
	}

	if err := d.ConfigureADCChannel(ADCInternal, SensorInternal1V1); err != nil {
		return nil, err
	}
	if err := d.ConfigureADCChannel(ADCExternal, SensorExternal1V1); err != nil {
		return nil, err
	}
	if err := d.SetADCChannelCount(adcChannels); err != nil {
		return nil, err
	}
	if err := d.SetADCSampleCount(adcNumSamples); err != nil {
		return nil, err
	}
	if err := d.SetADCShift(adcShift); err != nil {
		return nil, err
	}

	return d, nil
}

// Close commands a reinit (clearing the display and firmware state), waits
// the settle delay and releases the channel if it is an io.Closer. All steps
// are attempted; the first error is returned after the channel is closed.
func (d *Device) Close() error {
	err := d.Reinitialize()
	if err == nil {
		time.Sleep(SettleDelay)
	}

	if c, ok := d.ch.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fault("close channel", cerr)
		}
	}
	return err
}

// Reinitialize writes the reinit command. The hardware requires the caller
// to wait SettleDelay before issuing further commands.
func (d *Device) Reinitialize() error {
	if err := d.ch.Write([]byte{cmdReinit, 0x01}); err != nil {
		return fault("reinit", err)
	}
	return nil
}

// SetContrast sets the LCD contrast level.
func (d *Device) SetContrast(level byte) error {
	if err := d.ch.Write([]byte{cmdSetContrast, level}); err != nil {
		return fault("set contrast", err)
	}
	return nil
}

// ClearDisplay clears both LCD lines.
func (d *Device) ClearDisplay() error {
	if err := d.ch.Write([]byte{cmdClearDisplay, 0x01}); err != nil {
		return fault("clear display", err)
	}
	return nil
}

// SetCursor positions the text cursor. line counts from 1, col from 0.
// The payload packs line-1 into bits 7-5 and the column into bits 4-0.
func (d *Device) SetCursor(line, col int) error {
	pos := byte((line-1)<<5) | byte(col&0x1F)
	if err := d.ch.Write([]byte{cmdSetTextCursor, pos}); err != nil {
		return fault("set cursor", err)
	}
	return nil
}

// WriteText writes text at the current cursor position. Only 8-bit ASCII
// characters are valid; passing anything else is a caller contract violation
// and is not validated here. Length is unbounded by the protocol even though
// the display has only 2x16 cells.
func (d *Device) WriteText(text []byte) error {
	cmd := make([]byte, len(text)+1)
	cmd[0] = cmdDisplayText
	copy(cmd[1:], text)
	if err := d.ch.Write(cmd); err != nil {
		return fault("display text", err)
	}
	return nil
}

// ConfigureADCChannel selects the sensor wired to an ADC channel.
func (d *Device) ConfigureADCChannel(ch ADCChannel, sensorCode byte) error {
	cmd := byte(cmdSetADCChannel0)
	if ch == ADCExternal {
		cmd = cmdSetADCChannel1
	}
	if err := d.ch.Write([]byte{cmd, sensorCode}); err != nil {
		return fault("configure ADC channel", err)
	}
	return nil
}

// SetADCChannelCount sets how many ADC channels the firmware samples.
func (d *Device) SetADCChannelCount(n byte) error {
	if err := d.ch.Write([]byte{cmdSetADCNumChans, n}); err != nil {
		return fault("set ADC channel count", err)
	}
	return nil
}

// SetADCSampleCount sets the number of samples averaged per reading. The
// register takes a 16-bit little-endian value.
//
// Known hardware quirk: the firmware ignores this setting and always samples
// 64 times. The command is still issued so the intent is on the wire, but do
// not expect other values to take effect.
func (d *Device) SetADCSampleCount(n uint16) error {
	if err := d.ch.Write([]byte{cmdSetADCNumSamples, byte(n), byte(n >> 8)}); err != nil {
		return fault("set ADC sample count", err)
	}
	return nil
}

// SetADCShift sets the post-accumulation shift (sample count is 2^shift).
func (d *Device) SetADCShift(n byte) error {
	if err := d.ch.Write([]byte{cmdSetADCShift, n}); err != nil {
		return fault("set ADC shift", err)
	}
	return nil
}

// ReadPushedButtonsMask returns the raw pushed-buttons register. Bit 6-n is
// set when button n currently reports pressed at the hardware level; this is
// a level sample, not an edge. Feed it to an EdgeDetector to obtain presses.
func (d *Device) ReadPushedButtonsMask() (byte, error) {
	if err := d.ch.Write([]byte{cmdGetPushedButtons}); err != nil {
		return 0, fault("get pushed buttons", err)
	}
	var buf [1]byte
	if err := d.ch.Read(buf[:]); err != nil {
		return 0, fault("get pushed buttons", err)
	}
	return buf[0], nil
}

// ReadADCChannel returns the raw ADC sample for a channel as a 2-byte
// little-endian value.
func (d *Device) ReadADCChannel(ch ADCChannel) (uint16, error) {
	cmd := byte(cmdReadADCChannel0)
	if ch == ADCExternal {
		cmd = cmdReadADCChannel1
	}
	if err := d.ch.Write([]byte{cmd}); err != nil {
		return 0, fault("read ADC channel", err)
	}
	var buf [2]byte
	if err := d.ch.Read(buf[:]); err != nil {
		return 0, fault("read ADC channel", err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}
