package board

import "time"

// DeviceAddress is the board's fixed 7-bit I2C address.
const DeviceAddress = 0x4A

// Board command codes. Values are fixed by the RPi_UI firmware (DIO
// protocol); see the BitWizard "User Interface" documentation.
const (
	cmdDisplayText      = 0x00
	cmdClearDisplay     = 0x10
	cmdSetTextCursor    = 0x11
	cmdSetContrast      = 0x12
	cmdReinit           = 0x14
	cmdGetPushedButtons = 0x30
	cmdReadADCChannel0  = 0x68
	cmdReadADCChannel1  = 0x69
	cmdSetADCChannel0   = 0x70
	cmdSetADCChannel1   = 0x71
	cmdSetADCNumChans   = 0x80
	cmdSetADCNumSamples = 0x81
	cmdSetADCShift      = 0x82
)

// Command 0x31 ("get pushed buttons, unique") exists in the firmware but is
// too buggy to rely on; its semantics are reproduced in software by
// EdgeDetector on top of the raw 0x30 mask.

// Sensor-select codes for ConfigureADCChannel (1.1V reference).
const (
	SensorInternal1V1 = 0xC7
	SensorExternal1V1 = 0xC6
)

// SettleDelay is the minimum wait the hardware requires after a reinit
// command before it accepts further commands.
const SettleDelay = 600 * time.Millisecond

// DefaultContrast is the LCD contrast level applied by Open.
const DefaultContrast = 0x50

// ADC base configuration applied by Open. The sample count is 2^shift.
const (
	adcShift      = 6
	adcNumSamples = 64
	adcChannels   = 2
)
