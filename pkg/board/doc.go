// Package board implements the byte-level protocol driver for the BitWizard
// RPi_UI expansion board (16x2 LCD, 6 momentary buttons, 2-channel ADC with
// temperature sensors) attached over I2C at address 0x4A.
//
// The package contains the command codec (Device), the rising-edge button
// detector (EdgeDetector), the ADC-to-degrees conversion (TemperatureReader)
// and a small two-line text driver (DisplayDriver).
//
// None of the types in this package are safe for concurrent use. The caller
// is responsible for serializing all access; in this repository every call
// happens inside the application controller's critical section. Do not add
// internal locking here: double invocation is a caller bug and must stay
// visible as one.
//
// The underlying I2C bus offers no transactional guarantee (no combined
// messages), so any I/O failure is treated as hardware-unrecoverable and
// surfaces as a *DeviceFault without retry.
package board
