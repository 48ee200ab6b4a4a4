package board

// ADCChannel selects one of the board's two ADC inputs.
type ADCChannel uint8

const (
	// ADCInternal is channel 0, the sensor on the board itself.
	ADCInternal ADCChannel = 0

	// ADCExternal is channel 1, the externally attached sensor.
	ADCExternal ADCChannel = 1
)

// Temperature conversion constants (1.1V reference, 10-bit ADC, LM35-class
// sensor at 10mV/°C with a 50 degree offset). See the BitWizard temperature
// sensor example for the derivation.
const (
	referenceVoltage  = 1.1
	voltsPerDegree    = 0.01
	adcMaxValue       = 1023
	temperatureOffset = 50
)

// RawToTemperature converts a raw ADC sample into degrees Celsius. The
// conversion is deterministic and linear: raw 0 maps to -50, raw 1023 to 60.
func RawToTemperature(raw uint16) float64 {
	return (float64(raw)*referenceVoltage/voltsPerDegree)/adcMaxValue - temperatureOffset
}

// TemperatureReader reads calibrated temperatures from the board's ADC
// channels. Channel selection only changes which hardware command is issued;
// the conversion formula is identical for both sensors.
//
// Not safe for concurrent use; see the package comment.
type TemperatureReader struct {
	dev *Device
}

// NewTemperatureReader returns a reader over dev.
func NewTemperatureReader(dev *Device) *TemperatureReader {
	return &TemperatureReader{dev: dev}
}

// Temperature samples ch and returns the value in degrees Celsius.
func (r *TemperatureReader) Temperature(ch ADCChannel) (float64, error) {
	raw, err := r.dev.ReadADCChannel(ch)
	if err != nil {
		return 0, err
	}
	return RawToTemperature(raw), nil
}
