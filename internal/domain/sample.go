package domain

import (
	"fmt"
	"math"
	"time"
)

// Hardware sheet constants for the analog temperature sensor on A0.
// Exported data depends on these being reproduced exactly.
const (
	MaxADC            = 1023
	adcReference      = 5.0
	sensorOffsetVolts = 1.375
	sensorVoltsPerDeg = 0.0225

	// BinaryResolution is the rounding step for binary frames in °C
	BinaryResolution = 0.2
	// TextResolution is the rounding step for text frames in °C
	TextResolution = 0.1
)

// Sample represents a single decoded temperature frame
// Temperature is already rounded to the resolution of the protocol that produced it.
type Sample struct {
	Timestamp   time.Time
	Temperature float64
	Sequence    uint16
	HasSequence bool
}

// NewBinarySample converts a raw ADC code into a sample
// Business rule: the ADC is 10-bit, anything above 1023 is line noise
func NewBinarySample(adc, sequence uint16, at time.Time) (Sample, error) {
	if adc > MaxADC {
		return Sample{}, fmt.Errorf("%w: adc code %d out of range", ErrMalformedFrame, adc)
	}

	return Sample{
		Timestamp:   at,
		Temperature: TemperatureFromADC(adc),
		Sequence:    sequence,
		HasSequence: true,
	}, nil
}

// NewTextSample creates a sample from a temperature already expressed in °C
func NewTextSample(celsius float64, at time.Time) (Sample, error) {
	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return Sample{}, fmt.Errorf("%w: temperature %v is not finite", ErrMalformedFrame, celsius)
	}

	return Sample{
		Timestamp:   at,
		Temperature: RoundTo(celsius, TextResolution),
	}, nil
}

// TemperatureFromADC applies the sensor transfer function and rounds to 0.2 °C
func TemperatureFromADC(adc uint16) float64 {
	voltage := float64(adc) * (adcReference / MaxADC)
	raw := (voltage - sensorOffsetVolts) / sensorVoltsPerDeg
	return RoundTo(raw, BinaryResolution)
}

// RoundTo rounds v to the nearest multiple of step.
// Ties go to the even multiple and the result is trimmed to three decimals,
// so 0.2-steps come out as 20.2 rather than 20.200000000000003.
func RoundTo(v, step float64) float64 {
	r := math.RoundToEven(v/step) * step
	r = math.Round(r*1000) / 1000
	if r == 0 {
		// avoid -0, which formats as "-0.0"
		return 0
	}
	return r
}

// TimeLabel returns the wall-clock label used on the display axis
func (s Sample) TimeLabel() string {
	return s.Timestamp.Format("15:04:05")
}
