// Package environment normalizes ambient readings into the coefficients
// that govern sound propagation: speed of sound and air absorption.
package environment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// ErrValidation is returned for physically meaningless readings.
var ErrValidation = errors.New("environment: validation failed")

// Model constants.
const (
	// Dry-air speed of sound at 0 °C (m/s) and its temperature slope.
	baseSpeedOfSound = 331.3
	speedPerDegree   = 0.606

	// humidityCorrection is the fractional speed increase at 100 % relative humidity.
	humidityCorrection = 0.0016

	// Air absorption at 1 kHz, 50 % RH, sea level (dB/m) and its frequency exponent.
	airAbsorptionRef      = 0.005
	airAbsorptionExponent = 1.7

	// windScattering is the extra excess attenuation per m/s of wind.
	windScattering = 0.02

	// StandardPressure is sea-level pressure in hPa.
	StandardPressure = 1013.25

	absoluteZeroC = -273.15
)

// Conditions is a snapshot of ambient physical state.
type Conditions struct {
	TemperatureC    float64 `json:"temperature_celsius" yaml:"temperature_celsius"`
	HumidityPercent float64 `json:"humidity_percent" yaml:"humidity_percent"`
	WindSpeedMPS    float64 `json:"wind_speed_mps" yaml:"wind_speed_mps"`
	PressureHPa     float64 `json:"pressure_hpa" yaml:"pressure_hpa"`
}

// Standard returns 20 °C, 50 % RH, still air at sea-level pressure.
func Standard() Conditions {
	return Conditions{TemperatureC: 20, HumidityPercent: 50, WindSpeedMPS: 0, PressureHPa: StandardPressure}
}

// Validate rejects out-of-range readings. Values are never clamped.
func (c Conditions) Validate() error {
	if !vecmath.IsFinite(c.TemperatureC) || c.TemperatureC < absoluteZeroC {
		return fmt.Errorf("%w: temperature %v °C", ErrValidation, c.TemperatureC)
	}
	if !vecmath.IsFinite(c.HumidityPercent) || c.HumidityPercent < 0 || c.HumidityPercent > 100 {
		return fmt.Errorf("%w: humidity %v%% outside [0,100]", ErrValidation, c.HumidityPercent)
	}
	if !vecmath.IsFinite(c.WindSpeedMPS) || c.WindSpeedMPS < 0 {
		return fmt.Errorf("%w: wind speed %v m/s must be >= 0", ErrValidation, c.WindSpeedMPS)
	}
	if !vecmath.IsFinite(c.PressureHPa) || c.PressureHPa <= 0 {
		return fmt.Errorf("%w: pressure %v hPa must be > 0", ErrValidation, c.PressureHPa)
	}
	return nil
}

// SpeedOfSound returns (331.3 + 0.606·T)·(1 + 0.0016·H/100) m/s.
// Pressure has no first-order effect in an ideal gas and is ignored.
func SpeedOfSound(c Conditions) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	return (baseSpeedOfSound + speedPerDegree*c.TemperatureC) * (1 + humidityCorrection*c.HumidityPercent/100), nil
}

// AtmosphericAbsorption returns the air attenuation coefficient in dB/m:
//
//	0.005 · (f/1000)^1.7 · (0.5 + H/100) · (1013.25/P) · (1 + 0.02·wind)
//
// It is strictly increasing in frequency and humidity.
func AtmosphericAbsorption(c Conditions, frequency float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if !vecmath.IsFinite(frequency) || frequency <= 0 {
		return 0, fmt.Errorf("%w: frequency %v Hz must be > 0", ErrValidation, frequency)
	}
	return airAbsorptionRef *
		math.Pow(frequency/1000, airAbsorptionExponent) *
		(0.5 + c.HumidityPercent/100) *
		(StandardPressure / c.PressureHPa) *
		(1 + windScattering*c.WindSpeedMPS), nil
}

// Attenuation returns the air loss in dB over distance meters.
func Attenuation(c Conditions, frequency, distance float64) (float64, error) {
	a, err := AtmosphericAbsorption(c, frequency)
	if err != nil {
		return 0, err
	}
	if distance < 0 {
		distance = 0
	}
	return a * distance, nil
}

// AttenuationFactor returns the linear energy factor 10^(-dB/10) over distance.
func AttenuationFactor(c Conditions, frequency, distance float64) (float64, error) {
	db, err := Attenuation(c, frequency, distance)
	if err != nil {
		return 0, err
	}
	return math.Pow(10, -db/10), nil
}

// Hash returns a content hash used as part of profile cache keys.
func (c Conditions) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []float64{c.TemperatureC, c.HumidityPercent, c.WindSpeedMPS, c.PressureHPa} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}
