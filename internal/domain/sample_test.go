package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestTemperatureFromADC(t *testing.T) {
	tests := []struct {
		adc  uint16
		want float64
	}{
		{adc: 0, want: -61.2},
		{adc: 1, want: -60.8},
		{adc: 61, want: -47.8},
		{adc: 281, want: 0.0},
		{adc: 300, want: 4.0},
		{adc: 373, want: 20.0},
		{adc: 512, want: 50.2},
		{adc: 700, want: 91.0},
		{adc: 1023, want: 161.2},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := TemperatureFromADC(tt.adc); got != tt.want {
				t.Errorf("TemperatureFromADC(%d) = %v, want %v", tt.adc, got, tt.want)
			}
		})
	}
}

func TestTemperatureFromADC_MatchesTransferFunction(t *testing.T) {
	for adc := 0; adc <= MaxADC; adc++ {
		raw := (float64(adc)*5.0/1023.0 - 1.375) / 0.0225
		want := math.Round(math.RoundToEven(raw/0.2)*0.2*1000) / 1000
		if want == 0 {
			want = 0
		}

		got := TemperatureFromADC(uint16(adc))
		if got != want {
			t.Fatalf("adc %d: got %v, want %v", adc, got, want)
		}

		// every value must sit on the 0.2 grid
		steps := got / BinaryResolution
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			t.Fatalf("adc %d: %v is not a multiple of %v", adc, got, BinaryResolution)
		}
	}
}

func TestTemperatureFromADC_NoNegativeZero(t *testing.T) {
	got := TemperatureFromADC(281)
	if math.Signbit(got) {
		t.Errorf("expected +0, got %v with sign bit set", got)
	}
}

func TestNewBinarySample(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		adc     uint16
		seq     uint16
		wantErr bool
	}{
		{name: "lowest code", adc: 0, seq: 0},
		{name: "highest code", adc: 1023, seq: 65535},
		{name: "out of range code", adc: 1024, seq: 7, wantErr: true},
		{name: "line noise", adc: 0xFFFF, seq: 7, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewBinarySample(tt.adc, tt.seq, at)

			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("expected ErrMalformedFrame, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !s.HasSequence || s.Sequence != tt.seq {
				t.Errorf("expected sequence %d, got %d (has=%v)", tt.seq, s.Sequence, s.HasSequence)
			}
			if !s.Timestamp.Equal(at) {
				t.Errorf("expected timestamp %v, got %v", at, s.Timestamp)
			}
		})
	}
}

func TestNewTextSample(t *testing.T) {
	tests := []struct {
		name    string
		celsius float64
		want    float64
		wantErr bool
	}{
		{name: "already one decimal", celsius: 21.5, want: 21.5},
		{name: "rounds down", celsius: 21.54, want: 21.5},
		{name: "rounds up", celsius: 21.56, want: 21.6},
		{name: "negative", celsius: -3.14, want: -3.1},
		{name: "tiny negative is zero", celsius: -0.04, want: 0},
		{name: "nan", celsius: math.NaN(), wantErr: true},
		{name: "inf", celsius: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTextSample(tt.celsius, time.Now())

			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("expected ErrMalformedFrame, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Temperature != tt.want {
				t.Errorf("got %v, want %v", s.Temperature, tt.want)
			}
			if math.Signbit(s.Temperature) && s.Temperature == 0 {
				t.Error("got negative zero")
			}
			if s.HasSequence {
				t.Error("text samples carry no sequence")
			}
		})
	}
}

func TestSample_TimeLabel(t *testing.T) {
	s := Sample{Timestamp: time.Date(2024, 3, 1, 9, 5, 7, 999, time.UTC)}
	if got := s.TimeLabel(); got != "09:05:07" {
		t.Errorf("TimeLabel() = %q, want %q", got, "09:05:07")
	}
}
