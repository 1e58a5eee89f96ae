package proximity

import (
	"errors"
	"math"
	"testing"
)

func TestEstimate(t *testing.T) {
	calib := Calibration{ReferenceHeightCm: 170, FocalLength: 600}

	tests := []struct {
		name        string
		pixelHeight float64
		want        float64
	}{
		{name: "reference case", pixelHeight: 100, want: 1020},
		{name: "person fills 510px", pixelHeight: 510, want: 200},
		{name: "tall box", pixelHeight: 1020, want: 100},
		{name: "zero height sentinel", pixelHeight: 0, want: 0},
		{name: "negative height sentinel", pixelHeight: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.pixelHeight, calib)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Estimate(%v) = %v, want %v", tt.pixelHeight, got, tt.want)
			}
		})
	}
}

func TestEstimate_ZeroForAnyCalibration(t *testing.T) {
	for _, c := range []Calibration{
		{ReferenceHeightCm: 170, FocalLength: 600},
		{ReferenceHeightCm: 1, FocalLength: 1},
		{ReferenceHeightCm: 190, FocalLength: 1450.5},
	} {
		if got := Estimate(0, c); got != 0 {
			t.Errorf("Estimate(0, %+v) = %v, want 0", c, got)
		}
	}
}

func TestEstimate_StrictlyDecreasing(t *testing.T) {
	calib := DefaultCalibration()
	prev := math.Inf(1)
	for p := 1.0; p <= 2000; p += 7 {
		d := Estimate(p, calib)
		if !(d < prev) {
			t.Fatalf("Estimate(%v) = %v, not below previous %v", p, d, prev)
		}
		prev = d
	}
}

func TestFocalLengthFor(t *testing.T) {
	// A 170cm person 300cm away measured at 340px.
	f, err := FocalLengthFor(340, 300, 170)
	if err != nil {
		t.Fatalf("FocalLengthFor: %v", err)
	}
	if math.Abs(f-600) > 1e-9 {
		t.Errorf("focal length = %v, want 600", f)
	}

	// Round trip: the calibrated constant reproduces the measured distance.
	if d := Estimate(340, Calibration{ReferenceHeightCm: 170, FocalLength: f}); math.Abs(d-300) > 1e-9 {
		t.Errorf("round trip distance = %v, want 300", d)
	}

	bad := [][3]float64{{0, 300, 170}, {340, 0, 170}, {340, 300, 0}, {-1, 300, 170}}
	for _, in := range bad {
		if _, err := FocalLengthFor(in[0], in[1], in[2]); !errors.Is(err, ErrInvalidMeasurement) {
			t.Errorf("FocalLengthFor(%v) err = %v, want ErrInvalidMeasurement", in, err)
		}
	}
}

func TestCalibrationValidate(t *testing.T) {
	if err := DefaultCalibration().Validate(); err != nil {
		t.Errorf("default calibration invalid: %v", err)
	}
	for _, c := range []Calibration{
		{ReferenceHeightCm: 0, FocalLength: 600},
		{ReferenceHeightCm: 170, FocalLength: -1},
		{ReferenceHeightCm: math.NaN(), FocalLength: 600},
	} {
		if err := c.Validate(); !errors.Is(err, ErrInvalidCalibration) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidCalibration", c, err)
		}
	}
}

func TestDistanceCategory(t *testing.T) {
	tests := []struct {
		cm   float64
		want string
	}{
		{0, "unknown"},
		{30, "very close"},
		{70, "close"},
		{150, "nearby"},
		{250, "moderate"},
		{1020, "far"},
	}

	for _, tt := range tests {
		if got := DistanceCategory(tt.cm); got != tt.want {
			t.Errorf("DistanceCategory(%v) = %q, want %q", tt.cm, got, tt.want)
		}
	}
}
