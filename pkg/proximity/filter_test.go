package proximity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	raw := []RawDetection{
		{ClassID: 0, Confidence: 0.49, Box: Box(0, 0, 10, 10)},
		{ClassID: 0, Confidence: 0.5, Box: Box(1, 1, 11, 11)},
		{ClassID: 2, Confidence: 0.9, Box: Box(2, 2, 12, 12)},
		{ClassID: 0, Confidence: 0.95, Box: Box(3, 3, 13, 13)},
	}

	got := Filter(raw, 0.5, 0)
	want := []RawDetection{raw[1], raw[3]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Filter mismatch (-want +got):\n%s", diff)
	}

	// Input is untouched.
	if len(raw) != 4 || raw[0].Confidence != 0.49 {
		t.Errorf("Filter modified its input: %+v", raw)
	}
}

func TestFilter_Empty(t *testing.T) {
	for _, in := range [][]RawDetection{nil, {}} {
		got := Filter(in, 0.5, 0)
		if got == nil || len(got) != 0 {
			t.Errorf("Filter(%v) = %#v, want empty non-nil slice", in, got)
		}
	}
}

func TestFilter_Deterministic(t *testing.T) {
	raw := []RawDetection{
		{ClassID: 0, Confidence: 0.7, Box: Box(5, 5, 50, 150)},
		{ClassID: 0, Confidence: 0.6, Box: Box(100, 10, 160, 300)},
		{ClassID: 0, Confidence: 0.8, Box: Box(200, 20, 260, 90)},
	}
	first := Filter(raw, 0.5, 0)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Filter(raw, 0.5, 0)); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
}

func TestObserve(t *testing.T) {
	calib := Calibration{ReferenceHeightCm: 170, FocalLength: 600}
	kept := []RawDetection{
		{ClassID: 0, Confidence: 0.8, Box: Box(10, 20, 60, 120)},
		{ClassID: 0, Confidence: 0.6, Box: Box(10, 40, 60, 40)},
	}

	t.Run("sentinel keeps zero height", func(t *testing.T) {
		got := Observe(kept, calib, ZeroHeightSentinel)
		want := []PersonObservation{
			{Box: kept[0].Box, DistanceCm: 1020, Confidence: 0.8},
			{Box: kept[1].Box, DistanceCm: 0, Confidence: 0.6},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Observe mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ignore drops zero height", func(t *testing.T) {
		got := Observe(kept, calib, ZeroHeightIgnore)
		if len(got) != 1 || got[0].DistanceCm != 1020 {
			t.Errorf("Observe = %+v, want single 1020cm observation", got)
		}
	})
}

func TestParseZeroHeightMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ZeroHeightMode
		wantErr bool
	}{
		{"", ZeroHeightSentinel, false},
		{"sentinel", ZeroHeightSentinel, false},
		{"IGNORE", ZeroHeightIgnore, false},
		{"far", ZeroHeightIgnore, false},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseZeroHeightMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseZeroHeightMode(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseZeroHeightMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if ZeroHeightIgnore.String() != "ignore" || ZeroHeightSentinel.String() != "sentinel" {
		t.Error("String() does not round trip")
	}
}

func TestBox(t *testing.T) {
	b := Box(50, 80, 10, 20)
	if !b.Valid() || b.X1 != 10 || b.Y1 != 20 || b.Width() != 40 || b.Height() != 60 {
		t.Errorf("Box did not normalise corners: %+v", b)
	}
	if r := b.Rect(); r.Dx() != 40 || r.Dy() != 60 {
		t.Errorf("Rect = %v", r)
	}
	if FromRect(b.Rect()) != b {
		t.Error("FromRect(Rect()) is not the identity")
	}
}
