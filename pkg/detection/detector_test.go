package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-proximity/pkg/proximity"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("DefaultConfig: ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}
	if len(cfg.ClassIDs) != 1 || cfg.ClassIDs[0] != PersonClassID {
		t.Errorf("DefaultConfig: ClassIDs = %v, want [person]", cfg.ClassIDs)
	}
}

func TestConfigApply(t *testing.T) {
	dets := []proximity.RawDetection{
		{ClassID: 0, Confidence: 0.9},
		{ClassID: 2, Confidence: 0.9},
		{ClassID: 0, Confidence: 0.2},
		{ClassID: 16, Confidence: 0.6},
	}

	tests := []struct {
		name string
		cfg  Config
		want []int // indices into dets
	}{
		{name: "person only", cfg: Config{ConfidenceThresh: 0.5, ClassIDs: []int{0}}, want: []int{0}},
		{name: "all classes", cfg: Config{ConfidenceThresh: 0.5}, want: []int{0, 1, 3}},
		{name: "person and dog", cfg: Config{ConfidenceThresh: 0.1, ClassIDs: []int{0, 16}}, want: []int{0, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]proximity.RawDetection(nil), dets...)
			got := tc.cfg.apply(in)

			var want []proximity.RawDetection
			for _, i := range tc.want {
				want = append(want, dets[i])
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("apply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassLookup(t *testing.T) {
	if len(COCOClasses) != 80 {
		t.Fatalf("COCOClasses has %d entries, want 80", len(COCOClasses))
	}
	if id, ok := ClassID("person"); !ok || id != PersonClassID {
		t.Errorf("ClassID(person) = %d, %v", id, ok)
	}
	if id, ok := ClassID("chair"); !ok || ClassName(id) != "chair" {
		t.Errorf("ClassID(chair) = %d, %v", id, ok)
	}
	if _, ok := ClassID("unicorn"); ok {
		t.Error("ClassID(unicorn) should not exist")
	}
	if ClassName(-1) != "unknown" || ClassName(80) != "unknown" {
		t.Error("out of range ids should be unknown")
	}
	if !IsPerson(0) || IsPerson(1) {
		t.Error("IsPerson mismatch")
	}
}

func TestMock(t *testing.T) {
	want := proximity.RawDetection{ClassID: 0, Confidence: 0.8, Box: proximity.Box(0, 0, 10, 100)}
	m := NewMock(want)
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))

	for i := 0; i < 3; i++ {
		got, err := m.Detect(context.Background(), frame)
		if err != nil || len(got) != 1 || got[0] != want {
			t.Fatalf("Detect = %v, %v", got, err)
		}
	}
	if m.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", m.Calls())
	}

	m.Close()
	if _, err := m.Detect(context.Background(), frame); !errors.Is(err, ErrClosed) {
		t.Errorf("Detect after Close = %v, want ErrClosed", err)
	}
}

func TestScriptedMock(t *testing.T) {
	first := []proximity.RawDetection{{ClassID: 0, Confidence: 0.9}}
	m := NewScriptedMock(first, nil)
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))

	got, _ := m.Detect(context.Background(), frame)
	if len(got) != 1 {
		t.Errorf("call 1: got %d detections, want 1", len(got))
	}
	got, _ = m.Detect(context.Background(), frame)
	if len(got) != 0 {
		t.Errorf("call 2: got %d detections, want 0", len(got))
	}
	got, _ = m.Detect(context.Background(), frame)
	if got == nil || len(got) != 0 {
		t.Errorf("call 3: got %v, want empty", got)
	}
}
