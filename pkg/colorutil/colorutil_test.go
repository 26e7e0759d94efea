package colorutil

import (
	"math"
	"testing"
)

func TestBradfordMapsWhite(t *testing.T) {
	got := bradfordD50ToD65.Apply(D50)
	for i := range got {
		if math.Abs(got[i]-D65[i]) > 1e-9 {
			t.Errorf("channel %d = %v, want %v", i, got[i], D65[i])
		}
	}
}

func TestLabWhiteIsWhite(t *testing.T) {
	for _, intent := range []Intent{IntentDisplay, IntentAbsolute} {
		rgb := Pipeline{Intent: intent}.FromLab([3]float64{100, 0, 0})
		for i, v := range rgb {
			if math.Abs(v-1) > 1e-3 {
				t.Errorf("%s channel %d = %v, want ~1", intent, i, v)
			}
		}
		q := rgb.RGBA64()
		if q.R < 65500 || q.G < 65500 || q.B < 65500 {
			t.Errorf("%s quantized = %+v", intent, q)
		}
	}
}

func TestLabBlack(t *testing.T) {
	rgb := Pipeline{}.FromLab([3]float64{0, 0, 0})
	if rgb.RGBA64() != (Black) {
		t.Errorf("black = %+v", rgb.RGBA64())
	}
}

func TestDisplayClips(t *testing.T) {
	// Saturated green lies outside sRGB: linear red goes negative.
	lab := [3]float64{60, -110, 60}
	abs := Pipeline{Intent: IntentAbsolute}.FromLab(lab)
	if abs[0] >= 0 {
		t.Fatalf("expected negative linear red, got %v", abs[0])
	}
	disp := Pipeline{Intent: IntentDisplay}.FromLab(lab)
	for i, v := range disp {
		if v < 0 || v > 1 {
			t.Errorf("display channel %d = %v outside [0,1]", i, v)
		}
	}
	if Quantize(abs[0]) != 0 {
		t.Errorf("negative value should saturate to 0")
	}
}

func TestEncodeSRGB(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-0.1, 0},
		{0, 0},
		{0.002, 0.002 * 12.92},
		{1, 1},
		{0.214041, 0.5},
	}
	for _, tt := range tests {
		if got := EncodeSRGB(tt.in); math.Abs(got-tt.want) > 1e-4 {
			t.Errorf("EncodeSRGB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want uint16
	}{
		{-1, 0},
		{0, 0},
		{0.5, 32768},
		{1, 65535},
		{2, 65535},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseIntent(t *testing.T) {
	if i, err := ParseIntent("Absolute"); err != nil || i != IntentAbsolute {
		t.Errorf("ParseIntent(Absolute) = %v, %v", i, err)
	}
	if i, _ := ParseIntent(""); i != IntentDisplay {
		t.Errorf("default intent = %v", i)
	}
	if _, err := ParseIntent("perceptual"); err == nil {
		t.Error("unknown intent accepted")
	}
}
