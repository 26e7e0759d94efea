package config

import (
	"os"
	"path/filepath"
	"testing"

	"rectarg/internal/labels"
	"rectarg/pkg/colorutil"
)

func valid() Config {
	c := Default()
	c.ChartPath = "chart.cht"
	c.DataPath = "data.cie"
	return c
}

func TestDefaultIsValid(t *testing.T) {
	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	intent, _ := valid().RenderIntent()
	if intent != colorutil.IntentDisplay {
		t.Errorf("default intent = %s", intent)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no chart", func(c *Config) { c.ChartPath = "" }},
		{"negative dpi", func(c *Config) { c.TargetDPI = -1 }},
		{"negative margin", func(c *Config) { c.MarginMM = -2 }},
		{"zero font", func(c *Config) { c.LabelFontMM = 0 }},
		{"bad page", func(c *Config) { c.Page = "B5" }},
		{"bad intent", func(c *Config) { c.Intent = "perceptual" }},
		{"rgb space", func(c *Config) { c.ColorSpace = "rgb" }},
		{"bad override", func(c *Config) { c.LabelSides = map[string]string{"A": "XYZ"} }},
		{"short fiducials", func(c *Config) { c.MeasuredFiducials = []float64{1, 2, 3} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	data := `{"target_dpi": 600, "intent": "absolute", "label_axis_visible": {"y": "TRB"}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TargetDPI != 600 || c.MarginMM != 15 || c.Page != "A4" {
		t.Errorf("loaded %+v", c)
	}
	ov, err := c.Overrides()
	if err != nil {
		t.Fatal(err)
	}
	if ov["Y"] != labels.Top|labels.Right|labels.Bottom {
		t.Errorf("override Y = %s", ov["Y"])
	}
}

func TestSaveLoadKeepsSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	c := valid()
	c.Background = "GS00"
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Background != "GS00" {
		t.Errorf("background = %q", back.Background)
	}
	if back.ChartPath != "" {
		t.Error("input paths must not be persisted")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected read error")
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseLabelOverride(t *testing.T) {
	name, flags, err := ParseLabelOverride(" Y = tb ")
	if err != nil || name != "Y" || flags != "tb" {
		t.Errorf("got %q %q %v", name, flags, err)
	}
	for _, bad := range []string{"Y", "=ALL", "Y=", "Y=Q"} {
		if _, _, err := ParseLabelOverride(bad); err == nil {
			t.Errorf("ParseLabelOverride(%q) accepted", bad)
		}
	}
}

func TestFiducials(t *testing.T) {
	vals, err := ParseFiducials("10,20, 110,20;110,220 10,220")
	if err != nil {
		t.Fatal(err)
	}
	c := valid()
	c.MeasuredFiducials = vals
	pts, err := c.Fiducials()
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 4 || pts[2].X != 110 || pts[2].Y != 220 {
		t.Errorf("points = %v", pts)
	}
	if _, err := ParseFiducials("1,x"); err == nil {
		t.Error("expected error for non-numeric coordinate")
	}
}
