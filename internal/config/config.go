// Package config holds the settings of one chart reconstruction run and
// their JSON file form.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"rectarg/internal/labels"
	"rectarg/internal/page"
	"rectarg/internal/refdata"
	"rectarg/pkg/colorutil"
	"rectarg/pkg/geometry"
)

// Config is the complete, immutable run configuration.
type Config struct {
	ChartPath  string `json:"-"`
	DataPath   string `json:"-"`
	OutputPath string `json:"-"`

	TargetDPI    int     `json:"target_dpi,omitempty"`
	ReferenceDPI int     `json:"reference_dpi,omitempty"`
	Page         string  `json:"page"`
	MarginMM     float64 `json:"margin_mm"`

	Intent     string `json:"intent"`
	ColorSpace string `json:"color_space"`
	Background string `json:"background_color,omitempty"`

	// LabelSides maps an area name to side flags (L, T, R, B, ALL, NONE).
	LabelSides map[string]string `json:"label_axis_visible,omitempty"`

	FontPath     string  `json:"font,omitempty"`
	LabelFontMM  float64 `json:"label_font_mm"`
	FooterFontMM float64 `json:"footer_font_mm"`

	// MeasuredFiducials is x1,y1,...,x4,y4 in output pixels.
	MeasuredFiducials []float64 `json:"map_fids,omitempty"`

	PNG     bool   `json:"png"`
	Report  string `json:"report,omitempty"`
	Verbose bool   `json:"verbose"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Page:         "A4",
		MarginMM:     15,
		Intent:       colorutil.IntentDisplay.String(),
		ColorSpace:   refdata.SpaceLAB.String(),
		LabelFontMM:  2,
		FooterFontMM: 2,
	}
}

// Load reads a JSON configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the file-backed settings of c as JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every setting and that the input paths are set.
func (c Config) Validate() error {
	if c.ChartPath == "" || c.DataPath == "" {
		return fmt.Errorf("chart and data files are required")
	}
	if c.TargetDPI < 0 || c.ReferenceDPI < 0 {
		return fmt.Errorf("resolution must be positive")
	}
	if c.MarginMM < 0 {
		return fmt.Errorf("margin must not be negative, got %g", c.MarginMM)
	}
	if c.LabelFontMM <= 0 || c.FooterFontMM <= 0 {
		return fmt.Errorf("font heights must be positive, got %g and %g", c.LabelFontMM, c.FooterFontMM)
	}
	if _, err := page.Resolve(c.Page); err != nil {
		return err
	}
	if _, err := c.RenderIntent(); err != nil {
		return err
	}
	if _, err := c.Space(); err != nil {
		return err
	}
	if _, err := c.Overrides(); err != nil {
		return err
	}
	if _, err := c.Fiducials(); err != nil {
		return err
	}
	return nil
}

// RenderIntent returns the parsed intent.
func (c Config) RenderIntent() (colorutil.Intent, error) {
	return colorutil.ParseIntent(c.Intent)
}

// Space returns the parsed reference color space.
func (c Config) Space() (refdata.Space, error) {
	return refdata.ParseSpace(c.ColorSpace)
}

// PageSpec resolves the configured page.
func (c Config) PageSpec() (page.Spec, error) {
	return page.Resolve(c.Page)
}

// Overrides parses the label side overrides, keyed by upper-case name.
func (c Config) Overrides() (map[string]labels.Sides, error) {
	if len(c.LabelSides) == 0 {
		return nil, nil
	}
	out := make(map[string]labels.Sides, len(c.LabelSides))
	for name, flags := range c.LabelSides {
		s, err := labels.ParseSides(flags)
		if err != nil {
			return nil, fmt.Errorf("label override for %s: %w", name, err)
		}
		out[strings.ToUpper(name)] = s
	}
	return out, nil
}

// Fiducials returns the measured fiducial points, or nil when none are
// configured.
func (c Config) Fiducials() ([]geometry.Point2D, error) {
	if len(c.MeasuredFiducials) == 0 {
		return nil, nil
	}
	if len(c.MeasuredFiducials) != 8 {
		return nil, fmt.Errorf("measured fiducials need 8 numbers (x1,y1,...,x4,y4), got %d", len(c.MeasuredFiducials))
	}
	pts := make([]geometry.Point2D, 4)
	for i := range pts {
		pts[i] = geometry.NewPoint2D(c.MeasuredFiducials[2*i], c.MeasuredFiducials[2*i+1])
	}
	return pts, nil
}

// ParseLabelOverride splits NAME=FLAGS into its parts and validates the
// flags.
func ParseLabelOverride(s string) (name, flags string, err error) {
	name, flags, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	flags = strings.TrimSpace(flags)
	if !ok || name == "" || flags == "" {
		return "", "", fmt.Errorf("invalid label override %q (want NAME=FLAGS)", s)
	}
	if _, err := labels.ParseSides(flags); err != nil {
		return "", "", err
	}
	return name, flags, nil
}

// ParseFiducials parses comma- or space-separated numbers.
func ParseFiducials(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fiducial coordinate %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
