// Package page provides paper size definitions used to infer the native
// resolution of a chart layout.
package page

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// StandardDPIs are the resolutions considered when inferring the native
// resolution of a layout, in ascending order.
var StandardDPIs = []int{72, 100, 200, 300, 600, 1200}

// Spec defines a paper size.
type Spec interface {
	Name() string
	DimensionsMM() (widthMM, heightMM float64)
	PixelSize(dpi int) (width, height int)
	Validate() error
}

// BaseSpec provides a common implementation of Spec. Pixels holds exact
// portrait pixel sizes for resolutions where the nominal value differs
// from a plain mm conversion.
type BaseSpec struct {
	SpecName string         `json:"name"`
	WidthMM  float64        `json:"width_mm"`
	HeightMM float64        `json:"height_mm"`
	Pixels   map[int][2]int `json:"pixels,omitempty"`
}

func (s *BaseSpec) Name() string {
	return s.SpecName
}

func (s *BaseSpec) DimensionsMM() (widthMM, heightMM float64) {
	return s.WidthMM, s.HeightMM
}

// PixelSize returns the portrait width and height in pixels at dpi.
func (s *BaseSpec) PixelSize(dpi int) (width, height int) {
	if px, ok := s.Pixels[dpi]; ok {
		return px[0], px[1]
	}
	return int(math.Round(s.WidthMM / 25.4 * float64(dpi))),
		int(math.Round(s.HeightMM / 25.4 * float64(dpi)))
}

func (s *BaseSpec) Validate() error {
	if s.SpecName == "" {
		return fmt.Errorf("page spec name is required")
	}
	if s.WidthMM <= 0 || s.HeightMM <= 0 {
		return fmt.Errorf("page dimensions must be positive")
	}
	for dpi, px := range s.Pixels {
		if dpi <= 0 || px[0] <= 0 || px[1] <= 0 {
			return fmt.Errorf("invalid pixel size %v at %d dpi", px, dpi)
		}
	}
	return nil
}

// Fits reports whether a w x h pixel extent, plus marginPx on every side,
// fits the page at dpi in portrait or landscape orientation.
func Fits(s Spec, dpi int, w, h float64, marginPx int) bool {
	pw, ph := s.PixelSize(dpi)
	tw := w + 2*float64(marginPx)
	th := h + 2*float64(marginPx)
	portrait := tw <= float64(pw) && th <= float64(ph)
	landscape := tw <= float64(ph) && th <= float64(pw)
	return portrait || landscape
}

// SaveToFile saves the spec to a JSON file.
func (s *BaseSpec) SaveToFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a spec from a JSON file.
func LoadFromFile(path string) (*BaseSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec BaseSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse page spec: %w", err)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid page spec: %w", err)
	}

	return &spec, nil
}

// Registry of known page specs, keyed by upper-case name.
var registry = make(map[string]Spec)

// Register adds a page spec to the registry.
func Register(spec Spec) {
	registry[strings.ToUpper(spec.Name())] = spec
}

// GetSpec returns a page spec by name (case-insensitive), or nil.
func GetSpec(name string) Spec {
	if spec, ok := registry[strings.ToUpper(name)]; ok {
		return spec
	}
	return nil
}

// Resolve returns the registered spec for name, or loads it from a JSON
// file when name ends in .json.
func Resolve(name string) (Spec, error) {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return LoadFromFile(name)
	}
	if spec := GetSpec(name); spec != nil {
		return spec, nil
	}
	return nil, fmt.Errorf("unknown page %q (known: %s)", name, strings.Join(ListSpecs(), ", "))
}

// ListSpecs returns all registered page spec names, sorted.
func ListSpecs() []string {
	names := make([]string, 0, len(registry))
	for _, spec := range registry {
		names = append(names, spec.Name())
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(A4Spec())
	Register(A3Spec())
	Register(LetterSpec())
}
