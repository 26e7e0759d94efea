// Package main provides the rectarg command: it reconstructs a color chart
// image from an ArgyllCMS .cht layout and CGATS reference data.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rectarg/internal/app"
	"rectarg/internal/config"
	"rectarg/internal/page"
	"rectarg/internal/version"
)

// flags holds raw command-line values before they are merged into a
// config.Config.
type flags struct {
	configPath   string
	targetDPI    int
	referenceDPI int
	page         string
	margin       float64
	background   string
	intent       string
	colorSpace   string
	labelSides   []string
	font         string
	fontMM       []float64
	png          bool
	mapFids      string
	report       string
	verbose      bool
}

func main() {
	log.SetFlags(log.LstdFlags)

	var f flags
	rootCmd := &cobra.Command{
		Use:   "rectarg <chart.cht> <data.cie> <output.tif>",
		Short: "Reconstruct a color target image from layout and reference data",
		Long: `rectarg renders a 16-bit TIFF of a color calibration target from an
ArgyllCMS chart layout (.cht) and a CGATS/IT8 reference file (.cie, .txt),
with patch colors converted from LAB or XYZ (D50) to sRGB.`,
		Args:    cobra.ExactArgs(3),
		Version: version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd, args)
			if err != nil {
				return err
			}
			res, err := app.Run(cfg, log.Default())
			if res != nil {
				res.Print(os.Stdout, cfg.Verbose)
			}
			return err
		},
		SilenceUsage: true,
	}

	fl := rootCmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "JSON file with default settings")
	fl.IntVar(&f.targetDPI, "target-dpi", 0, "output resolution (default 300)")
	fl.IntVar(&f.referenceDPI, "reference-dpi", 0, "native resolution of the layout (default: detect from page fit)")
	fl.StringVar(&f.page, "page", "A4", "page used for resolution detection ("+strings.Join(page.ListSpecs(), ", ")+" or a .json spec)")
	fl.Float64Var(&f.margin, "margin", 15, "margin around the chart in mm")
	fl.StringVar(&f.background, "background-color", "", "patch ID whose color fills the background")
	fl.StringVar(&f.intent, "intent", "display", "color intent: absolute or display")
	fl.StringVar(&f.colorSpace, "color-space", "lab", "reference color space: lab or xyz")
	fl.StringArrayVar(&f.labelSides, "label-axis-visible", nil, "label sides per area, NAME=L|T|R|B|ALL|NONE (repeatable)")
	fl.StringVar(&f.font, "font", "", "TrueType/OpenType font for labels and footer")
	fl.Float64SliceVar(&f.fontMM, "font-mm", nil, "label and footer text heights in mm (LABEL,FOOTER)")
	fl.BoolVar(&f.png, "png", false, "also write an 8-bit PNG preview")
	fl.StringVar(&f.mapFids, "map-fids", "", "measured fiducial pixels x1,y1,x2,y2,x3,y3,x4,y4 (affine mode)")
	fl.StringVar(&f.report, "report", "", "write an .xlsx patch report to this path")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print diagnostics")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// config merges the config file, if any, with the flags the user set.
func (f *flags) config(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ChartPath, cfg.DataPath, cfg.OutputPath = args[0], args[1], args[2]

	changed := cmd.Flags().Changed
	if changed("target-dpi") {
		cfg.TargetDPI = f.targetDPI
	}
	if changed("reference-dpi") {
		cfg.ReferenceDPI = f.referenceDPI
	}
	if changed("page") {
		cfg.Page = f.page
	}
	if changed("margin") {
		cfg.MarginMM = f.margin
	}
	if changed("background-color") {
		cfg.Background = f.background
	}
	if changed("intent") {
		cfg.Intent = f.intent
	}
	if changed("color-space") {
		cfg.ColorSpace = f.colorSpace
	}
	if changed("font") {
		cfg.FontPath = f.font
	}
	if changed("font-mm") {
		if len(f.fontMM) != 2 {
			return cfg, fmt.Errorf("--font-mm needs two values (LABEL,FOOTER), got %d", len(f.fontMM))
		}
		cfg.LabelFontMM, cfg.FooterFontMM = f.fontMM[0], f.fontMM[1]
	}
	if changed("png") {
		cfg.PNG = f.png
	}
	if changed("report") {
		cfg.Report = f.report
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if changed("map-fids") {
		vals, err := config.ParseFiducials(f.mapFids)
		if err != nil {
			return cfg, err
		}
		cfg.MeasuredFiducials = vals
	}
	for _, s := range f.labelSides {
		name, sides, err := config.ParseLabelOverride(s)
		if err != nil {
			return cfg, err
		}
		if cfg.LabelSides == nil {
			cfg.LabelSides = make(map[string]string)
		}
		cfg.LabelSides[name] = sides
	}

	if _, err := os.Stat(cfg.ChartPath); err != nil {
		return cfg, fmt.Errorf("chart file not found: %s", cfg.ChartPath)
	}
	if _, err := os.Stat(cfg.DataPath); err != nil {
		return cfg, fmt.Errorf("data file not found: %s", cfg.DataPath)
	}
	return cfg, cfg.Validate()
}
