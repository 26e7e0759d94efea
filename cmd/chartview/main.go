// Command chartview renders a chart in memory and shows it in a window.
package main

import (
	"flag"
	"fmt"
	goimage "image"
	"log"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"rectarg/internal/app"
	"rectarg/internal/config"
	"rectarg/internal/image"
)

func main() {
	dpi := flag.Int("dpi", 100, "render resolution")
	cfgPath := flag.String("config", "", "JSON file with settings")
	flag.Parse()

	var (
		img    goimage.Image
		status string
	)
	switch flag.NArg() {
	case 1:
		img, status = loadRendered(flag.Arg(0))
	case 2:
		img, status = renderChart(*cfgPath, *dpi, flag.Arg(0), flag.Arg(1))
	default:
		fmt.Println("Usage: chartview [-dpi N] [-config run.json] <chart.cht> <data.cie>")
		fmt.Println("       chartview <output.tif>")
		os.Exit(1)
	}

	a := fyneapp.New()
	a.Settings().SetTheme(&viewerTheme{})
	win := a.NewWindow("rectarg - " + flag.Arg(0))

	raster := canvas.NewImageFromImage(img)
	raster.FillMode = canvas.ImageFillContain
	raster.SetMinSize(fyne.NewSize(640, 480))

	bar := container.NewPadded(widget.NewLabel(status))
	win.SetContent(container.NewBorder(
		nil,                         // top
		bar,                         // bottom
		nil,                         // left
		nil,                         // right
		container.NewScroll(raster), // center
	))
	win.Resize(fyne.NewSize(1024, 768))
	win.ShowAndRun()
}

// renderChart builds the chart in memory from a layout and its reference data.
func renderChart(cfgPath string, dpi int, chartPath, dataPath string) (goimage.Image, string) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			log.Fatalf("chartview: %v", err)
		}
	}
	cfg.ChartPath, cfg.DataPath = chartPath, dataPath
	cfg.TargetDPI = dpi

	res, err := app.Prepare(cfg, log.Default())
	if err != nil {
		log.Fatalf("chartview: %v", err)
	}
	defer res.Close()
	img := image.Preview(res.Render(), 0)
	s := res.Summary
	return img, fmt.Sprintf("%d x %d px @ %d dpi, %d patches, %d without reference color",
		img.Bounds().Dx(), img.Bounds().Dy(), res.Transform.DPI, s.Patches, s.Gray())
}

// loadRendered opens a TIFF previously written by rectarg.
func loadRendered(path string) (goimage.Image, string) {
	src, err := image.Load(path)
	if err != nil {
		log.Fatalf("chartview: %v", err)
	}
	status := fmt.Sprintf("%d x %d px", src.Bounds().Dx(), src.Bounds().Dy())
	if x, y, err := image.ReadTIFFDPI(path); err == nil {
		status += fmt.Sprintf(" @ %.0f x %.0f dpi", x, y)
	} else {
		log.Printf("chartview: %v", err)
	}
	return image.Preview(src, image.DefaultPreviewSize), status
}
