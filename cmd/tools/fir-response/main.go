// Package main inspects the compiled-in FIR tables, or designs a new one, and
// renders their magnitude response as a PNG plot and an HTML chart.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/lume-glove/controller/internal/filter"
	"github.com/lume-glove/controller/internal/firdesign"
	"github.com/lume-glove/controller/internal/security"
)

var (
	tableName    = flag.String("table", "all", "Compiled table to inspect: accel, gyro, orientation or all")
	sampleHz     = flag.Float64("sample-hz", 1000.0/15, "Sample rate the filters run at (one sample per tick)")
	nfft         = flag.Int("nfft", 1024, "FFT length for the response")
	designTaps   = flag.Int("design-taps", 0, "Design a new windowed-sinc table with this many taps instead of inspecting")
	designCutoff = flag.Float64("design-cutoff", 5, "Cutoff frequency (Hz) for -design-taps")
	pngPath      = flag.String("png", "", "Write a magnitude response plot to this PNG file")
	htmlPath     = flag.String("html", "", "Write an interactive magnitude response chart to this HTML file")
)

// curve is one table's response.
type curve struct {
	Name   string
	Taps   []float64
	Points []firdesign.Point
}

func compiledTables(name string) ([]*filter.CoefficientTable, error) {
	all := []*filter.CoefficientTable{filter.AccelLowPass, filter.GyroLowPass, filter.OrientationLowPass}
	if name == "all" {
		return all, nil
	}
	for _, t := range all {
		if t.Name() == name {
			return []*filter.CoefficientTable{t}, nil
		}
	}
	return nil, fmt.Errorf("unknown table %q", name)
}

func summarize(w io.Writer, c curve) {
	fmt.Fprintf(w, "%-12s taps=%d dc_gain=%.6f symmetric=%t cutoff_3db=%.2fHz\n",
		c.Name, len(c.Taps), sum(c.Taps), firdesign.IsSymmetric(c.Taps, 1e-6), firdesign.CutoffHz(c.Points))
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

// formatTaps renders taps as a Go array literal ready to paste into the
// filter package.
func formatTaps(name string, taps []float32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "var %s = [%d]float32{\n", name, len(taps))
	for i, t := range taps {
		if i%6 == 0 {
			b.WriteString("\t")
		}
		fmt.Fprintf(&b, "%.9g,", t)
		if i%6 == 5 || i == len(taps)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func renderPNG(path string, curves []curve) error {
	p := plot.New()
	p.Title.Text = "FIR magnitude response"
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "Magnitude (dB)"
	p.Y.Min = -100
	p.Add(plotter.NewGrid())

	for i, c := range curves {
		pts := make(plotter.XYs, 0, len(c.Points))
		for _, pt := range c.Points {
			pts = append(pts, plotter.XY{X: pt.FreqHz, Y: pt.DB})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(c.Name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

func renderHTML(w io.Writer, curves []curve) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "FIR magnitude response", Width: "1000px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: "FIR magnitude response", Subtitle: fmt.Sprintf("fs=%.2fHz", *sampleHz)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hz", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "dB", Min: -100}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	if len(curves) == 0 {
		return line.Render(w)
	}

	xs := make([]string, len(curves[0].Points))
	for i, pt := range curves[0].Points {
		xs[i] = fmt.Sprintf("%.2f", pt.FreqHz)
	}
	line.SetXAxis(xs)
	for _, c := range curves {
		data := make([]opts.LineData, len(c.Points))
		for i, pt := range c.Points {
			data[i] = opts.LineData{Value: pt.DB}
		}
		line.AddSeries(c.Name, data)
	}
	return line.Render(w)
}

func buildCurves() ([]curve, error) {
	if *designTaps > 0 {
		taps, err := firdesign.LowPass(*designTaps, *designCutoff, *sampleHz)
		if err != nil {
			return nil, err
		}
		// Round to device precision so the response matches what would ship.
		taps = firdesign.FromFloat32(firdesign.ToFloat32(taps))
		name := fmt.Sprintf("design-%d@%gHz", *designTaps, *designCutoff)
		return []curve{{Name: name, Taps: taps, Points: firdesign.Response(taps, *nfft, *sampleHz)}}, nil
	}

	tables, err := compiledTables(*tableName)
	if err != nil {
		return nil, err
	}
	curves := make([]curve, 0, len(tables))
	for _, t := range tables {
		taps := firdesign.FromFloat32(t.Taps())
		curves = append(curves, curve{Name: t.Name(), Taps: taps, Points: firdesign.Response(taps, *nfft, *sampleHz)})
	}
	return curves, nil
}

func main() {
	flag.Parse()

	curves, err := buildCurves()
	if err != nil {
		log.Fatalf("failed to build response: %v", err)
	}
	for _, c := range curves {
		summarize(os.Stdout, c)
	}
	if *designTaps > 0 {
		fmt.Print(formatTaps("designedTaps", firdesign.ToFloat32(curves[0].Taps)))
	}

	for _, out := range []string{*pngPath, *htmlPath} {
		if out == "" {
			continue
		}
		if err := security.ValidateOutputPath(out); err != nil {
			log.Fatalf("refusing to write %s: %v", out, err)
		}
	}

	if *pngPath != "" {
		if err := renderPNG(*pngPath, curves); err != nil {
			log.Fatalf("failed to write PNG: %v", err)
		}
		log.Printf("wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		var buf bytes.Buffer
		if err := renderHTML(&buf, curves); err != nil {
			log.Fatalf("failed to render chart: %v", err)
		}
		if err := os.WriteFile(*htmlPath, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("failed to write HTML: %v", err)
		}
		log.Printf("wrote %s", *htmlPath)
	}
}
