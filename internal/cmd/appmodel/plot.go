// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"image/color"
	"slices"

	"github.com/petenewcomb/appmodel-go"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// cumulative counts events up to each of times, converted from minutes to
// hours. Fault times arrive in rejuvenation order and are sorted first.
func cumulative(times []float64) plotter.XYs {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	xys := make(plotter.XYs, 0, len(sorted)+1)
	xys = append(xys, plotter.XY{})
	for i, at := range sorted {
		xys = append(xys, plotter.XY{X: at / 60, Y: float64(i + 1)})
	}
	return xys
}

func setupPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Simulated time (hours)"
	p.Y.Label.Text = "Count"

	p.Title.TextStyle.Color = color.Gray{128}
	p.X.Color = color.Gray{128}
	p.Y.Color = color.Gray{128}
	p.X.Label.TextStyle.Color = color.Gray{128}
	p.Y.Label.TextStyle.Color = color.Gray{128}
	p.X.Tick.Color = color.Gray{128}
	p.Y.Tick.Color = color.Gray{128}
	p.X.Tick.Label.Color = color.Gray{128}
	p.Y.Tick.Label.Color = color.Gray{128}
	p.Legend.TextStyle.Color = color.Gray{128}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent
	return p
}

// writePlot charts cumulative interrupts and faults over simulated time. The
// image format follows the extension of path.
func writePlot(path string, rec *appmodel.Recorder) error {
	p := setupPlot("Interrupts and faults")

	interrupts := make([]float64, len(rec.Interrupts))
	for i, ir := range rec.Interrupts {
		interrupts[i] = ir.At
	}
	series := []struct {
		label string
		xys   plotter.XYs
	}{
		{"Interrupts", cumulative(interrupts)},
		{"Faults", cumulative(rec.Faults)},
	}

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Dark2", 3)
	if err != nil {
		return errors.Wrap(err, "loading palette")
	}
	colors := palette.Colors()
	for i, s := range series {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", s.label)
		}
		line.Color = colors[i]
		line.Width = 0.4 * vg.Millimeter
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	if err := p.Save(9*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %s", path)
	}
	return nil
}
