package report

import (
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	cutoff "github.com/jamesainslie/go-cutoff"
)

// PenaltyCurve plots the sweep penalty against the threshold and marks the
// chosen cutoff. The initial NoCutoff step has no x position and is skipped.
func PenaltyCurve(title string, steps []cutoff.Step, chosen float64) (*plot.Plot, error) {
	pts := make(plotter.XYs, 0, len(steps))
	for _, s := range steps {
		if math.IsInf(s.Threshold, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.Threshold, Y: s.Score})
	}
	if len(pts) == 0 {
		return nil, errors.New("no finite thresholds to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Cutoff"
	p.Y.Label.Text = "Penalty"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{B: 200, A: 255}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)

	if !math.IsInf(chosen, 0) {
		for _, pt := range pts {
			if pt.X != chosen {
				continue
			}
			mark, err := plotter.NewScatter(plotter.XYs{pt})
			if err != nil {
				return nil, err
			}
			mark.Color = color.RGBA{R: 255, A: 255}
			mark.Radius = vg.Points(4)
			p.Add(mark)
			break
		}
	}
	return p, nil
}

// SavePenaltyCurve writes the penalty curve to path; the extension picks
// the image format.
func SavePenaltyCurve(path, title string, steps []cutoff.Step, chosen float64) error {
	p, err := PenaltyCurve(title, steps, chosen)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
