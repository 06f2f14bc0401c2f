package classifier

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"qclassify/internal/circuit"
	"qclassify/internal/dataset"
)

// GridOptions describes a rectangular mesh over two input features.
type GridOptions struct {
	NMesh int     `yaml:"nmesh"`
	XMin  float64 `yaml:"x_min"`
	XMax  float64 `yaml:"x_max"`
	YMin  float64 `yaml:"y_min"`
	YMax  float64 `yaml:"y_max"`
}

// DefaultGridOptions covers the XOR centres with a 10x10 mesh.
func DefaultGridOptions() GridOptions {
	return GridOptions{
		NMesh: 10,
		XMin:  -math.Pi,
		XMax:  math.Pi,
		YMin:  -math.Pi / 2,
		YMax:  3 * math.Pi / 2,
	}
}

func (o GridOptions) validate() error {
	if o.NMesh < 2 {
		return errors.Wrapf(circuit.ErrConfiguration, "grid: nmesh must be >= 2 (got %d)", o.NMesh)
	}
	if !(o.XMin < o.XMax) || !(o.YMin < o.YMax) {
		return errors.Wrap(circuit.ErrConfiguration, "grid: empty range")
	}
	return nil
}

// Grid holds predicted probabilities over a mesh. Probability[j][i] is the
// prediction at (X[i], Y[j]).
type Grid struct {
	Features    [2]int
	X, Y        []float64
	Probability [][]float64
}

// GridPoint is one mesh point in row-major order.
type GridPoint struct {
	X           float64 `csv:"x"`
	Y           float64 `csv:"y"`
	Probability float64 `csv:"probability"`
}

// Points flattens the grid row by row, x varying fastest.
func (g *Grid) Points() []GridPoint {
	points := make([]GridPoint, 0, len(g.X)*len(g.Y))
	for j, y := range g.Y {
		for i, x := range g.X {
			points = append(points, GridPoint{X: x, Y: y, Probability: g.Probability[j][i]})
		}
	}
	return points
}

// DecisionGrid evaluates the classifier at the current parameters on an
// NMesh x NMesh mesh spanning the two chosen feature coordinates. The other
// coordinates are taken from input, which is not modified.
func (c *Classifier) DecisionGrid(ctx context.Context, input []float64, features [2]int, opts GridOptions) (*Grid, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	for _, f := range features {
		if f < 0 || f >= len(input) {
			return nil, errors.Wrapf(circuit.ErrConfiguration, "grid: feature %d out of range for %d inputs", f, len(input))
		}
	}
	if features[0] == features[1] {
		return nil, errors.Wrap(circuit.ErrConfiguration, "grid: features must differ")
	}

	g := &Grid{
		Features: features,
		X:        floats.Span(make([]float64, opts.NMesh), opts.XMin, opts.XMax),
		Y:        floats.Span(make([]float64, opts.NMesh), opts.YMin, opts.YMax),
	}
	mesh := make([]dataset.Example, 0, opts.NMesh*opts.NMesh)
	for _, y := range g.Y {
		for _, x := range g.X {
			point := append([]float64(nil), input...)
			point[features[0]] = x
			point[features[1]] = y
			mesh = append(mesh, dataset.Example{Features: point})
		}
	}

	batch, err := c.EvaluateAll(ctx, mesh, c.Params())
	if err != nil {
		return nil, errors.Wrap(err, "grid")
	}
	g.Probability = make([][]float64, opts.NMesh)
	for j := range g.Probability {
		row := make([]float64, opts.NMesh)
		for i := range row {
			row[i] = batch[j*opts.NMesh+i].Probability
		}
		g.Probability[j] = row
	}
	return g, nil
}
