package dataset

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Built-in XOR training points.
var (
	xorGroup0 = [][]float64{
		{-1.8014030885341425, 0.07049090664351776},
		{-1.301866318505309, -0.09006021655705085},
		{-1.2995311803877012, 0.17179375194954777},
		{-1.6844614700570668, 0.26300082528677904},
		{-1.581826822227654, 0.2210431121474794},
		{1.526782533409962, 3.227296155921321},
		{1.6081456320334693, 3.3248683153683958},
		{1.4118513018150587, 3.436121923699187},
		{1.5620769416428386, 3.384965966733096},
		{1.3020823312222616, 3.3163245524916936},
	}
	xorGroup1 = [][]float64{
		{-1.6269012492495667, 2.8732368479226293},
		{-1.5530830764355592, 3.1738353675554416},
		{-1.8513100742724584, 3.2237767325843545},
		{-1.6272074871316728, 3.28878799481208},
		{-1.6612433455383213, 2.879163347517711},
		{1.3798060401258543, -0.09979143378370409},
		{1.6151621300228456, 0.04571164290639079},
		{1.426884637605485, -0.06169454299108834},
		{1.5019812981463012, -0.16369059365023533},
		{1.6204586467622049, -0.10966267374801358},
	}
)

// XOR returns a fresh copy of the built-in two-feature XOR set: ten points
// labeled 0 followed by ten labeled 1.
func XOR() []Example {
	out := make([]Example, 0, len(xorGroup0)+len(xorGroup1))
	for _, x := range xorGroup0 {
		out = append(out, Example{Features: append([]float64(nil), x...), Label: 0})
	}
	for _, x := range xorGroup1 {
		out = append(out, Example{Features: append([]float64(nil), x...), Label: 1})
	}
	return out
}

// GenerateXOR draws XOR-like data: n/2 points per label (an odd n is rounded
// down), split between the label's two centres with the first centre taking
// the extra point, and jittered by Uniform(-delta, delta) in each coordinate.
// Label 0 sits at (-pi/2, 0) and (pi/2, pi), label 1 at (-pi/2, pi) and
// (pi/2, 0).
func GenerateXOR(n int, delta float64, src rand.Source) []Example {
	if n < 0 {
		n = 0
	}
	jitter := distuv.Uniform{Min: -delta, Max: delta, Src: src}
	perLabel := n / 2
	counts := []int{(perLabel + 1) / 2, perLabel / 2, (perLabel + 1) / 2, perLabel / 2}
	centres := []struct {
		x, y  float64
		label int
	}{
		{-math.Pi / 2, 0, 0},
		{math.Pi / 2, math.Pi, 0},
		{-math.Pi / 2, math.Pi, 1},
		{math.Pi / 2, 0, 1},
	}
	out := make([]Example, 0, 2*perLabel)
	for k, c := range centres {
		for i := 0; i < counts[k]; i++ {
			point := []float64{c.x, c.y}
			if delta > 0 {
				point[0] += jitter.Rand()
				point[1] += jitter.Rand()
			}
			out = append(out, Example{Features: point, Label: c.label})
		}
	}
	return out
}
