package source

import (
	"math"

	"PQAnalyzer/internal/domain/models"
)

// demoLength is the reference resolution the disturbance windows are laid
// out on; other lengths scale them proportionally.
const demoLength = 10000

// DemoSignal returns n samples over [0, 10] s of a 60 Hz fundamental with a
// half-amplitude third harmonic, with the named disturbances injected:
// a 10% swell at 5.0-6.0 s, sags to 40% at 2.0-2.5 s and 90% at
// 5.0-5.5 s, and a ninth-order harmonic burst replacing 6.0-8.0 s.
func DemoSignal(n int, disturbances ...models.Phenomenon) models.Series {
	if n < 2 {
		n = 2
	}
	s := make(models.Series, n)
	step := 10.0 / float64(n-1)
	for i := range s {
		t := float64(i) * step
		s[i] = models.Sample{T: t, V: math.Sin(2*math.Pi*60*t) + 0.5*math.Sin(2*math.Pi*180*t)}
	}

	at := func(ref int) int { return ref * n / demoLength }
	scale := func(lo, hi int, k float64) {
		for i := at(lo); i < at(hi); i++ {
			s[i].V *= k
		}
	}

	for _, d := range disturbances {
		switch d {
		case models.Swell:
			scale(5000, 6000, 1.1)
		case models.Sag:
			scale(2000, 2500, 0.4)
			scale(5000, 5500, 0.9)
		case models.Harmonic:
			lo, hi := at(6000), at(8000)
			span := hi - lo
			for i := lo; i < hi; i++ {
				x := 0.0
				if span > 1 {
					x = 2 * math.Pi * float64(i-lo) / float64(span-1)
				}
				s[i].V = math.Sqrt2 * math.Sin(9*x)
			}
		}
	}
	return s
}
