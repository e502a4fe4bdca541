package node_test

import "math"

func sineAt(bin, size, i int) float64 {
	return math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(size))
}
