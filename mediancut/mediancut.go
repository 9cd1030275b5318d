package mediancut

// doMedianCut runs the shared median-cut driver: seed one cuboid
// spanning the whole populated range, repeatedly split the
// largest-volume cuboid along its longest side until exactly maxColors
// cuboids exist, then emit each cuboid's average colour
// into palette, in cuboid order.
func doMedianCut(seed Cuboid, palette []uint8, maxColors int) {
	seed.Minimize()
	cuboids := []Cuboid{seed}

	for len(cuboids) < maxColors {
		largest := 0
		largestVolume := cuboids[0].Volume()
		for i := 1; i < len(cuboids); i++ {
			v := cuboids[i].Volume()
			if v > largestVolume {
				largestVolume = v
				largest = i
			}
		}

		victim := cuboids[largest]
		axis := victim.LongestSide()
		point := victim.Median(axis)
		other := victim.Split(axis, point)

		victim.Minimize()
		other.Minimize()

		cuboids = append(cuboids, other)
	}

	for i, c := range cuboids {
		c.AverageColor(palette, i)
	}
}
