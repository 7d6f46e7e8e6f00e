package aggregate

// Percentile returns the p-th percentile (p in [0,1], clamped) of values
// using partial selection on the index floor(p*(n-1)). The input slice is
// reordered in place. An empty slice yields 0; a single element yields that
// element.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	k := int(p * float64(len(values)-1))
	return quickselect(values, k)
}

// quickselect places the k-th smallest element at index k and returns it.
// Median-of-three pivoting keeps sorted inputs off the quadratic path.
func quickselect(values []float64, k int) float64 {
	lo, hi := 0, len(values)-1
	for lo < hi {
		pivot := medianOfThree(values, lo, hi)
		i, j := lo, hi
		for i <= j {
			for values[i] < pivot {
				i++
			}
			for values[j] > pivot {
				j--
			}
			if i <= j {
				values[i], values[j] = values[j], values[i]
				i++
				j--
			}
		}
		if k <= j {
			hi = j
		} else if k >= i {
			lo = i
		} else {
			break
		}
	}
	return values[k]
}

func medianOfThree(values []float64, lo, hi int) float64 {
	mid := lo + (hi-lo)/2
	a, b, c := values[lo], values[mid], values[hi]
	switch {
	case a < b:
		switch {
		case b < c:
			return b
		case a < c:
			return c
		default:
			return a
		}
	default:
		switch {
		case a < c:
			return a
		case b < c:
			return c
		default:
			return b
		}
	}
}
