package indicators

import "math"

// BollingerBands holds the band series aligned to the tail of the input.
type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// StdDev returns the rolling population standard deviation.
func StdDev(values []float64, period int) ([]float64, error) {
	if err := checkInput("StdDev", len(values), period, period); err != nil {
		return nil, err
	}
	means, _ := SMA(values, period)
	out := make([]float64, len(means))
	for i, mean := range means {
		variance := 0.0
		for _, v := range values[i : i+period] {
			d := v - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out, nil
}

// Bollinger returns middle = SMA(period) and bands at middle ± multiplier × population std-dev.
func Bollinger(values []float64, period int, multiplier float64) (BollingerBands, error) {
	middle, err := SMA(values, period)
	if err != nil {
		return BollingerBands{}, err
	}
	std, err := StdDev(values, period)
	if err != nil {
		return BollingerBands{}, err
	}
	bb := BollingerBands{
		Upper:  make([]float64, len(middle)),
		Middle: middle,
		Lower:  make([]float64, len(middle)),
	}
	for i := range middle {
		bb.Upper[i] = middle[i] + multiplier*std[i]
		bb.Lower[i] = middle[i] - multiplier*std[i]
	}
	return bb, nil
}
