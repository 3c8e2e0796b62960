package vm

import "math"

// biquad is a second-order section in direct form II transposed, with a0
// normalized to 1.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	d0, d1     float64
}

func (s *biquad) process(x float64) float64 {
	y := s.b0*x + s.d0
	s.d0 = s.b1*x - s.a1*y + s.d1
	s.d1 = s.b2*x - s.a2*y
	return y
}

// design sets the coefficients from the audio EQ cookbook formulas for the
// response type, leaving the state alone. freq must be below Nyquist and q
// positive.
func (s *biquad) design(shape string, freq, q, sampleRate float64) {
	w0 := 2 * math.Pi * freq / sampleRate
	cw, sw := math.Cos(w0), math.Sin(w0)
	alpha := sw / (2 * q)
	var b0, b1, b2 float64
	switch shape {
	case "highpass":
		b0, b1, b2 = (1+cw)/2, -(1 + cw), (1+cw)/2
	case "bandpass":
		b0, b1, b2 = alpha, 0, -alpha
	case "notch":
		b0, b1, b2 = 1, -2*cw, 1
	default:
		b0, b1, b2 = (1-cw)/2, 1-cw, (1-cw)/2
	}
	a0 := 1 + alpha
	s.b0, s.b1, s.b2 = b0/a0, b1/a0, b2/a0
	s.a1, s.a2 = -2*cw/a0, (1-alpha)/a0
}
