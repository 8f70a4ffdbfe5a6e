package ui

import "strings"

// sparkLevels are the bar heights, lowest first.
var sparkLevels = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a fixed-size ring of throughput samples rendered as block
// characters, scaled to the largest sample held.
type Sparkline struct {
	samples []float64
	next    int
	filled  int
}

// NewSparkline holds up to size samples. Size defaults to 60.
func NewSparkline(size int) *Sparkline {
	if size <= 0 {
		size = 60
	}
	return &Sparkline{samples: make([]float64, size)}
}

// Add records a sample, evicting the oldest when full.
func (s *Sparkline) Add(v float64) {
	s.samples[s.next] = v
	s.next = (s.next + 1) % len(s.samples)
	if s.filled < len(s.samples) {
		s.filled++
	}
}

// Len returns the number of samples held.
func (s *Sparkline) Len() int {
	return s.filled
}

// Clear drops every sample.
func (s *Sparkline) Clear() {
	clear(s.samples)
	s.next, s.filled = 0, 0
}

// Values returns the held samples, oldest first.
func (s *Sparkline) Values() []float64 {
	out := make([]float64, 0, s.filled)
	start := (s.next - s.filled + len(s.samples)) % len(s.samples)
	for i := range s.filled {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// Render draws the newest width samples, left padded with spaces to
// width. A width of zero or less draws every held sample.
func (s *Sparkline) Render(width int) string {
	vals := s.Values()
	if width <= 0 {
		width = len(s.samples)
	}
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}

	peak := 0.0
	for _, v := range vals {
		peak = max(peak, v)
	}

	var sb strings.Builder
	sb.Grow(width * 3)
	sb.WriteString(strings.Repeat(" ", width-len(vals)))
	for _, v := range vals {
		sb.WriteRune(level(v, peak))
	}
	return sb.String()
}

func level(v, peak float64) rune {
	if peak <= 0 || v <= 0 {
		return sparkLevels[0]
	}
	i := int(v / peak * float64(len(sparkLevels)-1))
	return sparkLevels[min(max(i, 0), len(sparkLevels)-1)]
}
