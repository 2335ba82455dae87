package domain

// Point is one display-ready entry of the rolling window
type Point struct {
	TimeLabel   string
	Temperature float64
}

// Threshold is a constant annotation line drawn across the window
type Threshold struct {
	Label string
	Value float64
}

// View is a read-only snapshot handed to display collaborators on each refresh
type View struct {
	Points    []Point
	Latest    Sample
	HasLatest bool
	Total     int // samples in the full history
}

// NewView builds a snapshot from a window cut
func NewView(window []Sample, total int) View {
	v := View{
		Points: make([]Point, len(window)),
		Total:  total,
	}
	for i, s := range window {
		v.Points[i] = Point{TimeLabel: s.TimeLabel(), Temperature: s.Temperature}
	}
	if len(window) > 0 {
		v.Latest = window[len(window)-1]
		v.HasLatest = true
	}
	return v
}

// Temperatures returns the window values in order
func (v View) Temperatures() []float64 {
	out := make([]float64, len(v.Points))
	for i, p := range v.Points {
		out[i] = p.Temperature
	}
	return out
}

// PortDescriptor identifies a serial endpoint.
// Description is best-effort metadata and may be empty.
type PortDescriptor struct {
	Name        string
	Description string
}

// Limits are the safe operating range drawn as two dashed lines
type Limits struct {
	Max float64 // hot limit
	Min float64 // cold limit
}

// Thresholds returns the limits as labelled annotation lines
func (l Limits) Thresholds() []Threshold {
	return []Threshold{
		{Label: "T_max", Value: l.Max},
		{Label: "T_min", Value: l.Min},
	}
}

// TooHot reports whether t is above the hot limit
func (l Limits) TooHot(t float64) bool {
	return t > l.Max
}

// TooCold reports whether t is below the cold limit
func (l Limits) TooCold(t float64) bool {
	return t < l.Min
}
