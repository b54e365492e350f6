package metrics

import "sync"

// LayerUsage is the modeled footprint of one completed solver layer.
type LayerUsage struct {
	Pass      int     `json:"pass"`
	Layer     int     `json:"layer"`
	Entries   int     `json:"entries"`
	EntryBits int     `json:"entryBits"`
	TotalBits float64 `json:"totalBits"`
}

// Tracker aggregates the per-layer reports a solver emits through its
// Progress callback into a peak-memory figure comparable against the
// estimator's prediction. The model counts packed list bits, matching the
// estimator's own accounting; it is not an OS-level memory sample.
type Tracker struct {
	mu     sync.Mutex
	layers []LayerUsage
	peak   LayerUsage
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Record ingests one layer report.
func (t *Tracker) Record(pass, layer, entries, entryBits int) {
	usage := LayerUsage{
		Pass:      pass,
		Layer:     layer,
		Entries:   entries,
		EntryBits: entryBits,
		TotalBits: float64(entries) * float64(entryBits),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layers = append(t.layers, usage)
	if usage.TotalBits > t.peak.TotalBits {
		t.peak = usage
	}
}

// PeakBits returns the largest single-layer footprint seen so far.
func (t *Tracker) PeakBits() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak.TotalBits
}

// Peak returns the layer that set the peak.
func (t *Tracker) Peak() LayerUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peak
}

// Layers returns a copy of every recorded layer in report order.
func (t *Tracker) Layers() []LayerUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LayerUsage, len(t.layers))
	copy(out, t.layers)
	return out
}

// ToMB converts a bit count to megabytes for display.
func ToMB(bits float64) float64 {
	return bits / (8 * 1024 * 1024)
}

// ToGB converts a bit count to gigabytes for display.
func ToGB(bits float64) float64 {
	return bits / (8 * 1024 * 1024 * 1024)
}
