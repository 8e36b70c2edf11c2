package indicator

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Bollinger computes Bollinger Bands over the last Period closes:
//
//	middle = mean(closes)
//	upper  = middle + k*stddev(closes)
//	lower  = middle - k*stddev(closes)
//
// stddev is the population standard deviation. Mean and deviation are
// recomputed exactly from the window on every update, so results do not
// drift on long series.
type Bollinger struct {
	period  int
	k       float64
	win     *Window
	scratch []float64
	current Band
}

// NewBollinger creates a Bollinger Band indicator. It fails with
// ErrInvalidConfig if period <= 0 or k is not a finite positive number.
func NewBollinger(period int, k float64) (*Bollinger, error) {
	if err := ValidateConfig(period, k); err != nil {
		return nil, err
	}
	return &Bollinger{
		period:  period,
		k:       k,
		win:     NewWindow(period),
		scratch: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name, e.g. "BB_20_2".
func (b *Bollinger) Name() string {
	return "BB_" + strconv.Itoa(b.period) + "_" + strconv.FormatFloat(b.k, 'f', -1, 64)
}

// Period returns the window length.
func (b *Bollinger) Period() int { return b.period }

// Prime feeds warm-up closes. No band is exposed for them; callers start
// acting on Update results for the closes that follow.
func (b *Bollinger) Prime(closes []float64) {
	for _, c := range closes {
		b.Update(c)
	}
}

// Update admits close into the window, dropping the oldest close when the
// window is full, and returns the band over the resulting window.
// The zero Band is returned until Period closes have been seen.
func (b *Bollinger) Update(close float64) Band {
	b.win.Push(close)
	if !b.win.Full() {
		b.current = Band{}
		return b.current
	}

	b.scratch = b.win.AppendValues(b.scratch[:0])
	mean, std := stat.PopMeanStdDev(b.scratch, nil)
	width := b.k * std
	b.current = Band{
		Middle: mean,
		Upper:  mean + width,
		Lower:  mean - width,
		StdDev: std,
	}
	return b.current
}

// Value returns the most recent band.
func (b *Bollinger) Value() Band { return b.current }

// Ready returns true once Period closes have been admitted.
func (b *Bollinger) Ready() bool { return b.win.Full() }

// Reset clears all state for reuse with the same parameters.
func (b *Bollinger) Reset() {
	b.win.Reset()
	b.current = Band{}
}

func (b *Bollinger) String() string {
	return fmt.Sprintf("%s(ready=%v, %+v)", b.Name(), b.Ready(), b.current)
}
