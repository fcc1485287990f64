// Package benchmark accumulates elapsed time per named operation within a
// run and reads and writes the tab-separated run ledger shared between
// runs.
package benchmark

import "time"

// Entry is the accumulated time for one label.
type Entry struct {
	Label   string
	Elapsed time.Duration
}

// Ledger maps labels to accumulated durations. Totals only grow; entries
// keep the order in which labels were first recorded.
type Ledger struct {
	totals map[string]time.Duration
	order  []string
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{totals: make(map[string]time.Duration)}
}

// Add adds d to label. Negative durations are ignored.
func (l *Ledger) Add(label string, d time.Duration) {
	if d < 0 {
		return
	}

	if _, ok := l.totals[label]; !ok {
		l.order = append(l.order, label)
	}

	l.totals[label] += d
}

// Time runs fn and charges its wall-clock duration to label.
func (l *Ledger) Time(label string, fn func()) {
	defer l.Start(label)()

	fn()
}

// Start begins timing label and returns the function that stops it:
//
//	defer ledger.Start("sort")()
func (l *Ledger) Start(label string) func() {
	start := time.Now()

	return func() {
		l.Add(label, time.Since(start))
	}
}

// Measure runs fn, charging its duration to label, and passes its results
// through.
func Measure[T any](l *Ledger, label string, fn func() (T, error)) (T, error) {
	defer l.Start(label)()

	return fn()
}

// Get returns the accumulated time for label.
func (l *Ledger) Get(label string) time.Duration {
	return l.totals[label]
}

// Len returns the number of labels recorded.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Total returns the sum over all labels.
func (l *Ledger) Total() time.Duration {
	var total time.Duration
	for _, d := range l.totals {
		total += d
	}

	return total
}

// Entries returns all labels in first-recorded order.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, len(l.order))
	for i, label := range l.order {
		entries[i] = Entry{Label: label, Elapsed: l.totals[label]}
	}

	return entries
}
