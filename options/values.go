package options

import (
	"fmt"
	"sort"
	"strconv"
)

// Pair is one destination name with its current value.
type Pair struct {
	Name  string
	Value any
}

// Values holds parsed option values keyed by destination name.
type Values struct {
	byDest map[string]*Option
}

func newValues(all []*Option) *Values {
	v := &Values{byDest: make(map[string]*Option, len(all))}

	for _, opt := range all {
		if opt.Action == Trigger {
			continue
		}

		v.byDest[opt.DestName()] = opt
	}

	return v
}

// Has reports whether an option records into dest.
func (v *Values) Has(dest string) bool {
	_, ok := v.byDest[dest]

	return ok
}

// IsSet reports whether dest received an explicit value, either from the
// command line or from a default override.
func (v *Values) IsSet(dest string) bool {
	opt, ok := v.byDest[dest]

	return ok && opt.value.IsSet()
}

// Get returns the value recorded under dest, or nil when there is none.
func (v *Values) Get(dest string) any {
	opt, ok := v.byDest[dest]
	if !ok {
		return nil
	}

	return opt.value.Get()
}

// String returns dest as a string.
func (v *Values) String(dest string) string {
	s, _ := v.Get(dest).(string)

	return s
}

// Int returns dest as an int.
func (v *Values) Int(dest string) int {
	switch n := v.Get(dest).(type) {
	case int:
		return n
	case int64:
		return int(n)
	}

	return 0
}

// Int64 returns dest as an int64.
func (v *Values) Int64(dest string) int64 {
	switch n := v.Get(dest).(type) {
	case int:
		return int64(n)
	case int64:
		return n
	}

	return 0
}

// Float64 returns dest as a float64.
func (v *Values) Float64(dest string) float64 {
	f, _ := v.Get(dest).(float64)

	return f
}

// Bool returns dest as a bool.
func (v *Values) Bool(dest string) bool {
	b, _ := v.Get(dest).(bool)

	return b
}

// Strings returns an accumulated string option.
func (v *Values) Strings(dest string) []string {
	s, _ := v.Get(dest).([]string)

	return s
}

// Ints returns an accumulated integer option.
func (v *Values) Ints(dest string) []int {
	s, _ := v.Get(dest).([]int)

	return s
}

// Float64s returns an accumulated floating-point option.
func (v *Values) Float64s(dest string) []float64 {
	s, _ := v.Get(dest).([]float64)

	return s
}

// Pairs lists every destination with its value, sorted by name.
func (v *Values) Pairs() []Pair {
	pairs := make([]Pair, 0, len(v.byDest))
	for dest, opt := range v.byDest {
		pairs = append(pairs, Pair{Name: dest, Value: opt.value.Get()})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Name < pairs[j].Name
	})

	return pairs
}

// FormatValue renders a value for record keeping. Missing and empty values
// print as None; control characters are escaped so each value stays on one
// line.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return NoneToken
	case string:
		if t == "" {
			return NoneToken
		}

		return escape(t)
	case []string:
		if len(t) == 0 {
			return NoneToken
		}

		quoted := make([]string, len(t))
		for i, s := range t {
			quoted[i] = escape(s)
		}

		return fmt.Sprint(quoted)
	case fmt.Stringer:
		return escape(t.String())
	}

	return escape(fmt.Sprint(v))
}

func escape(s string) string {
	q := strconv.Quote(s)

	return q[1 : len(q)-1]
}
