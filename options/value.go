package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NoneToken is accepted in place of an empty value. Both leave the current
// value untouched, so templated command lines can pass defaults through.
const NoneToken = "None"

func isDefaultToken(raw string) bool {
	return raw == "" || raw == NoneToken
}

// value is a pflag.Value that also exposes its typed content.
type value interface {
	Set(string) error
	String() string
	Type() string
	Get() any
	IsSet() bool
}

type parseFunc[T any] func(string) (T, error)

type scalar[T any] struct {
	v        T
	set      bool
	optional bool
	typ      string
	parse    parseFunc[T]
}

func newScalar[T any](def T, typ string, parse parseFunc[T]) *scalar[T] {
	return &scalar[T]{v: def, typ: typ, parse: parse}
}

func (s *scalar[T]) Set(raw string) error {
	if isDefaultToken(raw) {
		return nil
	}

	v, err := s.parse(raw)
	if err != nil {
		return err
	}

	s.v = v
	s.set = true

	return nil
}

func (s *scalar[T]) String() string {
	if s.optional && !s.set {
		return NoneToken
	}

	return fmt.Sprint(s.v)
}

func (s *scalar[T]) Type() string { return s.typ }

func (s *scalar[T]) Get() any {
	if s.optional && !s.set {
		return nil
	}

	return s.v
}

func (s *scalar[T]) IsSet() bool { return s.set }

// list accumulates one value per occurrence. A raw value holding commas
// contributes one element per non-empty token.
type list[T any] struct {
	v     []T
	set   bool
	typ   string
	parse parseFunc[T]
}

func newList[T any](def []T, typ string, parse parseFunc[T]) *list[T] {
	return &list[T]{v: append([]T(nil), def...), typ: typ, parse: parse}
}

func (l *list[T]) Set(raw string) error {
	if isDefaultToken(raw) {
		return nil
	}

	tokens := []string{raw}
	if strings.Contains(raw, ",") {
		tokens = strings.Split(raw, ",")
	}

	for _, tok := range tokens {
		if tok == "" {
			continue
		}

		v, err := l.parse(tok)
		if err != nil {
			return err
		}

		l.v = append(l.v, v)
	}

	l.set = true

	return nil
}

// reset drops the accumulated elements, so an override of the default
// replaces it rather than extending it.
func (l *list[T]) reset() {
	l.v = nil
}

func (l *list[T]) String() string {
	if len(l.v) == 0 {
		return NoneToken
	}

	parts := make([]string, len(l.v))
	for i, v := range l.v {
		parts[i] = fmt.Sprint(v)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *list[T]) Type() string { return l.typ }

func (l *list[T]) Get() any {
	return append([]T(nil), l.v...)
}

func (l *list[T]) IsSet() bool { return l.set }

// errStop aborts flag parsing once a help or version flag fired.
var errStop = errors.New("stop parsing")

// trigger is a flag with no value whose presence ends parsing.
type trigger struct {
	fired bool
}

func (t *trigger) Set(string) error {
	t.fired = true

	return errStop
}

func (t *trigger) String() string { return "false" }
func (t *trigger) Type() string   { return "bool" }
func (t *trigger) Get() any       { return t.fired }
func (t *trigger) IsSet() bool    { return t.fired }

func parseString(raw string) (string, error) { return raw, nil }

func parseInt(raw string) (int, error) {
	v, err := strconv.ParseInt(raw, 0, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value: %q", raw)
	}

	return int(v), nil
}

func parseInt64(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value: %q", raw)
	}

	return v, nil
}

func parseFloat64(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid floating-point value: %q", raw)
	}

	return v, nil
}

func parseBool(raw string) (bool, error) {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value: %q", raw)
	}

	return v, nil
}
