package feeders

import (
	"fmt"
	"os"
	"strconv"

	"github.com/golobby/cast"
)

// EnvOverride describes one environment variable that, when set, overrides
// a config value. Setter receives the raw string; IntSetter (via cast),
// StringSetter and BoolSetter build setters so call sites don't convert
// env vars by hand.
type EnvOverride struct {
	Key    string
	Setter func(raw string) error
}

// EnvFeeder applies a fixed list of environment-variable overrides on top of
// whatever a prior feeder (typically YamlFeeder) already populated.
type EnvFeeder struct {
	Overrides []EnvOverride
}

func NewEnvFeeder(overrides ...EnvOverride) *EnvFeeder {
	return &EnvFeeder{Overrides: overrides}
}

func (f *EnvFeeder) Feed(any) error {
	for _, o := range f.Overrides {
		raw, ok := os.LookupEnv(o.Key)
		if !ok {
			continue
		}
		if err := o.Setter(raw); err != nil {
			return fmt.Errorf("env override %s: %w", o.Key, err)
		}
	}
	return nil
}

func IntSetter(dst *int) func(string) error {
	return func(raw string) error {
		v, err := cast.ToInt(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

func StringSetter(dst *string) func(string) error {
	return func(raw string) error {
		*dst = raw
		return nil
	}
}

func BoolSetter(dst *bool) func(string) error {
	return func(raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}
