// Package environment reads typed configuration from environment variables.
//
// A Reader collects every malformed or missing variable instead of stopping
// at the first one, so a misconfigured deployment reports all of its problems
// in a single run. Unset or empty variables fall back to the supplied default.
package environment

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reader reads environment variables and accumulates parse errors.
// The zero value is ready to use.
type Reader struct {
	errs []error

	// lookup is swapped in tests; nil means os.LookupEnv.
	lookup func(string) (string, bool)
}

// NewReader returns a Reader backed by the process environment.
func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) get(name string) string {
	lookup := r.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(name)
	return strings.TrimSpace(v)
}

func (r *Reader) fail(name, value, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: expected %s", name, value, want))
}

// String returns the variable or def when unset or empty.
func (r *Reader) String(name, def string) string {
	if v := r.get(name); v != "" {
		return v
	}
	return def
}

// Required returns the variable and records an error when it is unset.
func (r *Reader) Required(name string) string {
	v := r.get(name)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("required environment variable %q is not set", name))
	}
	return v
}

// Bool parses the variable with strconv.ParseBool.
func (r *Reader) Bool(name string, def bool) bool {
	v := r.get(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(name, v, "a boolean")
		return def
	}
	return b
}

// Int parses the variable as a decimal integer.
func (r *Reader) Int(name string, def int) int {
	v := r.get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, "an integer")
		return def
	}
	return n
}

// Duration parses the variable with time.ParseDuration ("30s", "5m").
func (r *Reader) Duration(name string, def time.Duration) time.Duration {
	v := r.get(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		r.fail(name, v, "a non-negative duration")
		return def
	}
	return d
}

// List splits a comma-separated variable, dropping blank elements.
func (r *Reader) List(name string, def []string) []string {
	v := r.get(name)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// Location loads an IANA time zone name such as "Europe/Bucharest".
func (r *Reader) Location(name string, def *time.Location) *time.Location {
	v := r.get(name)
	if v == "" {
		return def
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		r.fail(name, v, "an IANA time zone")
		return def
	}
	return loc
}

// OneOf returns the lower-cased variable when it is one of allowed.
func (r *Reader) OneOf(name, def string, allowed ...string) string {
	v := strings.ToLower(r.get(name))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	r.fail(name, v, "one of "+strings.Join(allowed, ", "))
	return def
}

// Err joins every error recorded so far, or returns nil.
func (r *Reader) Err() error {
	return errors.Join(r.errs...)
}
