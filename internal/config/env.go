package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// env reads settings from the process environment. A malformed value is
// recorded and reported by New instead of quietly becoming the default.
type env struct {
	errs []error
}

func (e *env) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func (e *env) invalid(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (e *env) text(key, def string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return def
}

func (e *env) number(key string, def int) int {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.invalid(key, value, errors.New("not an integer"))
		return def
	}
	return n
}

func (e *env) flag(key string, def bool) bool {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.invalid(key, value, errors.New("not a boolean"))
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.invalid(key, value, errors.New("not a duration"))
		return def
	}
	return d
}

// list splits a comma separated value, dropping blanks.
func (e *env) list(key string, def []string) []string {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}

// orders reads the numbering settings. The floor is the first number handed
// out on an empty table; numbers below it are never assigned.
func (e *env) orders() Orders {
	o := Orders{
		NumberFloor:    int64(e.number("ORDERS_NUMBER_FLOOR", DefaultNumberFloor)),
		CreateAttempts: e.number("ORDERS_CREATE_ATTEMPTS", 5),
		CreateBackoff:  e.duration("ORDERS_CREATE_BACKOFF", 25*time.Millisecond),
	}
	if o.NumberFloor < 1 {
		e.invalid("ORDERS_NUMBER_FLOOR", strconv.FormatInt(o.NumberFloor, 10), errors.New("must be at least 1"))
		o.NumberFloor = DefaultNumberFloor
	}
	if o.CreateAttempts < 1 {
		e.invalid("ORDERS_CREATE_ATTEMPTS", strconv.Itoa(o.CreateAttempts), errors.New("must be at least 1"))
		o.CreateAttempts = 1
	}
	if o.CreateBackoff <= 0 {
		o.CreateBackoff = 25 * time.Millisecond
	}
	return o
}
