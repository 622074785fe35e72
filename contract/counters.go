package contract

import (
	"fmt"
	"strconv"
)

// getCount reads the string counter under the key and defaults to zero, nothing magical here.
func getCount(d *diff, key string) (uint64, error) {
	ptr, err := d.Get(key)
	if err != nil {
		return 0, err
	}
	if ptr == nil || *ptr == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(*ptr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %q: %w", key, err)
	}
	return n, nil
}

// setCount stores uint64 counters back as decimal strings, zero deletes the key.
func setCount(d *diff, key string, n uint64) {
	if n == 0 {
		d.Delete(key)
		return
	}
	d.Set(key, strconv.FormatUint(n, 10))
}

// nextID bumps a counter and returns the new value, ids start at 1.
func nextID(d *diff, key string) (uint64, error) {
	n, err := getCount(d, key)
	if err != nil {
		return 0, err
	}
	n++
	setCount(d, key, n)
	return n, nil
}

// getInt64 is getCount for signed values like timestamps.
func getInt64(d *diff, key string) (int64, bool, error) {
	ptr, err := d.Get(key)
	if err != nil {
		return 0, false, err
	}
	if ptr == nil || *ptr == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(*ptr, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("value %q: %w", key, err)
	}
	return n, true, nil
}

func setInt64(d *diff, key string, n int64) {
	d.Set(key, strconv.FormatInt(n, 10))
}
