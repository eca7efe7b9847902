package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// fileSettings is one level of a .burlrc document. Keys match regardless of
// case, dashes and underscores, so "bodyFile", "body_file" and "body-file"
// name the same field.
type fileSettings map[string]any

func newFileSettings(raw any) (fileSettings, error) {
	if raw == nil {
		return fileSettings{}, nil
	}
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, err
	}
	s := make(fileSettings, len(m))
	for k, v := range m {
		s[settingKey(k)] = v
	}
	return s, nil
}

func settingKey(k string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(k)))
}

// decoder reads typed values out of fileSettings and keeps the first
// coercion error, prefixed with the offending key.
type decoder struct {
	values fileSettings
	prefix string
	err    *error
}

func newDecoder(s fileSettings) *decoder {
	var err error
	return &decoder{values: s, err: &err}
}

func (d *decoder) Err() error { return *d.err }

func (d *decoder) lookup(keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := d.values[settingKey(k)]; ok {
			return k, v, true
		}
	}
	return "", nil, false
}

func (d *decoder) fail(key string, err error) {
	if *d.err == nil {
		*d.err = fmt.Errorf("%s%s: %w", d.prefix, key, err)
	}
}

// String returns the first present key as a trimmed string.
func (d *decoder) String(keys ...string) (string, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return "", false
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		d.fail(key, err)
		return "", false
	}
	return strings.TrimSpace(v), true
}

// RawString is String without trimming, for request bodies.
func (d *decoder) RawString(keys ...string) (string, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return "", false
	}
	v, err := cast.ToStringE(raw)
	if err != nil {
		d.fail(key, err)
		return "", false
	}
	return v, true
}

func (d *decoder) Int(keys ...string) (int, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return 0, false
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		d.fail(key, err)
		return 0, false
	}
	return v, true
}

func (d *decoder) Float(keys ...string) (float64, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return 0, false
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		d.fail(key, err)
		return 0, false
	}
	return v, true
}

func (d *decoder) Bool(keys ...string) (bool, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return false, false
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		d.fail(key, err)
		return false, false
	}
	return v, true
}

// Duration accepts burl duration strings ("1m30", "2d") and bare numbers,
// which count seconds.
func (d *decoder) Duration(keys ...string) (time.Duration, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return 0, false
	}
	v, err := settingDuration(raw)
	if err != nil {
		d.fail(key, err)
		return 0, false
	}
	return v, true
}

func settingDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return ParseDuration(v)
	}
	seconds, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration %v", raw)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Strings reads a list. A single string is one element, never split on spaces,
// so a lone threshold expression survives intact.
func (d *decoder) Strings(keys ...string) ([]string, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return nil, false
	}
	if s, isString := raw.(string); isString {
		return []string{s}, true
	}
	v, err := cast.ToStringSliceE(raw)
	if err != nil {
		d.fail(key, err)
		return nil, false
	}
	return v, true
}

// Headers reads either a map or a list of "Key: Value" entries.
func (d *decoder) Headers(keys ...string) (map[string]string, bool) {
	key, raw, ok := d.lookup(keys)
	if !ok {
		return nil, false
	}
	switch raw.(type) {
	case []any, []string:
		entries, err := cast.ToStringSliceE(raw)
		if err != nil {
			d.fail(key, err)
			return nil, false
		}
		headers := make(map[string]string, len(entries))
		for _, entry := range entries {
			k, v, err := parseHeader(entry)
			if err != nil {
				d.fail(key, err)
				return nil, false
			}
			headers[k] = v
		}
		return headers, true
	}
	headers, err := cast.ToStringMapStringE(raw)
	if err != nil {
		d.fail(key, err)
		return nil, false
	}
	for k := range headers {
		if strings.TrimSpace(k) == "" {
			d.fail(key, fmt.Errorf("header key cannot be empty"))
			return nil, false
		}
	}
	return headers, true
}

// Section returns a nested decoder sharing this decoder's error.
func (d *decoder) Section(key string) (*decoder, bool) {
	name, raw, ok := d.lookup([]string{key})
	if !ok {
		return nil, false
	}
	s, err := newFileSettings(raw)
	if err != nil {
		d.fail(name, err)
		return nil, false
	}
	return &decoder{values: s, prefix: d.prefix + name + ".", err: d.err}, true
}
