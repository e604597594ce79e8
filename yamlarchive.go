package yamlarchive

import (
	"bytes"

	"github.com/wippyai/yaml-archive/archive"
)

// Marshal writes values as the items of one archive using the default
// configuration.
func Marshal(values ...any) ([]byte, error) {
	return MarshalConfig(archive.Config{}, values...)
}

// MarshalConfig is Marshal with an explicit session configuration.
func MarshalConfig(cfg archive.Config, values ...any) ([]byte, error) {
	var buf bytes.Buffer
	w, err := archive.NewWriter(&buf, cfg)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.Save(v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal loads the leading items of data into ptrs, in order. Items past
// the last pointer are ignored.
func Unmarshal(data []byte, ptrs ...any) error {
	return UnmarshalConfig(archive.Config{}, data, ptrs...)
}

// UnmarshalConfig is Unmarshal with an explicit session configuration.
func UnmarshalConfig(cfg archive.Config, data []byte, ptrs ...any) error {
	r, err := archive.NewReader(bytes.NewReader(data), cfg)
	if err != nil {
		return err
	}
	for _, p := range ptrs {
		if err := r.Load(p); err != nil {
			return err
		}
	}
	return r.Close()
}
