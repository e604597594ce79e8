package main

import (
	"fmt"

	"github.com/wippyai/yaml-archive/archive"
)

type samplePoint struct {
	X float64 `archive:"x"`
	Y float64 `archive:"y"`
}

type sampleShape struct {
	Name   string        `archive:"name"`
	Points []samplePoint `archive:"points"`
	Digest [4]byte       `archive:"digest"`
	Parent *sampleShape  `archive:"parent"`
	Notes  string        `archive:"notes,since=2"`
}

func sampleRegistry() (*archive.Registry, error) {
	reg := archive.NewRegistry()
	if err := archive.RegisterType[samplePoint](reg, "point", 1); err != nil {
		return nil, err
	}
	if err := archive.RegisterType[sampleShape](reg, "shape", 2); err != nil {
		return nil, err
	}
	return reg, nil
}

// writeSample writes an archive that exercises records, sequences, binary
// values and shared pointers.
func writeSample(path string, cfg archive.Config) error {
	reg, err := sampleRegistry()
	if err != nil {
		return err
	}
	cfg.Registry = reg

	out, err := createOutput(path)
	if err != nil {
		return err
	}

	root := &sampleShape{Name: "root", Digest: [4]byte{0xde, 0xad, 0xbe, 0xef}}
	child := &sampleShape{
		Name:   "triangle",
		Points: []samplePoint{{0, 0}, {1, 0}, {0.5, 1}},
		Parent: root,
		Notes:  "three points",
	}

	w, err := archive.NewWriter(out, cfg)
	if err != nil {
		out.Close()
		return err
	}
	_ = w.SaveString("sample archive")
	_ = w.SaveUint32(2)
	_ = w.Save(root)
	_ = w.Save(child)
	_ = w.SaveBinary([]byte("raw bytes"))
	if err := w.Close(); err != nil {
		out.Close()
		return fmt.Errorf("write sample: %w", err)
	}
	return out.Close()
}
