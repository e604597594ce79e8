// Package yamlarchive provides structured serialization of Go values into a
// YAML-flavored text archive.
//
// An archive is a single YAML document. Values are written in the order they
// are saved and must be loaded back in the same order; the archive carries
// enough structure (tags, versions, anchors) to detect when they are not.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	yamlarchive/         Root package with Marshal and Unmarshal helpers
//	├── archive/         Writer and Reader sessions, type registry, Inspect
//	├── shape/           Classification of Go container types as sequences
//	├── errors/          Structured error types for load and save failures
//	└── cmd/yarc/        Command line tool to inspect and check archives
//
// # Quick Start
//
// Save values into an archive:
//
//	w, err := archive.NewWriter(f, archive.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w.SaveInt(42)
//	w.SaveString("hello")
//	if err := w.Close(); err != nil {
//	    log.Fatal(err)
//	}
//
// which produces:
//
//	archive: yaml-archive
//	version: 1
//	items:
//	  - 42
//	  - "hello"
//
// Load them back in the same order:
//
//	r, err := archive.NewReader(f, archive.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n, _ := r.LoadInt()
//	s, _ := r.LoadString()
//
// # Records and Versions
//
// Structs are written as mappings. Registering a type gives it a tag and a
// version:
//
//	archive.Register(Point{}, "point", 2)
//
// Records of an older version load with fields introduced later
// (`archive:"name,since=N"`) left untouched. Every mismatch is reported by
// Reader.VersionMismatches.
//
// # Shared Objects
//
// Pointers are tracked by default: a pointer saved twice is written once with
// an anchor and then referenced by alias, so shared and cyclic graphs load
// back with the same shape.
//
// # Thread Safety
//
// Registries and shape classifiers are safe for concurrent use. Writer and
// Reader sessions are NOT thread-safe and should be used by a single
// goroutine.
package yamlarchive
