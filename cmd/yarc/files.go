package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// openInput opens path for reading, decompressing .zst files.
func openInput(path string) (io.ReadCloser, error) {
	var f io.ReadCloser = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		f = file
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdInput{dec: dec, file: f}, nil
}

type zstdInput struct {
	dec  *zstd.Decoder
	file io.Closer
}

func (z *zstdInput) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdInput) Close() error {
	z.dec.Close()
	return z.file.Close()
}

// createOutput creates path for writing, compressing .zst files. Closing the
// result flushes the compressor before the file.
func createOutput(path string) (io.WriteCloser, error) {
	var f io.WriteCloser = nopCloser{os.Stdout}
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		f = file
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &zstdOutput{enc: enc, file: f}, nil
}

type zstdOutput struct {
	enc  *zstd.Encoder
	file io.Closer
}

func (z *zstdOutput) Write(p []byte) (int, error) { return z.enc.Write(p) }

func (z *zstdOutput) Close() error {
	if err := z.enc.Close(); err != nil {
		z.file.Close()
		return fmt.Errorf("zstd flush: %w", err)
	}
	return z.file.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
