package recompress

import "runtime"

// Config is the process-wide run configuration, populated once by the
// CLI before any worker starts and read-only thereafter.
type Config struct {
	// Iterations is the squeeze iteration count passed through to the
	// deflate core. Zero selects the core's built-in size-dependent
	// policy; any other value is clamped to at least 1.
	Iterations int

	// Workers caps the worker pool. Zero means one worker per logical
	// CPU.
	Workers int

	// PNG and JPEG gate which image kinds are processed. Files of a
	// disabled kind are skipped silently.
	PNG  bool
	JPEG bool

	// DryRun compresses in memory and reports savings without ever
	// replacing a file.
	DryRun bool

	// MaxPixels skips images whose width*height exceeds it. Zero means
	// no limit.
	MaxPixels int64

	// PreserveTimes carries the original file's access/modification
	// times over to the replacement.
	PreserveTimes bool
}

// DefaultConfig returns the configuration a bare CLI invocation runs
// with: both kinds enabled, a worker per CPU, default iterations.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		PNG:     true,
		JPEG:    true,
	}
}

// normalized returns a copy with out-of-range values clamped.
func (c Config) normalized() Config {
	if c.Iterations < 0 {
		c.Iterations = 1
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxPixels < 0 {
		c.MaxPixels = 0
	}
	return c
}
