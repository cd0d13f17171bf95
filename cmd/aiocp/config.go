package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
)

const (
	defaultChunk = 128 << 10
	defaultDepth = 32
)

type config struct {
	Src      string
	Dst      string
	Chunk    int           // bytes per operation
	Depth    int           // operations in flight
	LogLevel zerolog.Level // console log level
}

// parseConfig reads AIOCP_CHUNK, AIOCP_DEPTH and AIOCP_LOG_LEVEL from
// getenv and lets flags in args override them.
func parseConfig(getenv func(string) string, args []string, output io.Writer) (*config, error) {
	cfg := &config{
		Chunk:    defaultChunk,
		Depth:    defaultDepth,
		LogLevel: zerolog.InfoLevel,
	}

	if v := getenv("AIOCP_CHUNK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("AIOCP_CHUNK: %w", err)
		}
		cfg.Chunk = n
	}

	if v := getenv("AIOCP_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("AIOCP_DEPTH: %w", err)
		}
		cfg.Depth = n
	}

	level := getenv("AIOCP_LOG_LEVEL")
	if level == "" {
		level = cfg.LogLevel.String()
	}

	fs := flag.NewFlagSet("aiocp", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: aiocp [flags] SRC DST")
		fs.PrintDefaults()
	}
	fs.IntVar(&cfg.Chunk, "chunk", cfg.Chunk, "bytes per read/write (env AIOCP_CHUNK)")
	fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "operations kept in flight (env AIOCP_DEPTH)")
	fs.StringVar(&level, "log-level", level, "log level (env AIOCP_LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.LogLevel, err = zerolog.ParseLevel(level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if fs.NArg() != 2 {
		fs.Usage()
		return nil, errors.New("expected SRC and DST")
	}
	cfg.Src, cfg.Dst = fs.Arg(0), fs.Arg(1)

	if cfg.Chunk <= 0 {
		return nil, fmt.Errorf("chunk must be positive, got %d", cfg.Chunk)
	}
	if cfg.Depth <= 0 {
		return nil, fmt.Errorf("depth must be positive, got %d", cfg.Depth)
	}

	return cfg, nil
}
