// Command aiocp copies a file through the kernel AIO engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/webriots/aio"
	"github.com/webriots/aio/task"
	"golang.org/x/sync/errgroup"
)

const progressInterval = time.Second

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file found")
	}

	cfg, err := parseConfig(os.Getenv, os.Args[1:], os.Stderr)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse config")
		os.Exit(2)
	}
	log = log.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Error().Err(err).Msg("copy failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, cfg *config) error {
	src, err := os.Open(cfg.Src)
	if err != nil {
		return err
	}
	defer src.Close()

	st, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(cfg.Dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer dst.Close()

	if err := dst.Truncate(st.Size()); err != nil {
		return err
	}

	engine, err := aio.New(cfg.Depth, aio.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("closing aio context")
		}
	}()

	c := &copier{
		sched: task.New(engine, task.WithLogger(log)),
		log:   log,
		src:   int(src.Fd()),
		dst:   int(dst.Fd()),
		size:  st.Size(),
		chunk: cfg.Chunk,
		depth: cfg.Depth,
	}

	log.Info().
		Str("src", cfg.Src).
		Str("dst", cfg.Dst).
		Int64("size", c.size).
		Int("chunk", c.chunk).
		Int("depth", c.depth).
		Msg("copy started")

	start := time.Now()
	done := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return c.run(gctx)
	})
	g.Go(func() error {
		return report(gctx, log, done, &c.copied, c.size)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("%d bytes in %v (%.1f MiB/s)\n",
		c.size, elapsed.Round(time.Millisecond), throughput(c.size, elapsed))
	return nil
}

// report logs progress until done is closed or ctx ends.
func report(ctx context.Context, log zerolog.Logger, done <-chan struct{}, copied interface{ Load() int64 }, size int64) error {
	tick := time.NewTicker(progressInterval)
	defer tick.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case <-tick.C:
			n := copied.Load()
			log.Info().Int64("copied", n).Int64("size", size).Msg("progress")
		}
	}
}

func throughput(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / (1 << 20) / d.Seconds()
}
