package fsw

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"signflow/internal/logging"
	"signflow/internal/services"
)

//go:embed symbol_metrics.tsv
var embeddedMetrics []byte

// Size is the width and height of a symbol glyph.
type Size struct {
	Width  int
	Height int
}

type sizeRange struct {
	start, end int
	size       Size
}

// Metrics resolves symbol glyph sizes.
type Metrics struct {
	ranges []sizeRange
}

// SizeOf returns the glyph size of a symbol key such as "S14c20".
func (m *Metrics) SizeOf(key string) (Size, bool) {
	if m == nil || len(key) < 4 || key[0] != 'S' {
		return Size{}, false
	}
	base, err := strconv.ParseInt(key[1:4], 16, 32)
	if err != nil {
		return Size{}, false
	}
	for _, r := range m.ranges {
		if int(base) >= r.start && int(base) <= r.end {
			return r.size, true
		}
	}
	return Size{}, false
}

func parseMetrics(data []byte) (*Metrics, error) {
	m := &Metrics{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", line, len(fields))
		}
		start, err1 := strconv.ParseInt(fields[0], 16, 32)
		end, err2 := strconv.ParseInt(fields[1], 16, 32)
		width, err3 := strconv.Atoi(fields[2])
		height, err4 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("line %d: malformed values", line)
		}
		m.ranges = append(m.ranges, sizeRange{start: int(start), end: int(end), size: Size{Width: width, Height: height}})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(m.ranges) == 0 {
		return nil, fmt.Errorf("no metrics defined")
	}
	return m, nil
}

// Loader loads symbol metrics once. Concurrent Load calls share a single
// load and a completed load is never repeated.
type Loader struct {
	source func(context.Context) ([]byte, error)
	logger *slog.Logger

	group  singleflight.Group
	loaded atomic.Pointer[Metrics]
	loads  atomic.Int32
}

// NewLoader returns a loader reading the embedded metrics table.
func NewLoader(logger *slog.Logger) *Loader {
	return NewLoaderFrom(func(context.Context) ([]byte, error) { return embeddedMetrics, nil }, logger)
}

// NewLoaderFrom returns a loader reading metrics from source.
func NewLoaderFrom(source func(context.Context) ([]byte, error), logger *slog.Logger) *Loader {
	return &Loader{source: source, logger: logging.NewComponentLogger(logger, "fsw")}
}

// Load returns the metrics, loading them on first use.
func (l *Loader) Load(ctx context.Context) (*Metrics, error) {
	if m := l.loaded.Load(); m != nil {
		return m, nil
	}
	ch := l.group.DoChan("metrics", func() (any, error) {
		if m := l.loaded.Load(); m != nil {
			return m, nil
		}
		l.loads.Add(1)
		data, err := l.source(context.WithoutCancel(ctx))
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "fsw", "load metrics", "read source", err)
		}
		m, err := parseMetrics(data)
		if err != nil {
			return nil, services.Wrap(services.ErrMalformedResponse, "fsw", "load metrics", "parse", err)
		}
		l.loaded.Store(m)
		l.logger.Debug("symbol metrics loaded", logging.Int("ranges", len(m.ranges)))
		return m, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Metrics), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded reports whether metrics are available without waiting.
func (l *Loader) Loaded() bool {
	return l.loaded.Load() != nil
}
