package covers

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/CrankBoyHQ/crankboy-covers/analysis"
	"github.com/CrankBoyHQ/crankboy-covers/enhance"
	"github.com/CrankBoyHQ/crankboy-covers/mono"
)

// Outcome is the terminal record of one source image. It is created
// once by the worker that processed the image and never mutated.
type Outcome struct {
	Path     string
	Stats    analysis.Statistics
	Strategy string
	Err      error
}

// Failed reports whether the image could not be converted.
func (o Outcome) Failed() bool { return o.Err != nil }

// Summary aggregates a batch run. The counts depend only on the set of
// outcomes, not on the order workers finished in; the Outcomes slice
// is in completion order.
type Summary struct {
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

func (c *Converter) findImages(ctx context.Context, dir string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		entries, err := os.ReadDir(dir)
		if err != nil {
			errc <- err
			return
		}

		for _, entry := range entries {
			// Ignore hidden entries, otherwise we end up fighting with
			// things like Spotlight, etc. The scan is deliberately
			// flat; subdirectories are not descended into.
			if entry.Name()[0] == '.' || entry.IsDir() {
				continue
			}

			if !strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
				continue
			}

			select {
			case out <- filepath.Join(dir, entry.Name()):
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc, nil
}

func (c *Converter) imageWorker(ctx context.Context, wg *sync.WaitGroup, in <-chan string, out chan<- Outcome, staging string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer wg.Done()
		for path := range in {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			o := c.convertOne(path, staging)
			if o.Failed() {
				c.logger.Printf("%s: failed: %v", filepath.Base(path), o.Err)
			} else {
				c.logger.Printf("%s: %s (mean %.3f, stddev %.3f)", filepath.Base(path), o.Strategy, o.Stats.Mean, o.Stats.StdDev)
			}
			out <- o
		}
	}()
	return errc
}

// convertOne pushes a single source image through probe, policy and
// transform, writing the result into the staging directory. Every
// failure is captured in the returned Outcome; nothing propagates.
func (c *Converter) convertOne(path, staging string) Outcome {
	o := Outcome{Path: path}

	f, err := os.Open(path)
	if err != nil {
		o.Err = err
		return o
	}
	defer f.Close()

	h := sha1.New()
	m, _, err := image.Decode(io.TeeReader(f, h))
	if err != nil {
		o.Err = fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		return o
	}
	sum := fmt.Sprintf("%X", h.Sum(nil))

	o.Stats = analysis.Measure(m, analysis.Mask{LeftPercent: c.cfg.MaskPercent})
	o.Stats.Path = path

	strategy := enhance.Select(o.Stats, c.cfg.Enhance)
	o.Strategy = strategy.Label

	dst := filepath.Join(staging, filepath.Base(path))

	if c.db != nil {
		blob, err := c.db.FindCover(sum)
		if err != nil {
			o.Err = err
			return o
		}
		if blob != nil {
			o.Err = os.WriteFile(dst, blob, 0o644)
			return o
		}
	}

	cover, err := mono.Transform(m, strategy, mono.Options{MaxSize: c.cfg.MaxSize})
	if err != nil {
		o.Err = fmt.Errorf("transform %s: %w", filepath.Base(path), err)
		return o
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, cover); err != nil {
		o.Err = err
		return o
	}

	if c.db != nil {
		if err := c.db.AddCover(sum, buf.Bytes()); err != nil {
			o.Err = err
			return o
		}
	}

	o.Err = os.WriteFile(dst, buf.Bytes(), 0o644)
	return o
}

func (c *Converter) workers() int {
	n := runtime.NumCPU()
	if c.cfg.Workers > 0 && n > c.cfg.Workers {
		n = c.cfg.Workers
	}
	return n
}

// Convert processes every PNG found directly inside sourceDir into
// stagingDir. Individual image failures are recorded in the summary
// and never abort the batch; Convert itself fails only when the source
// directory cannot be read, the staging directory cannot be created,
// or the context is cancelled. An empty source directory yields an
// empty summary.
func (c *Converter) Convert(ctx context.Context, sourceDir, stagingDir string) (*Summary, error) {
	dir, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	paths, errc, err := c.findImages(ctx, dir)
	if err != nil {
		return nil, err
	}
	errcList = append(errcList, errc)

	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < c.workers(); i++ {
		wg.Add(1)
		errcList = append(errcList, c.imageWorker(ctx, &wg, paths, results, stagingDir))
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{}
	for o := range results {
		summary.Outcomes = append(summary.Outcomes, o)
		if o.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	return summary, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
