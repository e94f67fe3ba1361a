package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Options configures one call to Run.
type Options struct {
	Root        string
	FileFilter  FileFilter
	NumWorkers  int
	Quiet       bool
	OnResult    func(TestRun) // invoked by the reporter for each completed file, in completion order
}

// Run drives the producer/worker/reporter pipeline (spec.md §4.7): a
// single-goroutine directory walk feeds a work channel; a pool of workers
// runs the full per-file pipeline and sends each TestRun on a result
// channel; the calling goroutine drains results into a Summary. Both
// channels are unbuffered: the walk waits until a worker is free to take
// each path, and a worker waits until the reporter takes its result.
func Run(ctx context.Context, p Pipeline, opts Options) Summary {
	work := make(chan string)
	results := make(chan TestRun)
	done := make(chan struct{})

	go walk(opts.Root, opts.FileFilter, work, done)

	var wg sync.WaitGroup
	numWorkers := opts.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for path := range work {
				select {
				case results <- runFile(ctx, p, path):
				case <-done:
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := collect(results, opts.OnResult)
	close(done)
	return summary
}

func collect(results <-chan TestRun, onResult func(TestRun)) Summary {
	var s Summary
	for run := range results {
		s.Runs = append(s.Runs, run)
		if onResult != nil {
			onResult(run)
		}
		tally(&s, run)
	}
	return s
}

func tally(s *Summary, run TestRun) {
	for _, r := range run.Revisions {
		switch r.Outcome {
		case Ok:
			s.OkCount++
		case Ignored:
			s.IgnoredCount++
		case Filtered:
			s.FilteredCount++
		case Errored:
			s.FailedCount++
		}
	}
}

// RunWithGroup is an alternative entry point that runs Run inside an
// errgroup whose context derives from ctx. The group holds no other task,
// so only ctx cancels in-flight subprocess runs, and the returned error is
// always nil. It otherwise behaves exactly like Run.
func RunWithGroup(ctx context.Context, p Pipeline, opts Options) (Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	var summary Summary
	g.Go(func() error {
		summary = Run(gctx, p, opts)
		return nil
	})
	err := g.Wait()
	return summary, err
}
