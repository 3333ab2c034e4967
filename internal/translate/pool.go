// Package translate parallelizes constraint/preference translation
// across a bounded worker pool, the Go counterpart of the original
// implementation's `multiprocessing.Pool(num_of_process).map(...)` —
// used there because the ANTLR-generated parser was not thread-safe.
// Go's translator has no such restriction, but the ordered,
// bounded-concurrency map shape is still the right tool for translating
// a batch of independent source strings, so it is kept.
package translate

import (
	"context"
	"sync"

	"github.com/gitrdm/hyvarrec/pkg/translator"
)

// Job is one source string awaiting translation, tagged with its
// position so results can be returned in input order regardless of
// which worker finishes first.
type Job struct {
	Index  int
	Source string
}

// Result pairs a Job's outcome with its original index.
type Result struct {
	Index      int
	Translated translator.Translated
	Err        error
}

// Constraints translates every source string in sources using up to
// numWorkers concurrent workers, preserving input order in the returned
// slice. numWorkers <= 1 runs sequentially in the caller's goroutine,
// matching the original tool's single-process fallback. The first
// translation error cancels outstanding work and is returned; already
//-dispatched jobs are allowed to finish rather than abandoned.
func Constraints(tr translator.Translator, sources []string, featuresAsBoolean bool, numWorkers int) ([]translator.Translated, error) {
	return run(tr.TranslateConstraint, sources, featuresAsBoolean, numWorkers)
}

// Preferences is Constraints for preference source strings.
func Preferences(tr translator.Translator, sources []string, featuresAsBoolean bool, numWorkers int) ([]translator.Translated, error) {
	return run(tr.TranslatePreference, sources, featuresAsBoolean, numWorkers)
}

func run(translate func(string, bool) (translator.Translated, error), sources []string, featuresAsBoolean bool, numWorkers int) ([]translator.Translated, error) {
	out := make([]translator.Translated, len(sources))
	if len(sources) == 0 {
		return out, nil
	}

	if numWorkers <= 1 {
		for i, src := range sources {
			t, err := translate(src, featuresAsBoolean)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := make(chan Job)
	results := make(chan Result)

	var wg sync.WaitGroup
	workers := numWorkers
	if workers > len(sources) {
		workers = len(sources)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				t, err := translate(job.Source, featuresAsBoolean)
				select {
				case results <- Result{Index: job.Index, Translated: t, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, src := range sources {
			select {
			case jobs <- Job{Index: i, Source: src}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	received := 0
	for r := range results {
		received++
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
			cancel()
			continue
		}
		if firstErr == nil {
			out[r.Index] = r.Translated
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if received < len(sources) {
		return nil, context.Canceled
	}
	return out, nil
}
