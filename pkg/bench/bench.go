// Package bench runs a batch of AURA16 programs concurrently and collects
// each one's performance metrics into a table sorted for comparison.
package bench

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BySabri/aura16/pkg/asm"
	"github.com/BySabri/aura16/pkg/cpu"
)

// Program is one unit of work: a name (for display) and assembly source.
type Program struct {
	Name   string
	Source string
}

// Runner executes a batch of programs across a worker pool and collects
// their results into a Table sorted by cycle count.
type Runner struct {
	NumWorkers int
	Results    *Table

	checked atomic.Int64
	failed  atomic.Int64
}

// NewRunner creates a Runner with numWorkers workers, or runtime.NumCPU()
// workers if numWorkers <= 0.
func NewRunner(numWorkers int) *Runner {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Runner{NumWorkers: numWorkers, Results: NewTable()}
}

// Stats returns the number of programs run and the number that failed.
func (r *Runner) Stats() (checked, failed int64) {
	return r.checked.Load(), r.failed.Load()
}

// RunAll assembles and runs every program in programs, distributing them
// across the worker pool. If verbose, a progress line is printed every 5
// seconds and a final summary line once all programs finish.
func (r *Runner) RunAll(programs []Program, verbose bool) {
	total := int64(len(programs))

	ch := make(chan Program, len(programs))
	for _, p := range programs {
		ch <- p
	}
	close(ch)

	var completed atomic.Int64
	done := make(chan struct{})
	startTime := time.Now()
	if verbose {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					comp := completed.Load()
					elapsed := time.Since(startTime)
					pct := float64(comp) / float64(total) * 100
					fmt.Printf("  [%s] %d/%d programs (%.1f%%) | %d failed\n",
						elapsed.Round(time.Second), comp, total, pct, r.failed.Load())
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < r.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				r.runOne(p)
				completed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(done)

	if verbose {
		elapsed := time.Since(startTime)
		fmt.Printf("  [%s] %d/%d programs (100.0%%) | %d failed | DONE\n",
			elapsed.Round(time.Second), total, total, r.failed.Load())
	}
}

func (r *Runner) runOne(p Program) {
	r.checked.Add(1)

	prog, err := asm.Assemble(p.Source)
	if err != nil {
		r.failed.Add(1)
		r.Results.Add(Entry{Name: p.Name, Err: fmt.Errorf("assemble %s: %w", p.Name, err)})
		return
	}

	c := cpu.NewCPU()
	c.Load(prog.Words)
	c.RunAll()

	entry := Entry{Name: p.Name, Performance: c.State().Performance}
	if !c.Halted {
		r.failed.Add(1)
		entry.Err = fmt.Errorf("%s did not halt within the step budget", p.Name)
	}
	r.Results.Add(entry)
}
