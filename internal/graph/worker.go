package graph

import (
	"runtime"
	"sync"

	"github.com/kadirbelkuyu/schemagraph/internal/metadata"
)

// workerPool fans table assembly out over a fixed set of goroutines.
// Assembly only reads the shared row groups, so results can be written
// straight into an index-addressed slice without locking.
type workerPool struct {
	jobs chan func()
	wg   sync.WaitGroup
}

func newWorkerPool(workers int) *workerPool {
	pool := &workerPool{
		jobs: make(chan func(), workers*2),
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go func() {
			defer pool.wg.Done()
			for job := range pool.jobs {
				job()
			}
		}()
	}
	return pool
}

func (p *workerPool) Submit(job func()) {
	p.jobs <- job
}

// Wait closes the queue and blocks until every submitted job has run.
func (p *workerPool) Wait() {
	close(p.jobs)
	p.wg.Wait()
}

func (b *Builder) assembleAll(raw *metadata.Snapshot, groups *rowGroups) []*Table {
	workers := b.settings.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(raw.Tables) {
		workers = len(raw.Tables)
	}

	tables := make([]*Table, len(raw.Tables))
	if workers <= 1 {
		for i, row := range raw.Tables {
			tables[i] = b.assembleTable(row, groups)
		}
		return tables
	}

	pool := newWorkerPool(workers)
	for i := range raw.Tables {
		i := i
		pool.Submit(func() {
			tables[i] = b.assembleTable(raw.Tables[i], groups)
		})
	}
	pool.Wait()

	return tables
}
