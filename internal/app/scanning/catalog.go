package scanning

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
)

// DefaultCatalogCapacity bounds the number of files a single run will scan.
const DefaultCatalogCapacity = 100_000

// Catalog is the bounded FIFO of files awaiting a worker, plus the run's
// counters. Discovery counters are written only by the walk, which completes
// before any worker starts; scan counters are updated concurrently by workers.
type Catalog struct {
	mu        sync.Mutex
	items     *queue.Queue
	capacity  int
	enqueued  int
	processed int

	// Discovery phase.
	dirsVisited  int64
	dirsSkipped  int64
	filesVisited int64
	bytesVisited int64

	// Scan phase.
	bytesRead atomic.Int64
	failures  atomic.Int64
	findings  atomic.Int64
}

// NewCatalog creates an empty catalog holding at most capacity items.
// A non-positive capacity selects DefaultCatalogCapacity.
func NewCatalog(capacity int) *Catalog {
	if capacity <= 0 {
		capacity = DefaultCatalogCapacity
	}
	return &Catalog{items: queue.New(), capacity: capacity}
}

// Capacity returns the maximum number of items the catalog accepts.
func (c *Catalog) Capacity() int { return c.capacity }

// Add appends item and reports whether the catalog is now full. Adding to a
// full catalog is a no-op that also reports true.
func (c *Catalog) Add(item domain.WorkItem) (full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enqueued >= c.capacity {
		return true
	}
	c.items.Add(item)
	c.enqueued++
	return c.enqueued >= c.capacity
}

// Claim removes the oldest item. The second result is the number of items
// claimed so far including this one. ok is false once the catalog is empty.
func (c *Catalog) Claim() (item domain.WorkItem, processed int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.items.Length() == 0 {
		return domain.WorkItem{}, c.processed, false
	}
	item = c.items.Remove().(domain.WorkItem)
	c.processed++
	return item, c.processed, true
}

// Len returns the number of unclaimed items.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Length()
}

// Enqueued returns how many items were ever added.
func (c *Catalog) Enqueued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enqueued
}

// Processed returns how many items have been claimed.
func (c *Catalog) Processed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed
}

func (c *Catalog) recordDirectory()        { c.dirsVisited++ }
func (c *Catalog) recordSkippedDirectory() { c.dirsSkipped++ }

func (c *Catalog) recordFile(size int64) {
	c.filesVisited++
	c.bytesVisited += size
}

func (c *Catalog) recordScan(bytes int64, failed bool) {
	c.bytesRead.Add(bytes)
	if failed {
		c.failures.Add(1)
	}
}

func (c *Catalog) recordFinding() { c.findings.Add(1) }

// Counters is a snapshot of a run's counters.
type Counters struct {
	DirectoriesVisited int64
	DirectoriesSkipped int64
	FilesVisited       int64
	BytesVisited       int64

	FilesProcessed int64
	BytesRead      int64
	Failures       int64
	Findings       int64
}

// Counters returns a snapshot. It is only meaningful after the worker pool
// has joined.
func (c *Catalog) Counters() Counters {
	c.mu.Lock()
	processed := c.processed
	c.mu.Unlock()

	return Counters{
		DirectoriesVisited: c.dirsVisited,
		DirectoriesSkipped: c.dirsSkipped,
		FilesVisited:       c.filesVisited,
		BytesVisited:       c.bytesVisited,
		FilesProcessed:     int64(processed),
		BytesRead:          c.bytesRead.Load(),
		Failures:           c.failures.Load(),
		Findings:           c.findings.Load(),
	}
}
