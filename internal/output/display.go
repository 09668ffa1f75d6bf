package output

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type jobLine struct {
	name     string
	state    string
	received int64
	total    int64
	started  time.Time
	index    int
}

// Display renders live progress for running jobs, one line per job,
// repainting in place a few times a second.
type Display struct {
	mu       sync.Mutex
	jobs     map[string]*jobLine
	painted  int
	doneCh   chan struct{}
	wg       sync.WaitGroup
	tick     time.Duration
	jobCount int
}

func NewDisplay() *Display {
	return &Display{
		jobs:   make(map[string]*jobLine),
		doneCh: make(chan struct{}),
		tick:   300 * time.Millisecond,
	}
}

func (d *Display) Register(id, name string, total int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs[id] = &jobLine{
		name:    name,
		state:   "running",
		total:   total,
		started: time.Now(),
		index:   d.jobCount,
	}
	d.jobCount++
}

func (d *Display) Update(id string, received int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line, ok := d.jobs[id]; ok {
		line.received = received
	}
}

func (d *Display) SetState(id, state string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line, ok := d.jobs[id]; ok {
		line.state = state
	}
}

func (d *Display) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.paint()
			case <-d.doneCh:
				d.paint()
				return
			}
		}
	}()
}

// Stop paints one final frame and shuts the repaint goroutine down.
func (d *Display) Stop() {
	close(d.doneCh)
	d.wg.Wait()
}

func (d *Display) paint() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.painted > 0 {
		fmt.Printf("\033[%dF\033[J", d.painted)
	}
	ordered := make([]*jobLine, 0, len(d.jobs))
	for _, line := range d.jobs {
		ordered = append(ordered, line)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })
	for _, line := range ordered {
		fmt.Println(d.renderLine(line))
	}
	d.painted = len(ordered)
}

func (d *Display) renderLine(line *jobLine) string {
	name := line.name
	if len(name) > 28 {
		name = name[:25] + "..."
	}
	elapsed := time.Since(line.started).Seconds()
	switch line.state {
	case "completed":
		return fmt.Sprintf("%s %s %s", FSuccess(StyleSymbols["pass"]), FDetail(name),
			FDebug(FormatBytes(uint64(line.received))))
	case "paused":
		return fmt.Sprintf("%s %s %s", FWarning(StyleSymbols["warning"]), FDetail(name),
			FDebug("paused at "+FormatBytes(uint64(line.received))))
	case "error":
		return fmt.Sprintf("%s %s", FError(StyleSymbols["fail"]), FDetail(name))
	}
	if line.total <= 0 {
		return fmt.Sprintf("%s %s %s %s", FInfo(StyleSymbols["pending"]), FDetail(name),
			FDebug(FormatBytes(uint64(line.received))), FDebug(FormatSpeed(line.received, elapsed)))
	}
	eta := time.Duration(-1)
	if line.received > 0 {
		remaining := float64(line.total-line.received) / (float64(line.received) / elapsed)
		eta = time.Duration(remaining * float64(time.Second))
	}
	return fmt.Sprintf("%s %s%s/%s %s ETA %s", FDetail(name),
		ProgressBar(line.received, line.total, 30),
		FDebug(FormatBytes(uint64(line.received))), FDebug(FormatBytes(uint64(line.total))),
		FDebug(FormatSpeed(line.received, elapsed)), FDebug(FormatETA(eta)))
}
