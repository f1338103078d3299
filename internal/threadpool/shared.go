package threadpool

// SharedPool runs every unit on its own goroutine, delegating scheduling to
// the Go runtime.
type SharedPool struct {
	name string
}

// NewSharedPool creates a shared pool. The name only shows up in logs.
func NewSharedPool(name string) *SharedPool {
	if name == "" {
		name = "shared"
	}

	return &SharedPool{name: name}
}

// Name returns the pool name.
func (p *SharedPool) Name() string {
	return p.name
}

// Schedule runs fn on a new goroutine.
func (p *SharedPool) Schedule(fn func()) {
	p.ScheduleAction(wrap(fn))
}

// ScheduleAction runs a on a new goroutine.
func (p *SharedPool) ScheduleAction(a Action) {
	go run(p.name, a)
}

var _ ThreadPool = (*SharedPool)(nil)
