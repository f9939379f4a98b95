package console

import "sync"

// persister writes transcript snapshots on its own goroutine. Only the most
// recent snapshot is kept; older unwritten ones are superseded.
type persister struct {
	write func(lines []string)

	mu         sync.Mutex
	cond       *sync.Cond
	pending    []string
	hasPending bool
	busy       bool
	closed     bool
}

func newPersister(write func(lines []string)) *persister {
	p := &persister{write: write}
	p.cond = sync.NewCond(&p.mu)
	go p.loop()
	return p
}

func (p *persister) schedule(lines []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.pending = lines
	p.hasPending = true
	p.cond.Broadcast()
}

func (p *persister) loop() {
	p.mu.Lock()
	for {
		for !p.hasPending && !p.closed {
			p.cond.Wait()
		}
		if !p.hasPending {
			p.mu.Unlock()
			return
		}
		lines := p.pending
		p.pending = nil
		p.hasPending = false
		p.busy = true
		p.mu.Unlock()

		p.write(lines)

		p.mu.Lock()
		p.busy = false
		p.cond.Broadcast()
	}
}

// flush blocks until every scheduled snapshot has been written.
func (p *persister) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.hasPending || p.busy {
		p.cond.Wait()
	}
}

// discard drops the unwritten snapshot and waits out an in-flight write.
func (p *persister) discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
	p.hasPending = false
	for p.busy {
		p.cond.Wait()
	}
}

// close writes whatever is pending and stops the loop.
func (p *persister) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	for p.hasPending || p.busy {
		p.cond.Wait()
	}
}
