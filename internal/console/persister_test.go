package console

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersister_LatestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var written [][]string

	p := newPersister(func(lines []string) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		written = append(written, lines)
		mu.Unlock()
	})

	p.schedule([]string{"1"})
	<-started
	p.schedule([]string{"2"})
	p.schedule([]string{"3"})
	close(release)
	p.flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"1"}, {"3"}}, written)
}

func TestPersister_DiscardAndClose(t *testing.T) {
	var mu sync.Mutex
	var written [][]string
	p := newPersister(func(lines []string) {
		mu.Lock()
		written = append(written, lines)
		mu.Unlock()
	})

	p.schedule([]string{"a"})
	p.flush()
	p.schedule([]string{"b"})
	p.discard()
	p.schedule([]string{"c"})
	p.close()
	p.schedule([]string{"after close"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a"}, written[0])
	assert.Equal(t, []string{"c"}, written[len(written)-1])
	assert.LessOrEqual(t, len(written), 3)
}
