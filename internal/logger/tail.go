package logger

import (
	"bytes"
	"sync"
)

const defaultTailSize = 100

// TailBuffer is an io.Writer that keeps the last lines written to it.
type TailBuffer struct {
	mu      sync.Mutex
	size    int
	lines   []string
	partial []byte
}

// NewTailBuffer keeps up to size lines. A size <= 0 uses the default.
func NewTailBuffer(size int) *TailBuffer {
	if size <= 0 {
		size = defaultTailSize
	}
	return &TailBuffer{size: size}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := append(t.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		t.push(string(data[:i]))
		data = data[i+1:]
	}
	t.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (t *TailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.size {
		t.lines = t.lines[len(t.lines)-t.size:]
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (t *TailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
