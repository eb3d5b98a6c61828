package cli

import (
	"bufio"
	"context"
	"io"
)

// linePump reads its source exactly once and fans whole lines out to the
// current subscriber. Watch mode swaps subscribers on every reload; a
// single pump keeps a second goroutine from ever blocking on the same
// stdin read (ghost readers that swallow the next keystroke).
type linePump struct {
	lines chan string
}

func newLinePump(r io.Reader) *linePump {
	p := &linePump{lines: make(chan string)}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		close(p.lines)
	}()
	return p
}

// Reader returns an io.Reader view of the pump bound to ctx. Reads yield
// full lines; cancellation surfaces as io.EOF, which the run loop treats
// as a clean stop. A line arriving while nobody is bound waits in the
// pump for the next reader.
func (p *linePump) Reader(ctx context.Context) io.Reader {
	return &pumpReader{ctx: ctx, pump: p}
}

type pumpReader struct {
	ctx  context.Context
	pump *linePump
	buf  []byte
}

func (r *pumpReader) Read(b []byte) (int, error) {
	if len(r.buf) == 0 {
		select {
		case <-r.ctx.Done():
			return 0, io.EOF
		case line, ok := <-r.pump.lines:
			if !ok {
				return 0, io.EOF
			}
			r.buf = append(r.buf, line...)
			r.buf = append(r.buf, '\n')
		}
	}
	n := copy(b, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
