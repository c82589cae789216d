package page

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileObserver writes an HTML dump (and a screenshot when the page supports
// it) for every snapshot into Dir. Files are numbered in snapshot order so a
// run can be replayed by eye.
type FileObserver struct {
	Dir string

	mu  sync.Mutex
	seq int
}

func (o *FileObserver) Snapshot(ctx context.Context, p Page, tag string) {
	html, err := p.HTML(ctx)
	if err != nil {
		return
	}

	o.mu.Lock()
	o.seq++
	n := o.seq
	o.mu.Unlock()

	base := filepath.Join(o.Dir, fmt.Sprintf("%03d-%s", n, tag))
	_ = os.MkdirAll(o.Dir, 0o755)
	_ = os.WriteFile(base+".html", []byte(html), 0o644)

	if s, ok := p.(Screenshotter); ok {
		_ = s.Screenshot(ctx, base+".png")
	}
}
