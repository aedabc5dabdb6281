package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"mediasort/internal/mover"
	"mediasort/internal/record"
	"mediasort/internal/scanner"
	"mediasort/internal/stage"
)

// progressObserver drives a spinner from stage outcomes. The total is unknown
// until the scanner finishes, so it counts rather than fills.
type progressObserver struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	found    int
	finished int
}

func newProgressObserver(w io.Writer) *progressObserver {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) Observe(stageName string, _ *record.Record, outcome stage.Outcome, _ time.Duration, _ error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch stageName {
	case scanner.StageName:
		if outcome != stage.OutcomeHandled {
			return
		}
		p.found++
	case mover.StageName:
		p.finished++
		_ = p.bar.Add(1)
	default:
		return
	}
	p.bar.Describe(fmt.Sprintf("sorted %d of %d found", p.finished, p.found))
}

func (p *progressObserver) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
