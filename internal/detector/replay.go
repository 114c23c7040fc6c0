package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/banshee-data/putt.report/internal/detection"
)

// ReplayDetector answers each call with the next recorded detection list.
// Recordings are JSON lines, one {"detections": [...]} object per frame;
// blank lines are frames without detections. Once exhausted it reports no
// detections.
type ReplayDetector struct {
	mu     sync.Mutex
	frames [][]detection.Detection
	next   int
	Loop   bool // Restart from the first frame when exhausted
}

// NewReplayDetector reads a recording from r.
func NewReplayDetector(r io.Reader) (*ReplayDetector, error) {
	d := &ReplayDetector{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxResponseBytes)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			d.frames = append(d.frames, nil)
			continue
		}
		var resp detectResponse
		if err := json.Unmarshal([]byte(text), &resp); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		d.frames = append(d.frames, resp.Detections)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return d, nil
}

// LoadReplayFile opens and parses a recording.
func LoadReplayFile(path string) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	return NewReplayDetector(f)
}

// Len returns the number of recorded frames.
func (d *ReplayDetector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

// Detect returns the next recorded frame's detections.
func (d *ReplayDetector) Detect(ctx context.Context, _ Frame) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.frames) {
		if !d.Loop || len(d.frames) == 0 {
			return nil, nil
		}
		d.next = 0
	}
	dets := d.frames[d.next]
	d.next++
	return dets, nil
}
