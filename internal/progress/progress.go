// Package progress renders a single-line progress meter for terminal runs.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	barWidth     = 40
	minRedrawGap = 100 * time.Millisecond
)

// Meter writes an in-place progress line of the form
//
//	[00:01:23] [########>-----------] 12345/100000 (eta 00:00:41)
//
// to a writer, typically stderr. Redraws are rate-limited; Finish always
// renders. A Meter is not safe for concurrent use.
type Meter struct {
	w       io.Writer
	total   uint64
	started time.Time
	last    time.Time
	now     func() time.Time
}

// NewMeter returns a Meter counting up to total.
func NewMeter(w io.Writer, total uint64) *Meter {
	m := &Meter{w: w, total: total, now: time.Now}
	m.started = m.now()
	return m
}

// Update renders the meter at position done. Redraws arriving within 100ms
// of the previous one are dropped unless they complete the meter.
func (m *Meter) Update(done uint64) {
	t := m.now()
	if t.Sub(m.last) < minRedrawGap && done < m.total {
		return
	}
	m.last = t
	m.render(done, t)
}

// Finish renders the completed meter and terminates the line.
func (m *Meter) Finish() {
	m.render(m.total, m.now())
	fmt.Fprintln(m.w)
}

func (m *Meter) render(done uint64, t time.Time) {
	if done > m.total {
		done = m.total
	}
	frac := 1.0
	if m.total > 0 {
		frac = float64(done) / float64(m.total)
	}

	filled := int(frac * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	var bar strings.Builder
	bar.WriteString(strings.Repeat("#", filled))
	if filled < barWidth {
		bar.WriteByte('>')
		bar.WriteString(strings.Repeat("-", barWidth-filled-1))
	}

	elapsed := t.Sub(m.started)
	eta := "--:--:--"
	switch {
	case done >= m.total:
		eta = formatDuration(0)
	case done > 0:
		remaining := time.Duration(float64(elapsed) * float64(m.total-done) / float64(done))
		eta = formatDuration(remaining)
	}

	fmt.Fprintf(m.w, "\r[%s] [%s] %d/%d (eta %s)",
		formatDuration(elapsed), bar.String(), done, m.total, eta)
}

// formatDuration renders a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, min, d/time.Second)
}
