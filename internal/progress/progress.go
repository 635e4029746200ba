// Package progress renders a periodic one-line summary of long-running
// per-stream work. Producers send Events on a channel; a single Reporter
// goroutine owns all state, so no locking is needed.
package progress

import (
	"context"
	"strings"
	"time"

	"github.com/backmassage/streamnorm/internal/display"
)

// DefaultInterval is how often the status line is redrawn.
const DefaultInterval = 2 * time.Second

// Event is the latest progress of one stream. Done removes the stream from
// the summary.
type Event struct {
	Stream  string
	Percent float64
	Done    bool
}

// StatusWriter owns a replace-in-place status line. *logging.Logger
// satisfies it.
type StatusWriter interface {
	Status(text string)
	ClearStatus()
}

// Reporter periodically summarizes the latest Event per active stream.
type Reporter struct {
	Out      StatusWriter
	Interval time.Duration
	Label    string // Line prefix; defaults to "Progress".
}

// Run consumes events until the channel is closed or ctx is cancelled, then
// clears the status line. It redraws only on ticks, so bursts of events cost
// nothing but a map write.
func (r *Reporter) Run(ctx context.Context, events <-chan Event) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.Out.ClearStatus()

	var st summary
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			st.update(ev)
		case <-ticker.C:
			if line := st.render(r.label()); line != "" {
				r.Out.Status(line)
			}
		}
	}
}

func (r *Reporter) label() string {
	if r.Label == "" {
		return "Progress"
	}
	return r.Label
}

// summary holds the latest percent per active stream, in first-seen order.
type summary struct {
	order  []string
	latest map[string]float64
}

func (s *summary) update(ev Event) {
	if s.latest == nil {
		s.latest = make(map[string]float64)
	}
	if ev.Done {
		if _, ok := s.latest[ev.Stream]; ok {
			delete(s.latest, ev.Stream)
			for i, name := range s.order {
				if name == ev.Stream {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := s.latest[ev.Stream]; !ok {
		s.order = append(s.order, ev.Stream)
	}
	s.latest[ev.Stream] = ev.Percent
}

// render returns "label: 0:1 45.2% | 0:2 12.0%", or "" with nothing active.
func (s *summary) render(label string) string {
	if len(s.order) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.order))
	for _, name := range s.order {
		parts = append(parts, name+" "+display.FormatPercent(s.latest[name]))
	}
	return label + ": " + strings.Join(parts, " | ")
}

// Send delivers ev to the reporter. Percent updates are lossy: when the
// reporter is busy the update is dropped and a later one supersedes it.
// Done events are delivered, blocking until the reporter takes them or ctx
// is cancelled, so a finished stream never lingers on the status line.
func Send(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	if ev.Done {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
		return
	}
	select {
	case events <- ev:
	default:
	}
}
