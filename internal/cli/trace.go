package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/on-the-ground/reducks_go/ducks/message"
	"github.com/on-the-ground/reducks_go/ducks/store"
	"go.uber.org/zap"
)

type traceEntry struct {
	Seq     int    `json:"seq"`
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Error   bool   `json:"error,omitempty"`
}

// recorder collects dispatched messages without request ids, which differ between runs.
type recorder struct {
	mu      sync.Mutex
	entries []traceEntry
}

func (r *recorder) record(msg message.Message, _ any) {
	e := traceEntry{Type: string(msg.Type), Error: msg.Error}
	switch p := msg.Payload.(type) {
	case fetchRequest:
		e.Key = p.Key
	case error:
		e.Payload = p.Error()
	default:
		e.Payload = p
	}
	if meta, ok := message.AsyncMetaOf(msg); ok {
		e.Key = fetchKey(meta.Trigger)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = len(r.entries) + 1
	r.entries = append(r.entries, e)
}

func (r *recorder) trace() []traceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]traceEntry(nil), r.entries...)
}

// timing sums the reducer time spent on one message type.
type timing struct {
	Type  string        `json:"type"`
	Count int           `json:"count"`
	Total time.Duration `json:"totalNs"`
}

// collectTimings drains the change feed until it is closed, then sends the
// timings in the order the types were first reduced.
func collectTimings(changes <-chan store.Change, logger *zap.Logger) <-chan []timing {
	out := make(chan []timing, 1)
	go func() {
		var timings []timing
		index := map[message.Type]int{}
		for c := range changes {
			took := c.Span.Duration()
			logger.Debug("reduced", zap.String("type", string(c.Message.Type)), zap.Duration("took", took))

			i, ok := index[c.Message.Type]
			if !ok {
				i = len(timings)
				index[c.Message.Type] = i
				timings = append(timings, timing{Type: string(c.Message.Type)})
			}
			timings[i].Count++
			timings[i].Total += took
		}
		out <- timings
	}()
	return out
}

type report struct {
	Name    string       `json:"name"`
	Trace   []traceEntry `json:"trace"`
	State   stateView    `json:"state"`
	Timings []timing     `json:"timings,omitempty"`
}

func writeReport(w io.Writer, format string, rep report) error {
	if format == "json" {
		out, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	}

	if _, err := fmt.Fprintf(w, "scenario %s\n", rep.Name); err != nil {
		return err
	}
	for _, e := range rep.Trace {
		line := fmt.Sprintf("%02d %s", e.Seq, e.Type)
		if e.Key != "" {
			line += " key=" + e.Key
		}
		switch {
		case e.Error:
			line += fmt.Sprintf(" error=%q", e.Payload)
		case e.Payload != nil:
			payload, err := json.Marshal(e.Payload)
			if err != nil {
				return err
			}
			line += " payload=" + string(payload)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	state, err := json.MarshalIndent(rep.State, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "state:\n%s\n", state); err != nil {
		return err
	}
	if len(rep.Timings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "timings:"); err != nil {
		return err
	}
	for _, t := range rep.Timings {
		if _, err := fmt.Fprintf(w, "%s count=%d total=%s\n", t.Type, t.Count, t.Total); err != nil {
			return err
		}
	}
	return nil
}
