package keypad

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Record is one signal event as delivered to a panel.
type Record struct {
	Panel     string
	Event     SignalEvent
	Timestamp time.Time
}

// Recorder writes records as a gob stream. Recordings contain every key
// pressed, credentials included, and must be stored accordingly.
type Recorder struct {
	Dest io.Writer

	mu   sync.Mutex
	enc  *gob.Encoder
	once sync.Once
}

func (r *Recorder) Receive(rec Record) error {
	r.init()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(rec)
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.enc = gob.NewEncoder(r.Dest)
	})
}

// ReadIn decodes records from r into out until EOF and closes out.
func ReadIn(out chan<- Record, r io.Reader) error {
	defer close(out)

	dec := gob.NewDecoder(r)

	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("while decoding: %w", err)
		}

		out <- rec
	}
}
