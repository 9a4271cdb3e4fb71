package optimize

import (
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Stats describes what single pass did.
type Stats struct {
	Declarations int   // declarations matching data URI patterns
	Nodes        int   // url() nodes rewritten
	Skipped      int   // url() nodes without SVG inside
	BytesIn      int64 // size of SVG payloads before optimization
	BytesOut     int64 // size of written payloads
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Declarations += other.Declarations
	s.Nodes += other.Nodes
	s.Skipped += other.Skipped
	s.BytesIn += other.BytesIn
	s.BytesOut += other.BytesOut
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("declarations", s.Declarations)
	enc.AddInt("nodes", s.Nodes)
	enc.AddInt("skipped", s.Skipped)
	enc.AddInt64("bytes_in", s.BytesIn)
	enc.AddInt64("bytes_out", s.BytesOut)
	return nil
}

// counters are updated from many goroutines during a pass.
type counters struct {
	declarations atomic.Int64
	nodes        atomic.Int64
	skipped      atomic.Int64
	bytesIn      atomic.Int64
	bytesOut     atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Declarations: int(c.declarations.Load()),
		Nodes:        int(c.nodes.Load()),
		Skipped:      int(c.skipped.Load()),
		BytesIn:      c.bytesIn.Load(),
		BytesOut:     c.bytesOut.Load(),
	}
}
