package ingress

import "sync/atomic"

// StrawReceiver consumes frames on the straw-tracker port.
// It is an external collaborator of the pipeline.
type StrawReceiver interface {
	ProcessFrame(payload []byte)
}

// NopStraw is a StrawReceiver that counts and discards frames.
type NopStraw struct {
	n atomic.Uint64
}

// ProcessFrame implements StrawReceiver.
func (s *NopStraw) ProcessFrame([]byte) {
	s.n.Add(1)
}

// Count returns the number of frames received.
func (s *NopStraw) Count() uint64 {
	return s.n.Load()
}

// Demux routes classified payloads into the pipeline.
// A nil handler drops its class.
type Demux struct {
	L0    func(payload []byte, frameLength int)
	LKr   func(payload []byte, frameLength int)
	EOB   func(payload []byte)
	Straw StrawReceiver
}

// Dispatch routes one classification result.
func (d *Demux) Dispatch(res *Result) {
	switch res.Class {
	case ClassL0:
		if d.L0 != nil {
			d.L0(res.Payload, res.FrameLength)
		}
	case ClassLKr:
		if d.LKr != nil {
			d.LKr(res.Payload, res.FrameLength)
		}
	case ClassEOB:
		if d.EOB != nil {
			d.EOB(res.Payload)
		}
	case ClassStraw:
		if d.Straw != nil {
			d.Straw.ProcessFrame(res.Payload)
		}
	}
}
