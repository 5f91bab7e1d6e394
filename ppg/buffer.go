package ppg

// SampleBuffer is an append-only, fixed-capacity sample store allocated once
// per session.
type SampleBuffer struct {
	samples []Sample
}

func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &SampleBuffer{samples: make([]Sample, 0, capacity)}
}

// Append stores s and reports false once the buffer is full.
func (b *SampleBuffer) Append(s Sample) bool {
	if len(b.samples) == cap(b.samples) {
		return false
	}
	b.samples = append(b.samples, s)
	return true
}

func (b *SampleBuffer) Len() int   { return len(b.samples) }
func (b *SampleBuffer) Cap() int   { return cap(b.samples) }
func (b *SampleBuffer) Full() bool { return len(b.samples) == cap(b.samples) }

func (b *SampleBuffer) Last() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Samples returns a copy of the stored samples.
func (b *SampleBuffer) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Tail returns a copy of the last n samples, or all of them if fewer exist.
func (b *SampleBuffer) Tail(n int) []Sample {
	if n > len(b.samples) {
		n = len(b.samples)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Sample, n)
	copy(out, b.samples[len(b.samples)-n:])
	return out
}

// Reset discards every sample while keeping the allocation.
func (b *SampleBuffer) Reset() {
	b.samples = b.samples[:0]
}
