package audio

// slicer collects captured bytes and cuts them into timeslice fragments.
// It is not safe for concurrent use.
type slicer struct {
	size    int
	pending []byte
}

func newSlicer(size int) *slicer {
	if size <= 0 {
		size = 1
	}
	return &slicer{size: size, pending: make([]byte, 0, size)}
}

// add appends data and returns the pending bytes once at least one
// timeslice has built up.
func (s *slicer) add(data []byte) ([]byte, bool) {
	s.pending = append(s.pending, data...)
	return s.cut()
}

// addSamples is add for 16-bit little-endian PCM.
func (s *slicer) addSamples(samples []int16) ([]byte, bool) {
	s.pending = encodeSamples(s.pending, samples)
	return s.cut()
}

func (s *slicer) cut() ([]byte, bool) {
	if len(s.pending) < s.size {
		return nil, false
	}
	full := s.pending
	s.pending = make([]byte, 0, s.size)
	return full, true
}

// flush returns the partial slice left at the end of a recording. It may be
// empty.
func (s *slicer) flush() []byte {
	last := s.pending
	s.pending = make([]byte, 0, s.size)
	return last
}
