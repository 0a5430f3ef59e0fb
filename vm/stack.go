package vm

// stack is the operand stack shared by every frame of a run.
type stack struct {
	values []int64
}

func (s *stack) len() int {
	return len(s.values)
}

func (s *stack) push(v int64) {
	s.values = append(s.values, v)
}

// pop removes and returns the top value. Callers check len first.
func (s *stack) pop() int64 {
	last := len(s.values) - 1
	v := s.values[last]
	s.values = s.values[:last]
	return v
}

func (s *stack) top() (int64, bool) {
	if len(s.values) == 0 {
		return 0, false
	}
	return s.values[len(s.values)-1], true
}

func (s *stack) reset() {
	s.values = s.values[:0]
}

// snapshot returns a copy of the stack, bottom first.
func (s *stack) snapshot() []int64 {
	result := make([]int64, len(s.values))
	copy(result, s.values)
	return result
}
