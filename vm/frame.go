package vm

// frame is one call activation: the locals visible to LOAD and STORE and the
// address execution resumes at when the frame returns.
type frame struct {
	returnAddr int // StopSignal for the top-level frame
	callSiteIP int // address of the CALL that created the frame
	target     int // address the frame was entered at
	locals     []int64
}

// activate prepares the frame for a new call with localCount zeroed locals.
// The locals slice is reused when it is large enough.
func (f *frame) activate(target, returnAddr, callSiteIP, localCount int) {
	f.target = target
	f.returnAddr = returnAddr
	f.callSiteIP = callSiteIP
	if cap(f.locals) >= localCount {
		f.locals = f.locals[:localCount]
		clear(f.locals)
	} else {
		f.locals = make([]int64, localCount)
	}
}

// validLocal reports whether index addresses one of the frame's locals.
func (f *frame) validLocal(index int64) bool {
	return index >= 0 && index < int64(len(f.locals))
}
