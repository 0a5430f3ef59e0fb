package vm

import (
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/stackvm/bytecode"
)

// Tracer is an Observer that logs every step, call and return at debug level.
type Tracer struct {
	logger zerolog.Logger
}

// NewTracer returns a Tracer writing to logger.
func NewTracer(logger zerolog.Logger) *Tracer {
	return &Tracer{logger: logger}
}

func (t *Tracer) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (t *Tracer) OnStep(event StepEvent) bool {
	t.logger.Debug().
		Int("pc", event.PC).
		Str("instr", bytecode.Format(event.Instruction)).
		Ints64("stack", event.Stack).
		Int("frames", event.FrameDepth).
		Msg("step")
	return true
}

func (t *Tracer) OnCall(event CallEvent) bool {
	t.logger.Debug().
		Str("function", event.FunctionName).
		Int("target", event.Target).
		Int("locals", event.LocalCount).
		Int("frames", event.FrameDepth).
		Msg("call")
	return true
}

func (t *Tracer) OnReturn(event ReturnEvent) bool {
	t.logger.Debug().
		Str("function", event.FunctionName).
		Int("return_addr", event.ReturnAddr).
		Int("frames", event.FrameDepth).
		Msg("return")
	return true
}

var _ Observer = (*Tracer)(nil)
