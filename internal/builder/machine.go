package builder

import (
	"context"
	"log/slog"

	"github.com/looplab/fsm"
)

// Submission states.
const (
	StateDraft      = "draft"
	StateSubmitting = "submitting"
	StateSubmitted  = "submitted"
)

const (
	eventSubmit  = "submit"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

func newMachine(initial, formID string, logger *slog.Logger) *fsm.FSM {
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventSubmit, Src: []string{StateDraft}, Dst: StateSubmitting},
			{Name: eventSucceed, Src: []string{StateSubmitting}, Dst: StateSubmitted},
			{Name: eventFail, Src: []string{StateSubmitting}, Dst: StateDraft},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("submission state changed",
					"form_id", formID,
					"event", e.Event,
					"from", e.Src,
					"to", e.Dst,
				)
			},
		},
	)
}
