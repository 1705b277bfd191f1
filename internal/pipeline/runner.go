package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/texdiff/internal/logfields"
)

// runStages executes stages in order, recording timing and stopping on
// the first fatal error. Warnings are recorded and execution continues;
// there is no other partial-success state between stages.
func runStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, def := range stages {
		if err := ctx.Err(); err != nil {
			return newFatalStageError(def.Name, err)
		}

		slog.Debug("Stage starting", logfields.RunID(st.RunID), logfields.Stage(string(def.Name)))
		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		st.Durations[def.Name] = dur
		slog.Debug("Stage finished",
			logfields.RunID(st.RunID),
			logfields.Stage(string(def.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())),
			logfields.Error(err))

		if err == nil {
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			// Unclassified errors abort by default.
			se = newFatalStageError(def.Name, err)
		}
		switch se.Kind {
		case StageErrorWarning:
			st.Warnings = append(st.Warnings, se)
			slog.Warn("Stage warning", logfields.Stage(string(se.Stage)), logfields.Error(se.Err))
		default:
			return se
		}
	}
	return nil
}
