package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/grade"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/levels"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/storage"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/timeline"
)

// Config caps live executions so a runaway sketch cannot hold a run
// goroutine forever.
type Config struct {
	MaxLoopIterations  int
	MaxRunDuration     time.Duration
	DefaultToleranceMs int64
}

func (c Config) withDefaults() Config {
	if c.MaxLoopIterations <= 0 {
		c.MaxLoopIterations = 25
	}
	if c.MaxRunDuration <= 0 {
		c.MaxRunDuration = 60 * time.Second
	}
	if c.DefaultToleranceMs <= 0 {
		c.DefaultToleranceMs = grade.DefaultToleranceMs
	}
	return c
}

// AttemptStore persists completed runs. A nil store disables persistence.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *storage.Attempt) error
}

// Engine executes learner sketches in the live regime: statements run
// strictly sequentially, delay statements suspend for their real
// duration, and cancellation is observed at every statement boundary so
// a stop request never executes more than one further statement.
type Engine struct {
	store     AttemptStore
	streamer  *Streamer
	extractor *timeline.Extractor
	logger    *zap.Logger
	cfg       Config

	mu   sync.RWMutex
	runs map[uuid.UUID]*liveRun
}

type liveRun struct {
	run    Run
	source string
	cancel context.CancelFunc
}

func NewEngine(store AttemptStore, streamer *Streamer, logger *zap.Logger, cfg Config) *Engine {
	return &Engine{
		store:     store,
		streamer:  streamer,
		extractor: timeline.NewExtractor(logger),
		logger:    logger,
		cfg:       cfg.withDefaults(),
		runs:      make(map[uuid.UUID]*liveRun),
	}
}

// StartRun parses the submission, extracts the level's reference
// timeline and launches the live execution. Sketch errors in the
// submission are returned to the caller; a target sketch that fails to
// parse or extract is a level configuration bug.
func (e *Engine) StartRun(ctx context.Context, level *levels.Level, source string) (uuid.UUID, error) {
	prog, err := sketch.Parse(source)
	if err != nil {
		return uuid.Nil, err
	}

	target, err := e.targetSequence(level)
	if err != nil {
		return uuid.Nil, fmt.Errorf("level %s has a broken target sketch: %w", level.ID, err)
	}

	runID := uuid.New()
	runCtx, cancel := context.WithCancel(context.Background())

	lr := &liveRun{
		run: Run{
			ID:        runID,
			LevelID:   level.ID,
			State:     StatePending,
			StartedAt: time.Now(),
		},
		source: source,
		cancel: cancel,
	}

	e.mu.Lock()
	e.runs[runID] = lr
	e.mu.Unlock()

	go e.execute(runCtx, lr, level, prog, target)

	return runID, nil
}

func (e *Engine) targetSequence(level *levels.Level) (*timeline.Sequence, error) {
	prog, err := sketch.ParseLenient(level.TargetSketch)
	if err != nil {
		return nil, err
	}
	return e.extractor.Extract(prog)
}

// Cancel requests a stop. The run goroutine observes it before the next
// statement begins.
func (e *Engine) Cancel(runID uuid.UUID) error {
	e.mu.RLock()
	lr, exists := e.runs[runID]
	e.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run not found: %s", runID)
	}
	if e.snapshot(lr).State.Terminal() {
		return fmt.Errorf("run already finished: %s", runID)
	}

	lr.cancel()
	return nil
}

// Get returns a copy of the run's current status.
func (e *Engine) Get(runID uuid.UUID) (Run, bool) {
	e.mu.RLock()
	lr, exists := e.runs[runID]
	e.mu.RUnlock()

	if !exists {
		return Run{}, false
	}
	return e.snapshot(lr), true
}

// ActiveRuns counts runs that have not reached a terminal state.
func (e *Engine) ActiveRuns() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, lr := range e.runs {
		if !lr.run.State.Terminal() {
			n++
		}
	}
	return n
}

// CancelAll stops every active run, used during shutdown.
func (e *Engine) CancelAll() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, lr := range e.runs {
		lr.cancel()
	}
}

func (e *Engine) snapshot(lr *liveRun) Run {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lr.run
}

func (e *Engine) update(lr *liveRun, fn func(r *Run)) {
	e.mu.Lock()
	fn(&lr.run)
	e.mu.Unlock()
}

func (e *Engine) execute(ctx context.Context, lr *liveRun, level *levels.Level, prog *sketch.Program, target *timeline.Sequence) {
	defer lr.cancel()

	maxDuration := e.cfg.MaxRunDuration
	if level.MaxRuntimeMs > 0 {
		maxDuration = time.Duration(level.MaxRuntimeMs) * time.Millisecond
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, maxDuration)
	defer cancelTimeout()

	in := interp.New(board.New())
	recorder := timeline.NewRecorder(time.Now(), target.Looping)

	tolerance := level.ToleranceMs
	if tolerance <= 0 {
		tolerance = e.cfg.DefaultToleranceMs
	}
	validator := grade.NewValidator(tolerance)

	e.update(lr, func(r *Run) { r.State = StateRunning })
	e.publish(lr, EventRunStarted, map[string]any{"level_id": level.ID})

	var best *grade.Result

	finish := func(state State, serr *sketch.Error) {
		now := time.Now()
		e.update(lr, func(r *Run) {
			r.State = state
			r.CompletedAt = &now
			r.Result = best
			if best != nil {
				r.Score = best.Score
			}
			r.Error = serr
		})

		run := e.snapshot(lr)
		e.persist(run, lr.source)

		data := map[string]any{"state": string(state), "score": run.Score}
		if best != nil {
			data["result"] = best
		}
		if serr != nil {
			data["error"] = serr
		}
		e.publish(lr, EventRunCompleted, data)

		e.logger.Info("Run finished",
			zap.String("run_id", run.ID.String()),
			zap.String("level_id", run.LevelID),
			zap.String("state", string(state)),
			zap.Int("score", run.Score),
			zap.Int("iterations", run.Iterations))
	}

	runErr := e.runBody(ctx, lr, in, recorder, prog.Setup, timeline.OriginSetup)
	if runErr != nil {
		e.finishError(finish, runErr)
		return
	}

	// Each loop pass is graded in its own window so one missed pass
	// cannot doom every later pass to a length mismatch. The first
	// window includes setup output, matching the extractor's
	// setup-plus-one-pass target.
	mark := 0
	gradeNow := func() *grade.Result {
		res := validator.Validate(target, recorder.BuildSequenceFrom(mark))
		mark = recorder.Count()
		if best == nil || res.Score > best.Score || res.Matches {
			best = &res
		}
		return &res
	}

	if !hasStatements(prog.Loop) {
		gradeNow()
		if best != nil && best.Matches {
			finish(StatePassed, nil)
		} else {
			finish(StateFailed, nil)
		}
		return
	}

	for iteration := 1; ; iteration++ {
		runErr = e.runBody(ctx, lr, in, recorder, prog.Loop, timeline.OriginLoop)
		if runErr != nil {
			e.finishError(finish, runErr)
			return
		}

		e.update(lr, func(r *Run) { r.Iterations = iteration })

		res := gradeNow()
		e.publish(lr, EventIterationGraded, map[string]any{
			"iteration": iteration,
			"score":     res.Score,
			"matches":   res.Matches,
		})

		if res.Matches {
			finish(StatePassed, nil)
			return
		}
		if iteration >= e.cfg.MaxLoopIterations {
			finish(StateFailed, nil)
			return
		}
	}
}

func (e *Engine) finishError(finish func(State, *sketch.Error), err error) {
	// A deadline means the run outgrew its time budget, not that anyone
	// asked it to stop: the learner sees a failure with the best score
	// graded so far. Cancelled is reserved for explicit stop requests.
	if errors.Is(err, context.DeadlineExceeded) {
		finish(StateFailed, nil)
		return
	}
	if errors.Is(err, context.Canceled) {
		finish(StateCancelled, nil)
		return
	}

	var serr *sketch.Error
	if errors.As(err, &serr) {
		finish(StateError, serr)
		return
	}
	finish(StateError, &sketch.Error{
		Code:    sketch.CodeUnrecognized,
		Message: err.Error(),
	})
}

// runBody executes one pass over a body. The stop signal is checked
// before every statement, not only at delay boundaries.
func (e *Engine) runBody(ctx context.Context, lr *liveRun, in *interp.Interpreter, recorder *timeline.Recorder, body sketch.Body, origin timeline.Origin) error {
	for _, ln := range body.Lines() {
		if err := ctx.Err(); err != nil {
			return err
		}

		stmt, serr := sketch.ScanLine(ln.Text, ln.Number)
		if serr != nil {
			return serr
		}
		if stmt == nil {
			continue
		}

		e.publish(lr, EventStatement, map[string]any{
			"line":   ln.Number,
			"origin": string(origin),
		})

		if d, ok := stmt.(*sketch.Delay); ok {
			if err := sleep(ctx, time.Duration(d.Millis)*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		changes, err := in.Apply(stmt, ln.Number)
		if err != nil {
			return err
		}

		for _, ch := range changes {
			ev := recorder.Record(ch, origin)
			data := map[string]any{
				"pin":     ev.Pin,
				"on":      ev.On,
				"kind":    string(ev.Kind),
				"time_ms": ev.TimeMs,
			}
			if ev.DutyPercent != nil {
				data["duty_percent"] = *ev.DutyPercent
			}
			e.publish(lr, EventPinChanged, data)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) publish(lr *liveRun, eventType EventType, data map[string]any) {
	run := e.snapshot(lr)
	e.streamer.Broadcast(&Event{
		RunID:     run.ID,
		LevelID:   run.LevelID,
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (e *Engine) persist(run Run, source string) {
	if e.store == nil {
		return
	}

	details, _ := json.Marshal(run.Result)
	completed := run.StartedAt
	if run.CompletedAt != nil {
		completed = *run.CompletedAt
	}

	attempt := &storage.Attempt{
		ID:          uuid.New(),
		RunID:       run.ID,
		LevelID:     run.LevelID,
		Source:      source,
		State:       string(run.State),
		Score:       run.Score,
		Passed:      run.State == StatePassed,
		Iterations:  run.Iterations,
		Details:     details,
		StartedAt:   run.StartedAt,
		CompletedAt: completed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.CreateAttempt(ctx, attempt); err != nil {
		e.logger.Error("Failed to persist attempt",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}

// hasStatements mirrors the extractor's looping test.
func hasStatements(body sketch.Body) bool {
	for _, ln := range body.Lines() {
		stmt, serr := sketch.ScanLine(ln.Text, ln.Number)
		if serr != nil || stmt != nil {
			return true
		}
	}
	return false
}
