package timeline

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/board"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
)

// Extractor replays a parsed program once through a virtual clock and
// produces its canonical event timeline. The clock advances only on
// delay statements; nothing ever sleeps, so extraction is deterministic
// and side-effect free.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs setup() then one pass of loop() against a fresh board.
// Writes to pins not declared OUTPUT are dropped with a warning instead
// of failing: a malformed target sketch must not crash extraction. Any
// other statement error aborts, since a broken target is a configuration
// bug rather than a learner mistake.
func (e *Extractor) Extract(prog *sketch.Program) (*Sequence, error) {
	in := interp.New(board.New())
	clock := int64(0)
	events := make([]Event, 0, 16)

	replay := func(body sketch.Body, origin Origin) error {
		for _, ln := range body.Lines() {
			stmt, serr := sketch.ScanLine(ln.Text, ln.Number)
			if serr != nil {
				return serr
			}
			if stmt == nil {
				continue
			}

			if d, ok := stmt.(*sketch.Delay); ok {
				clock += int64(d.Millis)
				continue
			}

			changes, err := in.Apply(stmt, ln.Number)
			if err != nil {
				var skerr *sketch.Error
				if errors.As(err, &skerr) && skerr.Code == sketch.CodeUndeclaredPin {
					e.logger.Warn("dropping write to undeclared output pin",
						zap.Int("line", ln.Number),
						zap.String("detail", skerr.Message))
					continue
				}
				return err
			}

			for _, ch := range changes {
				events = append(events, eventFromChange(ch, clock, origin))
			}
		}
		return nil
	}

	if err := replay(prog.Setup, OriginSetup); err != nil {
		return nil, err
	}
	if err := replay(prog.Loop, OriginLoop); err != nil {
		return nil, err
	}

	seq := &Sequence{
		Events:  events,
		Looping: hasStatements(prog.Loop),
	}
	if n := len(events); n > 0 {
		seq.TotalDurationMs = events[n-1].TimeMs
	}
	return seq, nil
}

// hasStatements reports whether the body contains anything beyond blank
// and comment lines.
func hasStatements(body sketch.Body) bool {
	for _, ln := range body.Lines() {
		stmt, serr := sketch.ScanLine(ln.Text, ln.Number)
		if serr != nil || stmt != nil {
			return true
		}
	}
	return false
}
