package timeline

import (
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
)

const blinkSource = `void setup() {
  pinMode(13, OUTPUT);
}

void loop() {
  digitalWrite(13, HIGH);
  delay(1000);
  digitalWrite(13, LOW);
  delay(1000);
}
`

func extract(t *testing.T, source string) *Sequence {
	t.Helper()
	prog, err := sketch.ParseLenient(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	seq, err := NewExtractor(zap.NewNop()).Extract(prog)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return seq
}

func TestExtractBlink(t *testing.T) {
	seq := extract(t, blinkSource)

	if len(seq.Events) != 2 {
		t.Fatalf("events = %+v, want two", seq.Events)
	}

	high := seq.Events[0]
	if high.TimeMs != 0 || high.Pin != 13 || !high.On || high.Origin != OriginLoop {
		t.Errorf("first event = %+v", high)
	}
	low := seq.Events[1]
	if low.TimeMs != 1000 || low.Pin != 13 || low.On {
		t.Errorf("second event = %+v", low)
	}

	if seq.TotalDurationMs != 1000 {
		t.Errorf("TotalDurationMs = %d, want 1000", seq.TotalDurationMs)
	}
	if !seq.Looping {
		t.Error("blink should be looping")
	}
}

func TestExtractSetupOrigin(t *testing.T) {
	source := `void setup() {
  pinMode(13, OUTPUT);
  digitalWrite(13, HIGH);
}
void loop() {
}
`
	seq := extract(t, source)

	if len(seq.Events) != 1 {
		t.Fatalf("events = %+v, want one", seq.Events)
	}
	if seq.Events[0].Origin != OriginSetup {
		t.Errorf("origin = %s, want setup", seq.Events[0].Origin)
	}
	if seq.Looping {
		t.Error("empty loop should not be looping")
	}
}

func TestExtractDeterministic(t *testing.T) {
	first := extract(t, blinkSource)
	second := extract(t, blinkSource)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extractions differ:\n%+v\n%+v", first, second)
	}
}

func TestExtractRedundantWritesProduceNoEvents(t *testing.T) {
	source := `void setup() {
  pinMode(13, OUTPUT);
}
void loop() {
  digitalWrite(13, HIGH);
  digitalWrite(13, HIGH);
  delay(500);
  digitalWrite(13, LOW);
}
`
	seq := extract(t, source)

	if len(seq.Events) != 2 {
		t.Errorf("events = %+v, want two", seq.Events)
	}
}

func TestExtractDropsUndeclaredWrites(t *testing.T) {
	source := `void setup() {
}
void loop() {
  digitalWrite(13, HIGH);
  delay(100);
}
`
	seq := extract(t, source)

	if len(seq.Events) != 0 {
		t.Errorf("events = %+v, want none", seq.Events)
	}
	if seq.TotalDurationMs != 0 {
		t.Errorf("TotalDurationMs = %d, want 0", seq.TotalDurationMs)
	}
}

func TestExtractTimerPWMCarriesDuty(t *testing.T) {
	source := `#include <TimerOne.h>
void setup() {
  pinMode(10, OUTPUT);
  Timer1.initialize(1000);
}
void loop() {
  Timer1.pwm(10, 512);
  delay(200);
  Timer1.pwm(10, 0);
  delay(200);
}
`
	seq := extract(t, source)

	if len(seq.Events) != 2 {
		t.Fatalf("events = %+v, want two", seq.Events)
	}
	ev := seq.Events[0]
	if ev.Kind != interp.KindPWM || ev.DutyPercent == nil || *ev.DutyPercent != 50 {
		t.Errorf("first event = %+v", ev)
	}
	if seq.Events[1].On {
		t.Errorf("second event should be off: %+v", seq.Events[1])
	}
}

func TestRecorderBuildSequence(t *testing.T) {
	start := time.Now().Add(-50 * time.Millisecond)
	rec := NewRecorder(start, true)

	rec.Record(interp.PinChange{Pin: 13, On: true, Kind: interp.KindDigital}, OriginLoop)

	seq := rec.BuildSequence()
	if len(seq.Events) != 1 {
		t.Fatalf("events = %+v, want one", seq.Events)
	}
	ev := seq.Events[0]
	if ev.TimeMs < 50 {
		t.Errorf("TimeMs = %d, want at least 50", ev.TimeMs)
	}
	if seq.TotalDurationMs != ev.TimeMs {
		t.Errorf("TotalDurationMs = %d, want %d", seq.TotalDurationMs, ev.TimeMs)
	}
	if !seq.Looping {
		t.Error("looping flag not carried")
	}
}

func TestRecorderSnapshotIsIndependent(t *testing.T) {
	rec := NewRecorder(time.Now(), false)
	rec.Record(interp.PinChange{Pin: 13, On: true, Kind: interp.KindDigital}, OriginSetup)

	first := rec.BuildSequence()
	rec.Record(interp.PinChange{Pin: 13, On: false, Kind: interp.KindDigital}, OriginSetup)

	if len(first.Events) != 1 {
		t.Errorf("earlier snapshot grew: %+v", first.Events)
	}
	if got := rec.BuildSequence(); len(got.Events) != 2 {
		t.Errorf("later snapshot events = %+v, want two", got.Events)
	}
}

func TestRecorderWindows(t *testing.T) {
	rec := NewRecorder(time.Now(), true)
	rec.Record(interp.PinChange{Pin: 13, On: true, Kind: interp.KindDigital}, OriginLoop)

	mark := rec.Count()
	if mark != 1 {
		t.Fatalf("Count = %d, want 1", mark)
	}

	rec.Record(interp.PinChange{Pin: 13, On: false, Kind: interp.KindDigital}, OriginLoop)

	window := rec.BuildSequenceFrom(mark)
	if len(window.Events) != 1 {
		t.Fatalf("window events = %+v, want one", window.Events)
	}
	if window.Events[0].On {
		t.Errorf("window picked up the wrong event: %+v", window.Events[0])
	}
	if !window.Looping {
		t.Error("looping flag not carried into the window")
	}

	if got := rec.BuildSequenceFrom(99); len(got.Events) != 0 {
		t.Errorf("out-of-range offset events = %+v, want none", got.Events)
	}
	if got := rec.BuildSequenceFrom(-1); len(got.Events) != 2 {
		t.Errorf("negative offset events = %+v, want all", got.Events)
	}
}
