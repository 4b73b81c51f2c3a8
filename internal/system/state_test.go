package system

import "testing"

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to SystemState
		wantErr  bool
	}{
		{StateInitializing, StateRunning, false},
		{StateInitializing, StateError, false},
		{StateRunning, StateStopping, false},
		{StateStopping, StateStopped, false},
		{StateStopped, StateInitializing, false},
		{StateError, StateStopped, false},
		{StateInitializing, StateStopped, true},
		{StateRunning, StateRunning, true},
		{StateStopped, StateRunning, true},
	}

	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateTransition(%s, %s) err = %v, wantErr %v",
				tt.from, tt.to, err, tt.wantErr)
		}
	}
}

func TestSystemStateString(t *testing.T) {
	if got := StateRunning.String(); got != "RUNNING" {
		t.Errorf("StateRunning = %q", got)
	}
	if got := SystemState(99).String(); got != "UNKNOWN" {
		t.Errorf("out-of-range state = %q", got)
	}
}
