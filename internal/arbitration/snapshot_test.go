package arbitration

import (
	"math"
	"testing"
)

func TestSnapshot_OverrideIndications(t *testing.T) {
	tests := []struct {
		action     OverrideAction
		indication Indication
		phaseID    string
	}{
		{ActionHold, IndicationPhase, "A"},
		{ActionExtendGreen, IndicationPhase, "A"},
		{ActionSkip, IndicationPhase, "B"},
		{ActionForceAllRed, IndicationAllRed, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			e, _ := newTestEngine(t)
			if _, err := e.ActivateOverride("J", tt.action, 0); err != nil {
				t.Fatalf("ActivateOverride() error = %v", err)
			}

			snap := mustState(t, e, "J")
			if snap.CurrentPhase.Indication != tt.indication {
				t.Errorf("indication = %s, want %s", snap.CurrentPhase.Indication, tt.indication)
			}
			gotID := ""
			if snap.CurrentPhase.Phase != nil {
				gotID = snap.CurrentPhase.Phase.ID
			}
			if gotID != tt.phaseID {
				t.Errorf("phase = %q, want %q", gotID, tt.phaseID)
			}
			if snap.ActiveRequest == nil || snap.ActiveRequest.Kind != "override" || snap.ActiveRequest.Action != tt.action {
				t.Errorf("active request = %+v", snap.ActiveRequest)
			}
		})
	}
}

func TestSnapshot_PreemptionAndRecovery(t *testing.T) {
	e, _ := newTestEngine(t)
	req := preempt(t, e, ClassHigh, 4, "J")

	snap := mustState(t, e, "J")
	if snap.CurrentPhase.Indication != IndicationPreemption || snap.CurrentPhase.Phase != nil {
		t.Errorf("current phase = %+v, want PREEMPTION", snap.CurrentPhase)
	}
	if snap.ActiveRequest.Kind != "preemption" || snap.ActiveRequest.VehicleClass != ClassHigh || snap.ActiveRequest.DurationSeconds != 4 {
		t.Errorf("active request = %+v", snap.ActiveRequest)
	}

	tickN(t, e, 4)
	snap = mustState(t, e, "J")
	if snap.CurrentPhase.Indication != IndicationRecovery || snap.RemainingSeconds != 120 {
		t.Errorf("recovery snapshot = %+v", snap)
	}
	if snap.ActiveRequest.ID != req.ID {
		t.Errorf("recovery request = %s, want %s", snap.ActiveRequest.ID, req.ID)
	}
}

func TestSnapshot_CycleProgress(t *testing.T) {
	e, _ := newTestEngine(t)

	if got := mustState(t, e, "J").CycleProgressPercent; got != 0 {
		t.Errorf("initial progress = %v, want 0", got)
	}

	tickN(t, e, 45+10) // 55 of 105 seconds
	snap := mustState(t, e, "J")
	want := 55.0 * 100 / 105
	if math.Abs(snap.CycleProgressPercent-want) > 1e-9 {
		t.Errorf("progress = %v, want %v", snap.CycleProgressPercent, want)
	}
	if snap.NextPhase.ID != "C" {
		t.Errorf("next phase = %s, want C", snap.NextPhase.ID)
	}
}

func TestSnapshots_AllJunctionsSorted(t *testing.T) {
	e, _ := newTestEngine(t, "J3", "J1", "J2")

	snaps := e.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("Snapshots() len = %d, want 3", len(snaps))
	}
	for i, want := range []string{"J1", "J2", "J3"} {
		if snaps[i].JunctionID != want {
			t.Errorf("snapshot %d = %s, want %s", i, snaps[i].JunctionID, want)
		}
	}
}
