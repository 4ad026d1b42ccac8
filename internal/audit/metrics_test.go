package audit

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSignalIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(signalsTotal.WithLabelValues("accepted"))
	RecordSignal("accepted")
	after := testutil.ToFloat64(signalsTotal.WithLabelValues("accepted"))

	if after != before+1 {
		t.Errorf("signalsTotal[accepted] = %v, want %v", after, before+1)
	}
}

func TestRecordExitDecisionIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(exitDecisionsTotal.WithLabelValues("EXIT", "PROFIT_TARGET"))
	RecordExitDecision("EXIT", "PROFIT_TARGET")
	after := testutil.ToFloat64(exitDecisionsTotal.WithLabelValues("EXIT", "PROFIT_TARGET"))

	if after != before+1 {
		t.Errorf("exitDecisionsTotal[EXIT,PROFIT_TARGET] = %v, want %v", after, before+1)
	}
}

func TestSetOpenExposureSetsGauge(t *testing.T) {
	SetOpenExposure(4200.50)
	if got := testutil.ToFloat64(openExposure); got != 4200.50 {
		t.Errorf("openExposure = %v, want 4200.50", got)
	}
}

func TestSetDependencyHealthTogglesGauge(t *testing.T) {
	SetDependencyHealth("database", true)
	if got := testutil.ToFloat64(dependencyHealth.WithLabelValues("database")); got != 1.0 {
		t.Errorf("dependencyHealth[database] = %v, want 1.0", got)
	}

	SetDependencyHealth("database", false)
	if got := testutil.ToFloat64(dependencyHealth.WithLabelValues("database")); got != 0.0 {
		t.Errorf("dependencyHealth[database] = %v, want 0.0", got)
	}
}
