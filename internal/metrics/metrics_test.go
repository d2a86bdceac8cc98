// Sentinel - Real-Time Risk & Anomaly Engine
// Copyright 2026 Corvid Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/corvid-labs/sentinel

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSignal(t *testing.T) {
	before := testutil.ToFloat64(SignalsProcessed.WithLabelValues("request"))
	RecordSignal("request")
	after := testutil.ToFloat64(SignalsProcessed.WithLabelValues("request"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestRecordThreat(t *testing.T) {
	before := testutil.ToFloat64(ThreatsPublished.WithLabelValues("RATE_ANOMALY"))
	RecordThreat("RATE_ANOMALY")
	after := testutil.ToFloat64(ThreatsPublished.WithLabelValues("RATE_ANOMALY"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestSetLockdown(t *testing.T) {
	SetLockdown(true)
	if got := testutil.ToFloat64(LockdownActive); got != 1 {
		t.Errorf("expected lockdown gauge 1, got %v", got)
	}

	SetLockdown(false)
	if got := testutil.ToFloat64(LockdownActive); got != 0 {
		t.Errorf("expected lockdown gauge 0, got %v", got)
	}
}

func TestRecordDBQueryError(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("save_threat"))
	RecordDBQuery("save_threat", 5*time.Millisecond, errors.New("read-only"))
	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("save_threat"))

	if after != before+1 {
		t.Errorf("expected error counter to increment, got %v -> %v", before, after)
	}
}

func TestRecordNotifierDelivery(t *testing.T) {
	before := testutil.ToFloat64(NotifierDeliveries.WithLabelValues("success"))
	RecordNotifierDelivery("success")
	after := testutil.ToFloat64(NotifierDeliveries.WithLabelValues("success"))

	if after != before+1 {
		t.Errorf("expected counter to increment, got %v -> %v", before, after)
	}
}
