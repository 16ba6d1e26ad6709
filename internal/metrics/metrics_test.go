// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var errMiss = errors.New("miss")

func TestRecordDBOperation(t *testing.T) {
	before := testutil.ToFloat64(DBOperationErrors.WithLabelValues("badger", "get", "metrics_test"))

	isMiss := func(err error) bool { return errors.Is(err, errMiss) }
	RecordDBOperation("badger", "get", "metrics_test", time.Millisecond, nil, isMiss)
	RecordDBOperation("badger", "get", "metrics_test", time.Millisecond, errMiss, isMiss)
	RecordDBOperation("badger", "get", "metrics_test", time.Millisecond, errors.New("disk full"), isMiss)

	after := testutil.ToFloat64(DBOperationErrors.WithLabelValues("badger", "get", "metrics_test"))
	if after-before != 1 {
		t.Errorf("errors counted = %v, want 1 (not found is not an error)", after-before)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics_test", "200"))
	RecordAPIRequest("GET", "/metrics_test", "200", 20*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics_test", "200"))
	if after-before != 1 {
		t.Errorf("requests counted = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordTaskRun(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	RecordTaskRun("metrics-test", "success", time.Second, now)
	RecordTaskRun("metrics-test", "error", time.Second, now.Add(time.Minute))

	if got := testutil.ToFloat64(TaskLastSuccess.WithLabelValues("metrics-test")); got != float64(now.Unix()) {
		t.Errorf("last success = %v, want %v", got, now.Unix())
	}
	if got := testutil.ToFloat64(TaskRuns.WithLabelValues("metrics-test", "error")); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
}
