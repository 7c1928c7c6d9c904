package prober

import "testing"

func TestTruncate_ShortStringUnchanged(t *testing.T) {
	if got := truncate("short error"); got != "short error" {
		t.Errorf("truncate(short) = %q", got)
	}
}

func TestTruncate_LongStringCutAt30(t *testing.T) {
	long := "this error message is much longer than thirty characters"
	got := truncate(long)
	if len(got) != maxErrMsgLen {
		t.Errorf("truncate(long) length = %d, want %d", len(got), maxErrMsgLen)
	}
	if got != long[:maxErrMsgLen] {
		t.Errorf("truncate(long) = %q, want prefix %q", got, long[:maxErrMsgLen])
	}
}

func TestFailResult_AlwaysNegativeLatency(t *testing.T) {
	r := failResult("link", "boom")
	if r.Success || r.LatencyMS != -1 || r.Message != "boom" {
		t.Errorf("unexpected fail result: %+v", r)
	}
}
