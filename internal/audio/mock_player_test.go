package audio

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testBuffer() *Buffer {
	return &Buffer{SampleRate: SampleRate, Samples: make([]float32, 240)}
}

func TestMockSink_FinishFiresDone(t *testing.T) {
	sink := NewMockSink()

	var calls atomic.Int32
	out, err := sink.Start(testBuffer(), func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mo := out.(*MockOutput)
	if !mo.IsActive() {
		t.Error("output should be active after Start")
	}
	if !mo.Finish() {
		t.Error("Finish should fire the callback")
	}
	if mo.Finish() {
		t.Error("second Finish should not fire again")
	}
	if calls.Load() != 1 {
		t.Errorf("done called %d times, want 1", calls.Load())
	}
}

func TestMockSink_HaltDisarms(t *testing.T) {
	sink := NewMockSink()

	var calls atomic.Int32
	out, err := sink.Start(testBuffer(), func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out.Halt()
	out.Halt()

	if out.(*MockOutput).Finish() {
		t.Error("Finish after Halt should not fire")
	}
	if calls.Load() != 0 {
		t.Errorf("done called %d times, want 0", calls.Load())
	}
	if sink.HaltCount() != 1 {
		t.Errorf("HaltCount() = %d, want 1", sink.HaltCount())
	}
	if len(sink.Active()) != 0 {
		t.Error("no output should be active")
	}
}

func TestMockSink_AutoFinish(t *testing.T) {
	sink := NewMockSink()
	sink.AutoFinish = true

	done := make(chan struct{})
	if _, err := sink.Start(testBuffer(), func() { close(done) }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto finish did not fire")
	}
}

func TestMockSink_StartErr(t *testing.T) {
	sink := NewMockSink()
	sink.StartErr = errors.New("device gone")

	if _, err := sink.Start(testBuffer(), nil); err == nil {
		t.Error("expected error from Start")
	}
	if sink.StartCount() != 0 {
		t.Errorf("StartCount() = %d, want 0", sink.StartCount())
	}
}
