package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dgnsrekt/readaloud/internal/tts/ttstest"
)

// Paragraph lengths differ so a buffer identifies its paragraph.
var testParagraphs = []string{
	"One.",
	"Two two.",
	"Three three.",
	"Four four four.",
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	ctrl  *Controller
	cache *cache.AudioCache
	synth *ttstest.Synth
	sink  *audio.MockSink
}

func newFixture(t *testing.T, autoFinish bool) *fixture {
	t.Helper()
	f := &fixture{
		cache: cache.NewAudioCache(0),
		synth: ttstest.New(),
		sink:  audio.NewMockSink(),
	}
	f.sink.AutoFinish = autoFinish
	f.ctrl = NewController(context.Background(), testParagraphs, f.cache, f.synth, f.sink, ControllerConfig{})
	t.Cleanup(f.ctrl.Close)
	return f
}

func TestController_InitialState(t *testing.T) {
	f := newFixture(t, false)
	s := f.ctrl.State()

	if s.HasCurrent() || s.Playing || s.Loading {
		t.Errorf("unexpected initial state %+v", s)
	}
	if s.Phase != PhaseIdle {
		t.Errorf("Phase = %v, want idle", s.Phase)
	}
	if s.Total != len(testParagraphs) {
		t.Errorf("Total = %d, want %d", s.Total, len(testParagraphs))
	}
}

func TestController_PlaysThroughDocument(t *testing.T) {
	f := newFixture(t, true)

	if err := f.ctrl.Play(context.Background(), 0); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	waitFor(t, "end of document", func() bool {
		return f.ctrl.State().AtEnd()
	})

	outputs := f.sink.Outputs()
	if len(outputs) != len(testParagraphs) {
		t.Fatalf("started %d outputs, want %d", len(outputs), len(testParagraphs))
	}
	for i, o := range outputs {
		if o.Buffer.Len() != len(testParagraphs[i]) {
			t.Errorf("output %d has %d samples, want %d", i, o.Buffer.Len(), len(testParagraphs[i]))
		}
	}

	s := f.ctrl.State()
	if s.Playing || s.Loading {
		t.Errorf("state after end = %+v, want not playing", s)
	}
	if s.Current != len(testParagraphs)-1 {
		t.Errorf("Current = %d, want last paragraph retained", s.Current)
	}
}

func TestController_CacheHitSkipsSynthesis(t *testing.T) {
	f := newFixture(t, false)
	f.cache.Put(1, &audio.Buffer{SampleRate: audio.SampleRate, Samples: make([]float32, 99)})

	if err := f.ctrl.Play(context.Background(), 1); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if got := f.synth.Calls(testParagraphs[1]); got != 0 {
		t.Errorf("synthesized a cached paragraph %d times", got)
	}
	if f.sink.Last().Buffer.Len() != 99 {
		t.Error("expected the cached buffer to be played")
	}
	if s := f.ctrl.State(); s.Phase != PhasePlaying || !s.Playing {
		t.Errorf("state = %+v, want playing", s)
	}
}

func TestController_MissLoadsThenPlays(t *testing.T) {
	f := newFixture(t, false)
	f.synth.Block(testParagraphs[0])

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Play(context.Background(), 0) }()

	waitFor(t, "loading", func() bool {
		s := f.ctrl.State()
		return s.Loading && s.Phase == PhaseLoading
	})
	if f.sink.StartCount() != 0 {
		t.Error("output started before audio arrived")
	}

	f.synth.Unblock(testParagraphs[0])
	if err := <-done; err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	s := f.ctrl.State()
	if s.Loading || !s.Playing || s.Phase != PhasePlaying {
		t.Errorf("state = %+v, want playing", s)
	}
	if !f.cache.Has(0) {
		t.Error("on-demand audio should be cached")
	}
}

func TestController_StopWhileLoading(t *testing.T) {
	f := newFixture(t, false)
	f.synth.Block(testParagraphs[0])

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Play(context.Background(), 0) }()

	waitFor(t, "loading", func() bool { return f.ctrl.State().Loading })

	f.ctrl.Stop()
	f.synth.Unblock(testParagraphs[0])

	if err := <-done; err != nil {
		t.Errorf("stale Play returned %v, want nil", err)
	}
	if f.sink.StartCount() != 0 {
		t.Error("stopped request must never produce output")
	}

	s := f.ctrl.State()
	if s.Playing || s.Loading || s.Phase != PhaseStopped {
		t.Errorf("state = %+v, want stopped", s)
	}
}

func TestController_RedirectWhileLoading(t *testing.T) {
	f := newFixture(t, false)
	f.synth.Block(testParagraphs[0])

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Play(context.Background(), 0) }()

	waitFor(t, "loading", func() bool { return f.ctrl.State().Loading })

	if err := f.ctrl.Play(context.Background(), 2); err != nil {
		t.Fatalf("Play(2) failed: %v", err)
	}
	f.synth.Unblock(testParagraphs[0])

	if err := <-done; err != nil {
		t.Errorf("stale Play returned %v, want nil", err)
	}
	if f.sink.StartCount() != 1 {
		t.Fatalf("StartCount = %d, want 1", f.sink.StartCount())
	}
	if f.sink.Last().Buffer.Len() != len(testParagraphs[2]) {
		t.Error("expected paragraph 2 to be playing")
	}
	if s := f.ctrl.State(); s.Current != 2 {
		t.Errorf("Current = %d, want 2", s.Current)
	}
}

func TestController_RedirectToCachedWhileLoading(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	buf, err := audio.Decode(make([]byte, 2*len(testParagraphs[2])))
	if err != nil {
		t.Fatal(err)
	}
	f.cache.Put(2, buf)
	f.synth.Block(testParagraphs[0])

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Play(ctx, 0) }()

	waitFor(t, "loading", func() bool { return f.ctrl.State().Loading })

	if err := f.ctrl.Play(ctx, 2); err != nil {
		t.Fatalf("Play(2) failed: %v", err)
	}
	if s := f.ctrl.State(); s.Loading || !s.Playing || s.Phase != PhasePlaying {
		t.Errorf("after jump to cached paragraph: state = %+v, want playing without loading", s)
	}

	f.synth.Unblock(testParagraphs[0])
	if err := <-done; err != nil {
		t.Errorf("stale Play returned %v, want nil", err)
	}
	if s := f.ctrl.State(); s.Loading || s.Current != 2 {
		t.Errorf("after stale fetch returned: state = %+v, want paragraph 2 without loading", s)
	}
	if f.sink.StartCount() != 1 {
		t.Errorf("StartCount = %d, want 1", f.sink.StartCount())
	}
}

func TestController_SelectCachedWhileLoading(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	buf, err := audio.Decode(make([]byte, 2*len(testParagraphs[1])))
	if err != nil {
		t.Fatal(err)
	}
	f.cache.Put(1, buf)
	f.synth.Block(testParagraphs[0])

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Play(ctx, 0) }()
	waitFor(t, "loading", func() bool { return f.ctrl.State().Loading })

	if err := f.ctrl.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	f.synth.Unblock(testParagraphs[0])
	<-done

	if s := f.ctrl.State(); s.Loading || !s.Playing || s.Current != 1 {
		t.Errorf("state = %+v, want playing paragraph 1 without loading", s)
	}
}

func TestController_PreemptDisarmsCompletion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	first := f.sink.Last()

	if err := f.ctrl.Play(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if !first.IsHalted() {
		t.Error("previous output should be halted")
	}
	if first.Finish() {
		t.Error("halted output must not fire its completion")
	}
	if len(f.sink.Active()) != 1 {
		t.Errorf("%d active outputs, want 1", len(f.sink.Active()))
	}

	// Finishing the live output advances exactly once.
	f.sink.Last().Finish()
	waitFor(t, "advance to 3", func() bool { return f.ctrl.State().Current == 3 })

	time.Sleep(20 * time.Millisecond)
	if f.sink.StartCount() != 3 {
		t.Errorf("StartCount = %d, want 3", f.sink.StartCount())
	}
}

func TestController_StopHaltsOutput(t *testing.T) {
	f := newFixture(t, false)

	if err := f.ctrl.Play(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	out := f.sink.Last()

	f.ctrl.Stop()
	f.ctrl.Stop() // idempotent

	if !out.IsHalted() {
		t.Error("Stop should halt the output")
	}
	if f.sink.HaltCount() != 1 {
		t.Errorf("HaltCount = %d, want 1", f.sink.HaltCount())
	}
	s := f.ctrl.State()
	if s.Playing || s.Phase != PhaseStopped || s.Current != 1 {
		t.Errorf("state = %+v, want stopped at 1", s)
	}
}

func TestController_StopWhenIdle(t *testing.T) {
	f := newFixture(t, false)
	before := f.ctrl.State()

	f.ctrl.Stop()

	if after := f.ctrl.State(); after != before {
		t.Errorf("Stop changed idle state: %+v -> %+v", before, after)
	}
}

func TestController_PlayBounds(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Play(ctx, -1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Play(-1) = %v, want ErrInvalidIndex", err)
	}
	if s := f.ctrl.State(); s.Version != 0 {
		t.Error("invalid Play must not change state")
	}

	if err := f.ctrl.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Play(ctx, len(testParagraphs)); err != nil {
		t.Errorf("Play past end = %v, want nil", err)
	}
	s := f.ctrl.State()
	if s.Playing || s.Phase != PhaseIdle {
		t.Errorf("state = %+v, want idle and not playing", s)
	}
	if len(f.sink.Active()) != 0 {
		t.Error("output should be halted at end of document")
	}
}

func TestController_PlaybackFailure(t *testing.T) {
	f := newFixture(t, true)
	cause := fmt.Errorf("%w: quota", tts.ErrSynthesisFailure)
	f.synth.Fail(testParagraphs[1], cause)

	err := f.ctrl.Play(context.Background(), 1)

	var perr *PlaybackError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PlaybackError, got %v", err)
	}
	if perr.Index != 1 {
		t.Errorf("Index = %d, want 1", perr.Index)
	}
	if !errors.Is(err, tts.ErrSynthesisFailure) {
		t.Error("PlaybackError should wrap the synthesis failure")
	}

	s := f.ctrl.State()
	if s.Playing || s.Loading || s.Phase != PhaseSelected || s.Current != 1 {
		t.Errorf("state = %+v, want selected at 1", s)
	}
	if s.Err == nil {
		t.Error("state should carry the error")
	}

	time.Sleep(20 * time.Millisecond)
	if f.sink.StartCount() != 0 {
		t.Error("failure must not skip ahead")
	}

	// Retrying once the engine recovers works.
	f.synth.Fail(testParagraphs[1], nil)
	f.sink.AutoFinish = false
	if err := f.ctrl.Play(context.Background(), 1); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s := f.ctrl.State(); !s.Playing || s.Err != nil {
		t.Errorf("state after retry = %+v", s)
	}
}

type rawSynth []byte

func (r rawSynth) Synthesize(context.Context, string) ([]byte, error) {
	return r, nil
}

func TestController_DecodeFailure(t *testing.T) {
	sink := audio.NewMockSink()
	ctrl := NewController(context.Background(), testParagraphs, cache.NewAudioCache(0), rawSynth{1, 2, 3}, sink, ControllerConfig{})
	defer ctrl.Close()

	err := ctrl.Play(context.Background(), 0)
	if !errors.Is(err, audio.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if ctrl.State().Playing {
		t.Error("decode failure should leave playback stopped")
	}
}

// ctxSynth records the context of every request.
type ctxSynth struct {
	mu   sync.Mutex
	ctxs []context.Context
}

func (s *ctxSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxs = append(s.ctxs, ctx)
	return make([]byte, 2*len(text)), nil
}

func TestController_ReleasesFetchContext(t *testing.T) {
	synth := &ctxSynth{}
	ctrl := NewController(context.Background(), testParagraphs, cache.NewAudioCache(0), synth, audio.NewMockSink(), ControllerConfig{})
	defer ctrl.Close()

	if err := ctrl.Play(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if !ctrl.State().Playing {
		t.Fatal("expected playback")
	}

	synth.mu.Lock()
	defer synth.mu.Unlock()
	if len(synth.ctxs) != 1 {
		t.Fatalf("%d requests, want 1", len(synth.ctxs))
	}
	if err := synth.ctxs[0].Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("fetch context err = %v, want it released after the fetch", err)
	}
}

func TestController_SinkFailure(t *testing.T) {
	f := newFixture(t, false)
	f.sink.StartErr = errors.New("device gone")

	err := f.ctrl.Play(context.Background(), 0)

	var perr *PlaybackError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PlaybackError, got %v", err)
	}
	if f.ctrl.State().Playing {
		t.Error("sink failure should leave playback stopped")
	}
}

func TestController_AutoAdvanceStopsOnFailure(t *testing.T) {
	f := newFixture(t, true)
	f.synth.Fail(testParagraphs[2], tts.ErrSynthesisFailure)

	if err := f.ctrl.Play(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "failure at 2", func() bool {
		return f.ctrl.State().Err != nil
	})

	s := f.ctrl.State()
	if s.Current != 2 || s.Playing {
		t.Errorf("state = %+v, want stopped at 2", s)
	}
	if f.sink.StartCount() != 1 {
		t.Errorf("StartCount = %d, want 1", f.sink.StartCount())
	}
}

func TestController_Navigation(t *testing.T) {
	last := len(testParagraphs) - 1

	tests := []struct {
		name        string
		start       int // -1 for nothing selected
		op          string
		wantCurrent int
		wantStarts  int
	}{
		{"next from none", NoParagraph, "next", 0, 1},
		{"next", 1, "next", 2, 2},
		{"next at last", last, "next", last, 1},
		{"prev", 2, "prev", 1, 2},
		{"prev at first", 0, "prev", 0, 1},
		{"prev from none", NoParagraph, "prev", NoParagraph, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			ctx := context.Background()

			if tt.start != NoParagraph {
				if err := f.ctrl.Play(ctx, tt.start); err != nil {
					t.Fatal(err)
				}
			}

			var err error
			switch tt.op {
			case "next":
				err = f.ctrl.Next(ctx)
			case "prev":
				err = f.ctrl.Prev(ctx)
			}
			if err != nil {
				t.Fatalf("%s failed: %v", tt.op, err)
			}

			if got := f.ctrl.State().Current; got != tt.wantCurrent {
				t.Errorf("Current = %d, want %d", got, tt.wantCurrent)
			}
			if got := f.sink.StartCount(); got != tt.wantStarts {
				t.Errorf("StartCount = %d, want %d", got, tt.wantStarts)
			}
		})
	}
}

func TestController_Toggle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if s := f.ctrl.State(); !s.Playing || s.Current != 0 {
		t.Fatalf("first toggle: %+v, want playing at 0", s)
	}

	if err := f.ctrl.Select(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if s := f.ctrl.State(); s.Playing || s.Current != 2 {
		t.Fatalf("second toggle: %+v, want stopped at 2", s)
	}

	if err := f.ctrl.Toggle(ctx); err != nil {
		t.Fatal(err)
	}
	if s := f.ctrl.State(); !s.Playing || s.Current != 2 {
		t.Fatalf("third toggle: %+v, want playing at 2", s)
	}
}

func TestController_Select(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Select(ctx, 3); err != nil {
		t.Fatal(err)
	}
	s := f.ctrl.State()
	if s.Current != 3 || s.Playing || s.Phase != PhaseSelected {
		t.Errorf("state = %+v, want selected at 3", s)
	}
	if f.sink.StartCount() != 0 {
		t.Error("Select must not start output while stopped")
	}

	if err := f.ctrl.Select(ctx, len(testParagraphs)); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("out of range Select = %v, want ErrInvalidIndex", err)
	}
	if err := f.ctrl.Select(ctx, -1); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("negative Select = %v, want ErrInvalidIndex", err)
	}
	if f.ctrl.State().Current != 3 {
		t.Error("invalid Select must not move the cursor")
	}
}

func TestController_SelectWhilePlayingJumps(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	first := f.sink.Last()

	if err := f.ctrl.Select(ctx, 2); err != nil {
		t.Fatal(err)
	}

	if !first.IsHalted() {
		t.Error("jump should halt the previous output")
	}
	s := f.ctrl.State()
	if !s.Playing || s.Current != 2 {
		t.Errorf("state = %+v, want playing at 2", s)
	}
}

type recordingWarmer struct {
	mu    sync.Mutex
	calls []int
}

func (w *recordingWarmer) Warm(current int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, current)
	return 0
}

func (w *recordingWarmer) Calls() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.calls...)
}

func TestController_WarmsOnIndexChange(t *testing.T) {
	w := &recordingWarmer{}
	sink := audio.NewMockSink()
	sink.AutoFinish = true
	ctrl := NewController(context.Background(), testParagraphs, cache.NewAudioCache(0), ttstest.New(), sink, ControllerConfig{Warmer: w})
	defer ctrl.Close()

	if err := ctrl.Select(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Play(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "end of document", func() bool { return ctrl.State().AtEnd() })

	want := []int{1, 2, 3}
	got := w.Calls()
	if len(got) != len(want) {
		t.Fatalf("Warm calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Warm calls = %v, want %v", got, want)
		}
	}
}

func TestController_OnStateChange(t *testing.T) {
	f := newFixture(t, false)

	var (
		mu     sync.Mutex
		states []State
	)
	f.ctrl.OnStateChange(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx := context.Background()
	if err := f.ctrl.Select(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Play(ctx, 1); err != nil {
		t.Fatal(err)
	}
	f.ctrl.Stop()

	mu.Lock()
	defer mu.Unlock()

	wantPhases := []Phase{PhaseSelected, PhaseLoading, PhasePlaying, PhaseStopped}
	if len(states) != len(wantPhases) {
		t.Fatalf("got %d notifications, want %d: %+v", len(states), len(wantPhases), states)
	}
	for i, s := range states {
		if s.Phase != wantPhases[i] {
			t.Errorf("notification %d phase = %v, want %v", i, s.Phase, wantPhases[i])
		}
		if i > 0 && s.Version <= states[i-1].Version {
			t.Errorf("notification %d version %d not increasing", i, s.Version)
		}
	}
}

func TestController_Close(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	if err := f.ctrl.Play(ctx, 0); err != nil {
		t.Fatal(err)
	}
	out := f.sink.Last()

	f.ctrl.Close()

	if !out.IsHalted() {
		t.Error("Close should halt the output")
	}
	if err := f.ctrl.Play(ctx, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after Close = %v, want ErrClosed", err)
	}
	if err := f.ctrl.Select(ctx, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Select after Close = %v, want ErrClosed", err)
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		PhaseIdle:     "idle",
		PhaseSelected: "selected",
		PhaseLoading:  "loading",
		PhasePlaying:  "playing",
		PhaseStopped:  "stopped",
		Phase(42):     "unknown",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}

func TestPhaseMachine_RejectsStopFromIdle(t *testing.T) {
	m := newPhaseMachine()
	if m.transition(PhaseStopped) {
		t.Error("idle -> stopped should be rejected")
	}
	if !m.transition(PhaseLoading) || !m.transition(PhaseStopped) {
		t.Error("idle -> loading -> stopped should be allowed")
	}
}
