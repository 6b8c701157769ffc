package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often an output checks whether oto has drained it.
const pollInterval = 10 * time.Millisecond

// outputState tracks how a playback ended.
type outputState int32

const (
	outputActive outputState = iota
	outputFinished
	outputHalted
)

// Player is a Sink backed by a single oto context. oto allows only one
// context per process, so a Player is created once and shared.
type Player struct {
	context *oto.Context

	mu      sync.Mutex
	current *otoOutput
	volume  float64
	closed  bool
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int           // must match the decoded buffers
	Volume     float64       // 0.0 to 1.0
	BufferSize time.Duration // device buffer, 0 for the oto default
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: SampleRate,
		Volume:     1.0,
	}
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   config.BufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	log.Debug("audio device ready", "sample_rate", config.SampleRate)

	return &Player{
		context: ctx,
		volume:  config.Volume,
	}, nil
}

func validateConfig(config PlayerConfig) error {
	if config.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Volume < 0.0 || config.Volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", config.Volume)
	}
	if config.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Start implements Sink. Any output still playing is halted first so that
// only one buffer is audible at a time.
func (p *Player) Start(buf *Buffer, done func()) (Output, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, errors.New("audio buffer is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("player is closed")
	}
	if err := p.context.Err(); err != nil {
		return nil, fmt.Errorf("audio device error: %w", err)
	}

	if p.current != nil {
		p.current.Halt()
		p.current = nil
	}

	// The reader keeps the encoded samples alive for as long as oto pulls
	// from it.
	player := p.context.NewPlayer(bytes.NewReader(buf.float32LE()))
	player.SetVolume(p.volume)

	out := &otoOutput{player: player, done: done}
	p.current = out

	player.Play()
	go out.watch()

	return out, nil
}

// SetVolume sets the volume for the current and future outputs.
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.current != nil {
		p.current.player.SetVolume(volume)
	}
	return nil
}

// Close halts any output and refuses further Start calls.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.Halt()
		p.current = nil
	}
	p.closed = true
	return nil
}

// otoOutput is a single buffer being played by oto.
type otoOutput struct {
	player *oto.Player
	done   func()
	state  atomic.Int32
}

// watch waits for oto to drain the buffer and then fires the completion
// callback, unless the output was halted in the meantime.
func (o *otoOutput) watch() {
	for o.player.IsPlaying() {
		if outputState(o.state.Load()) != outputActive {
			return
		}
		time.Sleep(pollInterval)
	}

	if !o.state.CompareAndSwap(int32(outputActive), int32(outputFinished)) {
		return
	}
	if err := o.player.Err(); err != nil {
		log.Warn("audio output ended with error", "error", err)
	}
	o.player.Close()
	if o.done != nil {
		o.done()
	}
}

// Halt implements Output.
func (o *otoOutput) Halt() {
	if !o.state.CompareAndSwap(int32(outputActive), int32(outputHalted)) {
		return
	}
	o.player.Pause()
	o.player.Close()
}
