package live

import (
	"sync"
)

// OutputConfig configures playback buffering behavior.
type OutputConfig struct {
	// MinBufferMs is the minimum audio to buffer before emitting the
	// first chunk. Prevents glitches when the first model chunk is
	// small. Default: 50ms. Set to 0 to disable pre-buffering.
	MinBufferMs int

	// ChannelSize is the buffer size for the chunks channel.
	// Default: 20.
	ChannelSize int
}

// DefaultOutputConfig returns the default playback configuration.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		MinBufferMs: 50,
		ChannelSize: 20,
	}
}

// AudioOutput buffers model speech for smooth playback. It pre-buffers
// a minimum amount of audio before the first chunk and drops everything
// pending when the model is interrupted, so the player never replays
// stale audio.
//
// Usage:
//
//	out := live.NewAudioOutput(session.OutputFormat(), live.DefaultOutputConfig())
//	for {
//	    select {
//	    case chunk := <-out.Chunks():
//	        player.Write(chunk)
//	    case <-out.Flush():
//	        player.Clear()
//	    }
//	}
type AudioOutput struct {
	config OutputConfig

	chunks chan []byte
	flush  chan struct{}

	mu          sync.Mutex
	buffer      *AudioBuffer
	bufferReady bool
	closed      bool
}

// maxPendingMs caps the audio held while the chunks channel is full.
// Past that the oldest audio is dropped rather than growing without
// bound.
const maxPendingMs = 10000

// NewAudioOutput creates an AudioOutput for the given PCM format.
func NewAudioOutput(format AudioConfig, config OutputConfig) *AudioOutput {
	if config.MinBufferMs == 0 && config.ChannelSize == 0 {
		config = DefaultOutputConfig()
	}
	if config.ChannelSize == 0 {
		config.ChannelSize = 20
	}

	return &AudioOutput{
		config: config,
		buffer: NewAudioBuffer(format, maxPendingMs),
		chunks: make(chan []byte, config.ChannelSize),
		flush:  make(chan struct{}, 1),
	}
}

// Chunks returns a channel that emits audio ready for playback. Audio is
// pre-buffered according to MinBufferMs before the first chunk; after
// each flush, pre-buffering resets for the next stream.
func (a *AudioOutput) Chunks() <-chan []byte {
	return a.chunks
}

// Flush returns a channel that signals when the player should clear its
// buffer, typically because the user interrupted the model.
func (a *AudioOutput) Flush() <-chan struct{} {
	return a.flush
}

// Consume forwards session events into the output until the events
// channel closes, then closes the output. Audio chunks are buffered,
// InterruptedEvents become flushes, everything else is ignored.
func (a *AudioOutput) Consume(events <-chan Event) {
	go func() {
		defer a.Close()
		for event := range events {
			switch e := event.(type) {
			case AudioChunkEvent:
				a.Push(e.Data)
			case InterruptedEvent:
				a.DoFlush()
			}
		}
	}()
}

// Push adds model audio, emitting it once the pre-buffer threshold is
// met.
func (a *AudioOutput) Push(data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	a.buffer.Write(data)

	if !a.bufferReady && a.buffer.DurationMs() >= a.config.MinBufferMs {
		a.bufferReady = true
	}
	if !a.bufferReady || a.buffer.Len() == 0 {
		return
	}

	chunk := a.buffer.Drain()
	select {
	case a.chunks <- chunk:
	default:
		// Channel full; keep the audio for the next push.
		a.buffer.Write(chunk)
	}
}

// DoFlush drops all buffered and pending audio and signals the player
// to clear its own buffer.
func (a *AudioOutput) DoFlush() {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()
		return
	}

	a.buffer.Clear()
	a.bufferReady = false
	a.mu.Unlock()

	for {
		select {
		case <-a.chunks:
		default:
			goto drained
		}
	}
drained:

	select {
	case a.flush <- struct{}{}:
	default:
		// Already have a pending flush signal.
	}
}

// Close closes the output channels. Safe to call more than once.
func (a *AudioOutput) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.chunks)
	close(a.flush)
}
