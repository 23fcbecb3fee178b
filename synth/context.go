// Package synth is the native backend: a small block-based sample renderer
// behind the same node interfaces the browser backend implements, with
// playback through oto. It exists for the standalone player and for running
// the engine's full signal path in ordinary Go tests.
package synth

import (
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/driftscape/driftscape/audio"
)

// blockSize is the render quantum in samples.
const blockSize = 128

// renderer produces one block of mono samples. Blocks are identified so a
// node feeding several destinations renders once per quantum.
type renderer interface {
	render(blockID uint64) []float64
}

// Context is the native audio context: a node factory plus the render clock.
// The oto playback goroutine pulls sample blocks through the destination
// node; every graph mutation synchronizes on mu.
type Context struct {
	mu         sync.Mutex
	sampleRate float64
	samples    uint64
	blockID    uint64
	state      audio.ContextState
	dest       *destNode

	otoCtx    *oto.Context
	otoReady  chan struct{}
	player    *oto.Player
	frameBuf  []float64
	frameUsed int
}

// NewContext opens the playback device and returns a suspended context, so
// the resume flow matches the browser backend. Returns an error if the
// device cannot be opened.
func NewContext(sampleRate int) (*Context, error) {
	c := newBareContext(float64(sampleRate))
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	c.otoCtx = otoCtx
	c.otoReady = ready
	return c, nil
}

// NewOfflineContext returns a context without a playback device. The caller
// advances time explicitly with Advance; used by tests and offline rendering.
func NewOfflineContext(sampleRate float64) *Context {
	c := newBareContext(sampleRate)
	c.state = audio.StateRunning
	return c
}

func newBareContext(sampleRate float64) *Context {
	c := &Context{
		sampleRate: sampleRate,
		state:      audio.StateSuspended,
	}
	c.dest = &destNode{baseNode: newBaseNode(c)}
	c.dest.self = c.dest
	return c
}

func (c *Context) CreateGain() audio.GainNode {
	return newGainNode(c)
}

func (c *Context) CreateOscillator() audio.OscillatorNode {
	return newOscillatorNode(c)
}

func (c *Context) CreateBiquadFilter() audio.BiquadFilterNode {
	return newBiquadFilterNode(c)
}

func (c *Context) CreateDelay(maxDelay float64) audio.DelayNode {
	return newDelayNode(c, maxDelay)
}

func (c *Context) CreateNoise() audio.NoiseNode {
	return newNoiseNode(c)
}

func (c *Context) CreateStereoPanner() audio.StereoPannerNode {
	return newStereoPannerNode(c)
}

func (c *Context) CreateCompressor() audio.CompressorNode {
	return newCompressorNode(c)
}

func (c *Context) CreateConvolver() audio.ConvolverNode {
	return newConvolverNode(c)
}

func (c *Context) CreateAnalyser() audio.AnalyserNode {
	return newAnalyserNode(c)
}

func (c *Context) Destination() audio.Node {
	return c.dest
}

func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now()
}

// now is CurrentTime without the lock, for callers already holding it.
func (c *Context) now() float64 {
	return float64(c.samples) / c.sampleRate
}

func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

func (c *Context) State() audio.ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume waits for the device and starts the playback pull loop. The native
// device has no autoplay policy, so this resolves as soon as oto is ready.
func (c *Context) Resume(onResumed func()) {
	c.mu.Lock()
	if c.state != audio.StateSuspended {
		c.mu.Unlock()
		if c.state == audio.StateRunning && onResumed != nil {
			onResumed()
		}
		return
	}
	c.mu.Unlock()

	if c.otoReady != nil {
		<-c.otoReady
	}

	c.mu.Lock()
	c.state = audio.StateRunning
	if c.otoCtx != nil && c.player == nil {
		c.player = c.otoCtx.NewPlayer(&pullReader{ctx: c})
		c.player.Play()
	}
	c.mu.Unlock()

	if onResumed != nil {
		onResumed()
	}
}

func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == audio.StateClosed {
		return
	}
	c.state = audio.StateClosed
	if c.player != nil {
		c.player.Close()
		c.player = nil
	}
}

// Advance renders the given duration and discards the output. Offline use
// only.
func (c *Context) Advance(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	blocks := int(seconds * c.sampleRate / blockSize)
	for i := 0; i < blocks; i++ {
		c.renderBlock()
	}
}

// renderBlock pulls one quantum through the destination and advances the
// clock. Caller holds the lock.
func (c *Context) renderBlock() []float64 {
	c.blockID++
	out := c.dest.render(c.blockID)
	c.samples += blockSize
	return out
}

// pullReader adapts the render loop to oto's io.Reader contract. Frames are
// mono duplicated onto both channels as float32 little-endian.
type pullReader struct {
	ctx *Context
}

func (r *pullReader) Read(p []byte) (int, error) {
	c := r.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	const bytesPerFrame = 8 // two float32 channels
	frames := len(p) / bytesPerFrame
	for f := 0; f < frames; f++ {
		if c.frameUsed >= len(c.frameBuf) {
			if c.state != audio.StateRunning {
				// Closed or suspended mid-read: emit silence.
				c.frameBuf = make([]float64, blockSize)
			} else {
				block := c.renderBlock()
				if c.frameBuf == nil || len(c.frameBuf) != blockSize {
					c.frameBuf = make([]float64, blockSize)
				}
				copy(c.frameBuf, block)
			}
			c.frameUsed = 0
		}
		s := c.frameBuf[c.frameUsed]
		c.frameUsed++
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		bits := math.Float32bits(float32(s))
		off := f * bytesPerFrame
		for ch := 0; ch < 2; ch++ {
			base := off + ch*4
			p[base] = byte(bits)
			p[base+1] = byte(bits >> 8)
			p[base+2] = byte(bits >> 16)
			p[base+3] = byte(bits >> 24)
		}
	}
	return frames * bytesPerFrame, nil
}
