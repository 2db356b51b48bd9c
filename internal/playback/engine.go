package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"keepsake/internal/capsule"
	"keepsake/internal/logging"
)

// State represents the lifecycle of a slideshow.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

var (
	// ErrAlreadyActive is returned by Start while a show is running.
	ErrAlreadyActive = errors.New("slideshow already active")
	// ErrNotActive is returned by navigation outside the Active state.
	ErrNotActive = errors.New("slideshow not active")
	// ErrNotPaused is returned by Resume outside the Paused state.
	ErrNotPaused = errors.New("slideshow not paused")
	// ErrNotFinished is returned by Restart outside the Finished state.
	ErrNotFinished = errors.New("slideshow not finished")
	// ErrClosed is returned by every command after Close.
	ErrClosed = errors.New("engine closed")

	errPlaybackUnsupported = errors.New("media playback unsupported")
)

const defaultVideoGrace = 2 * time.Second

// Snapshot is the serializable view of playback state that renderers
// subscribe to. It is never persisted.
type Snapshot struct {
	State        State   `json:"state"`
	CurrentIndex int     `json:"currentIndex"`
	ItemCount    int     `json:"itemCount"`
	AudioVolume  float64 `json:"audioVolume"`
	AudioPlaying bool    `json:"audioPlaying"`
}

// Engine drives the slideshow for one capsule document. It owns its video
// and audio controllers exclusively for its lifetime.
type Engine struct {
	doc          capsule.Document
	clock        Clock
	video        VideoController
	audio        AudioController
	logger       *slog.Logger
	slideTimeout time.Duration
	videoGrace   time.Duration

	mu           sync.Mutex
	state        State
	index        int
	timer        Timer
	gen          uint64
	volume       float64
	audioPlaying bool
	closed       bool
	subs         map[int]chan Snapshot
	nextSubID    int
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithClock overrides the scheduling clock (used in tests).
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithVideo sets the video controller.
func WithVideo(video VideoController) Option {
	return func(e *Engine) {
		if video != nil {
			e.video = video
		}
	}
}

// WithAudio sets the audio controller.
func WithAudio(audio AudioController) Option {
	return func(e *Engine) {
		if audio != nil {
			e.audio = audio
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSlideTimeout overrides the per-slide timeout for non-video items.
func WithSlideTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.slideTimeout = d
		}
	}
}

// WithVideoGrace overrides the grace period applied when a video fails to
// start.
func WithVideoGrace(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.videoGrace = d
		}
	}
}

// NewEngine builds an engine over a snapshot of the document. The engine
// reads the document only; it never mutates items.
func NewEngine(doc capsule.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:          doc.Clone(),
		clock:        SystemClock(),
		video:        NopVideo{},
		audio:        NopAudio{},
		logger:       logging.NewNop(),
		slideTimeout: doc.EffectiveSlideTimeout(),
		videoGrace:   defaultVideoGrace,
		state:        StateIdle,
		volume:       1.0,
		subs:         make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "playback")
	return e
}

// Start begins the slideshow from the first item. Valid from Idle and
// Finished. Background music starts best-effort: a playback failure is
// logged and never blocks slide advancement.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state == StateActive || e.state == StatePaused {
		return ErrAlreadyActive
	}

	e.index = 0
	e.state = StateActive
	e.startAudioLocked()

	if len(e.doc.Items) == 0 {
		e.finishLocked()
		e.publishLocked()
		return nil
	}
	e.scheduleLocked()
	e.publishLocked()
	return nil
}

// Next advances to the following slide, finishing the show when the current
// slide is the last one. Manual navigation always cancels the pending timer
// before the transition so two advances can never race.
func (e *Engine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StateActive {
		return ErrNotActive
	}
	e.advanceLocked()
	e.publishLocked()
	return nil
}

// Previous moves to the prior slide, wrapping to the last item when the
// show is at index zero. Available only while Active.
func (e *Engine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StateActive {
		return ErrNotActive
	}

	e.cancelPendingLocked()
	count := len(e.doc.Items)
	if count > 0 {
		e.index = (e.index - 1 + count) % count
	}
	e.scheduleLocked()
	e.publishLocked()
	return nil
}

// Pause suspends auto-advance. Timers are cancelled, not merely ignored.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StateActive {
		return ErrNotActive
	}
	e.cancelPendingLocked()
	e.state = StatePaused
	e.publishLocked()
	return nil
}

// Resume leaves Paused and immediately advances to the next slide. Resuming
// skips the slide that was showing when Pause was called; this is an
// intentional, observable behavior, not an accident of timing.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StatePaused {
		return ErrNotPaused
	}
	e.state = StateActive
	e.advanceLocked()
	e.publishLocked()
	return nil
}

// Restart returns a finished show to Idle with the index reset. The caller
// must invoke Start again to play.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.state != StateFinished {
		return ErrNotFinished
	}
	e.cancelPendingLocked()
	e.state = StateIdle
	e.index = 0
	e.publishLocked()
	return nil
}

// SetVolume applies a new audio level immediately, clamped to [0, 1].
func (e *Engine) SetVolume(volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	e.volume = volume
	e.audio.SetVolume(volume)
	e.publishLocked()
}

// ToggleAudio is the explicit user control for background music. No state
// transition other than this call ever pauses audio.
func (e *Engine) ToggleAudio() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.audioPlaying {
		e.audio.Pause()
		e.audioPlaying = false
	} else {
		e.startAudioLocked()
	}
	e.publishLocked()
}

// Snapshot returns the current serializable playback state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// CurrentItem returns the item under the cursor, if any.
func (e *Engine) CurrentItem() (capsule.ContentItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index < 0 || e.index >= len(e.doc.Items) {
		return capsule.ContentItem{}, false
	}
	return e.doc.Items[e.index], true
}

// Subscribe registers a renderer. The returned channel receives a snapshot
// after every observable change; the cancel function detaches it. Slow
// consumers miss intermediate snapshots rather than blocking the engine.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	ch := make(chan Snapshot, 16)
	e.subs[id] = ch
	ch <- e.snapshotLocked()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close tears the engine down: all timers cancelled, media listeners
// detached, subscriber channels closed. The engine rejects every command
// afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.cancelPendingLocked()
	e.video.Stop()
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// Command names accepted by Apply.
const (
	CommandStart    = "start"
	CommandNext     = "next"
	CommandPrevious = "previous"
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandRestart  = "restart"
)

// Apply dispatches a named command. Unknown names return ErrUnknownCommand.
func (e *Engine) Apply(command string) error {
	switch command {
	case CommandStart:
		return e.Start()
	case CommandNext:
		return e.Next()
	case CommandPrevious:
		return e.Previous()
	case CommandPause:
		return e.Pause()
	case CommandResume:
		return e.Resume()
	case CommandRestart:
		return e.Restart()
	default:
		return ErrUnknownCommand
	}
}

// ErrUnknownCommand is returned by Apply for unrecognized command names.
var ErrUnknownCommand = errors.New("unknown playback command")

// advanceLocked cancels any pending advance and moves the cursor forward,
// finishing the show past the last item.
func (e *Engine) advanceLocked() {
	e.cancelPendingLocked()
	if e.index >= len(e.doc.Items)-1 {
		e.finishLocked()
		return
	}
	e.index++
	e.scheduleLocked()
}

// finishLocked stops pacing but leaves the audio sub-state untouched:
// running off the end of the show does not silence the music.
func (e *Engine) finishLocked() {
	e.cancelPendingLocked()
	e.state = StateFinished
}

// cancelPendingLocked stops the pending advance timer and invalidates every
// outstanding timer and media callback by bumping the generation counter.
func (e *Engine) cancelPendingLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.video.Stop()
	e.gen++
}

// scheduleLocked arms pacing for the current slide. Text and image slides
// advance on the slide timer. Video slides play from zero and advance on the
// natural end event, with a fallback timer of reported duration plus the
// grace period; a video that cannot start at all advances after the grace
// period alone.
func (e *Engine) scheduleLocked() {
	if e.state != StateActive || e.index < 0 || e.index >= len(e.doc.Items) {
		return
	}
	gen := e.gen
	item := e.doc.Items[e.index]

	if item.Kind != capsule.ItemVideo {
		e.timer = e.clock.AfterFunc(e.slideTimeout, func() { e.timerFired(gen) })
		return
	}

	durationMillis, err := e.video.Play(item.Content, func() { e.videoEnded(gen) })
	if err != nil {
		e.logger.Warn("video failed to start, advancing after grace period",
			logging.Int("index", e.index), logging.Error(err))
		e.timer = e.clock.AfterFunc(e.videoGrace, func() { e.timerFired(gen) })
		return
	}
	// Unknown duration still gets a fallback so a silent player cannot
	// stall the show on one slide.
	fallback := time.Duration(durationMillis)*time.Millisecond + e.videoGrace
	e.timer = e.clock.AfterFunc(fallback, func() { e.timerFired(gen) })
}

func (e *Engine) timerFired(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.state != StateActive || gen != e.gen {
		return
	}
	e.advanceLocked()
	e.publishLocked()
}

func (e *Engine) videoEnded(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.state != StateActive || gen != e.gen {
		return
	}
	e.advanceLocked()
	e.publishLocked()
}

func (e *Engine) startAudioLocked() {
	if e.doc.BackgroundMusic == "" {
		return
	}
	e.audio.SetVolume(e.volume)
	if err := e.audio.Play(e.doc.BackgroundMusic); err != nil {
		e.logger.Warn("background music failed to start", logging.Error(err))
		e.audioPlaying = false
		return
	}
	e.audioPlaying = true
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		State:        e.state,
		CurrentIndex: e.index,
		ItemCount:    len(e.doc.Items),
		AudioVolume:  e.volume,
		AudioPlaying: e.audioPlaying,
	}
}

func (e *Engine) publishLocked() {
	snap := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
