package playback

// VideoController models the single video element owned by one engine
// instance. No two engines may drive the same controller concurrently.
type VideoController interface {
	// Play begins playback of url from time zero. The returned duration is
	// the media's reported duration, or zero when unknown. The controller
	// must invoke onEnded at most once, when playback reaches the natural
	// end of the media, and never synchronously from inside Play. A non-nil
	// error means playback failed to start.
	Play(url string, onEnded func()) (durationMillis int64, err error)

	// Stop halts playback and detaches any pending end callback.
	Stop()
}

// AudioController models the single background-music element owned by one
// engine instance.
type AudioController interface {
	// Play starts (or restarts) playback of url. Failure to start is
	// reported but never fatal to the slideshow.
	Play(url string) error

	Pause()

	// SetVolume applies the level immediately. The engine clamps the value
	// to [0, 1] before calling.
	SetVolume(volume float64)
}

// NopVideo is a video controller for hosts that cannot decode video, such
// as the terminal player. Play always fails, which routes every video slide
// through the engine's grace-period fallback.
type NopVideo struct{}

func (NopVideo) Play(string, func()) (int64, error) { return 0, errPlaybackUnsupported }

func (NopVideo) Stop() {}

// NopAudio is an audio controller that ignores every call.
type NopAudio struct{}

func (NopAudio) Play(string) error { return errPlaybackUnsupported }

func (NopAudio) Pause() {}

func (NopAudio) SetVolume(float64) {}
