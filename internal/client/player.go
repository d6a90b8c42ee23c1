package client

// MediaPlayer is the control surface of the local playback element. The
// engine drives it when applying remote events and reads it when emitting
// local ones. Load is asynchronous: after a Load the element is not ready
// to seek until IsReady reports true again.
type MediaPlayer interface {
	Play()
	Pause()
	SeekTo(position float64)
	Load(videoURL string)
	Position() float64
	IsPlaying() bool
	VideoURL() string
	IsReady() bool
}
