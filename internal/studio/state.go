package studio

import "fmt"

// State is the top-level phase of the studio.
type State int

const (
	StateIdle State = iota
	StateImageSelected
	StateLoading
	StateSuccess
	StateError
)

var stateNames = [...]string{"idle", "imageSelected", "loading", "success", "error"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON views.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode selects which creation flow the front end presents.
type Mode int

const (
	ModeToonify Mode = iota
	ModeFaceSwap
	ModeFromScratch
)

var modeNames = [...]string{"toonify", "faceSwap", "fromScratch"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// MediaType describes what the current result is.
type MediaType int

const (
	MediaImage MediaType = iota
	MediaVideo
	MediaFaceSwapResult
)

var mediaNames = [...]string{"image", "video", "faceSwapResult"}

func (m MediaType) String() string {
	if m < 0 || int(m) >= len(mediaNames) {
		return fmt.Sprintf("media(%d)", int(m))
	}
	return mediaNames[m]
}

func (m MediaType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
