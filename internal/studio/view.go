package studio

import (
	"slices"

	"github.com/fpang/toon-nation/internal/gemini"
)

// View is a point-in-time copy of the studio for rendering.
type View struct {
	SessionID      string    `json:"sessionId"`
	State          State     `json:"state"`
	Mode           Mode      `json:"mode"`
	MediaType      MediaType `json:"mediaType"`
	LoadingMessage string    `json:"loadingMessage,omitempty"`
	// Progress is set only while an animation is running.
	Progress *int   `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
	Caption  string `json:"caption,omitempty"`

	HasOriginal   bool `json:"hasOriginal"`
	HistoryLength int  `json:"historyLength"`
	Pointer       int  `json:"pointer"`
	CanUndo       bool `json:"canUndo"`
	CanRedo       bool `json:"canRedo"`
	Editing       bool `json:"editing"`
	HasVideo      bool `json:"hasVideo"`
	HasFaceSource bool `json:"hasFaceSource"`
	HasFaceTarget bool `json:"hasFaceTarget"`
	Busy          bool `json:"busy"`

	Styles       []string               `json:"styles"`
	ShotType     string                 `json:"shotType"`
	Intensity    int                    `json:"intensity"`
	FaceFidelity int                    `json:"faceFidelity"`
	Advanced     gemini.AdvancedOptions `json:"advanced"`
	Pro          bool                   `json:"pro"`
}

// View returns a snapshot of the current state.
func (s *Studio) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:      s.sessionID,
		State:          s.state,
		Mode:           s.mode,
		MediaType:      s.media,
		LoadingMessage: s.loadingMessage,
		Error:          s.errMsg,
		Caption:        s.caption,
		HasOriginal:    s.original != nil,
		HistoryLength:  s.history.Len(),
		Pointer:        s.history.Pointer(),
		CanUndo:        s.history.CanUndo(),
		CanRedo:        s.history.CanRedo(),
		Editing:        s.editing,
		HasVideo:       len(s.video) > 0,
		HasFaceSource:  s.faceSource != nil,
		HasFaceTarget:  s.faceTarget != nil,
		Busy:           s.busy,
		Styles:         s.selection.Keys(),
		ShotType:       s.shotType,
		Intensity:      s.intensity,
		FaceFidelity:   s.faceFidelity,
		Advanced:       s.advanced,
		Pro:            s.opts.Pro,
	}
	if s.state != StateLoading {
		v.LoadingMessage = ""
	}
	if s.progress != nil {
		p := *s.progress
		v.Progress = &p
	}
	return v
}

// Current returns the entry at the history pointer, or nil.
func (s *Studio) Current() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Current()
}

// Original returns a copy of the original photo, or nil.
func (s *Studio) Original() *Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return nil
	}
	img := *s.original
	img.Data = slices.Clone(img.Data)
	return &img
}

// Video returns the last animation, or nil.
func (s *Studio) Video() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.video
}
