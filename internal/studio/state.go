package studio

import (
	"slices"
	"strings"
)

// Upload is a user supplied source photograph. Data is treated as immutable
// once handed to a State.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the upload length in bytes.
func (u *Upload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Data)
}

// State holds the user's current selections. Every setter is pure: it returns
// an updated copy and never touches the receiver's slices.
type State struct {
	Mode         Mode
	Prompt       string
	SizeChoice   SizeChoice
	CustomSize   string
	ProductCodes []string
	Image        *Upload
	Position     string
}

// NewState returns the defaults a fresh session starts with.
func NewState() State {
	return State{
		Mode:       ModeTextToImage,
		SizeChoice: SizePreset1024x768,
	}
}

// clone copies the slices and re-applies the img2img single product rule, so
// every setter returns a state that satisfies it.
func (s State) clone() State {
	s.ProductCodes = slices.Clone(s.ProductCodes)
	if s.Mode == ModeImageToImage && len(s.ProductCodes) > 1 {
		s.ProductCodes = s.ProductCodes[:1:1]
	}
	return s
}

// SetMode switches the workflow. Prompt, position and upload are kept;
// entering img2img keeps only the first selected product.
func (s State) SetMode(m Mode) State {
	next := s.clone()
	if !m.valid() {
		return next
	}
	next.Mode = m
	return next.clone()
}

// ToggleProductCode flips membership of code in text2img mode and replaces
// the selection in img2img mode.
func (s State) ToggleProductCode(code string) State {
	next := s.clone()
	if next.Mode == ModeImageToImage {
		next.ProductCodes = []string{code}
		return next
	}
	if i := slices.Index(next.ProductCodes, code); i >= 0 {
		next.ProductCodes = slices.Delete(next.ProductCodes, i, i+1)
		return next
	}
	next.ProductCodes = append(next.ProductCodes, code)
	return next
}

func (s State) SetPrompt(prompt string) State {
	next := s.clone()
	next.Prompt = prompt
	return next
}

// SetSizeChoice ignores values outside the two known choices.
func (s State) SetSizeChoice(choice SizeChoice) State {
	next := s.clone()
	if choice == SizePreset1024x768 || choice == SizeCustom {
		next.SizeChoice = choice
	}
	return next
}

// SetCustomSize stores the raw text; the format is checked by Validate.
func (s State) SetCustomSize(raw string) State {
	next := s.clone()
	next.CustomSize = raw
	return next
}

// SetUploadedImage replaces the source photograph. A nil upload clears it.
func (s State) SetUploadedImage(u *Upload) State {
	next := s.clone()
	next.Image = u
	return next
}

func (s State) SetPosition(position string) State {
	next := s.clone()
	next.Position = position
	return next
}

// HasProduct reports whether code is currently selected.
func (s State) HasProduct(code string) bool {
	return slices.Contains(s.ProductCodes, code)
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
