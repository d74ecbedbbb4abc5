package studio

import (
	"errors"
	"strings"
)

// Mode selects the generation workflow.
type Mode string

const (
	ModeTextToImage  Mode = "text2img"
	ModeImageToImage Mode = "img2img"
)

// SizeChoice is the target output size option. The string values are what the
// generation service expects on the wire.
type SizeChoice string

const (
	SizePreset1024x768 SizeChoice = "1024x768"
	SizeCustom         SizeChoice = "Custom size"
)

var (
	ErrUnknownMode       = errors.New("unknown mode")
	ErrUnknownSizeChoice = errors.New("unknown size choice")
)

// ParseMode accepts the wire names of both modes.
func ParseMode(v string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case ModeTextToImage:
		return ModeTextToImage, nil
	case ModeImageToImage:
		return ModeImageToImage, nil
	}
	return "", ErrUnknownMode
}

// Path is the service endpoint path for the mode.
func (m Mode) Path() string {
	return "/" + string(m)
}

func (m Mode) valid() bool {
	return m == ModeTextToImage || m == ModeImageToImage
}

// ParseSizeChoice accepts the wire values plus "custom" as a shorthand.
func ParseSizeChoice(v string) (SizeChoice, error) {
	trimmed := strings.TrimSpace(v)
	switch {
	case trimmed == string(SizePreset1024x768):
		return SizePreset1024x768, nil
	case strings.EqualFold(trimmed, string(SizeCustom)), strings.EqualFold(trimmed, "custom"):
		return SizeCustom, nil
	}
	return "", ErrUnknownSizeChoice
}
