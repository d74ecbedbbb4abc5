package studio

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrMissingTextFields  = errors.New("prompt and at least one product are required")
	ErrMissingImageFields = errors.New("image, position and exactly one product are required")
	ErrInvalidCustomSize  = errors.New("custom size must look like <width>x<height>")
)

var customSizePattern = regexp.MustCompile(`^([0-9]+)x([0-9]+)$`)

// Size is the validated size selection. Custom is set only for SizeCustom.
type Size struct {
	Choice SizeChoice
	Custom string
}

// CustomValue returns nil unless a custom size was chosen.
func (s Size) CustomValue() *string {
	if s.Choice != SizeCustom {
		return nil
	}
	v := s.Custom
	return &v
}

// Request is a selection proven complete for its mode. The concrete type is
// either TextToImageRequest or ImageToImageRequest.
type Request interface {
	Mode() Mode
	request()
}

type TextToImageRequest struct {
	Prompt       string
	Size         Size
	ProductCodes []string
}

func (TextToImageRequest) Mode() Mode { return ModeTextToImage }
func (TextToImageRequest) request()   {}

type ImageToImageRequest struct {
	Image       Upload
	Position    string
	Size        Size
	ProductCode string
}

func (ImageToImageRequest) Mode() Mode { return ModeImageToImage }
func (ImageToImageRequest) request()   {}

// Validate checks the state against the rules of its mode and returns an
// independent snapshot of the fields the mode needs. Mode rules are checked
// before the custom size.
func Validate(s State) (Request, error) {
	switch s.Mode {
	case ModeImageToImage:
		if s.Image == nil || len(s.Image.Data) == 0 || blank(s.Position) || len(s.ProductCodes) != 1 {
			return nil, ErrMissingImageFields
		}
	default:
		if blank(s.Prompt) || len(s.ProductCodes) == 0 {
			return nil, ErrMissingTextFields
		}
	}

	size := Size{Choice: s.SizeChoice}
	if size.Choice != SizeCustom {
		size.Choice = SizePreset1024x768
	} else {
		custom := strings.TrimSpace(s.CustomSize)
		if _, _, err := ParseCustomSize(custom); err != nil {
			return nil, err
		}
		size.Custom = custom
	}

	if s.Mode == ModeImageToImage {
		return ImageToImageRequest{
			Image:       *s.Image,
			Position:    strings.TrimSpace(s.Position),
			Size:        size,
			ProductCode: s.ProductCodes[0],
		}, nil
	}
	return TextToImageRequest{
		Prompt:       strings.TrimSpace(s.Prompt),
		Size:         size,
		ProductCodes: slices.Clone(s.ProductCodes),
	}, nil
}

// ParseCustomSize splits "1280x720" into its dimensions. Both must be
// positive integers.
func ParseCustomSize(v string) (int, int, error) {
	m := customSizePattern.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return 0, 0, ErrInvalidCustomSize
	}
	w, err := strconv.Atoi(m[1])
	if err != nil || w <= 0 {
		return 0, 0, ErrInvalidCustomSize
	}
	h, err := strconv.Atoi(m[2])
	if err != nil || h <= 0 {
		return 0, 0, ErrInvalidCustomSize
	}
	return w, h, nil
}
