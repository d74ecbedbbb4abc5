package studio

import (
	"errors"
	"testing"
)

func textState() State {
	return NewState().SetPrompt("modern kitchen counter").ToggleProductCode("C1012 Glacier White")
}

func imageState() State {
	return NewState().
		SetMode(ModeImageToImage).
		SetUploadedImage(&Upload{Filename: "room.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}).
		SetPosition("countertop").
		ToggleProductCode("C1026 Polar")
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  error
	}{
		{name: "text ok", state: textState()},
		{name: "text empty prompt", state: textState().SetPrompt(""), want: ErrMissingTextFields},
		{name: "text whitespace prompt", state: textState().SetPrompt("   "), want: ErrMissingTextFields},
		{name: "text no products", state: NewState().SetPrompt("kitchen"), want: ErrMissingTextFields},
		{
			name:  "text empty prompt with custom size error too",
			state: textState().SetPrompt("").SetSizeChoice(SizeCustom).SetCustomSize("bad"),
			want:  ErrMissingTextFields,
		},
		{name: "image ok", state: imageState()},
		{name: "image missing upload", state: imageState().SetUploadedImage(nil), want: ErrMissingImageFields},
		{name: "image empty upload", state: imageState().SetUploadedImage(&Upload{}), want: ErrMissingImageFields},
		{name: "image missing position", state: imageState().SetPosition(""), want: ErrMissingImageFields},
		{
			name:  "image missing product",
			state: NewState().SetMode(ModeImageToImage).SetUploadedImage(&Upload{Data: []byte("x")}).SetPosition("wall"),
			want:  ErrMissingImageFields,
		},
		{name: "custom size letters", state: textState().SetSizeChoice(SizeCustom).SetCustomSize("abcx720"), want: ErrInvalidCustomSize},
		{name: "custom size empty", state: textState().SetSizeChoice(SizeCustom), want: ErrInvalidCustomSize},
		{name: "custom size zero", state: textState().SetSizeChoice(SizeCustom).SetCustomSize("0x720"), want: ErrInvalidCustomSize},
		{name: "custom size uppercase separator", state: textState().SetSizeChoice(SizeCustom).SetCustomSize("1280X720"), want: ErrInvalidCustomSize},
		{name: "custom size ok", state: textState().SetSizeChoice(SizeCustom).SetCustomSize("1280x720")},
		{name: "custom size ignored for preset", state: textState().SetCustomSize("garbage")},
		{name: "image custom size", state: imageState().SetSizeChoice(SizeCustom).SetCustomSize("x"), want: ErrInvalidCustomSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := Validate(tc.state)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("error mismatch: got %v want %v", err, tc.want)
				}
				if req != nil {
					t.Fatalf("expected no request, got %#v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Mode() != tc.state.Mode {
				t.Fatalf("mode mismatch: got %q want %q", req.Mode(), tc.state.Mode)
			}
		})
	}
}

func TestValidateSnapshotIsIndependent(t *testing.T) {
	s := textState().ToggleProductCode("C1026 Polar")
	req, err := Validate(s)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	text, ok := req.(TextToImageRequest)
	if !ok {
		t.Fatalf("expected TextToImageRequest, got %T", req)
	}
	s.ProductCodes[0] = "mutated"
	if text.ProductCodes[0] != "C1012 Glacier White" {
		t.Fatalf("snapshot shares storage with state: %v", text.ProductCodes)
	}
}

func TestValidateImageRequestFields(t *testing.T) {
	req, err := Validate(imageState().SetSizeChoice(SizeCustom).SetCustomSize(" 800x600 "))
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	img, ok := req.(ImageToImageRequest)
	if !ok {
		t.Fatalf("expected ImageToImageRequest, got %T", req)
	}
	if img.ProductCode != "C1026 Polar" || img.Position != "countertop" {
		t.Fatalf("unexpected request: %+v", img)
	}
	if img.Size.Choice != SizeCustom || img.Size.Custom != "800x600" {
		t.Fatalf("size mismatch: %+v", img.Size)
	}
}

func TestParseCustomSize(t *testing.T) {
	w, h, err := ParseCustomSize("1280x720")
	if err != nil || w != 1280 || h != 720 {
		t.Fatalf("ParseCustomSize: got %d %d %v", w, h, err)
	}
	for _, in := range []string{"", "1280", "1280x", "x720", "-1x5", "12.5x3", "1280x720x2", "99999999999999999999x1"} {
		if _, _, err := ParseCustomSize(in); !errors.Is(err, ErrInvalidCustomSize) {
			t.Fatalf("ParseCustomSize(%q): expected ErrInvalidCustomSize, got %v", in, err)
		}
	}
}
