package handlers

import (
	"time"

	"golang.org/x/text/language"

	"caslastudio/internal/studio"
)

type imageView struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

type resultView struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	DownloadURL string    `json:"download_url"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

type sessionView struct {
	ID           string         `json:"id"`
	Mode         string         `json:"mode"`
	Prompt       string         `json:"prompt"`
	SizeChoice   string         `json:"size_choice"`
	CustomSize   string         `json:"custom_size"`
	ProductCodes []string       `json:"product_codes"`
	Position     string         `json:"position"`
	Image        *imageView     `json:"image"`
	Status       string         `json:"status"`
	Result       *resultView    `json:"result"`
	Error        *errorResponse `json:"error"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func blobURL(id string) string {
	return "/v1/blobs/" + id
}

func newSessionView(v studio.View, locale language.Tag) sessionView {
	codes := v.State.ProductCodes
	if codes == nil {
		codes = []string{}
	}
	out := sessionView{
		ID:           v.ID,
		Mode:         string(v.State.Mode),
		Prompt:       v.State.Prompt,
		SizeChoice:   string(v.State.SizeChoice),
		CustomSize:   v.State.CustomSize,
		ProductCodes: codes,
		Position:     v.State.Position,
		Status:       string(v.Status),
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if img := v.State.Image; img != nil {
		out.Image = &imageView{Filename: img.Filename, ContentType: img.ContentType, Size: img.Size()}
		if v.Preview != nil {
			out.Image.PreviewURL = blobURL(v.Preview.ID)
		}
	}
	if h := v.Result; h != nil {
		out.Result = &resultView{
			ID:          h.ID,
			URL:         blobURL(h.ID),
			DownloadURL: "/v1/sessions/" + v.ID + "/result",
			ContentType: h.ContentType,
			Size:        h.Size,
			CreatedAt:   h.CreatedAt,
		}
	}
	if v.Err != nil {
		out.Error = &errorResponse{Error: errorCode(v.Err), Message: studio.Message(locale, v.Err)}
	}
	return out
}
