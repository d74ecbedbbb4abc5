package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"caslastudio/internal/middleware"
	"caslastudio/internal/studio"
)

type patchSessionRequest struct {
	Mode       *string `json:"mode" validate:"omitempty,oneof=text2img img2img"`
	Prompt     *string `json:"prompt" validate:"omitempty,max=2000"`
	SizeChoice *string `json:"size_choice" validate:"omitempty,max=32"`
	CustomSize *string `json:"custom_size" validate:"omitempty,max=32"`
	Position   *string `json:"position" validate:"omitempty,max=200"`
}

type toggleProductRequest struct {
	Code string `json:"code" validate:"required,max=200"`
}

type toggleProductResponse struct {
	Session   sessionView `json:"session"`
	InCatalog bool        `json:"in_catalog"`
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.json(w, http.StatusCreated, newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.Sessions.Delete(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSession applies any subset of the scalar selections. The mode is
// applied first so the product cardinality rule sees the new mode.
func (a *App) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req patchSessionRequest
	if !a.decode(w, r, &req) {
		return
	}

	var (
		mode studio.Mode
		size studio.SizeChoice
		err  error
	)
	if req.Mode != nil {
		if mode, err = studio.ParseMode(*req.Mode); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid mode")
			return
		}
	}
	if req.SizeChoice != nil {
		if size, err = studio.ParseSizeChoice(*req.SizeChoice); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid size_choice")
			return
		}
	}

	sess.Update(func(s studio.State) studio.State {
		if req.Mode != nil {
			s = s.SetMode(mode)
		}
		if req.Prompt != nil {
			s = s.SetPrompt(*req.Prompt)
		}
		if req.SizeChoice != nil {
			s = s.SetSizeChoice(size)
		}
		if req.CustomSize != nil {
			s = s.SetCustomSize(*req.CustomSize)
		}
		if req.Position != nil {
			s = s.SetPosition(*req.Position)
		}
		return s
	})
	a.json(w, http.StatusOK, newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

// ToggleProduct selects or deselects a product. Codes outside the catalog
// are accepted and flagged.
func (a *App) ToggleProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req toggleProductRequest
	if !a.decode(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "code required")
		return
	}

	sess.Update(func(s studio.State) studio.State { return s.ToggleProductCode(code) })

	_, known := a.Catalog.Lookup(r.Context(), code)
	if !known {
		a.Logger.Debug().Str("session_id", sess.ID()).Str("code", code).Msg("product outside catalog selected")
	}
	a.json(w, http.StatusOK, toggleProductResponse{
		Session:   newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())),
		InCatalog: known,
	})
}

// UploadImage stores the multipart "image" part as the session's source
// photograph.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "image too large")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "multipart form required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file required")
		return
	}
	defer file.Close()

	if header.Size > a.MaxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "image too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read image")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is empty")
		return
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "file is not an image")
		return
	}

	upload := &studio.Upload{Filename: header.Filename, ContentType: contentType, Data: data}
	sess.Update(func(s studio.State) studio.State { return s.SetUploadedImage(upload) })
	a.json(w, http.StatusOK, newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}

func (a *App) ClearImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	sess.Update(func(s studio.State) studio.State { return s.SetUploadedImage(nil) })
	a.json(w, http.StatusOK, newSessionView(sess.Snapshot(), middleware.LocaleFromContext(r.Context())))
}
