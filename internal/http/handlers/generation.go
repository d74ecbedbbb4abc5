package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caslastudio/internal/middleware"
	"caslastudio/internal/storage"
	"caslastudio/internal/studio"
)

const downloadBaseName = "generated_image"

// Submit starts a generation for the session. By default it answers 202 at
// once; with ?wait=true it blocks until the attempt resolves or the client
// goes away, then answers with the settled session.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	locale := middleware.LocaleFromContext(r.Context())

	attempt, err := sess.Submit(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		a.json(w, http.StatusAccepted, newSessionView(sess.Snapshot(), locale))
		return
	}

	if _, err := attempt.Wait(r.Context()); err != nil && errors.Is(err, context.Canceled) {
		return
	}
	a.json(w, http.StatusOK, newSessionView(sess.Snapshot(), locale))
}

// DownloadResult serves the latest result as an attachment.
func (a *App) DownloadResult(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	res, ok := sess.Result()
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", studio.NoResultMessage(middleware.LocaleFromContext(r.Context())))
		return
	}
	filename := downloadBaseName + storage.Extension(res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	a.writeResource(w, res)
}

// Blob serves a live image handle inline. Released handles are gone.
func (a *App) Blob(w http.ResponseWriter, r *http.Request) {
	res, ok := a.Sessions.Resources().Open(chi.URLParam(r, "handle"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600, immutable")
	a.writeResource(w, res)
}

func (a *App) writeResource(w http.ResponseWriter, res studio.Resource) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("Last-Modified", res.CreatedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("ETag", fmt.Sprintf("%q", res.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
