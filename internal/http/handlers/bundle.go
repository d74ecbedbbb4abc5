package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"caslastudio/internal/middleware"
	"caslastudio/internal/storage"
	"caslastudio/internal/studio"
	"caslastudio/pkg/zip"
)

type bundleManifest struct {
	Mode         string   `json:"mode"`
	Prompt       string   `json:"prompt,omitempty"`
	SizeChoice   string   `json:"size_choice"`
	CustomSize   string   `json:"custom_size,omitempty"`
	ProductCodes []string `json:"product_codes"`
	Position     string   `json:"position,omitempty"`
	Source       string   `json:"source,omitempty"`
	Result       string   `json:"result"`
}

// DownloadBundle zips the latest result together with the current
// selections and, when present, the uploaded source photograph.
func (a *App) DownloadBundle(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	res, ok := sess.Result()
	if !ok {
		a.error(w, http.StatusNotFound, "no_result", studio.NoResultMessage(middleware.LocaleFromContext(r.Context())))
		return
	}
	state := sess.State()

	manifest := bundleManifest{
		Mode:         string(state.Mode),
		Prompt:       state.Prompt,
		SizeChoice:   string(state.SizeChoice),
		CustomSize:   state.CustomSize,
		ProductCodes: state.ProductCodes,
		Position:     state.Position,
		Result:       downloadBaseName + storage.Extension(res.ContentType),
	}
	if manifest.ProductCodes == nil {
		manifest.ProductCodes = []string{}
	}

	entries := []zip.Entry{{Name: manifest.Result, Modified: res.CreatedAt, Data: res.Data}}
	if img := state.Image; img != nil {
		manifest.Source = "source" + storage.Extension(img.ContentType)
		entries = append(entries, zip.Entry{Name: manifest.Source, Modified: res.CreatedAt, Data: img.Data})
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries = append(entries, zip.Entry{Name: "selections.json", Modified: res.CreatedAt, Data: raw})

	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadBaseName+`.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
