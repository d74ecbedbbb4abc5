package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator"
	"github.com/rs/zerolog"

	"caslastudio/internal/catalog"
	"caslastudio/internal/middleware"
	"caslastudio/internal/studio"
)

// ProductCatalog is the read side of the product list.
type ProductCatalog interface {
	Products(ctx context.Context) []catalog.Product
	Lookup(ctx context.Context, code string) (catalog.Product, bool)
}

type App struct {
	Sessions       *studio.Registry
	Catalog        ProductCatalog
	Logger         zerolog.Logger
	MaxUploadBytes int64

	validate *validator.Validate
}

func NewApp(sessions *studio.Registry, products ProductCatalog, logger zerolog.Logger, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &App{
		Sessions:       sessions,
		Catalog:        products,
		Logger:         logger.With().Str("component", "api").Logger(),
		MaxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorResponse{Error: code, Message: msg})
}

// fail renders a studio error as its status, stable code and localized
// message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("request failed")
	}
	a.error(w, status, code, studio.Message(middleware.LocaleFromContext(r.Context()), err))
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, studio.ErrMissingTextFields):
		return http.StatusUnprocessableEntity, "missing_text_fields"
	case errors.Is(err, studio.ErrMissingImageFields):
		return http.StatusUnprocessableEntity, "missing_image_fields"
	case errors.Is(err, studio.ErrInvalidCustomSize):
		return http.StatusUnprocessableEntity, "invalid_custom_size"
	case errors.Is(err, studio.ErrAlreadyInFlight):
		return http.StatusConflict, "already_in_flight"
	case errors.Is(err, studio.ErrServiceRejected):
		return http.StatusBadGateway, "service_rejected"
	case errors.Is(err, studio.ErrTransport):
		return http.StatusBadGateway, "transport"
	}
	return http.StatusInternalServerError, "internal"
}

// errorCode is the stable code for an error stored on a session.
func errorCode(err error) string {
	_, code := classifyError(err)
	return code
}

// session resolves the {id} URL parameter, answering 404 itself when the
// session is unknown.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*studio.Session, bool) {
	sess, ok := a.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", studio.SessionMissingMessage(middleware.LocaleFromContext(r.Context())))
		return nil, false
	}
	return sess, true
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Field() + ": failed " + fe.Tag()
	}
	return "invalid payload"
}
