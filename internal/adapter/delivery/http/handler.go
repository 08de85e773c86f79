package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
	"github.com/vadimbarashkov/link-shortener/pkg/urlx"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, response.ResourceNotFoundResponse)
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error)
	ResolveSlug(ctx context.Context, slug string) (*entity.URL, error)
	ResolveShortURL(ctx context.Context, shortURL string) (*entity.URL, error)
	GetURLStats(ctx context.Context, slug string) (*entity.URL, error)
}

type captchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

type alerter interface {
	Notify(ctx context.Context, subject, body string) error
}

func newValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// weburl accepts what the shortener accepts: any scheme with a host.
	err := validate.RegisterValidation("weburl", func(fl validator.FieldLevel) bool {
		return urlx.Validate(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("http: failed to register weburl validation: %v", err))
	}

	return validate
}

type urlHandler struct {
	useCase  urlUseCase
	captcha  captchaVerifier
	alerter  alerter
	validate *validator.Validate
	baseURL  string
}

func newURLHandler(useCase urlUseCase, captcha captchaVerifier, alerter alerter, baseURL string) *urlHandler {
	return &urlHandler{
		useCase:  useCase,
		captcha:  captcha,
		alerter:  alerter,
		validate: newValidator(),
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// decode binds and validates the JSON body. It renders the error response
// itself and reports whether the handler may continue.
func (h *urlHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.EmptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.InvalidRequestBodyResponse)
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationErrorResponse(err))
		return false
	}

	return true
}

// verifyCaptcha fails closed: a verifier that cannot answer rejects the request.
func (h *urlHandler) verifyCaptcha(w http.ResponseWriter, r *http.Request, token string) bool {
	ok, err := h.captcha.Verify(r.Context(), token)
	if err != nil {
		h.serverError(w, r, err)
		return false
	}

	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.CaptchaFailedResponse)
		return false
	}

	return true
}

func (h *urlHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	case errors.Is(err, entity.ErrInvalidURL):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidURLResponse)
	default:
		h.serverError(w, r, err)
	}
}

// serverError records err on the request log entry, alerts the operator
// and renders a generic 500. A failed alert is only logged.
func (h *urlHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	if h.alerter != nil {
		body := fmt.Sprintf("Unhandled error on %s %s<br/><br/>%s",
			html.EscapeString(r.Method),
			html.EscapeString(r.URL.Path),
			html.EscapeString(err.Error()),
		)
		if aerr := h.alerter.Notify(context.WithoutCancel(r.Context()), "Global exception", body); aerr != nil {
			httplog.LogEntrySetField(r.Context(), "alert_err", slog.AnyValue(aerr))
		}
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.ServerErrorResponse)
}

// baseURLFor returns the configured base URL or, when none is set, one
// derived from the request.
func (h *urlHandler) baseURLFor(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if !h.decode(w, r, &req) || !h.verifyCaptcha(w, r, req.CaptchaToken) {
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.URL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	resp := toURLResponse(url, h.baseURLFor(r))

	if !url.IsSafe {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse("The URL was flagged as unsafe and was not shortened.", resp))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.SuccessResponse("URL shortened successfully.", resp))
}

func (h *urlHandler) resolveShortURL(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest

	if !h.decode(w, r, &req) || !h.verifyCaptcha(w, r, req.CaptchaToken) {
		return
	}

	url, err := h.useCase.ResolveShortURL(r.Context(), req.ShortURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse("Short URL resolved successfully.", toURLResponse(url, h.baseURLFor(r))))
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	url, err := h.useCase.GetURLStats(r.Context(), slug)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response.SuccessResponse("URL stats retrieved successfully.", toStatsResponse(url)))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	url, err := h.useCase.ResolveSlug(r.Context(), slug)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}
