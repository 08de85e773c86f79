package http

import (
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

type shortenRequest struct {
	URL          string `json:"url" validate:"required,weburl"`
	CaptchaToken string `json:"captcha_token"`
}

type resolveRequest struct {
	ShortURL     string `json:"short_url" validate:"required,weburl"`
	CaptchaToken string `json:"captcha_token"`
}

type urlResponse struct {
	Slug        string `json:"slug"`
	ShortURL    string `json:"short_url,omitempty"`
	OriginalURL string `json:"original_url"`
}

// toURLResponse hides the slug of unsafe URLs behind entity.UnsafeSlug and
// leaves ShortURL empty for them.
func toURLResponse(url *entity.URL, baseURL string) urlResponse {
	resp := urlResponse{
		Slug:        url.PublicSlug(),
		OriginalURL: url.OriginalURL,
	}

	if url.IsSafe {
		resp.ShortURL = baseURL + "/" + url.Slug
	}

	return resp
}

type statsResponse struct {
	Slug        string    `json:"slug"`
	OriginalURL string    `json:"original_url"`
	VisitCount  int64     `json:"visit_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func toStatsResponse(url *entity.URL) statsResponse {
	return statsResponse{
		Slug:        url.Slug,
		OriginalURL: url.OriginalURL,
		VisitCount:  url.VisitCount,
		CreatedAt:   url.CreatedAt,
	}
}

var invalidURLResponse = response.Response{
	Status:  response.StatusError,
	Message: "Invalid url.",
}
