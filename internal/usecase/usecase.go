package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/vadimbarashkov/link-shortener/internal/entity"
	"github.com/vadimbarashkov/link-shortener/pkg/urlx"

	slugpkg "github.com/vadimbarashkov/link-shortener/internal/slug"
)

const defaultMaxRetries = 5

var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating slug")

type urlRepository interface {
	Save(ctx context.Context, url entity.NewURL) (*entity.URL, error)
	RetrieveByHash(ctx context.Context, hash string) (*entity.URL, error)
	RetrieveBySlug(ctx context.Context, slug string) (*entity.URL, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	IncrementVisitCount(ctx context.Context, slug string) error
}

type safetyChecker interface {
	Check(ctx context.Context, url string) (entity.SafetyVerdict, error)
}

type notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

type slugGenerator interface {
	Length() int
	Generate(length int) (string, error)
}

// urlCache returns nil, nil on a miss.
type urlCache interface {
	Get(ctx context.Context, slug string) (*entity.URL, error)
	Set(ctx context.Context, url *entity.URL) error
}

type Option func(*URLUseCase)

func WithMaxRetries(n int) Option {
	return func(uc *URLUseCase) {
		if n > 0 {
			uc.maxRetries = n
		}
	}
}

func WithCache(cache urlCache) Option {
	return func(uc *URLUseCase) {
		uc.cache = cache
	}
}

type URLUseCase struct {
	urlRepo    urlRepository
	checker    safetyChecker
	notifier   notifier
	slugGen    slugGenerator
	cache      urlCache
	logger     *slog.Logger
	maxRetries int
}

func New(
	urlRepo urlRepository,
	checker safetyChecker,
	notifier notifier,
	slugGen slugGenerator,
	logger *slog.Logger,
	opts ...Option,
) *URLUseCase {
	uc := &URLUseCase{
		urlRepo:    urlRepo,
		checker:    checker,
		notifier:   notifier,
		slugGen:    slugGen,
		logger:     logger,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL returns the stored URL for originalURL, creating it if needed.
// A safe URL always maps to the same slug. For an unsafe URL the record is
// still stored, flagged, and returned with IsSafe set to false; callers must
// show entity.UnsafeSlug instead of its slug.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if !urlx.Validate(originalURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	hash := urlx.Hash(originalURL)

	url, err := uc.urlRepo.RetrieveByHash(ctx, hash)
	if err == nil {
		return url, nil
	}
	if !errors.Is(err, entity.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to look up url by hash: %w", op, err)
	}

	var attempt int

	slug, err := uc.nextSlug(ctx, &attempt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verdict, err := uc.checker.Check(ctx, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for {
		url, err = uc.urlRepo.Save(ctx, entity.NewURL{
			OriginalURL:     originalURL,
			OriginalURLHash: hash,
			Slug:            slug,
			IsSafe:          verdict.IsSafe,
			UnsafeDetails:   verdict.Details,
		})
		if err == nil {
			break
		}

		switch {
		case errors.Is(err, entity.ErrURLExists):
			// A concurrent request stored the same URL first.
			url, err = uc.urlRepo.RetrieveByHash(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to reread url by hash: %w", op, err)
			}
			return url, nil
		case errors.Is(err, entity.ErrSlugExists):
			uc.logger.Debug("slug taken on insert, generating a new one", slog.String("op", op), slog.String("slug", slug))

			slug, err = uc.nextSlug(ctx, &attempt)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		default:
			return nil, fmt.Errorf("%s: failed to save url: %w", op, err)
		}
	}

	if !url.IsSafe {
		uc.logger.Warn("unsafe url submitted",
			slog.String("op", op),
			slog.String("slug", url.Slug),
			slog.String("original_url", url.OriginalURL),
		)
		uc.notifyUnsafe(ctx, url)
	}

	return url, nil
}

// nextSlug generates slugs until one is not used by a safe URL. Slugs keep
// the base length for the first attempts and widen after repeated collisions.
// attempt is shared between calls so that the retry budget covers the whole request.
func (uc *URLUseCase) nextSlug(ctx context.Context, attempt *int) (string, error) {
	for *attempt < uc.maxRetries {
		length := slugpkg.LengthForAttempt(uc.slugGen.Length(), *attempt)
		*attempt++

		slug, err := uc.slugGen.Generate(length)
		if err != nil {
			return "", fmt.Errorf("failed to generate slug: %w", err)
		}

		exists, err := uc.urlRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}

		uc.logger.Debug("slug collision, generating a new one", slog.String("slug", slug))
	}

	return "", ErrMaxRetriesExceeded
}

// notifyUnsafe alerts the operator about an unsafe submission. Delivery
// failures are logged and never fail the request.
func (uc *URLUseCase) notifyUnsafe(ctx context.Context, url *entity.URL) {
	const op = "usecase.URLUseCase.notifyUnsafe"

	subject := "Unsafe URL submitted"
	body := fmt.Sprintf("Unsafe URL submitted: %s<br/><br/>Slug: %s<br/><br/>Details: %s",
		html.EscapeString(url.OriginalURL),
		html.EscapeString(url.Slug),
		html.EscapeString(string(url.UnsafeDetails)),
	)

	if err := uc.notifier.Notify(ctx, subject, body); err != nil {
		uc.logger.Error("failed to send unsafe url alert",
			slog.String("op", op),
			slog.String("slug", url.Slug),
			slog.Any("err", err),
		)
	}
}

// ResolveSlug returns the safe URL published under slug and counts the visit.
// The returned record is the one read before the visit was counted.
func (uc *URLUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveSlug"

	if !slugpkg.IsValid(slug) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.lookup(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}

	if err := uc.urlRepo.IncrementVisitCount(ctx, slug); err != nil {
		return nil, fmt.Errorf("%s: failed to count visit: %w", op, err)
	}

	return url, nil
}

// ResolveShortURL returns the safe URL behind a full short URL without counting a visit.
func (uc *URLUseCase) ResolveShortURL(ctx context.Context, shortURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortURL"

	if !urlx.Validate(shortURL) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	slug := urlx.ExtractSlug(shortURL)
	if !slugpkg.IsValid(slug) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.lookup(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short url: %w", op, err)
	}

	return url, nil
}

// GetURLStats returns the safe URL published under slug with its current visit count.
func (uc *URLUseCase) GetURLStats(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	if !slugpkg.IsValid(slug) {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.urlRepo.RetrieveBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return url, nil
}

// lookup reads a safe URL by slug, going through the cache when one is configured.
// Cache failures only cost a database round trip.
func (uc *URLUseCase) lookup(ctx context.Context, slug string) (*entity.URL, error) {
	if uc.cache != nil {
		url, err := uc.cache.Get(ctx, slug)
		if err != nil {
			uc.logger.Warn("failed to read url from cache", slog.String("slug", slug), slog.Any("err", err))
		}
		if url != nil {
			return url, nil
		}
	}

	url, err := uc.urlRepo.RetrieveBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, url); err != nil {
			uc.logger.Warn("failed to write url to cache", slog.String("slug", slug), slog.Any("err", err))
		}
	}

	return url, nil
}
