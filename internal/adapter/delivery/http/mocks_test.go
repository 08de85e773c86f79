package http

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type MockURLUseCase struct {
	mock.Mock
}

func (m *MockURLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	args := m.Called(ctx, originalURL)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (m *MockURLUseCase) ResolveSlug(ctx context.Context, slug string) (*entity.URL, error) {
	args := m.Called(ctx, slug)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (m *MockURLUseCase) ResolveShortURL(ctx context.Context, shortURL string) (*entity.URL, error) {
	args := m.Called(ctx, shortURL)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (m *MockURLUseCase) GetURLStats(ctx context.Context, slug string) (*entity.URL, error) {
	args := m.Called(ctx, slug)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

type MockCaptchaVerifier struct {
	mock.Mock
}

func (m *MockCaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Notify(ctx context.Context, subject, body string) error {
	args := m.Called(ctx, subject, body)
	return args.Error(0)
}
