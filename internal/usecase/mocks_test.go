package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Save(ctx context.Context, url entity.NewURL) (*entity.URL, error) {
	args := r.Called(ctx, url)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (r *MockURLRepository) RetrieveByHash(ctx context.Context, hash string) (*entity.URL, error) {
	args := r.Called(ctx, hash)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (r *MockURLRepository) RetrieveBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	args := r.Called(ctx, slug)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (r *MockURLRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := r.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (r *MockURLRepository) IncrementVisitCount(ctx context.Context, slug string) error {
	args := r.Called(ctx, slug)
	return args.Error(0)
}

type MockSafetyChecker struct {
	mock.Mock
}

func (c *MockSafetyChecker) Check(ctx context.Context, url string) (entity.SafetyVerdict, error) {
	args := c.Called(ctx, url)
	verdict, _ := args.Get(0).(entity.SafetyVerdict)
	return verdict, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (n *MockNotifier) Notify(ctx context.Context, subject, body string) error {
	args := n.Called(ctx, subject, body)
	return args.Error(0)
}

type MockSlugGenerator struct {
	mock.Mock
}

func (g *MockSlugGenerator) Length() int {
	args := g.Called()
	return args.Int(0)
}

func (g *MockSlugGenerator) Generate(length int) (string, error) {
	args := g.Called(length)
	return args.String(0), args.Error(1)
}

type MockURLCache struct {
	mock.Mock
}

func (c *MockURLCache) Get(ctx context.Context, slug string) (*entity.URL, error) {
	args := c.Called(ctx, slug)
	res, _ := args.Get(0).(*entity.URL)
	return res, args.Error(1)
}

func (c *MockURLCache) Set(ctx context.Context, url *entity.URL) error {
	args := c.Called(ctx, url)
	return args.Error(0)
}

// memoryURLRepository mimics the urls table, including the partial unique
// indexes on slug and hash of safe rows.
type memoryURLRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []*entity.URL
}

func (r *memoryURLRepository) Save(_ context.Context, url entity.NewURL) (*entity.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if url.IsSafe {
		for _, row := range r.rows {
			if !row.IsSafe {
				continue
			}
			if row.Slug == url.Slug {
				return nil, entity.ErrSlugExists
			}
			if row.OriginalURLHash == url.OriginalURLHash {
				return nil, entity.ErrURLExists
			}
		}
	}

	r.nextID++
	row := &entity.URL{
		ID:              r.nextID,
		OriginalURL:     url.OriginalURL,
		OriginalURLHash: url.OriginalURLHash,
		Slug:            url.Slug,
		IsSafe:          url.IsSafe,
		UnsafeDetails:   url.UnsafeDetails,
	}
	r.rows = append(r.rows, row)

	res := *row
	return &res, nil
}

func (r *memoryURLRepository) find(match func(*entity.URL) bool) (*entity.URL, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.IsSafe && match(row) {
			res := *row
			return &res, nil
		}
	}

	return nil, entity.ErrURLNotFound
}

func (r *memoryURLRepository) RetrieveByHash(_ context.Context, hash string) (*entity.URL, error) {
	return r.find(func(u *entity.URL) bool { return u.OriginalURLHash == hash })
}

func (r *memoryURLRepository) RetrieveBySlug(_ context.Context, slug string) (*entity.URL, error) {
	return r.find(func(u *entity.URL) bool { return u.Slug == slug })
}

func (r *memoryURLRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	_, err := r.find(func(u *entity.URL) bool { return u.Slug == slug })
	return err == nil, nil
}

func (r *memoryURLRepository) IncrementVisitCount(_ context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.IsSafe && row.Slug == slug {
			row.VisitCount++
		}
	}

	return nil
}

// all returns copies of every stored row, safe or not.
func (r *memoryURLRepository) all() []entity.URL {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]entity.URL, 0, len(r.rows))
	for _, row := range r.rows {
		res = append(res, *row)
	}
	return res
}

type checkerFunc func(ctx context.Context, url string) (entity.SafetyVerdict, error)

func (f checkerFunc) Check(ctx context.Context, url string) (entity.SafetyVerdict, error) {
	return f(ctx, url)
}

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *recordingNotifier) Notify(_ context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}
