package mocks

import (
	"context"
	"net/url"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/presenter"
	"github.com/stretchr/testify/mock"
)

type RegistrySource struct {
	mock.Mock
}

func (src *RegistrySource) DocumentsByFormat(ctx context.Context, index, format string, fields []string) ([]map[string]interface{}, error) {
	args := src.Called(ctx, index, format, fields)
	docs, _ := args.Get(0).([]map[string]interface{})
	return docs, args.Error(1)
}

type SearchEngine struct {
	mock.Mock
}

func (e *SearchEngine) Search(ctx context.Context, indices []string, body interface{}) (search.Response, error) {
	args := e.Called(ctx, indices, body)
	return args.Get(0).(search.Response), args.Error(1)
}

func (e *SearchEngine) MultiSearch(ctx context.Context, indices []string, bodies []interface{}) ([]search.Response, error) {
	args := e.Called(ctx, indices, bodies)
	responses, _ := args.Get(0).([]search.Response)
	return responses, args.Error(1)
}

type SearchService struct {
	mock.Mock
}

func (s *SearchService) Search(ctx context.Context, values url.Values) (presenter.ResultSet, error) {
	args := s.Called(ctx, values)
	rs, _ := args.Get(0).(presenter.ResultSet)
	return rs, args.Error(1)
}

type HealthChecker struct {
	mock.Mock
}

func (h *HealthChecker) Ping(ctx context.Context) error {
	return h.Called(ctx).Error(0)
}

type RegistryRefresher struct {
	mock.Mock
}

func (r *RegistryRefresher) Refresh(ctx context.Context) error {
	return r.Called(ctx).Error(0)
}

type Analyzer struct {
	mock.Mock
}

func (a *Analyzer) Analyze(ctx context.Context, index, analyzer, text string) ([]string, error) {
	args := a.Called(ctx, index, analyzer, text)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}

type BestBetsFinder struct {
	mock.Mock
}

func (f *BestBetsFinder) Find(ctx context.Context, query string) (search.BestBets, error) {
	args := f.Called(ctx, query)
	bets, _ := args.Get(0).(search.BestBets)
	return bets, args.Error(1)
}
