package workermanager_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goto/sitesearch/core/registry"
	"github.com/goto/sitesearch/internal/workermanager"
	"github.com/goto/sitesearch/lib/mocks"
	"github.com/goto/sitesearch/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWorker struct {
	mock.Mock
}

func (w *mockWorker) Register(typ string, h worker.JobHandler) error {
	return w.Called(typ, h).Error(0)
}

func (w *mockWorker) Run(ctx context.Context) error {
	return w.Called(ctx).Error(0)
}

func (w *mockWorker) Enqueue(ctx context.Context, jobs ...worker.JobSpec) error {
	return w.Called(ctx, jobs).Error(0)
}

func newRegistries(src registry.Source) *registry.Registries {
	return registry.New(src, registry.Config{}, registry.WithDefinitions(
		registry.Definition{Name: registry.Organisations, Index: "government", Format: "organisation"},
		registry.Definition{Name: registry.People, Index: "govuk", Format: "person"},
	))
}

func TestManagerRun(t *testing.T) {
	testCases := []struct {
		Description string
		RunErr      error
		ExpectedErr string
	}{
		{Description: "should run the worker"},
		{Description: "should return the worker error", RunErr: errors.New("fail"), ExpectedErr: "fail"},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			w := new(mockWorker)
			w.On("Register", "refresh-registry", mock.AnythingOfType("worker.JobHandler")).Return(nil).Once()
			w.On("Enqueue", mock.Anything, mock.Anything).Return(nil).Maybe()
			w.On("Run", ctx).Return(tc.RunErr)

			mgr := workermanager.NewWithWorker(w, workermanager.Deps{Registries: newRegistries(new(mocks.RegistrySource))})
			err := mgr.Run(ctx)
			if tc.ExpectedErr != "" {
				assert.ErrorContains(t, err, tc.ExpectedErr)
			} else {
				assert.NoError(t, err)
			}
			w.AssertExpectations(t)
		})
	}

	t.Run("should fail when the handler cannot be registered", func(t *testing.T) {
		w := new(mockWorker)
		w.On("Register", mock.Anything, mock.Anything).Return(worker.ErrTypeExists)

		err := workermanager.NewWithWorker(w, workermanager.Deps{}).Run(context.Background())
		assert.ErrorIs(t, err, worker.ErrTypeExists)
	})
}

func TestManagerEnqueueRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("should queue one job per registry", func(t *testing.T) {
		w := new(mockWorker)
		w.On("Enqueue", ctx, []worker.JobSpec{
			{Type: "refresh-registry", Payload: []byte(`{"registry":"organisations"}`)},
			{Type: "refresh-registry", Payload: []byte(`{"registry":"people"}`)},
		}).Return(nil).Once()

		mgr := workermanager.NewWithWorker(w, workermanager.Deps{Registries: newRegistries(new(mocks.RegistrySource))})
		require.NoError(t, mgr.EnqueueRefresh(ctx))
		w.AssertExpectations(t)
	})

	t.Run("should wrap enqueue failures", func(t *testing.T) {
		w := new(mockWorker)
		w.On("Enqueue", ctx, mock.Anything).Return(errors.New("queue full"))

		mgr := workermanager.NewWithWorker(w, workermanager.Deps{Registries: newRegistries(new(mocks.RegistrySource))})
		assert.EqualError(t, mgr.EnqueueRefresh(ctx), "enqueue refresh job: queue full")
	})
}

func TestManagerRefreshesRegistries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fetched := make(chan string, 4)
	src := new(mocks.RegistrySource)
	src.On("DocumentsByFormat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { fetched <- args.String(2) }).
		Return([]map[string]interface{}{{"slug": "hmrc", "title": "HMRC"}}, nil)

	registries := newRegistries(src)
	mgr, err := workermanager.New(workermanager.Deps{
		Config: workermanager.Config{
			WorkerCount:       1,
			PollInterval:      10 * time.Millisecond,
			ActivePollPercent: 100,
			RefreshInterval:   time.Hour,
		},
		Registries: registries,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	formats := map[string]bool{}
	for len(formats) < 2 {
		select {
		case format := <-fetched:
			formats[format] = true
		case <-ctx.Done():
			t.Fatal("registries were not refreshed")
		}
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, map[string]bool{"organisation": true, "person": true}, formats)
	assert.Equal(t, map[string]int{registry.Organisations: 1, registry.People: 1}, registries.Sizes())

	rr := httptest.NewRecorder()
	mgr.DeadJobsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, workermanager.AdminPrefix+"/dead-jobs", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
