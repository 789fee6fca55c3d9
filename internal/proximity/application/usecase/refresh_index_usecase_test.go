package usecase

import (
	"context"
	"errors"
	"testing"

	"outletradar/internal/proximity/application/ports/in"
	"outletradar/internal/proximity/application/ports/out"
	"outletradar/internal/proximity/domain"
	"outletradar/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutletRepo struct {
	outlets []domain.Outlet
	err     error
}

func (f *fakeOutletRepo) FindAll(ctx context.Context) ([]domain.Outlet, error) {
	return f.outlets, f.err
}

func (f *fakeOutletRepo) FindByID(ctx context.Context, id string) (*domain.Outlet, error) {
	for i := range f.outlets {
		if f.outlets[i].ID == id {
			return &f.outlets[i], nil
		}
	}
	return nil, errors.New("not found")
}

type capturePublisher struct {
	events []out.IndexEventData
	err    error
}

func (c *capturePublisher) PublishIndexRecomputed(ctx context.Context, data out.IndexEventData) error {
	c.events = append(c.events, data)
	return c.err
}

func ptr(v float64) *float64 { return &v }

func testOutlets() []domain.Outlet {
	return []domain.Outlet{
		{ID: "a", Name: "A", Latitude: ptr(3.1570), Longitude: ptr(101.7123)},
		{ID: "b", Name: "B", Latitude: ptr(3.1600), Longitude: ptr(101.7150)},
		{ID: "no-coords", Name: "Broken"},
	}
}

func newRefreshService(repo *fakeOutletRepo, pub *capturePublisher) (*RefreshIndexService, *IndexHolder) {
	holder := NewIndexHolder()
	svc := NewRefreshIndexService(repo, holder, pub, 5.0, logger.NewLogger("test"))
	return svc, holder
}

func TestRefreshIndex_FiltersOutletsWithoutCoordinates(t *testing.T) {
	repo := &fakeOutletRepo{outlets: testOutlets()}
	pub := &capturePublisher{}
	svc, holder := newRefreshService(repo, pub)

	outp, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.NoError(t, err)

	assert.Equal(t, 2, outp.OutletCount)
	assert.Equal(t, 1, outp.SkippedCount)
	assert.Equal(t, 2, outp.Intersections)

	idx := holder.Current()
	require.NotNil(t, idx)
	_, ok := idx.Lookup("no-coords")
	assert.False(t, ok, "outlet without coordinates must not reach the engine")
}

func TestRefreshIndex_VersionIncrements(t *testing.T) {
	repo := &fakeOutletRepo{outlets: testOutlets()}
	pub := &capturePublisher{}
	svc, holder := newRefreshService(repo, pub)

	first, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.NoError(t, err)
	second, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, uint64(2), second.Version)
	assert.Equal(t, uint64(2), holder.Current().Version)
}

func TestRefreshIndex_PublishesEvent(t *testing.T) {
	repo := &fakeOutletRepo{outlets: testOutlets()}
	pub := &capturePublisher{}
	svc, _ := newRefreshService(repo, pub)

	_, err := svc.Execute(context.Background(), in.RefreshIndexInput{RadiusKm: 2.5})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, 2.5, pub.events[0].RadiusKm)
	assert.Equal(t, uint64(1), pub.events[0].Version)
}

func TestRefreshIndex_PublishFailureIsNotFatal(t *testing.T) {
	repo := &fakeOutletRepo{outlets: testOutlets()}
	pub := &capturePublisher{err: errors.New("broker down")}
	svc, holder := newRefreshService(repo, pub)

	_, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.NoError(t, err, "index publication must not depend on the broker")
	assert.NotNil(t, holder.Current())
}

func TestRefreshIndex_RepoFailure(t *testing.T) {
	repo := &fakeOutletRepo{err: errors.New("db down")}
	pub := &capturePublisher{}
	svc, holder := newRefreshService(repo, pub)

	_, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.Error(t, err)
	assert.Nil(t, holder.Current(), "failed refresh must not publish a partial index")
	assert.Empty(t, pub.events)
}

func TestRefreshIndex_DefaultRadius(t *testing.T) {
	repo := &fakeOutletRepo{outlets: testOutlets()}
	pub := &capturePublisher{}
	svc, holder := newRefreshService(repo, pub)

	outp, err := svc.Execute(context.Background(), in.RefreshIndexInput{})
	require.NoError(t, err)

	assert.Equal(t, 5.0, outp.RadiusKm)
	assert.Equal(t, 5.0, holder.Current().RadiusKm)
}
