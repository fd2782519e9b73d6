package exposure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

type limitKey struct {
	modality string
	position int
}

type fakeRepo struct {
	limits   map[limitKey]Limit
	pending  map[limitKey]decimal.Decimal
	excluded []string
	alerts   []Alert
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{limits: map[limitKey]Limit{}, pending: map[limitKey]decimal.Decimal{}}
}

func (f *fakeRepo) Limit(_ context.Context, modality string, position int) (Limit, bool, error) {
	l, ok := f.limits[limitKey{modality, position}]
	return l, ok, nil
}

func (f *fakeRepo) PendingTotal(_ context.Context, modality string, position int, excludeBetID string) (decimal.Decimal, error) {
	f.excluded = append(f.excluded, excludeBetID)
	return f.pending[limitKey{modality, position}], nil
}

func (f *fakeRepo) UpsertAlert(_ context.Context, a Alert) (Alert, error) {
	a.ID = "alert-1"
	f.alerts = append(f.alerts, a)
	return a, nil
}

type fakeNotifier struct {
	got []Alert
	err error
}

func (n *fakeNotifier) Notify(_ context.Context, a Alert) error {
	n.got = append(n.got, a)
	return n.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newMonitor(repo Repo, n Notifier) *Monitor {
	m := NewMonitor(repo, n, nil)
	m.Now = func() time.Time { return time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestCheckAndAlertExceedsCeiling(t *testing.T) {
	repo := newFakeRepo()
	repo.limits[limitKey{"GRUPO", 1}] = Limit{Modality: "GRUPO", Position: 1, Ceiling: dec("1000"), Active: true}
	repo.pending[limitKey{"GRUPO", 1}] = dec("950")
	n := &fakeNotifier{}

	res, err := newMonitor(repo, n).CheckAndAlert(context.Background(), "Grupo", 1, dec("100"))
	require.NoError(t, err)

	assert.True(t, res.Exceeded)
	assert.Equal(t, "1050.00", res.Total.StringFixed(2))
	assert.Equal(t, "50.00", res.Overage.StringFixed(2))
	require.NotNil(t, res.Alert)
	assert.Equal(t, "alert-1", res.Alert.ID)
	assert.Equal(t, "GRUPO", res.Alert.Modality)
	require.Len(t, n.got, 1)
	assert.Equal(t, []string{""}, repo.excluded)
}

func TestCheckAndAlertAtCeilingIsNotExceeded(t *testing.T) {
	repo := newFakeRepo()
	repo.limits[limitKey{"MILHAR", 2}] = Limit{Ceiling: dec("1000"), Active: true}
	repo.pending[limitKey{"MILHAR", 2}] = dec("900")

	res, err := newMonitor(repo, nil).CheckAndAlert(context.Background(), "MILHAR", 2, dec("100"))
	require.NoError(t, err)
	assert.False(t, res.Exceeded)
	assert.Nil(t, res.Alert)
	assert.Empty(t, repo.alerts)
}

func TestCheckAndAlertWithoutActiveLimit(t *testing.T) {
	repo := newFakeRepo()
	repo.limits[limitKey{"DEZENA", 1}] = Limit{Ceiling: dec("10"), Active: false}
	repo.pending[limitKey{"DEZENA", 1}] = dec("5000")

	for _, mod := range []string{"DEZENA", "CENTENA"} {
		res, err := newMonitor(repo, nil).CheckAndAlert(context.Background(), mod, 1, dec("100"))
		require.NoError(t, err)
		assert.False(t, res.Exceeded, mod)
	}
	assert.Empty(t, repo.excluded)
}

func TestCheckAndAlertValidation(t *testing.T) {
	m := newMonitor(newFakeRepo(), nil)

	_, err := m.CheckAndAlert(context.Background(), "GRUPO", 6, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = m.CheckAndAlert(context.Background(), "GRUPO", 0, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = m.CheckAndAlert(context.Background(), "NOPE", 1, dec("1"))
	assert.Error(t, err)
}

func TestNotifyFailureDoesNotFailCheck(t *testing.T) {
	repo := newFakeRepo()
	repo.limits[limitKey{"GRUPO", 1}] = Limit{Ceiling: dec("10"), Active: true}
	n := &fakeNotifier{err: errors.New("redis down")}

	res, err := newMonitor(repo, n).CheckAndAlert(context.Background(), "GRUPO", 1, dec("20"))
	require.NoError(t, err)
	assert.True(t, res.Exceeded)
	assert.Len(t, n.got, 1)
}

func TestNotifiersAggregateErrors(t *testing.T) {
	a, b := &fakeNotifier{err: errors.New("a")}, &fakeNotifier{err: errors.New("b")}
	err := Notifiers{a, &fakeNotifier{}, b}.Notify(context.Background(), Alert{ID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestCheckBetCapsRangeAndExcludesOwnBet(t *testing.T) {
	repo := newFakeRepo()
	for pos := 1; pos <= 5; pos++ {
		repo.limits[limitKey{"MILHAR", pos}] = Limit{Ceiling: dec("100"), Active: true}
	}
	repo.pending[limitKey{"MILHAR", 3}] = dec("90")

	results, err := newMonitor(repo, nil).CheckBet(context.Background(), events.BetPlaced{
		BetID: "b-1", Modality: "MILHAR", PosFrom: 1, PosTo: 7, Stake: dec("20"),
	})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, r.Position == 3, r.Exceeded, "position %d", r.Position)
	}
	assert.Equal(t, []string{"b-1", "b-1", "b-1", "b-1", "b-1"}, repo.excluded)
}

func TestCheckBetDefaultsToFirstPrize(t *testing.T) {
	repo := newFakeRepo()
	results, err := newMonitor(repo, nil).CheckBet(context.Background(), events.BetPlaced{
		BetID: "b-2", Modality: "GRUPO", Stake: dec("5"),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Position)
}

func TestAlertEvent(t *testing.T) {
	ts := time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)
	ev := Alert{ID: "a", Modality: "GRUPO", Position: 2, Overage: dec("5"), UpdatedAt: ts}.Event()
	assert.Equal(t, "a", ev.AlertID)
	assert.Equal(t, 2, ev.Position)
	assert.Equal(t, ts, ev.Ts)
}
