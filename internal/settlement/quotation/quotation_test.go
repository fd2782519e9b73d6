package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mult(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestResolverExplicitMultiplierReplacesTableOdds(t *testing.T) {
	store := NewMemoryStore(Quotation{Kind: KindMilhar, Number: "4732", Multiplier: mult("1000"), Active: true})
	r := NewResolver(store, zap.NewNop())

	base := decimal.NewFromInt(50000)
	got, applied, err := r.Apply(context.Background(), rules.Milhar, "4732", base, decimal.NewFromInt(5000))
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Equal(t, "10000.00", got.StringFixed(2))
	assert.Equal(t, KindMilhar, applied.Kind)
}

func TestResolverWithoutMultiplierDividesBySix(t *testing.T) {
	store := NewMemoryStore(Quotation{Kind: KindCentena, Number: "732", Active: true})
	r := NewResolver(store, nil)

	got, applied, err := r.Apply(context.Background(), rules.Centena, "4732", decimal.NewFromInt(600), decimal.NewFromInt(600))
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Equal(t, "100.00", got.StringFixed(2))
}

func TestResolverMilharTakesPrecedence(t *testing.T) {
	store := NewMemoryStore(
		Quotation{Kind: KindMilhar, Number: "4732", Multiplier: mult("1000"), Active: true},
		Quotation{Kind: KindCentena, Number: "732", Multiplier: mult("100"), Active: true},
	)
	r := NewResolver(store, nil)

	got, applied, err := r.Apply(context.Background(), rules.MilharCentena, "4732", decimal.NewFromInt(3300), decimal.NewFromInt(3300))
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Equal(t, KindMilhar, applied.Kind)
	assert.Equal(t, "1000.00", got.StringFixed(2))

	// só a centena cotada
	got, applied, err = r.Apply(context.Background(), rules.MilharCentena, "9732", decimal.NewFromInt(3300), decimal.NewFromInt(3300))
	require.NoError(t, err)
	require.NotNil(t, applied)
	assert.Equal(t, KindCentena, applied.Kind)
	assert.Equal(t, "100.00", got.StringFixed(2))
}

func TestResolverLeavesPrizeUnchanged(t *testing.T) {
	store := NewMemoryStore(
		Quotation{Kind: KindMilhar, Number: "4732", Multiplier: mult("1000"), Active: false},
		Quotation{Kind: KindCentena, Number: "732", Active: true},
	)
	r := NewResolver(store, nil)
	prize := decimal.NewFromInt(120)

	for _, c := range []struct {
		m      rules.Modality
		number string
	}{
		{rules.Milhar, "4732"}, // inativa
		{rules.Milhar, "1111"}, // não cotada
		{rules.Grupo, "4732"},  // modalidade fora da regra
		{rules.Dezena, "4732"}, // idem
		{rules.MilharInvertida, "4732"},
	} {
		got, applied, err := r.Apply(context.Background(), c.m, c.number, prize, decimal.NewFromInt(60))
		require.NoError(t, err)
		assert.Nil(t, applied, c.m)
		assert.True(t, got.Equal(prize), c.m)
	}
}

type failingStore struct{}

func (failingStore) Find(context.Context, Kind, string) (Quotation, bool, error) {
	return Quotation{}, false, errors.New("db down")
}

func TestResolverPropagatesStoreError(t *testing.T) {
	r := NewResolver(failingStore{}, nil)
	_, _, err := r.Apply(context.Background(), rules.Milhar, "4732", decimal.NewFromInt(1), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestQuotationValidate(t *testing.T) {
	assert.NoError(t, Quotation{Kind: KindMilhar, Number: "0001"}.Validate())
	assert.NoError(t, Quotation{Kind: KindCentena, Number: "001", Multiplier: mult("50")}.Validate())
	assert.ErrorIs(t, Quotation{Kind: KindCentena, Number: "0001"}.Validate(), ErrInvalidQuotation)
	assert.ErrorIs(t, Quotation{Kind: "dezena", Number: "01"}.Validate(), ErrInvalidQuotation)
	assert.ErrorIs(t, Quotation{Kind: KindMilhar, Number: "12a4"}.Validate(), ErrInvalidQuotation)
	assert.ErrorIs(t, Quotation{Kind: KindMilhar, Number: "1234", Multiplier: mult("0")}.Validate(), ErrInvalidQuotation)
}

var quotationCols = []string{"id", "kind", "number", "multiplier", "active", "updated_at"}

func TestPostgresStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM special_quotations\s+WHERE kind=\$1 AND number=\$2`).
		WithArgs("milhar", "4732").
		WillReturnRows(sqlmock.NewRows(quotationCols).AddRow("q1", "milhar", "4732", "1000", true, now))
	mock.ExpectQuery(`FROM special_quotations\s+WHERE kind=\$1 AND number=\$2`).
		WithArgs("centena", "732").
		WillReturnRows(sqlmock.NewRows(quotationCols).AddRow("q2", "centena", "732", nil, true, now))
	mock.ExpectQuery(`FROM special_quotations\s+WHERE kind=\$1 AND number=\$2`).
		WithArgs("milhar", "0000").
		WillReturnRows(sqlmock.NewRows(quotationCols))

	s := NewPostgresStore(db)
	q, ok, err := s.Find(context.Background(), KindMilhar, "4732")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, q.Multiplier.Valid)
	assert.Equal(t, "1000", q.Multiplier.Decimal.String())

	q, ok, err = s.Find(context.Background(), KindCentena, "732")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, q.Multiplier.Valid)

	_, ok, err = s.Find(context.Background(), KindMilhar, "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO special_quotations`).
		WithArgs(sqlmock.AnyArg(), "milhar", "4732", sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at"}).AddRow("q1", now))
	mock.ExpectQuery(`INSERT INTO special_quotations`).
		WillReturnError(&pq.Error{Code: "23514", Message: "check violation"})

	s := NewPostgresStore(db)
	q, err := s.Upsert(context.Background(), Quotation{Kind: KindMilhar, Number: "4732", Multiplier: mult("1000"), Active: true})
	require.NoError(t, err)
	assert.Equal(t, "q1", q.ID)

	_, err = s.Upsert(context.Background(), Quotation{Kind: KindMilhar, Number: "4732", Active: true})
	assert.ErrorIs(t, err, ErrInvalidQuotation)

	_, err = s.Upsert(context.Background(), Quotation{Kind: KindMilhar, Number: "47"})
	assert.ErrorIs(t, err, ErrInvalidQuotation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE active = TRUE`).
		WillReturnRows(sqlmock.NewRows(quotationCols).
			AddRow("q1", "milhar", "4732", "1000", true, now).
			AddRow("q2", "centena", "732", nil, true, now))

	qs, err := NewPostgresStore(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, KindCentena, qs[1].Kind)
}

// fakeCache guarda JSON em memória como o Redis faria
type fakeCache struct {
	data   map[string][]byte
	getErr error
}

func (f *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = b
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type countingStore struct {
	Store
	calls int
}

func (c *countingStore) Find(ctx context.Context, kind Kind, number string) (Quotation, bool, error) {
	c.calls++
	return c.Store.Find(ctx, kind, number)
}

func TestCachedStoreCachesHitsAndMisses(t *testing.T) {
	origin := &countingStore{Store: NewMemoryStore(Quotation{Kind: KindMilhar, Number: "4732", Multiplier: mult("1000"), Active: true})}
	fc := &fakeCache{data: map[string][]byte{}}
	s := &CachedStore{Store: origin, Cache: fc, TTL: time.Minute, Log: zap.NewNop()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		q, ok, err := s.Find(ctx, KindMilhar, "4732")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1000", q.Multiplier.Decimal.String())

		_, ok, err = s.Find(ctx, KindMilhar, "1111")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, origin.calls)

	s.Invalidate(ctx, KindMilhar, "4732")
	_, _, err := s.Find(ctx, KindMilhar, "4732")
	require.NoError(t, err)
	assert.Equal(t, 3, origin.calls)
}

func TestCachedStoreFallsThroughOnCacheError(t *testing.T) {
	origin := &countingStore{Store: NewMemoryStore()}
	s := &CachedStore{Store: origin, Cache: &fakeCache{data: map[string][]byte{}, getErr: errors.New("redis down")}, Log: zap.NewNop()}

	_, ok, err := s.Find(context.Background(), KindCentena, "732")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, origin.calls)
}
