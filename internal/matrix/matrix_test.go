package matrix_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rudderlabs/rudder-corrmatrix/internal/dialect"
	"github.com/rudderlabs/rudder-corrmatrix/internal/matrix"
	"github.com/rudderlabs/rudder-corrmatrix/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr(f float64) *float64 { return &f }

func valid(fs ...float64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(fs))
	for i, f := range fs {
		out[i] = sql.NullFloat64{Float64: f, Valid: true}
	}
	return out
}

func TestPearson(t *testing.T) {
	testCases := []struct {
		name   string
		xs, ys []sql.NullFloat64
		want   float64
		wantOK bool
	}{
		{
			name:   "perfect positive",
			xs:     valid(1, 2, 3, 4),
			ys:     valid(2, 4, 6, 8),
			want:   1,
			wantOK: true,
		},
		{
			name:   "perfect negative",
			xs:     valid(1, 2, 3),
			ys:     valid(3, 2, 1),
			want:   -1,
			wantOK: true,
		},
		{
			name:   "uncorrelated",
			xs:     valid(1, 2, 3, 4),
			ys:     valid(1, -1, -1, 1),
			want:   0,
			wantOK: true,
		},
		{
			name:   "missing values are skipped pairwise",
			xs:     append(valid(1, 2, 3), sql.NullFloat64{}),
			ys:     valid(10, 20, 30, -1000),
			want:   1,
			wantOK: true,
		},
		{
			name: "constant column",
			xs:   valid(1, 1, 1),
			ys:   valid(1, 2, 3),
		},
		{
			name: "single pair",
			xs:   valid(1),
			ys:   valid(2),
		},
		{
			name: "constant column on a large offset",
			xs:   valid(1e9, 1e9, 1e9),
			ys:   valid(1, 2, 3),
		},
		{
			name:   "large offset",
			xs:     offsetSeries(1e9, 0.37, 11),
			ys:     offsetSeries(3e9, 1.13, 7),
			want:   -0.0023773545524533677,
			wantOK: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := matrix.Pearson(tc.xs, tc.ys)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				require.InDelta(t, tc.want, got, 1e-6)
			}
		})
	}

	t.Run("offset does not change the coefficient", func(t *testing.T) {
		for _, offset := range []float64{1e6, 1e8, 1e9} {
			want, ok := matrix.Pearson(offsetSeries(0, 0.37, 11), offsetSeries(0, 1.13, 7))
			require.True(t, ok)

			got, ok := matrix.Pearson(offsetSeries(offset, 0.37, 11), offsetSeries(3*offset, 1.13, 7))
			require.True(t, ok)
			require.InDelta(t, want, got, 1e-6, "offset %g", offset)
		}
	})
}

// offsetSeries returns 1000 values base+step*(i%period).
func offsetSeries(base, step float64, period int) []sql.NullFloat64 {
	fs := make([]float64, 1000)
	for i := range fs {
		fs[i] = base + step*float64(i%period)
	}
	return valid(fs...)
}

func TestMaxAbsDiff(t *testing.T) {
	want := &model.Matrix{
		Variables: []string{"a", "b"},
		Cells: [][]*float64{
			{ptr(1), nil},
			{ptr(0.5), ptr(1)},
		},
	}

	t.Run("equal", func(t *testing.T) {
		diff, err := matrix.MaxAbsDiff(want, want)
		require.NoError(t, err)
		require.Zero(t, diff)
	})

	t.Run("different value", func(t *testing.T) {
		got := &model.Matrix{
			Variables: []string{"a", "b"},
			Cells: [][]*float64{
				{ptr(1), nil},
				{ptr(0.25), ptr(1)},
			},
		}
		diff, err := matrix.MaxAbsDiff(got, want)
		require.NoError(t, err)
		require.InDelta(t, 0.25, diff, 1e-12)
	})

	t.Run("null mismatch", func(t *testing.T) {
		got := &model.Matrix{
			Variables: []string{"a", "b"},
			Cells: [][]*float64{
				{ptr(1), ptr(0.5)},
				{ptr(0.5), ptr(1)},
			},
		}
		_, err := matrix.MaxAbsDiff(got, want)
		require.ErrorIs(t, err, matrix.ErrMalformed)
	})

	t.Run("different variables", func(t *testing.T) {
		got := &model.Matrix{Variables: []string{"a", "c"}, Cells: want.Cells}
		_, err := matrix.MaxAbsDiff(got, want)
		require.ErrorIs(t, err, matrix.ErrMalformed)
	})
}

func TestLoad(t *testing.T) {
	d := dialect.NewPostgres("15")
	relation := model.Relation{Schema: "public", Name: "houses_corr"}
	const query = `SELECT * FROM "public"."houses_corr" ORDER BY "column_position";`

	t.Run("lower triangular", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(query).WillReturnRows(
			sqlmock.NewRows([]string{"column_position", "variable", "price", "area"}).
				AddRow(1, "price", 1.0, nil).
				AddRow(2, "area", 0.75, 1.0),
		)

		m, err := matrix.Load(context.Background(), db, d, relation)
		require.NoError(t, err)
		require.Equal(t, []string{"price", "area"}, m.Variables)

		v, ok := m.Cell(0, 0)
		require.True(t, ok)
		require.Equal(t, 1.0, v)
		_, ok = m.Cell(0, 1)
		require.False(t, ok)
		v, ok = m.Cell(1, 0)
		require.True(t, ok)
		require.Equal(t, 0.75, v)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing metadata columns", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"price", "area"}))

		_, err = matrix.Load(context.Background(), db, d, relation)
		require.ErrorIs(t, err, matrix.ErrMalformed)
	})

	t.Run("rows out of order with columns", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(query).WillReturnRows(
			sqlmock.NewRows([]string{"column_position", "variable", "price", "area"}).
				AddRow(1, "area", 1.0, nil).
				AddRow(2, "price", 0.75, 1.0),
		)

		_, err = matrix.Load(context.Background(), db, d, relation)
		require.ErrorIs(t, err, matrix.ErrMalformed)
	})

	t.Run("missing rows", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery(query).WillReturnRows(
			sqlmock.NewRows([]string{"column_position", "variable", "price", "area"}).
				AddRow(1, "price", 1.0, nil),
		)

		_, err = matrix.Load(context.Background(), db, d, relation)
		require.ErrorIs(t, err, matrix.ErrMalformed)
	})
}

func TestReference(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT CAST("x" AS double precision), CAST("y" AS double precision), CAST("z" AS double precision) FROM "public"."points";`).
		WillReturnRows(
			sqlmock.NewRows([]string{"x", "y", "z"}).
				AddRow(1.0, 2.0, 3.0).
				AddRow(2.0, 4.0, 2.0).
				AddRow(3.0, 6.0, 1.0).
				AddRow(4.0, nil, 0.0),
		)

	m, err := matrix.Reference(context.Background(), db, dialect.NewPostgres("15"), model.Relation{Schema: "public", Name: "points"}, []string{"x", "y", "z"})
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "z"}, m.Variables)

	for i := range m.Variables {
		v, ok := m.Cell(i, i)
		require.True(t, ok)
		require.Equal(t, 1.0, v)
		for j := i + 1; j < len(m.Variables); j++ {
			_, ok := m.Cell(i, j)
			require.False(t, ok, "cell (%d, %d) should be null", i, j)
		}
	}

	yx, ok := m.Cell(1, 0)
	require.True(t, ok)
	require.InDelta(t, 1.0, yx, 1e-12)
	zx, ok := m.Cell(2, 0)
	require.True(t, ok)
	require.InDelta(t, -1.0, zx, 1e-12)
	zy, ok := m.Cell(2, 1)
	require.True(t, ok)
	require.InDelta(t, -1.0, zy, 1e-12)
	require.NoError(t, mock.ExpectationsWereMet())
}
