package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/ntuwsl/indexselect/internal/store"
)

func newMockStore(t *testing.T) (*ShardStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	st, err := NewWithPool(mock, "url_state")
	require.NoError(t, err)
	return st, mock
}

func scanColumns() []string {
	return []string{"url", "domain", "content_path", "fetch_ok", "inlink_count", "domain_score"}
}

func TestAcquirePageScansAndCommits(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT url, COALESCE\(domain, ''\).+FROM url_state_007 WHERE fetch_ok > \$1.+ORDER BY url ASC LIMIT 100 FOR UPDATE SKIP LOCKED`).
		WithArgs(0, 0, 0, "https://example.com/cursor").
		WillReturnRows(pgxmock.NewRows(scanColumns()).
			AddRow("https://example.com/good", "example.com", "/data/good.json", 1, 12, 0.7).
			AddRow("https://example.com/spam", "example.com", "/data/spam.json", 1, 2, 0.1))
	mock.ExpectExec(`UPDATE url_state_007 SET processed_ok = 1, index_priority = \$1 WHERE url = \$2`).
		WithArgs(2.1421, "https://example.com/good").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE url_state_007 SET processed_fail = 1, index_priority = -1, rejection_reason = \$1 WHERE url = \$2`).
		WithArgs("Low TTR", "https://example.com/spam").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	page, err := st.AcquirePage(context.Background(), 7, "https://example.com/cursor", 100)
	require.NoError(t, err)

	docs := page.Docs()
	require.Len(t, docs, 2)
	require.Equal(t, "https://example.com/good", docs[0].URL)
	require.Equal(t, "example.com", docs[0].Domain)
	require.Equal(t, "/data/good.json", docs[0].ContentPath)
	require.Equal(t, 12, docs[0].InlinkCount)
	require.Equal(t, 0.7, docs[0].DomainScore)

	err = page.Finish(context.Background(), []store.Result{
		{URL: "https://example.com/good", Accepted: true, Priority: 2.1421},
		{URL: "https://example.com/spam", Accepted: false, Reason: "Low TTR"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquirePageEmptyPageReleases(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM url_state_000`).
		WithArgs(0, 0, 0, "").
		WillReturnRows(pgxmock.NewRows(scanColumns()))
	mock.ExpectRollback()

	page, err := st.AcquirePage(context.Background(), 0, "", 50)
	require.NoError(t, err)
	require.Empty(t, page.Docs())
	require.NoError(t, page.Release(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquirePageMissingTable(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM url_state_042`).
		WithArgs(0, 0, 0, "").
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "url_state_042" does not exist`})
	mock.ExpectRollback()

	_, err := st.AcquirePage(context.Background(), 42, "", 50)
	require.ErrorIs(t, err, store.ErrShardMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRollsBackOnUpdateError(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM url_state_003`).
		WithArgs(0, 0, 0, "").
		WillReturnRows(pgxmock.NewRows(scanColumns()).
			AddRow("https://example.com/a", "", "", 1, 0, 0.0))
	mock.ExpectExec(`UPDATE url_state_003 SET processed_ok = 1`).
		WithArgs(1.0, "https://example.com/a").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	page, err := st.AcquirePage(context.Background(), 3, "", 10)
	require.NoError(t, err)

	err = page.Finish(context.Background(), []store.Result{
		{URL: "https://example.com/a", Accepted: true, Priority: 1.0},
	})
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPageReportsClearedRows(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE url_state_001 SET processed_ok = 0, processed_fail = 0`).
		WithArgs(5000).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4200))

	cleared, err := st.ResetPage(context.Background(), 1, 5000)
	require.NoError(t, err)
	require.Equal(t, int64(4200), cleared)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPageMissingTable(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE url_state_099`).
		WithArgs(5000).
		WillReturnError(&pgconn.PgError{Code: "42P01"})

	_, err := st.ResetPage(context.Background(), 99, 5000)
	require.ErrorIs(t, err, store.ErrShardMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "url_state")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "url state; drop table")
	require.ErrorContains(t, err, "invalid table prefix")

	st, err := NewWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "url_state_012", st.tableName(12))
}
