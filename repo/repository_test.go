package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
)

var standardTestColumns = []string{
	"id", "name", "status", "parent_id", "guid",
	"create_user", "create_date", "change_user", "change_date", "attachments",
}

func assetType(t *testing.T) *model.EntityType {
	t.Helper()
	et, err := model.NewEntityType("asset",
		model.NewBaseField("label", model.String, false, true),
		model.NewBaseField("height", model.Numeric, false, false),
		model.NewBaseField("tags", model.Numeric, true, false),
		model.NewGeometryField("shape", false, false, 4326),
		model.NewRelationField("parts", true, false, "part"),
	)
	require.NoError(t, err)
	return et
}

func setupMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil), mock
}

// TestFindAllDecodesRow tests decoding one full row into an EntityObject
func TestFindAllDecodesRow(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	b := query.NewSelectBuilder(et).WithFields("label", "tags", "parts").WithID(5)
	sqlText, _ := b.Build()

	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(append(standardTestColumns, "label", "tags", "parts")).
		AddRow(
			5, "Pump-1", 0, nil, "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			"amy", created, "amy", created,
			`[{"guid":"g1","name":"a.txt","md5":"d41d8cd9","size":10,"contentType":"text/plain"}]`,
			"north pump", "{1.5,2}", "{7,8}",
		)
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WithArgs(5).WillReturnRows(rows)

	page, err := repo.FindAll(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	obj := page.Items[0]
	assert.Equal(t, 5, obj.ID)
	assert.Equal(t, "Pump-1", obj.Name)
	assert.Equal(t, object.StatusActive, obj.Status)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", obj.GUID.String())
	assert.Equal(t, "amy", obj.Metadata.CreateUser)
	assert.Equal(t, created, obj.Metadata.CreateDate)

	label, ok := obj.GetSingle("label")
	require.True(t, ok)
	assert.Equal(t, "north pump", label.Value())

	tags, ok := obj.Get("tags")
	require.True(t, ok)
	require.Len(t, tags, 2)
	assert.Equal(t, 1.5, tags[0].Value())
	assert.Equal(t, 2.0, tags[1].Value())

	parts, ok := obj.Get("parts")
	require.True(t, ok)
	require.Len(t, parts, 2)
	first := parts[0].Value().(*object.EntityObject)
	assert.Equal(t, 7, first.ID)
	assert.Equal(t, "part", first.EntityType)

	attachments := obj.Attachments()
	require.Len(t, attachments, 1)
	assert.Equal(t, "g1", attachments[0].GUID)
	assert.Equal(t, int64(10), attachments[0].Size)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFindAllNullColumns tests that NULL columns decode to cleared fields
func TestFindAllNullColumns(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	b := query.NewSelectBuilder(et).WithFields("label", "height")
	sqlText, _ := b.Build()

	rows := sqlmock.NewRows(append(standardTestColumns, "label", "height")).
		AddRow(3, nil, 0, nil, "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			"amy", time.Now(), "amy", time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WillReturnRows(rows)

	page, err := repo.FindAll(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	obj := page.Items[0]
	assert.Equal(t, "", obj.Name)
	vals, ok := obj.Get("label")
	assert.True(t, ok, "selected column is present even when NULL")
	assert.Empty(t, vals)
	assert.Empty(t, obj.Attachments())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFindOneNotFound tests the missing-object signal
func TestFindOneNotFound(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	b := query.NewSelectBuilder(et).WithFields("label").WithID(99)
	sqlText, _ := b.Build()
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WithArgs(99).
		WillReturnRows(sqlmock.NewRows(append(standardTestColumns, "label")))

	_, err := repo.FindOne(context.Background(), b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFindAllPagedRunsCount tests that paged queries add a COUNT round trip
func TestFindAllPagedRunsCount(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	b := query.NewSelectBuilder(et).WithFields("label").Page(0, 2)
	sqlText, _ := b.Build()
	countSQL, _ := b.Count()

	rows := sqlmock.NewRows(append(standardTestColumns, "label")).
		AddRow(1, "a", 0, nil, "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			"amy", time.Now(), "amy", time.Now(), nil, "x").
		AddRow(2, "b", 0, nil, "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
			"amy", time.Now(), "amy", time.Now(), nil, "y")
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(countSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	page, err := repo.FindAll(context.Background(), b)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 7, page.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFindRecordsAggregation tests the search-record result model
func TestFindRecordsAggregation(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	b := query.NewSelectBuilder(et).Aggregate(
		query.AggregateSpec{Func: query.AggCount, Field: "id"},
		query.AggregateSpec{Func: query.AggMax, Field: "height"},
	)
	sqlText, _ := b.Build()
	mock.ExpectQuery(regexp.QuoteMeta(sqlText)).
		WillReturnRows(sqlmock.NewRows([]string{"count_id", "max_height"}).AddRow(4, 12.5))

	records, err := repo.FindRecords(context.Background(), b)
	require.NoError(t, err)
	require.Len(t, records, 1)

	count, ok := records[0].Get("count_id")
	require.True(t, ok)
	assert.EqualValues(t, 4, count)
	tallest, ok := records[0].Get("max_height")
	require.True(t, ok)
	assert.Equal(t, 12.5, tallest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestFindUniqueValues tests distinct-value queries and field resolution
func TestFindUniqueValues(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT DISTINCT o.label FROM et_asset o WHERE o.label IS NOT NULL AND o.status = $1 ORDER BY o.label",
	)).WithArgs(0).WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow("a").AddRow("b"))

	values, err := repo.FindUniqueValues(context.Background(), et, "LABEL")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.FindUniqueValues(context.Background(), et, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = repo.FindUniqueValues(context.Background(), et, "parts")
	assert.True(t, errors.Is(err, errors.ErrUnprocessable))
}
