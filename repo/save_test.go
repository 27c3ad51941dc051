package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
)

func mustAttr(t *testing.T, fieldType model.FieldType, raw any) object.Attribute {
	t.Helper()
	attr, err := object.NewAttribute(fieldType, raw)
	require.NoError(t, err)
	return attr
}

// TestSaveInsert tests the insert column set and id capture
func TestSaveInsert(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.Name = "Pump-1"
	obj.GUID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	obj.Metadata = object.Metadata{
		CreateUser: "amy", CreateDate: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		ChangeUser: "amy", ChangeDate: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	obj.Set("label", mustAttr(t, model.String, "north pump"))

	mock.ExpectQuery(regexp.QuoteMeta(
		"INSERT INTO et_asset (name, status, parent_id, guid, create_user, create_date, "+
			"change_user, change_date, attachments, label) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::JSONB, $10) RETURNING id",
	)).WithArgs(
		"Pump-1", 0, nil, "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"amy", obj.Metadata.CreateDate, "amy", obj.Metadata.ChangeDate,
		"[]", "north pump",
	).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.Equal(t, 41, obj.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveInsertAssignsGUID tests guid assignment on first persist
func TestSaveInsertAssignsGUID(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.Metadata = object.NewMetadata("amy")

	mock.ExpectQuery("INSERT INTO et_asset").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NotEqual(t, uuid.Nil, obj.GUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveUpdate tests that updates exclude immutable columns
func TestSaveUpdate(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.ID = 41
	obj.Name = "Pump-1"
	obj.Metadata.ChangeUser = "bob"
	obj.Metadata.ChangeDate = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	obj.Set("label", mustAttr(t, model.String, "south pump"))

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE et_asset SET name = $1, status = $2, parent_id = $3, change_user = $4, "+
			"change_date = $5, attachments = $6::JSONB, label = $7 WHERE id = $8",
	)).WithArgs(
		"Pump-1", 0, nil, "bob", obj.Metadata.ChangeDate, "[]", "south pump", 41,
	).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveUpdateNotFound tests zero affected rows on update
func TestSaveUpdateNotFound(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.ID = 99
	obj.Name = "gone"

	mock.ExpectExec("UPDATE et_asset SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), et, obj)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveRelationFullReplace tests join-table delete-then-insert semantics
func TestSaveRelationFullReplace(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	ref := func(id int) object.Attribute {
		target := object.NewEntityObject("part")
		target.ID = id
		return mustAttr(t, model.Relation, target)
	}

	obj := object.NewEntityObject("asset")
	obj.ID = 41
	obj.Name = "Pump-1"
	obj.Set("parts", ref(7), ref(8))

	mock.ExpectExec("UPDATE et_asset SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rel_asset_parts WHERE src_id = $1")).
		WithArgs(41).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO rel_asset_parts (src_id, dst_id) SELECT $1, unnest($2::BIGINT[])",
	)).WithArgs(41, pq.Array([]int64{7, 8})).WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveRelationCleared tests that an empty relation leaves zero links
func TestSaveRelationCleared(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.ID = 41
	obj.Name = "Pump-1"
	obj.Set("parts")

	mock.ExpectExec("UPDATE et_asset SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rel_asset_parts WHERE src_id = $1")).
		WithArgs(41).WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveReverseFKRelation tests clear-then-set on the related table
func TestSaveReverseFKRelation(t *testing.T) {
	et, err := model.NewEntityType("asset",
		model.NewReverseRelationField("children", true, false, "node", "owner_id"),
	)
	require.NoError(t, err)
	repo, mock := setupMock(t)

	child := object.NewEntityObject("node")
	child.ID = 3

	obj := object.NewEntityObject("asset")
	obj.ID = 41
	obj.Name = "Pump-1"
	obj.Set("children", mustAttr(t, model.Relation, child))

	mock.ExpectExec("UPDATE et_asset SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE et_node SET owner_id = NULL WHERE owner_id = $1")).
		WithArgs(41).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE et_node SET owner_id = $1 WHERE id = ANY($2::BIGINT[])")).
		WithArgs(41, pq.Array([]int64{3})).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSaveGeometryParam tests the CRS-aware geometry constructor expression
func TestSaveGeometryParam(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	obj := object.NewEntityObject("asset")
	obj.ID = 41
	obj.Name = "Pump-1"
	obj.Set("shape", mustAttr(t, model.Geometry, "POINT(30 10)"))

	mock.ExpectExec(regexp.QuoteMeta(
		"shape = ST_SetSRID(ST_GeomFromText($7), 4326)",
	)).WithArgs(
		"Pump-1", 0, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), "[]", "POINT(30 10)", 41,
	).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), et, obj))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDelete tests hard removal by id
func TestDelete(t *testing.T) {
	et := assetType(t)
	repo, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM et_asset WHERE id = $1")).
		WithArgs(41).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), et, 41))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM et_asset WHERE id = $1")).
		WithArgs(99).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Delete(context.Background(), et, 99)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPrepareParamTemporalFormats tests temporal write encodings
func TestPrepareParamTemporalFormats(t *testing.T) {
	when := time.Date(2024, 3, 10, 13, 45, 30, 0, time.UTC)

	testCases := []struct {
		name     string
		field    model.Field
		value    any
		expected any
	}{
		{
			name:     "date",
			field:    model.NewBaseField("since", model.Date, false, false),
			value:    when,
			expected: "2024-03-10",
		},
		{
			name:     "time of day",
			field:    model.NewBaseField("opens", model.Time, false, false),
			value:    when,
			expected: "13:45:30",
		},
		{
			name:     "date-time keeps native type",
			field:    model.NewBaseField("seen", model.DateTime, false, false),
			value:    when,
			expected: when,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := prepareParam(tc.field, tc.value)
			require.NoError(t, err)
			assert.Equal(t, "?", p.expr)
			require.Len(t, p.args, 1)
			assert.Equal(t, tc.expected, p.args[0])
		})
	}
}
