package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/logger"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
)

// Save persists the object: insert when it has no id yet, update
// otherwise. Relation fields are written to their join tables or reverse
// foreign keys after the primary row.
func (r *Repository) Save(ctx context.Context, t *model.EntityType, obj *object.EntityObject) error {
	if obj.IsNew() {
		return r.insert(ctx, t, obj)
	}
	return r.update(ctx, t, obj)
}

func (r *Repository) insert(ctx context.Context, t *model.EntityType, obj *object.EntityObject) error {
	if obj.GUID == uuid.Nil {
		obj.GUID = uuid.New()
	}

	var (
		columns   []string
		exprs     []string
		args      []any
		relations []object.FieldValue
	)
	for _, fv := range object.FullAttributeValueMap(t, obj) {
		if fv.Field == model.StdID {
			continue
		}
		if _, ok := fv.Field.(*model.RelationField); ok {
			relations = append(relations, fv)
			continue
		}
		p, err := prepareParam(fv.Field, fv.Value)
		if err != nil {
			return err
		}
		columns = append(columns, p.column)
		exprs = append(exprs, p.expr)
		args = append(args, p.args...)
	}

	sqlText := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		model.EntityTable(t.CodeName()),
		strings.Join(columns, ", "),
		strings.Join(exprs, ", "),
	)
	if err := r.q.QueryRowContext(ctx, renumber(sqlText), args...).Scan(&obj.ID); err != nil {
		return errors.Wrapf(err, "failed to insert %s object", t.CodeName())
	}

	if err := r.saveRelations(ctx, t, obj, relations); err != nil {
		return err
	}

	if r.logger != nil {
		r.logger.Infow("inserted object",
			logger.FieldEntityType, t.CodeName(),
			logger.FieldObjectID, obj.ID,
			logger.FieldObjectGUID, obj.GUID.String(),
		)
	}
	return nil
}

// updateStandard is the standard-field subset an update may touch. The
// id, guid and creation metadata are immutable after insert.
var updateStandard = []model.StandardField{
	model.StdName, model.StdStatus, model.StdParentID,
	model.StdChangeUser, model.StdChangeDate, model.StdAttachments,
}

func (r *Repository) update(ctx context.Context, t *model.EntityType, obj *object.EntityObject) error {
	var (
		sets      []string
		args      []any
		relations []object.FieldValue
	)
	for _, sf := range updateStandard {
		p, err := prepareParam(sf, obj.StandardFieldValue(sf))
		if err != nil {
			return err
		}
		sets = append(sets, p.column+" = "+p.expr)
		args = append(args, p.args...)
	}
	for _, fv := range object.AttributeValueMap(t, obj) {
		if _, ok := fv.Field.(*model.RelationField); ok {
			relations = append(relations, fv)
			continue
		}
		p, err := prepareParam(fv.Field, fv.Value)
		if err != nil {
			return err
		}
		sets = append(sets, p.column+" = "+p.expr)
		args = append(args, p.args...)
	}

	sqlText := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ?",
		model.EntityTable(t.CodeName()),
		strings.Join(sets, ", "),
	)
	args = append(args, obj.ID)

	res, err := r.q.ExecContext(ctx, renumber(sqlText), args...)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s object %d", t.CodeName(), obj.ID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to read update result for %s object %d", t.CodeName(), obj.ID)
	}
	if affected == 0 {
		return errors.NotFoundf("%s object %d not found", t.CodeName(), obj.ID)
	}

	if err := r.saveRelations(ctx, t, obj, relations); err != nil {
		return err
	}

	if r.logger != nil {
		r.logger.Infow("updated object",
			logger.FieldEntityType, t.CodeName(),
			logger.FieldObjectID, obj.ID,
		)
	}
	return nil
}

// saveRelations writes supplied relation fields with full-replace
// semantics: the previous target set is cleared before the new one is
// written, so setting an empty list leaves zero links.
func (r *Repository) saveRelations(ctx context.Context, t *model.EntityType, obj *object.EntityObject, relations []object.FieldValue) error {
	for _, fv := range relations {
		field := fv.Field.(*model.RelationField)
		ids, err := relationIDs(field, fv.Value)
		if err != nil {
			return err
		}
		if field.HasRelationTable() {
			err = r.replaceJoinRows(ctx, t, field, obj.ID, ids)
		} else {
			err = r.replaceReverseFK(ctx, field, obj.ID, ids)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) replaceJoinRows(ctx context.Context, t *model.EntityType, f *model.RelationField, ownerID int, ids []int64) error {
	table := model.RelationTable(t.CodeName(), f)

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, model.RelationSrcColumn)
	if _, err := r.q.ExecContext(ctx, deleteSQL, ownerID); err != nil {
		return errors.Wrapf(err, "failed to clear relation %s of object %d", f.CodeName(), ownerID)
	}
	if len(ids) == 0 {
		return nil
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) SELECT $1, unnest($2::BIGINT[])",
		table, model.RelationSrcColumn, model.RelationDstColumn,
	)
	if _, err := r.q.ExecContext(ctx, insertSQL, ownerID, pq.Array(ids)); err != nil {
		return errors.Wrapf(err, "failed to write relation %s of object %d", f.CodeName(), ownerID)
	}
	return nil
}

func (r *Repository) replaceReverseFK(ctx context.Context, f *model.RelationField, ownerID int, ids []int64) error {
	table := model.EntityTable(f.Relates())
	column := strings.ToLower(f.ReverseField())

	clearSQL := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = $1", table, column, column)
	if _, err := r.q.ExecContext(ctx, clearSQL, ownerID); err != nil {
		return errors.Wrapf(err, "failed to clear reverse relation %s of object %d", f.CodeName(), ownerID)
	}
	if len(ids) == 0 {
		return nil
	}

	setSQL := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE id = ANY($2::BIGINT[])", table, column)
	if _, err := r.q.ExecContext(ctx, setSQL, ownerID, pq.Array(ids)); err != nil {
		return errors.Wrapf(err, "failed to write reverse relation %s of object %d", f.CodeName(), ownerID)
	}
	return nil
}

// Delete removes the object's primary row by id. Orphaned relation rows
// are the schema's concern (cascading foreign keys), not this engine's.
// The soft-delete lifecycle lives a layer up; this is the physical
// removal.
func (r *Repository) Delete(ctx context.Context, t *model.EntityType, id int) error {
	res, err := r.q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", model.EntityTable(t.CodeName())), id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s object %d", t.CodeName(), id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to read delete result for %s object %d", t.CodeName(), id)
	}
	if affected == 0 {
		return errors.NotFoundf("%s object %d not found", t.CodeName(), id)
	}

	if r.logger != nil {
		r.logger.Infow("deleted object",
			logger.FieldEntityType, t.CodeName(),
			logger.FieldObjectID, id,
		)
	}
	return nil
}
