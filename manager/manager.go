// Package manager orchestrates entity-object lifecycle: validation,
// rule checks, quota counters, attachment reconciliation and the two-phase
// delete, composing the repository inside one transaction per mutation.
package manager

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian-gis/entitycore/db"
	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/logger"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
	"github.com/meridian-gis/entitycore/repo"
)

// Options carries the external collaborators. Any of them may be nil, in
// which case the matching step is skipped.
type Options struct {
	Blobs  BlobStore
	Limits LimitsService
	Rules  RuleChecker
	Parser ConditionParser
	Logger *zap.SugaredLogger

	// AttachmentBucket is the blob-store bucket attachment files live in.
	AttachmentBucket string
	// DefaultSRID is the output CRS used when a filter requests none.
	DefaultSRID int
}

// Manager is the orchestration surface over one database pool.
type Manager struct {
	pool   *sql.DB
	repo   *repo.Repository
	schema SchemaProvider
	opts   Options
}

// New wires a Manager. schema is required; collaborators in opts are
// optional.
func New(pool *sql.DB, schema SchemaProvider, opts Options) *Manager {
	return &Manager{
		pool:   pool,
		repo:   repo.New(pool, opts.Logger),
		schema: schema,
		opts:   opts,
	}
}

func (m *Manager) entityType(ctx context.Context, code string) (*model.EntityType, error) {
	t, err := m.schema.EntityType(ctx, code)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Manager) srid(filter Filter) int {
	if filter.SRID > 0 {
		return filter.SRID
	}
	return m.opts.DefaultSRID
}

// FindObject loads one object by id. When field codes are given only
// those user-defined fields are resolved alongside the standard ones.
func (m *Manager) FindObject(ctx context.Context, typeCode string, id, srid int, fields ...string) (*object.EntityObject, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	if srid <= 0 {
		srid = m.opts.DefaultSRID
	}
	if len(fields) > 0 {
		b := query.NewSelectBuilder(t).WithFields(fields...).WithID(id).SRID(srid)
		obj, err := m.repo.FindOne(ctx, b)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NotFoundf("%s object %d not found", t.CodeName(), id)
			}
			return nil, err
		}
		return obj, nil
	}
	return m.repo.FindByID(ctx, t, id, srid)
}

// FindObjectByGUID loads one object by its immutable guid.
func (m *Manager) FindObjectByGUID(ctx context.Context, typeCode string, guid uuid.UUID) (*object.EntityObject, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	return m.repo.FindByGUID(ctx, t, guid, m.opts.DefaultSRID)
}

// FindObjects executes a filtered search.
func (m *Manager) FindObjects(ctx context.Context, typeCode string, filter Filter) (*repo.Page, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	filter.SRID = m.srid(filter)
	b, err := filter.builder(t, m.opts.Parser)
	if err != nil {
		return nil, err
	}
	return m.repo.FindAll(ctx, b)
}

// CountObjects returns the unbounded match count for a filter.
func (m *Manager) CountObjects(ctx context.Context, typeCode string, filter Filter) (int, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return 0, err
	}
	b, err := filter.builder(t, m.opts.Parser)
	if err != nil {
		return 0, err
	}
	return m.repo.Count(ctx, b)
}

// FindRecords executes a projection or aggregation search, returning
// column-oriented records instead of full objects.
func (m *Manager) FindRecords(ctx context.Context, typeCode string, filter Filter) ([]*object.SearchRecord, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	filter.SRID = m.srid(filter)
	b, err := filter.builder(t, m.opts.Parser)
	if err != nil {
		return nil, err
	}
	return m.repo.FindRecords(ctx, b)
}

// FindFilterValues returns the distinct values of one field across active
// objects, for filter dropdowns.
func (m *Manager) FindFilterValues(ctx context.Context, typeCode, fieldCode string) ([]any, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	return m.repo.FindUniqueValues(ctx, t, fieldCode)
}

// ObjectCentroid computes the centroid of one object's geometry field.
func (m *Manager) ObjectCentroid(ctx context.Context, typeCode, fieldCode string, id, srid int) (repo.Point, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return repo.Point{}, err
	}
	if srid <= 0 {
		srid = m.opts.DefaultSRID
	}
	return m.repo.EntityCentroid(ctx, t, fieldCode, id, srid)
}

// ObjectExtent computes the bounding box of one object's geometry field.
// Nil without error when the object stores no geometry.
func (m *Manager) ObjectExtent(ctx context.Context, typeCode, fieldCode string, id, srid int) (*repo.Extent, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	if srid <= 0 {
		srid = m.opts.DefaultSRID
	}
	return m.repo.EntityExtent(ctx, t, fieldCode, id, srid)
}

// CreateObject validates and persists a new object as user. Quota and
// rule checks run before any write; the insert, relation writes, counter
// updates and attachment reconciliation share one transaction.
func (m *Manager) CreateObject(ctx context.Context, typeCode string, obj *object.EntityObject, user string) (*object.EntityObject, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	if !obj.IsNew() {
		return nil, errors.Unprocessablef("object %d already has an id", obj.ID)
	}
	if err := Validate(t, obj); err != nil {
		return nil, err
	}
	if err := m.checkRules(ctx, t, obj); err != nil {
		return nil, err
	}

	created, deleted := splitAttachmentChanges(obj.Attachments())
	if len(deleted) > 0 {
		return nil, errors.Unprocessablef("new object cannot delete attachments")
	}
	if err := m.checkWriteLimits(ctx, 1, created); err != nil {
		return nil, err
	}

	obj.EntityType = t.CodeName()
	obj.GUID = uuid.Nil
	obj.ParentID = nil
	obj.Status = object.StatusActive
	obj.Metadata = object.NewMetadata(user)

	err = db.WithTx(ctx, m.pool, func(tx *sql.Tx) error {
		attachments, err := m.admitAttachments(ctx, nil, created, user)
		if err != nil {
			return err
		}
		obj.SetAttachments(attachments)

		if err := m.repo.WithTx(tx).Save(ctx, t, obj); err != nil {
			return err
		}
		return m.updateCounters(ctx, 1, created, nil)
	})
	if err != nil {
		return nil, err
	}

	m.logw("created object", t, obj.ID, user)
	return obj, nil
}

// UpdateObject applies a partial update: only supplied fields are
// written, and required fields may be omitted without being cleared.
func (m *Manager) UpdateObject(ctx context.Context, typeCode string, obj *object.EntityObject, user string) (*object.EntityObject, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	if obj.IsNew() {
		return nil, errors.Unprocessablef("object has no id to update")
	}
	if err := Validate(t, obj); err != nil {
		return nil, err
	}
	if err := m.checkRules(ctx, t, obj); err != nil {
		return nil, err
	}

	current, err := m.repo.FindByID(ctx, t, obj.ID, m.opts.DefaultSRID)
	if err != nil {
		return nil, err
	}

	created, deleted := splitAttachmentChanges(obj.Attachments())
	if err := m.checkWriteLimits(ctx, 0, created); err != nil {
		return nil, err
	}

	if obj.Name == "" {
		obj.Name = current.Name
	}
	if obj.ParentID == nil {
		obj.ParentID = current.ParentID
	}
	obj.GUID = current.GUID
	obj.Status = current.Status
	obj.Metadata = current.Metadata
	obj.Metadata.Changed(user)

	err = db.WithTx(ctx, m.pool, func(tx *sql.Tx) error {
		attachments, err := m.reconcileAttachments(ctx, current.Attachments(), created, deleted, user)
		if err != nil {
			return err
		}
		obj.SetAttachments(attachments)

		if err := m.repo.WithTx(tx).Save(ctx, t, obj); err != nil {
			return err
		}
		return m.updateCounters(ctx, 0, created, deleted)
	})
	if err != nil {
		return nil, err
	}

	m.logw("updated object", t, obj.ID, user)
	return obj, nil
}

// DeleteObject runs the two-phase delete: an ACTIVE object is soft
// deleted to INACTIVE and stays retrievable; an INACTIVE object is
// physically removed along with its attachment files.
func (m *Manager) DeleteObject(ctx context.Context, typeCode string, id int, user string) error {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return err
	}
	current, err := m.repo.FindByID(ctx, t, id, m.opts.DefaultSRID)
	if err != nil {
		return err
	}

	if current.Status == object.StatusActive {
		return m.setStatus(ctx, t, current, object.StatusInactive, user)
	}
	return m.hardDelete(ctx, t, current, user)
}

// DeleteObjectForce physically removes the object regardless of status.
func (m *Manager) DeleteObjectForce(ctx context.Context, typeCode string, id int, user string) error {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return err
	}
	current, err := m.repo.FindByID(ctx, t, id, m.opts.DefaultSRID)
	if err != nil {
		return err
	}
	return m.hardDelete(ctx, t, current, user)
}

// ActivateObject turns an INACTIVE object back to ACTIVE. Activating an
// already-active object is a conflict.
func (m *Manager) ActivateObject(ctx context.Context, typeCode string, id int, user string) error {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return err
	}
	current, err := m.repo.FindByID(ctx, t, id, m.opts.DefaultSRID)
	if err != nil {
		return err
	}
	if current.Status == object.StatusActive {
		return errors.Conflictf("%s object %d is already active", t.CodeName(), id)
	}
	return m.setStatus(ctx, t, current, object.StatusActive, user)
}

// setStatus writes a status transition touching only standard columns.
func (m *Manager) setStatus(ctx context.Context, t *model.EntityType, current *object.EntityObject, status object.Status, user string) error {
	patch := object.NewEntityObject(t.CodeName())
	patch.ID = current.ID
	patch.GUID = current.GUID
	patch.Name = current.Name
	patch.ParentID = current.ParentID
	patch.Status = status
	patch.Metadata = current.Metadata
	patch.Metadata.Changed(user)
	patch.SetAttachments(current.Attachments())

	err := db.WithTx(ctx, m.pool, func(tx *sql.Tx) error {
		return m.repo.WithTx(tx).Save(ctx, t, patch)
	})
	if err != nil {
		return err
	}
	m.logw("changed object status to "+status.String(), t, current.ID, user)
	return nil
}

func (m *Manager) hardDelete(ctx context.Context, t *model.EntityType, current *object.EntityObject, user string) error {
	attachments := current.Attachments()
	err := db.WithTx(ctx, m.pool, func(tx *sql.Tx) error {
		for _, a := range attachments {
			if err := m.deleteBlob(ctx, a); err != nil {
				return err
			}
		}
		if err := m.repo.WithTx(tx).Delete(ctx, t, current.ID); err != nil {
			return err
		}
		return m.updateCounters(ctx, -1, nil, attachments)
	})
	if err != nil {
		return err
	}
	m.logw("removed object", t, current.ID, user)
	return nil
}

func (m *Manager) checkRules(ctx context.Context, t *model.EntityType, obj *object.EntityObject) error {
	if !obj.CheckRule || m.opts.Rules == nil {
		return nil
	}
	return m.opts.Rules.Check(ctx, t, obj)
}

// checkWriteLimits runs every quota check before any write happens, so a
// rejection leaves no partial row.
func (m *Manager) checkWriteLimits(ctx context.Context, newObjects int64, created []object.ObjectAttachment) error {
	if m.opts.Limits == nil {
		return nil
	}
	if newObjects > 0 {
		if err := m.opts.Limits.CheckLimit(ctx, LimitObjects, newObjects); err != nil {
			return err
		}
	}
	if len(created) > 0 {
		if err := m.opts.Limits.CheckLimit(ctx, LimitFiles, int64(len(created))); err != nil {
			return err
		}
		if err := m.opts.Limits.CheckLimit(ctx, LimitFilesAmount, attachmentBytes(created)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) updateCounters(ctx context.Context, objectDelta int64, created, deleted []object.ObjectAttachment) error {
	if m.opts.Limits == nil {
		return nil
	}
	if objectDelta != 0 {
		if err := m.opts.Limits.UpdateCount(ctx, LimitObjects, objectDelta); err != nil {
			return err
		}
	}
	fileDelta := int64(len(created) - len(deleted))
	if fileDelta != 0 {
		if err := m.opts.Limits.UpdateCount(ctx, LimitFiles, fileDelta); err != nil {
			return err
		}
	}
	byteDelta := attachmentBytes(created) - attachmentBytes(deleted)
	if byteDelta != 0 {
		if err := m.opts.Limits.UpdateCount(ctx, LimitFilesAmount, byteDelta); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) logw(msg string, t *model.EntityType, id int, user string) {
	if m.opts.Logger == nil {
		return
	}
	m.opts.Logger.Infow(msg,
		logger.FieldEntityType, t.CodeName(),
		logger.FieldObjectID, id,
		logger.FieldUser, user,
	)
}
