package manager

import (
	"context"
	"io"
	"time"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/object"
)

// ObjectAttachments returns the stored attachment list of one object.
func (m *Manager) ObjectAttachments(ctx context.Context, typeCode string, id int) ([]object.ObjectAttachment, error) {
	t, err := m.entityType(ctx, typeCode)
	if err != nil {
		return nil, err
	}
	obj, err := m.repo.FindByID(ctx, t, id, m.opts.DefaultSRID)
	if err != nil {
		return nil, err
	}
	return obj.Attachments(), nil
}

// FindObjectAttachmentInfo returns one attachment entry of an object by
// its guid.
func (m *Manager) FindObjectAttachmentInfo(ctx context.Context, typeCode string, id int, guid string) (object.ObjectAttachment, error) {
	attachments, err := m.ObjectAttachments(ctx, typeCode, id)
	if err != nil {
		return object.ObjectAttachment{}, err
	}
	for _, a := range attachments {
		if a.GUID == guid {
			return a, nil
		}
	}
	return object.ObjectAttachment{}, errors.NotFoundf("attachment %s not found", guid)
}

// GetAttachmentFileMetadata reads the blob store's metadata for one
// attachment file.
func (m *Manager) GetAttachmentFileMetadata(ctx context.Context, guid string) (FileMetadata, error) {
	if m.opts.Blobs == nil {
		return FileMetadata{}, errors.Unprocessablef("no blob store configured for attachment %s", guid)
	}
	meta, err := m.opts.Blobs.GetFileMetadata(ctx, m.opts.AttachmentBucket, guid)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return FileMetadata{}, errors.NotFoundf("attachment file %s not found", guid)
		}
		return FileMetadata{}, errors.Wrapf(err, "failed to read attachment %s metadata", guid)
	}
	return meta, nil
}

// GetObjectAttachmentFile opens the file content of one attachment after
// verifying the attachment belongs to the object. The caller closes the
// reader.
func (m *Manager) GetObjectAttachmentFile(ctx context.Context, typeCode string, id int, guid string) (io.ReadCloser, object.ObjectAttachment, error) {
	info, err := m.FindObjectAttachmentInfo(ctx, typeCode, id, guid)
	if err != nil {
		return nil, object.ObjectAttachment{}, err
	}
	if m.opts.Blobs == nil {
		return nil, object.ObjectAttachment{}, errors.Unprocessablef("no blob store configured for attachment %s", guid)
	}
	rc, err := m.opts.Blobs.ExtractFile(ctx, m.opts.AttachmentBucket, guid)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, object.ObjectAttachment{}, errors.NotFoundf("attachment file %s not found", guid)
		}
		return nil, object.ObjectAttachment{}, errors.Wrapf(err, "failed to read attachment %s", guid)
	}
	return rc, info, nil
}

// splitAttachmentChanges partitions incoming attachment entries by their
// transient status. Entries without a status are carried state, not
// changes, and are dropped here: the stored list is authoritative for
// them.
func splitAttachmentChanges(incoming []object.ObjectAttachment) (created, deleted []object.ObjectAttachment) {
	for _, a := range incoming {
		switch a.Status {
		case object.AttachmentCreate:
			created = append(created, a)
		case object.AttachmentDelete:
			deleted = append(deleted, a)
		}
	}
	return created, deleted
}

// admitAttachments resolves CREATE entries against the blob store: the
// file must already be uploaded, its metadata fills the entry, and the
// blob is pinned so upload expiry cannot orphan the row. A guid already
// present on the object is a conflict.
func (m *Manager) admitAttachments(ctx context.Context, current, created []object.ObjectAttachment, user string) ([]object.ObjectAttachment, error) {
	result := append([]object.ObjectAttachment(nil), current...)
	for _, a := range created {
		for _, existing := range result {
			if existing.GUID == a.GUID {
				return nil, errors.Conflictf("attachment %s already exists", a.GUID)
			}
		}
		admitted, err := m.admitAttachment(ctx, a, user)
		if err != nil {
			return nil, err
		}
		result = append(result, admitted)
	}
	return result, nil
}

func (m *Manager) admitAttachment(ctx context.Context, a object.ObjectAttachment, user string) (object.ObjectAttachment, error) {
	if m.opts.Blobs == nil {
		return object.ObjectAttachment{}, errors.Unprocessablef("no blob store configured for attachment %s", a.GUID)
	}
	meta, err := m.opts.Blobs.GetFileMetadata(ctx, m.opts.AttachmentBucket, a.GUID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return object.ObjectAttachment{}, errors.NotFoundf("attachment file %s not found", a.GUID)
		}
		return object.ObjectAttachment{}, errors.Wrapf(err, "failed to read attachment %s metadata", a.GUID)
	}
	if err := m.opts.Blobs.MakeFilePermanent(ctx, m.opts.AttachmentBucket, a.GUID); err != nil {
		return object.ObjectAttachment{}, errors.Wrapf(err, "failed to pin attachment %s", a.GUID)
	}

	a.Name = meta.Name
	a.MD5 = meta.MD5
	a.Size = meta.Size
	a.ContentType = meta.ContentType
	a.CreateUser = user
	a.CreateDate = time.Now().UTC().Format(time.RFC3339)
	a.Status = object.AttachmentNone
	return a, nil
}

// reconcileAttachments applies DELETE entries against the stored list,
// then admits CREATE entries. Deleting an unknown guid is a not-found
// error and aborts the whole mutation.
func (m *Manager) reconcileAttachments(ctx context.Context, current, created, deleted []object.ObjectAttachment, user string) ([]object.ObjectAttachment, error) {
	remaining := append([]object.ObjectAttachment(nil), current...)
	for _, d := range deleted {
		idx := -1
		for i, existing := range remaining {
			if existing.GUID == d.GUID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errors.NotFoundf("attachment %s not found", d.GUID)
		}
		if err := m.deleteBlob(ctx, remaining[idx]); err != nil {
			return nil, err
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return m.admitAttachments(ctx, remaining, created, user)
}

func (m *Manager) deleteBlob(ctx context.Context, a object.ObjectAttachment) error {
	if m.opts.Blobs == nil {
		return nil
	}
	if err := m.opts.Blobs.DeleteFile(ctx, m.opts.AttachmentBucket, a.GUID); err != nil {
		return errors.Wrapf(err, "failed to delete attachment file %s", a.GUID)
	}
	return nil
}

func attachmentBytes(attachments []object.ObjectAttachment) int64 {
	var total int64
	for _, a := range attachments {
		total += a.Size
	}
	return total
}
