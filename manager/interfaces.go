package manager

import (
	"context"
	"io"

	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
)

// SchemaProvider resolves runtime-defined entity types. Implementations
// signal an unknown code with a not-found error.
type SchemaProvider interface {
	EntityType(ctx context.Context, code string) (*model.EntityType, error)
}

// BlobStore is the external file storage attachments live in. The engine
// calls it while reconciling attachment CREATE/DELETE entries but owns no
// storage itself.
type BlobStore interface {
	ExtractFile(ctx context.Context, bucket, guid string) (io.ReadCloser, error)
	GetFileMetadata(ctx context.Context, bucket, guid string) (FileMetadata, error)
	MakeFilePermanent(ctx context.Context, bucket, guid string) error
	DeleteFile(ctx context.Context, bucket, guid string) error
}

// FileMetadata describes one stored blob.
type FileMetadata struct {
	Name        string
	MD5         string
	Size        int64
	ContentType string
}

// LimitKey identifies one quota counter.
type LimitKey string

const (
	LimitObjects     LimitKey = "objects"
	LimitFiles       LimitKey = "files"
	LimitFilesAmount LimitKey = "files_amount"
)

// LimitsService enforces quotas. CheckLimit runs before any write and may
// reject with a limit-exceeded error; UpdateCount adjusts the counter
// after a successful write.
type LimitsService interface {
	CheckLimit(ctx context.Context, key LimitKey, delta int64) error
	UpdateCount(ctx context.Context, key LimitKey, delta int64) error
}

// RuleChecker evaluates business rules against an object. Invoked only
// when the object's CheckRule flag is set.
type RuleChecker interface {
	Check(ctx context.Context, t *model.EntityType, obj *object.EntityObject) error
}

// ConditionParser translates a textual filter expression into a condition
// tree the query builder splices into WHERE.
type ConditionParser interface {
	Parse(t *model.EntityType, expression string) (query.Condition, error)
}
