package object

// AttachmentStatus marks what should happen to an attachment entry during
// a mutation. It exists only at mutation time; persisted attachments carry
// no status.
type AttachmentStatus string

const (
	AttachmentNone   AttachmentStatus = ""
	AttachmentCreate AttachmentStatus = "CREATE"
	AttachmentDelete AttachmentStatus = "DELETE"
)

// ObjectAttachment is one file attached to an entity object. The list is
// persisted as a JSON column on the primary table; the blob itself lives
// in external storage keyed by GUID.
type ObjectAttachment struct {
	GUID        string `json:"guid"`
	Name        string `json:"name"`
	MD5         string `json:"md5"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	CreateUser  string `json:"createUser,omitempty"`
	CreateDate  string `json:"createDate,omitempty"`

	// Status is transient and never persisted.
	Status AttachmentStatus `json:"-"`
}
