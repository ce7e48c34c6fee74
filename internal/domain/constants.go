package domain

const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
)

// Attachment categories used by clients to pick an icon.
const (
	FileCategoryImage = "image"
	FileCategoryVideo = "video"
	FileCategoryPDF   = "pdf"
	FileCategoryWord  = "word"
	FileCategoryExcel = "excel"
	FileCategoryOther = "file"
)

// AllowedAttachmentMIME maps accepted upload MIME types to their category.
var AllowedAttachmentMIME = map[string]string{
	"image/jpeg": FileCategoryImage,
	"image/png":  FileCategoryImage,
	"image/gif":  FileCategoryImage,

	"video/mp4":        FileCategoryVideo,
	"video/x-msvideo":  FileCategoryVideo,
	"video/avi":        FileCategoryVideo,
	"video/quicktime":  FileCategoryVideo,

	"application/pdf": FileCategoryPDF,

	"application/msword": FileCategoryWord,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileCategoryWord,

	"application/vnd.ms-excel": FileCategoryExcel,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FileCategoryExcel,
}

// CategoryForMIME returns the attachment category for a MIME type, or
// FileCategoryOther when the type is not a known bucket.
func CategoryForMIME(mime string) string {
	if cat, ok := AllowedAttachmentMIME[mime]; ok {
		return cat
	}
	return FileCategoryOther
}

// Attachment is the stored metadata for an uploaded file. The service never
// interprets file bytes; it records what the storage collaborator returned.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Mime     string `json:"mime"`
	Category string `json:"category"`
	Size     int64  `json:"size"`
}
