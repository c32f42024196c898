package protocol

type ContentType uint8

const (
	ContentTypePlain ContentType = iota + 1
	ContentTypeHTML
	ContentTypeJSON
)

var contentTypes = [...]string{
	"", // sentinel
	"text/plain",
	"text/html",
	"application/json",
}

// ContentTypeFromCode maps a handler content type code (CONTENT_TYPE_PLAIN = 1 ... CONTENT_TYPE_JSON = 3).
func ContentTypeFromCode(code int) (ContentType, bool) {
	if code < int(ContentTypePlain) || code > int(ContentTypeJSON) {
		return 0, false
	}
	return ContentType(code), true
}

func (c ContentType) String() string {
	if int(c) < len(contentTypes) {
		return contentTypes[c]
	}
	return ""
}
