package protocol

// Status is a response status. Codes 1..8 are the ones handlers may return;
// the remaining values are produced by the dispatcher only.
type Status uint8

const (
	StatusOK Status = iota + 1
	StatusCreated
	StatusNoContent
	StatusNotAcceptable
	StatusNotModified
	StatusSeeOther
	StatusInternalServerError
	StatusTemporaryRedirect

	StatusNotFound
)

type statusLine struct {
	code int
	text string
}

var statusLines = [...]statusLine{
	StatusOK:                  {200, "OK"},
	StatusCreated:             {201, "Created"},
	StatusNoContent:           {204, "No Content"},
	StatusNotAcceptable:       {406, "Not Acceptable"},
	StatusNotModified:         {304, "Not Modified"},
	StatusSeeOther:            {303, "See Other"},
	StatusInternalServerError: {500, "Internal Server Error"},
	StatusTemporaryRedirect:   {307, "Temporary Redirect"},
	StatusNotFound:            {404, "Not Found"},
}

// StatusFromCode maps a handler status code (HTTP_RESPONSE_OK = 1 ... HTTP_RESPONSE_TEMPORARY_REDIRECT = 8).
func StatusFromCode(code int) (Status, bool) {
	if code < int(StatusOK) || code > int(StatusTemporaryRedirect) {
		return 0, false
	}
	return Status(code), true
}

// Code is the numeric HTTP status.
func (s Status) Code() int {
	if int(s) < len(statusLines) && s != 0 {
		return statusLines[s].code
	}
	return 0
}

// Text is the reason phrase written on the status line.
func (s Status) Text() string {
	if int(s) < len(statusLines) && s != 0 {
		return statusLines[s].text
	}
	return ""
}
