package httpparser

import "errors"

var (
	ErrInvalidMethod               = errors.New("httpparser: invalid method")
	ErrInvalidURL                  = errors.New("httpparser: invalid url")
	ErrInvalidVersion              = errors.New("httpparser: invalid http version")
	ErrInvalidHeader               = errors.New("httpparser: invalid header")
	ErrInvalidContentLength        = errors.New("httpparser: invalid content-length")
	ErrUnsupportedTransferEncoding = errors.New("httpparser: unsupported transfer-encoding")
	ErrLineEnding                  = errors.New("httpparser: expected CRLF")
	ErrTooLarge                    = errors.New("httpparser: message exceeds size limit")
)
