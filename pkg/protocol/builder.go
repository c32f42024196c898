// pkg/protocol/builder.go
package protocol

import "strconv"

// AppendResponse appends a complete HTTP/1.1 response to dst:
// status line, Content-Type, Content-Length, the optional Connection: Keep-Alive
// header, a blank line and body verbatim.
func AppendResponse(dst []byte, st Status, ct ContentType, keepAlive bool, body []byte) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(st.Code()), 10)
	dst = append(dst, ' ')
	dst = append(dst, st.Text()...)
	dst = append(dst, "\r\nContent-Type: "...)
	dst = append(dst, ct.String()...)
	dst = append(dst, "\r\nContent-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(body)), 10)
	dst = append(dst, "\r\n"...)
	if keepAlive {
		dst = append(dst, "Connection: Keep-Alive\r\n"...)
	}
	dst = append(dst, "\r\n"...)
	return append(dst, body...)
}

// ResponseSize is the exact length AppendResponse will produce.
func ResponseSize(st Status, ct ContentType, keepAlive bool, body []byte) int {
	n := len("HTTP/1.1 ") + 3 + 1 + len(st.Text()) +
		len("\r\nContent-Type: ") + len(ct.String()) +
		len("\r\nContent-Length: ") + len(strconv.Itoa(len(body))) + 2 +
		2 + len(body)
	if keepAlive {
		n += len("Connection: Keep-Alive\r\n")
	}
	return n
}
