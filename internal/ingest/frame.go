package ingest

// printable drops every byte outside 0x20–0x7E. CR from CRLF framing goes
// with it.
func printable(frame []byte) string {
	out := make([]byte, 0, len(frame))
	for _, b := range frame {
		if b >= 0x20 && b <= 0x7e {
			out = append(out, b)
		}
	}
	return string(out)
}
