// Package blackbox decodes flight-controller blackbox log files: a
// comment preamble, followed by one or more concatenated sessions,
// each a textual header block and a compact binary frame stream.
//
// Open a file, pick a session by 1-based index, then walk its decoded
// frames:
//
//	h, err := blackbox.Open("flight.bbl")
//	if err != nil {
//		log.Fatalf("%v", err)
//	}
//	defer h.Close()
//
//	sv, err := h.Select(1)
//	if err != nil {
//		log.Fatalf("%v", err)
//	}
//	it := sv.Frames()
//	for it.Scan() {
//		frame := it.Frame()
//		_ = frame
//	}
package blackbox
