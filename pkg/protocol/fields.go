package protocol

import "io"

// Payload is the typed body of a packet. All pk field types compose into it.
type Payload interface {
	io.WriterTo
	io.ReaderFrom
	PacketID() int32
}

type field interface {
	io.WriterTo
	io.ReaderFrom
}

func writeFields(w io.Writer, fields ...field) (n int64, err error) {
	for _, f := range fields {
		var m int64
		m, err = f.WriteTo(w)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func readFields(r io.Reader, fields ...field) (n int64, err error) {
	for _, f := range fields {
		var m int64
		m, err = f.ReadFrom(r)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
