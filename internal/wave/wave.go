// Package wave captures a mono 16-bit sample stream to a RIFF/WAVE file.
package wave

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

const (
	sampleSize = 2
	headerSize = 0x2c
)

// Writer buffers samples and writes the file on Close, once the data size
// is known.
type Writer struct {
	w          io.WriteCloser
	sampleRate int
	count      int
	bb         bytes.Buffer
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NewWriter returns a Writer that emits the file to w on Close.
func NewWriter(w io.Writer, sampleRate int) *Writer {
	return &Writer{w: nopCloser{w}, sampleRate: sampleRate}
}

// Create creates the file at path. Close must be called to write it out.
func Create(path string, sampleRate int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{w: f, sampleRate: sampleRate}, nil
}

// Push appends one sample.
func (w *Writer) Push(s int16) error {
	var b [sampleSize]byte
	binary.LittleEndian.PutUint16(b[:], uint16(s))
	w.bb.Write(b[:])
	w.count++
	return nil
}

// SampleCount returns the number of samples pushed so far.
func (w *Writer) SampleCount() int { return w.count }

func (w *Writer) header() [headerSize]byte {
	dataSize := sampleSize * w.count
	h := [headerSize]byte{
		'R', 'I', 'F', 'F',
		0, 0, 0, 0, //     length of rest of file
		'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ',
		16, 0, 0, 0, //    fmt chunk size
		1, 0, //           PCM
		1, 0, //           mono
		0, 0, 0, 0, //     sample rate
		0, 0, 0, 0, //     byte rate
		sampleSize, 0, //  block align
		sampleSize * 8, 0,
		'd', 'a', 't', 'a',
		0, 0, 0, 0, //     data size
	}
	binary.LittleEndian.PutUint32(h[0x04:], uint32(headerSize-8+dataSize))
	binary.LittleEndian.PutUint32(h[0x18:], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(h[0x1c:], uint32(w.sampleRate*sampleSize))
	binary.LittleEndian.PutUint32(h[0x28:], uint32(dataSize))
	return h
}

// Close writes the header and samples, then closes the destination.
func (w *Writer) Close() error {
	hdr := w.header()
	if _, err := w.w.Write(hdr[:]); err != nil {
		w.w.Close()
		return err
	}
	if _, err := w.w.Write(w.bb.Bytes()); err != nil {
		w.w.Close()
		return err
	}
	w.bb.Reset()
	return w.w.Close()
}
