package opus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame. It is the most a uint16 prefix can
// describe.
const MaxFrameSize = 1<<16 - 1

// FrameReader reads length-prefixed Opus frames from an io.Reader.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader returns a new FrameReader that reads from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads and returns the next raw Opus frame.
// Returns io.EOF when there are no more frames and io.ErrUnexpectedEOF
// when the input ends inside a frame.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(f.r, frame); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes one frame in the length-prefixed format.
func WriteFrame(w io.Writer, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds %d", len(frame), MaxFrameSize)
	}
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}
