package opus

import (
	"io"

	"github.com/jonas747/ogg"
)

// oggHeaderPackets is the number of leading Opus packets that carry the
// OpusHead and OpusTags headers rather than audio.
const oggHeaderPackets = 2

// OggReader yields the Opus packets of an Ogg stream as frames.
type OggReader struct {
	decoder *ogg.PacketDecoder
	skip    int
}

func NewOggReader(r io.Reader) *OggReader {
	return &OggReader{
		decoder: ogg.NewPacketDecoder(ogg.NewDecoder(r)),
		skip:    oggHeaderPackets,
	}
}

// ReadFrame returns the next audio packet, skipping the two header packets.
func (o *OggReader) ReadFrame() ([]byte, error) {
	for {
		packet, _, err := o.decoder.Decode()
		if err != nil {
			return nil, err
		}
		if o.skip > 0 {
			o.skip--
			continue
		}
		// The decoder reuses its buffers between pages.
		return append([]byte(nil), packet...), nil
	}
}
