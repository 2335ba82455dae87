package decoder

import (
	"encoding/binary"
	"time"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/ports"
)

// FrameSize is the length of one binary frame:
// uint16 LE ADC code followed by uint16 LE sequence index
const FrameSize = 4

// Binary decodes fixed 4-byte frames
type Binary struct {
	clock func() time.Time
}

// NewBinary creates a binary frame decoder
func NewBinary(clock func() time.Time) *Binary {
	if clock == nil {
		clock = time.Now
	}
	return &Binary{clock: clock}
}

// Protocol implements ports.FrameDecoder
func (d *Binary) Protocol() string {
	return ProtocolBinary
}

// Next reads exactly one frame. A short read is returned as is; retrying
// would misalign every frame after it.
func (d *Binary) Next(link ports.Link) (domain.Sample, error) {
	frame, err := link.ReadFull(FrameSize)
	if err != nil {
		return domain.Sample{}, err
	}
	at := d.clock()

	adc := binary.LittleEndian.Uint16(frame[0:2])
	seq := binary.LittleEndian.Uint16(frame[2:4])

	return domain.NewBinarySample(adc, seq, at)
}

// EncodeFrame builds the frame the firmware sends for adc and seq
func EncodeFrame(adc, seq uint16) []byte {
	frame := make([]byte, FrameSize)
	binary.LittleEndian.PutUint16(frame[0:2], adc)
	binary.LittleEndian.PutUint16(frame[2:4], seq)
	return frame
}
