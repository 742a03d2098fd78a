// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"encoding/binary"
	"io"
)

// Image is a loadable program: words placed in memory from Origin.
//
// On disk an image is big-endian, the origin word followed by the
// program words.
type Image struct {
	Origin uint16
	Words  []uint16
}

// ReadImage reads an image. Words that would load past the end of memory
// are dropped, as is a trailing odd byte.
func ReadImage(r io.Reader) (img *Image, err error) {
	data, err := io.ReadAll(io.LimitReader(r, 2*(MEMORY_SIZE+1)))
	if err != nil {
		return
	}

	if len(data) < 2 {
		err = ErrImageShort
		return
	}

	origin := binary.BigEndian.Uint16(data)
	data = data[2:]

	count := min(len(data)/2, MEMORY_SIZE-int(origin))

	img = &Image{
		Origin: origin,
		Words:  make([]uint16, count),
	}
	for n := range count {
		img.Words[n] = binary.BigEndian.Uint16(data[n*2:])
	}

	return
}

// WriteTo writes the image in the on-disk format.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	data := make([]byte, 0, 2*(len(img.Words)+1))
	data = binary.BigEndian.AppendUint16(data, img.Origin)
	for _, word := range img.Words {
		data = binary.BigEndian.AppendUint16(data, word)
	}

	written, err := w.Write(data)
	n = int64(written)
	return
}
