package engine

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/pkg/errors"

	"music-box/business/entity"
)

const (
	channels       = 2
	bytesPerSample = 2
	bytesPerFrame  = channels * bytesPerSample
)

// Decode picks a beep decoder by the extension of name.
func Decode(name string, rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".mp3":
		s, f, err = mp3.Decode(rc)
	case ".wav":
		s, f, err = wav.Decode(rc)
	case ".flac":
		s, f, err = flac.Decode(rc)
	case ".ogg", ".oga":
		s, f, err = vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, errors.Wrapf(entity.ErrUnsupportedFormat, "%q", ext)
	}

	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "decode %s", filepath.Base(name))
	}
	return s, f, nil
}

// Gain maps a linear volume in [0,1] to the exponent of an effects.Volume with base 2.
func Gain(volume float64) (exp float64, silent bool) {
	if volume <= 0 {
		return 0, true
	}
	if volume > 1 {
		volume = 1
	}
	return math.Log2(volume), false
}

// encodePCM writes samples as signed 16-bit little-endian stereo frames into dst.
func encodePCM(dst []byte, samples [][2]float64) {
	for i, s := range samples {
		for c := 0; c < channels; c++ {
			v := math.Max(-1, math.Min(1, s[c]))
			binary.LittleEndian.PutUint16(dst[i*bytesPerFrame+c*bytesPerSample:], uint16(int16(v*math.MaxInt16)))
		}
	}
}

// Probe returns the duration of an audio file in milliseconds.
func Probe(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	s, format, err := Decode(path, f)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if s.Len() <= 0 {
		return 0, nil
	}
	return format.SampleRate.D(s.Len()).Milliseconds(), nil
}
