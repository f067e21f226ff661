package shoutcast

import (
	"io"

	"github.com/pkg/errors"
	"github.com/romantomjak/shoutcast"

	"music-box/pkg/logger"
)

type TitleCallback func(title string)

type Opener struct {
	log *logger.Zerolog
}

func NewOpener(log *logger.Zerolog) *Opener {
	return &Opener{
		log: log,
	}
}

// Open connects to a shoutcast/icecast url. onTitle receives every in-band
// stream title and may be nil.
func (o *Opener) Open(url string, onTitle TitleCallback) (io.ReadCloser, error) {
	stream, err := shoutcast.Open(url)
	if err != nil {
		return nil, errors.Wrapf(err, "open stream %s", url)
	}

	o.log.Debug().Msgf("stream %q genre: %s bitrate: %d", stream.Name, stream.Genre, stream.Bitrate)

	stream.MetadataCallbackFunc = func(m *shoutcast.Metadata) {
		o.log.Debug().Msgf("now listening to: %s", m.StreamTitle)
		if onTitle != nil {
			onTitle(m.StreamTitle)
		}
	}

	return stream, nil
}
