package audio

import "errors"

// ErrUnsupportedFormat indicates the payload is not a valid Ogg/Opus
// voice note.
var ErrUnsupportedFormat = errors.New("unsupported audio format")
