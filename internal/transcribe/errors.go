package transcribe

import "errors"

// ErrRecognitionFailed indicates the speech engine produced no transcript:
// empty audio, unintelligible audio, or an unavailable service.
var ErrRecognitionFailed = errors.New("speech recognition failed")
