package chat

import "errors"

// ErrCompletionFailed indicates the completion service returned a
// non-success response or an empty choice list.
var ErrCompletionFailed = errors.New("chat completion failed")
