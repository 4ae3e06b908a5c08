package errors

import (
	stderrors "errors"
	"strings"
)

// Chain returns the message of err followed by the message of each cause,
// outermost first. Text a wrapper repeats from its cause is trimmed so each
// entry reads on its own.
func Chain(err error) []string {
	var out []string
	for err != nil {
		next := stderrors.Unwrap(err)
		msg := ownMessage(err, next)
		if msg != "" && (len(out) == 0 || out[len(out)-1] != msg) {
			out = append(out, msg)
		}
		err = next
	}
	return out
}

func ownMessage(err, next error) string {
	if classified, ok := err.(*ClassifiedError); ok {
		return classified.message
	}
	msg := err.Error()
	if next != nil {
		msg = strings.TrimSuffix(msg, ": "+next.Error())
	}
	return msg
}
