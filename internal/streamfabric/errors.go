package streamfabric

import "errors"

// errMalformedEntry marks a stream entry that could not be decoded into a
// payload map; callers check with errors.Is rather than string matching.
var errMalformedEntry = errors.New("streamfabric: malformed entry")

// IsMalformedEntry reports whether err originates from a decode failure on a
// consumed entry, as opposed to a transport/connection error.
func IsMalformedEntry(err error) bool {
	return errors.Is(err, errMalformedEntry)
}
