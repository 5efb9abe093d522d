package horizons

import "regexp"

// Markers bounding the ephemeris payload inside the session transcript.
// They appear verbatim in the stream on lines of their own.
const (
	startMarker = "$$SOE"
	endMarker   = "$$EOE"
)

// patObserverTable captures everything strictly between the marker pair.
// This is the sole table-extraction path: the awaiting-table phase waits
// on it like any other prompt, so an absent closing marker is reported as
// a step timeout rather than a separate malformed-payload signal.
var patObserverTable = NewPattern("observer-table",
	`(?s)`+regexp.QuoteMeta(startMarker)+`\r?\n(.*?)\r?\n`+regexp.QuoteMeta(endMarker))
