package gelf

// Severity is the ordinal log level of an Event. The ordering follows the
// syslog severity ladder from least to most severe.
type Severity int

const (
	// Debug level messages.
	Debug Severity = iota

	// Info level informational messages.
	Info

	// Notice level normal but significant conditions.
	Notice

	// Warning level warning conditions.
	Warning

	// Error level error conditions.
	Error

	// Critical level critical conditions.
	Critical

	// Alert level conditions requiring immediate action.
	Alert

	// Emergency level; the system is unusable.
	Emergency
)

// syslogCodes is the fixed Severity -> syslog code table used for the GELF
// `level` field. The mapping is exact and never derived arithmetically.
var syslogCodes = [...]int{
	Debug:     7,
	Info:      6,
	Notice:    5,
	Warning:   4,
	Error:     3,
	Critical:  2,
	Alert:     1,
	Emergency: 0,
}

var severityNames = [...]string{
	Debug:     "debug",
	Info:      "info",
	Notice:    "notice",
	Warning:   "warning",
	Error:     "error",
	Critical:  "critical",
	Alert:     "alert",
	Emergency: "emergency",
}

// Code returns the syslog integer code for the Severity (7 for Debug down
// to 0 for Emergency). Out-of-range values are coerced to Info.
func (s Severity) Code() int {
	if s < Debug || s > Emergency {
		s = Info
	}
	return syslogCodes[s]
}

// String returns the lowercase name of the Severity.
func (s Severity) String() string {
	if s < Debug || s > Emergency {
		return "info"
	}
	return severityNames[s]
}
