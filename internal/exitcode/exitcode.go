package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	ReferenceError  = 4
	ResolveError    = 5
	PartialSuccess  = 6
	WriteError      = 7
	RecordError     = 8
)
