package query

// Status classifies a query result for rendering. Every snapshot maps to
// exactly one status.
type Status int

const (
	// LoadingNoData: nothing cached yet.
	LoadingNoData Status = iota
	// LoadingStale: a refetch is running and the previous value is shown.
	LoadingStale
	// Error: the most recent fetch failed.
	Error
	// LoadedEmpty: the cached value has no items.
	LoadedEmpty
	// LoadedNonEmpty: the cached value has items.
	LoadedNonEmpty
)

func (s Status) String() string {
	switch s {
	case LoadingNoData:
		return "loading"
	case LoadingStale:
		return "refreshing"
	case Error:
		return "error"
	case LoadedEmpty:
		return "empty"
	case LoadedNonEmpty:
		return "loaded"
	default:
		return "unknown"
	}
}

// Classify applies the status precedence. A running fetch wins over a
// recorded error so the user sees that a retry is underway.
func Classify(fetching, hasData, empty bool, err error) Status {
	switch {
	case fetching && !hasData:
		return LoadingNoData
	case fetching:
		return LoadingStale
	case err != nil:
		return Error
	case !hasData:
		return LoadingNoData
	case empty:
		return LoadedEmpty
	default:
		return LoadedNonEmpty
	}
}
