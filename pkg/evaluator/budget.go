package evaluator

// Budget holds the resource limits for one evaluation. Nil fields are unlimited.
type Budget struct {
	TimeMs        *int64
	MaxIterations *int64
}

// Stats tracks resource consumption during evaluation.
type Stats struct {
	Iterations int64 `json:"iterations"`
	Atomics    int64 `json:"atomics"`
	MaxDepth   int   `json:"maxDepth"`
	DurationUs int64 `json:"durationUs"`
}
