package gemini

// Kind tags a Result as a success or a failure.
type Kind int

const (
	KindOK Kind = iota
	KindError
)

// Reason classifies a failed call.
type Reason string

const (
	ReasonRateLimited Reason = "rate_limited"
	ReasonUnavailable Reason = "unavailable"
	ReasonMalformed   Reason = "malformed"
)

// Result is the outcome of one generation call. Answer and SearchQuery are
// set for KindOK; Reason and Detail for KindError. Placeholder marks an
// answer made without an API key; it must not be cached.
type Result struct {
	Kind        Kind
	Answer      string
	SearchQuery string
	Reason      Reason
	Detail      string
	Placeholder bool
}

func (r Result) OK() bool { return r.Kind == KindOK }

// RateLimited reports whether the call failed because the quota ran out.
func (r Result) RateLimited() bool {
	return r.Kind == KindError && r.Reason == ReasonRateLimited
}

func failure(reason Reason, detail string) Result {
	return Result{Kind: KindError, Reason: reason, Detail: detail}
}
