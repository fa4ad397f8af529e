package erasure

import "context"

// ErasureContext is passed to each contributor for one request's
// execution (spec §4.4 "contributor fan-out").
type ErasureContext struct {
	RequestID         string
	DataSubjectIDHash string
	TenantID          string
	DataCategories    []string
}

// ContributorResult is what a contributor reports for its share of the
// erasure. Success=false does not halt the overall erasure; RecordsAffected
// is still summed into the final result.
type ContributorResult struct {
	Success         bool
	RecordsAffected int
}

// Contributor is an external system participating in an erasure (spec §6
// IErasureContributor). Implementations should not panic; a returned
// error is treated the same as ContributorResult{Success:false}.
type Contributor interface {
	Erase(ctx context.Context, ectx ErasureContext) (ContributorResult, error)
}
