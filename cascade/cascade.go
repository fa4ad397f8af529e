// Package cascade implements BFS traversal over a data subject's
// relationship graph so erasing one subject also erases everyone
// reachable from it within a bounded depth (spec §4.5). Grounded on
// the embedding platform's visited-set BFS shape for walking a node's ancestry
// chain (compare proofgraph.Store.GetChain's queue+visited-map walk),
// generalized from a linear chain walk to a branching relationship
// graph with depth bounding and diamond-graph dedup.
package cascade

import (
	"context"

	cerrors "github.com/meridian-dispatch/compliance-core/compliance/errors"
)

// RelationshipResolver discovers a subject's directly related subjects
// (spec §4.5 ICascadeRelationshipResolver).
type RelationshipResolver interface {
	GetRelatedSubjects(ctx context.Context, dataSubjectID string) ([]string, error)
}

// Options configures one cascade run.
type Options struct {
	IncludeRelatedRecords bool
	RelationshipDepth     int // N >= 0; root is depth 0
	DryRun                bool
}

// ErasureRequester is the subset of erasure.Service the cascade resolver
// forwards discovered subjects to.
type ErasureRequester interface {
	RequestErasure(ctx context.Context, req ErasureRequestInput) error
}

// ErasureRequestInput carries the minimal fields the cascade resolver
// needs to forward a discovered subject for erasure; callers adapt this
// into an erasure.Request at the call site.
type ErasureRequestInput struct {
	DataSubjectID string
	RequestedBy   string
	TenantID      string
}

// Result reports what a cascade run discovered and (unless dry-run)
// forwarded for erasure.
type Result struct {
	Success          bool
	ErrorMessage     string
	PrimarySubjectID string
	DiscoveredCount  int
	RelatedSubjects  []string // excludes the root
	RequestsIssued   int
}

// Resolver runs BFS cascade erasure (spec §4.5).
type Resolver struct {
	relationships RelationshipResolver
	erasure       ErasureRequester
}

// NewResolver constructs a Resolver.
func NewResolver(relationships RelationshipResolver, erasure ErasureRequester) *Resolver {
	return &Resolver{relationships: relationships, erasure: erasure}
}

type queueItem struct {
	subjectID string
	depth     int
}

// Erase walks the relationship graph rooted at primarySubjectID breadth
// first, visiting every subject reachable within options.RelationshipDepth
// exactly once, and forwards each discovered subject (including the
// root) as an erasure request unless options.DryRun is set.
func (r *Resolver) Erase(ctx context.Context, primarySubjectID, requestedBy, tenantID string, opts Options) Result {
	if primarySubjectID == "" {
		return Result{Success: false, ErrorMessage: "data_subject_id must not be empty"}
	}

	visited := map[string]bool{primarySubjectID: true}
	order := []string{primarySubjectID}
	queue := []queueItem{{subjectID: primarySubjectID, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth >= opts.RelationshipDepth {
			continue
		}

		related, err := r.relationships.GetRelatedSubjects(ctx, item.subjectID)
		if err != nil {
			return Result{
				Success:          false,
				ErrorMessage:     err.Error(),
				PrimarySubjectID: primarySubjectID,
			}
		}

		for _, childID := range related {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			order = append(order, childID)
			queue = append(queue, queueItem{subjectID: childID, depth: item.depth + 1})
		}
	}

	result := Result{
		Success:          true,
		PrimarySubjectID: primarySubjectID,
		DiscoveredCount:  len(order),
		RelatedSubjects:  order[1:],
	}

	if opts.DryRun {
		return result
	}

	for _, subjectID := range order {
		if err := r.erasure.RequestErasure(ctx, ErasureRequestInput{
			DataSubjectID: subjectID,
			RequestedBy:   requestedBy,
			TenantID:      tenantID,
		}); err != nil {
			result.Success = false
			result.ErrorMessage = cerrors.Wrap(cerrors.KindInvariant, cerrors.CodeInvalidRequest,
				"cascade forwarding failed for "+subjectID, err).Error()
			return result
		}
		result.RequestsIssued++
	}

	return result
}
