package cascade

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

type graphResolver struct {
	edges map[string][]string
	err   error
}

func (g *graphResolver) GetRelatedSubjects(ctx context.Context, id string) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.edges[id], nil
}

type recordingRequester struct {
	requested []string
}

func (r *recordingRequester) RequestErasure(ctx context.Context, req ErasureRequestInput) error {
	r.requested = append(r.requested, req.DataSubjectID)
	return nil
}

func TestEraseDiamondGraphVisitsEachNodeExactlyOnce(t *testing.T) {
	resolver := &graphResolver{edges: map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": {},
	}}
	requester := &recordingRequester{}
	r := NewResolver(resolver, requester)

	result := r.Erase(context.Background(), "A", "admin", "", Options{RelationshipDepth: 3})

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.DiscoveredCount)
	assert.Equal(t, 4, result.RequestsIssued)

	sorted := append([]string{}, requester.requested...)
	sort.Strings(sorted)
	assert.Equal(t, []string{"A", "B", "C", "D"}, sorted)
}

func TestEraseRespectsDepthBound(t *testing.T) {
	resolver := &graphResolver{edges: map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"D"},
	}}
	requester := &recordingRequester{}
	r := NewResolver(resolver, requester)

	result := r.Erase(context.Background(), "A", "admin", "", Options{RelationshipDepth: 1})

	assert.True(t, result.Success)
	// depth 0 = A, depth 1 = B; C (depth 2) is never enqueued since B sits
	// at the depth bound and its neighbors are not explored.
	assert.Equal(t, 2, result.DiscoveredCount)
	assert.NotContains(t, requester.requested, "C")
}

func TestEraseCyclesTerminate(t *testing.T) {
	resolver := &graphResolver{edges: map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}}
	requester := &recordingRequester{}
	r := NewResolver(resolver, requester)

	result := r.Erase(context.Background(), "A", "admin", "", Options{RelationshipDepth: 10})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.DiscoveredCount)
}

func TestEraseDryRunIssuesNoRequests(t *testing.T) {
	resolver := &graphResolver{edges: map[string][]string{"A": {"B"}}}
	requester := &recordingRequester{}
	r := NewResolver(resolver, requester)

	result := r.Erase(context.Background(), "A", "admin", "", Options{RelationshipDepth: 1, DryRun: true})

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.DiscoveredCount)
	assert.Equal(t, 0, result.RequestsIssued)
	assert.Empty(t, requester.requested)
}

func TestEraseResolverErrorAbortsWithPrimarySubjectID(t *testing.T) {
	resolver := &graphResolver{err: errors.New("relationship store unreachable")}
	requester := &recordingRequester{}
	r := NewResolver(resolver, requester)

	result := r.Erase(context.Background(), "A", "admin", "", Options{RelationshipDepth: 2})

	assert.False(t, result.Success)
	assert.Equal(t, "A", result.PrimarySubjectID)
	assert.Contains(t, result.ErrorMessage, "relationship store unreachable")
}

func TestEraseRejectsEmptySubjectID(t *testing.T) {
	r := NewResolver(&graphResolver{}, &recordingRequester{})
	result := r.Erase(context.Background(), "", "admin", "", Options{})
	assert.False(t, result.Success)
}

func TestRequesterFuncAdaptsPlainFunction(t *testing.T) {
	var captured ErasureRequestInput
	f := RequesterFunc(func(ctx context.Context, req ErasureRequestInput) error {
		captured = req
		return nil
	})
	err := f.RequestErasure(context.Background(), ErasureRequestInput{DataSubjectID: "subject-1"})
	assert.NoError(t, err)
	assert.Equal(t, "subject-1", captured.DataSubjectID)
}
