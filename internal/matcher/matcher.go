// Package matcher compares probe face embeddings against the stored
// reference set and decides match / no match under a configured cutoff.
package matcher

import (
	"errors"
	"fmt"
	"math"
)

// Metric selects how embeddings are compared. The metric is paired with the
// encoder backend at configuration time and never mixed within one deployment.
type Metric string

const (
	// MetricEuclidean matches when distance <= cutoff (descriptor embeddings).
	MetricEuclidean Metric = "euclidean"
	// MetricCosine matches when similarity >= cutoff (mesh embeddings).
	MetricCosine Metric = "cosine"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricEuclidean, MetricCosine:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown match metric %q", s)
}

// Reference is one stored embedding inside a reference set snapshot.
type Reference struct {
	Identity int64
	Name     string
	Vector   []float32
	Backend  string // encoder backend that produced the vector
	Dim      int
}

// ReferenceSet is an insertion-ordered snapshot of all stored embeddings,
// rebuilt from storage for every attendance attempt. Slice order is the
// tie-break order: the earliest-inserted identity wins on equal scores.
type ReferenceSet []Reference

// Match is a successful nearest-match result.
type Match struct {
	Identity int64
	Name     string
	Score    float64 // distance or similarity, depending on the metric
}

// ErrEmptyReferenceSet signals that there were no stored embeddings at all,
// which callers report differently from a below-cutoff probe.
var ErrEmptyReferenceSet = errors.New("reference set is empty")

// EuclideanDistance computes the L2 distance between two vectors.
// Returns +Inf for mismatched or empty input.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
// Returns -1 for mismatched, empty, or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return -1
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity
}

// matches reports whether a score satisfies the cutoff for the metric.
func matches(metric Metric, score, cutoff float64) bool {
	if metric == MetricEuclidean {
		return score <= cutoff
	}
	return score >= cutoff
}

// better reports whether a score strictly improves on the current best.
// Non-strict comparison would break the earliest-inserted tie-break.
func better(metric Metric, score, best float64) bool {
	if metric == MetricEuclidean {
		return score < best
	}
	return score > best
}

// FindBestMatch compares the probe against every reference in the snapshot and
// returns the best reference satisfying the cutoff, or nil when none does.
// References produced by a different backend or with a different dimension are
// skipped: vectors from distinct encoders are not comparable.
// Returns ErrEmptyReferenceSet when the snapshot holds no references at all.
func FindBestMatch(probe []float32, backend string, refs ReferenceSet, metric Metric, cutoff float64) (*Match, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyReferenceSet
	}

	var found *Match
	for i := range refs {
		ref := &refs[i]
		if ref.Backend != backend || len(ref.Vector) != len(probe) {
			continue
		}

		var score float64
		if metric == MetricEuclidean {
			score = EuclideanDistance(probe, ref.Vector)
		} else {
			score = CosineSimilarity(probe, ref.Vector)
		}

		if !matches(metric, score, cutoff) {
			continue
		}
		if found == nil || better(metric, score, found.Score) {
			found = &Match{Identity: ref.Identity, Name: ref.Name, Score: score}
		}
	}

	return found, nil
}
