package main

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleReview_InRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		in, err := sampleReview(rng, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, in.ProductID, int64(1))
		assert.LessOrEqual(t, in.ProductID, int64(5))
		assert.GreaterOrEqual(t, in.Rating, 1)
		assert.LessOrEqual(t, in.Rating, 5)
		require.NotNil(t, in.Comment)

		var meta map[string]any
		require.NoError(t, json.Unmarshal(in.ReviewMetadata, &meta))
		assert.Contains(t, meta, "verified_purchase")
		assert.Contains(t, meta, "channel")
	}
}

func TestSampleReview_Deterministic(t *testing.T) {
	a, err := sampleReview(rand.New(rand.NewPCG(7, 7)), 100)
	require.NoError(t, err)
	b, err := sampleReview(rand.New(rand.NewPCG(7, 7)), 100)
	require.NoError(t, err)

	assert.Equal(t, a.ProductID, b.ProductID)
	assert.Equal(t, a.Rating, b.Rating)
	assert.Equal(t, *a.Comment, *b.Comment)
	assert.JSONEq(t, string(a.ReviewMetadata), string(b.ReviewMetadata))
}
