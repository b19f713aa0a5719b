// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package estimators

import (
	"errors"
	"fmt"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// DiscretizerType is the registered type tag of Discretizer.
const DiscretizerType = "estimators.Discretizer"

// Discretizer assigns samples to the nearest of a fixed set of cluster centers.
type Discretizer struct {
	producer

	NClusters int
	Metric    string // Only "euclidean" is implemented

	// Fitted state, nil before Fit. Shape (NClusters, features), float32.
	Centers *ndarray.Array
}

// NewDiscretizer creates a Discretizer with k clusters.
func NewDiscretizer(k int) *Discretizer {
	return &Discretizer{NClusters: k, Metric: "euclidean"}
}

// Fit picks the first NClusters distinct rows as centers.
func (d *Discretizer) Fit(rows [][]float64) error {
	if d.NClusters <= 0 {
		return fmt.Errorf("discretizer: n_clusters must be positive, got %d", d.NClusters)
	}
	if len(rows) == 0 {
		return errors.New("discretizer: no samples")
	}
	dim := len(rows[0])

	centers := make([]float32, 0, d.NClusters*dim)
	seen := make(map[string]bool)
	picked := 0
	for _, r := range rows {
		if len(r) != dim {
			return fmt.Errorf("discretizer: ragged input, want %d features, got %d", dim, len(r))
		}
		key := fmt.Sprint(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		for _, v := range r {
			centers = append(centers, float32(v))
		}
		if picked++; picked == d.NClusters {
			break
		}
	}
	if picked < d.NClusters {
		return fmt.Errorf("discretizer: only %d distinct samples for %d clusters", picked, d.NClusters)
	}

	arr, err := ndarray.FromSlice(ndarray.Shape{d.NClusters, dim}, centers)
	if err != nil {
		return err
	}
	d.Centers = arr
	return nil
}

// Assign returns the index of the nearest center for each row.
func (d *Discretizer) Assign(rows [][]float64) ([]int, error) {
	if d.Centers == nil {
		return nil, ErrNotFitted
	}
	centers, err := ndarray.Values[float32](d.Centers)
	if err != nil {
		return nil, err
	}
	dim := d.Centers.Shape()[1]

	out := make([]int, len(rows))
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("discretizer: want %d features, got %d", dim, len(r))
		}
		best, bestDist := 0, -1.0
		for c := 0; c < d.NClusters; c++ {
			var dist float64
			for j, v := range r {
				diff := v - float64(centers[c*dim+j])
				dist += diff * diff
			}
			if bestDist < 0 || dist < bestDist {
				best, bestDist = c, dist
			}
		}
		out[i] = best
	}
	return out, nil
}

// TypeName implements codec.Persistable.
func (d *Discretizer) TypeName() string { return DiscretizerType }

// MarshalState implements codec.Persistable.
func (d *Discretizer) MarshalState(rec *codec.Record) error {
	return setAll(rec,
		"n_clusters", d.NClusters,
		"metric", d.Metric,
		"centers", d.Centers,
	)
}

// UnmarshalState implements codec.Persistable.
func (d *Discretizer) UnmarshalState(rec *codec.Record) error {
	k, err := rec.Int("n_clusters")
	if err != nil {
		return err
	}
	d.NClusters = int(k)
	if d.Metric, err = rec.Str("metric"); err != nil {
		return err
	}
	d.Centers, err = rec.Array("centers")
	return err
}

// String returns the constructor form.
func (d *Discretizer) String() string {
	return fmt.Sprintf("Discretizer(n_clusters=%d)", d.NClusters)
}

var discretizerSpec = codec.TypeSpec{
	Name:    DiscretizerType,
	Version: 1,
	Fields: []codec.FieldSpec{
		{Name: "n_clusters", Kind: codec.KindInt},
		{Name: "metric", Kind: codec.KindString},
		{Name: "centers", Kind: codec.KindArray, Optional: true},
	},
	New: func() codec.Persistable { return &Discretizer{} },
}
