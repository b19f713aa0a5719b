// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package estimators

import (
	"errors"
	"fmt"
	"math"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// StandardizerType is the registered type tag of Standardizer.
const StandardizerType = "estimators.Standardizer"

// ErrNotFitted is returned when a transform is requested before Fit.
var ErrNotFitted = errors.New("estimator is not fitted")

// Standardizer removes the per-feature mean and scales to unit variance.
type Standardizer struct {
	producer

	WithMean bool
	WithStd  bool
	Epsilon  float64

	// Fitted state, nil before Fit.
	Mean  *ndarray.Array
	Scale *ndarray.Array
}

// NewStandardizer creates a Standardizer that centers and scales.
func NewStandardizer() *Standardizer {
	return &Standardizer{WithMean: true, WithStd: true, Epsilon: 1e-12}
}

// Fit computes per-column mean and standard deviation of rows.
func (s *Standardizer) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return errors.New("standardizer: no samples")
	}
	dim := len(rows[0])
	mean := make([]float64, dim)
	scale := make([]float64, dim)

	for _, r := range rows {
		if len(r) != dim {
			return fmt.Errorf("standardizer: ragged input, want %d features, got %d", dim, len(r))
		}
		for j, v := range r {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Max(math.Sqrt(scale[j]/n), s.Epsilon)
	}

	s.Mean = ndarray.Vector(mean)
	s.Scale = ndarray.Vector(scale)
	return nil
}

// Transform standardizes rows with the fitted statistics.
func (s *Standardizer) Transform(rows [][]float64) ([][]float64, error) {
	if s.Mean == nil || s.Scale == nil {
		return nil, ErrNotFitted
	}
	mean, err := ndarray.Values[float64](s.Mean)
	if err != nil {
		return nil, err
	}
	scale, err := ndarray.Values[float64](s.Scale)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(rows))
	for i, r := range rows {
		if len(r) != len(mean) {
			return nil, fmt.Errorf("standardizer: want %d features, got %d", len(mean), len(r))
		}
		o := make([]float64, len(r))
		for j, v := range r {
			if s.WithMean {
				v -= mean[j]
			}
			if s.WithStd {
				v /= scale[j]
			}
			o[j] = v
		}
		out[i] = o
	}
	return out, nil
}

// TypeName implements codec.Persistable.
func (s *Standardizer) TypeName() string { return StandardizerType }

// MarshalState implements codec.Persistable.
func (s *Standardizer) MarshalState(rec *codec.Record) error {
	return setAll(rec,
		"with_mean", s.WithMean,
		"with_std", s.WithStd,
		"epsilon", s.Epsilon,
		"mean", s.Mean,
		"scale", s.Scale,
	)
}

// UnmarshalState implements codec.Persistable.
func (s *Standardizer) UnmarshalState(rec *codec.Record) error {
	var err error
	if s.WithMean, err = rec.Bool("with_mean"); err != nil {
		return err
	}
	if s.WithStd, err = rec.Bool("with_std"); err != nil {
		return err
	}
	if s.Epsilon, err = rec.Float("epsilon"); err != nil {
		return err
	}
	if s.Mean, err = rec.Array("mean"); err != nil {
		return err
	}
	s.Scale, err = rec.Array("scale")
	return err
}

// String returns the constructor form.
func (s *Standardizer) String() string {
	return fmt.Sprintf("Standardizer(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
}

var standardizerSpec = codec.TypeSpec{
	Name:    StandardizerType,
	Version: 1,
	Fields: []codec.FieldSpec{
		{Name: "with_mean", Kind: codec.KindBool},
		{Name: "with_std", Kind: codec.KindBool},
		{Name: "epsilon", Kind: codec.KindFloat},
		{Name: "mean", Kind: codec.KindArray, Optional: true},
		{Name: "scale", Kind: codec.KindArray, Optional: true},
	},
	New: func() codec.Persistable { return &Standardizer{} },
}

// setAll sets alternating name/value pairs on rec.
func setAll(rec *codec.Record, kv ...any) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := rec.Set(kv[i].(string), kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}
