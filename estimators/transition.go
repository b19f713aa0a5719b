// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package estimators

import (
	"errors"
	"fmt"
	"slices"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/ndarray"
)

// TransitionModelType is the registered type tag of TransitionModel.
const TransitionModelType = "estimators.TransitionModel"

// TransitionModel is a row-stochastic transition matrix between discrete states.
//
// Schema history:
//   - v1: lag, matrix
//   - v2: lag renamed to lagtime; reversible and state_labels added
type TransitionModel struct {
	producer

	LagTime     int
	Reversible  bool
	StateLabels []string

	// Fitted state, nil before Fit. Shape (states, states), float64.
	Matrix *ndarray.Array
}

// NewTransitionModel creates a reversible model with the given lag time.
func NewTransitionModel(lagtime int) *TransitionModel {
	return &TransitionModel{LagTime: lagtime, Reversible: true}
}

// Fit counts transitions at the lag time in a discrete trajectory and row-normalizes.
// A reversible model symmetrizes the counts first.
func (m *TransitionModel) Fit(dtraj []int) error {
	if m.LagTime <= 0 {
		return fmt.Errorf("transition model: lagtime must be positive, got %d", m.LagTime)
	}
	if len(dtraj) <= m.LagTime {
		return errors.New("transition model: trajectory shorter than lagtime")
	}
	if slices.Min(dtraj) < 0 {
		return errors.New("transition model: negative state index")
	}
	n := slices.Max(dtraj) + 1

	counts := make([]float64, n*n)
	for t := 0; t+m.LagTime < len(dtraj); t++ {
		counts[dtraj[t]*n+dtraj[t+m.LagTime]]++
	}
	if m.Reversible {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s := counts[i*n+j] + counts[j*n+i]
				counts[i*n+j], counts[j*n+i] = s, s
			}
			counts[i*n+i] *= 2
		}
	}
	for i := 0; i < n; i++ {
		row := counts[i*n : (i+1)*n]
		var total float64
		for _, c := range row {
			total += c
		}
		if total == 0 {
			row[i] = 1
			continue
		}
		for j := range row {
			row[j] /= total
		}
	}

	arr, err := ndarray.FromSlice(ndarray.Shape{n, n}, counts)
	if err != nil {
		return err
	}
	m.Matrix = arr
	return nil
}

// NumStates returns the number of states of the fitted model, or 0.
func (m *TransitionModel) NumStates() int {
	if m.Matrix == nil {
		return 0
	}
	return m.Matrix.Shape()[0]
}

// TypeName implements codec.Persistable.
func (m *TransitionModel) TypeName() string { return TransitionModelType }

// MarshalState implements codec.Persistable.
func (m *TransitionModel) MarshalState(rec *codec.Record) error {
	return setAll(rec,
		"lagtime", m.LagTime,
		"reversible", m.Reversible,
		"state_labels", m.StateLabels,
		"matrix", m.Matrix,
	)
}

// UnmarshalState implements codec.Persistable.
func (m *TransitionModel) UnmarshalState(rec *codec.Record) error {
	lag, err := rec.Int("lagtime")
	if err != nil {
		return err
	}
	m.LagTime = int(lag)
	if m.Reversible, err = rec.Bool("reversible"); err != nil {
		return err
	}
	if rec.Has("state_labels") && !rec.IsNull("state_labels") {
		if m.StateLabels, err = rec.Strings("state_labels"); err != nil {
			return err
		}
	}
	m.Matrix, err = rec.Array("matrix")
	return err
}

// String returns the constructor form.
func (m *TransitionModel) String() string {
	return fmt.Sprintf("TransitionModel(lagtime=%d, reversible=%t)", m.LagTime, m.Reversible)
}

var transitionModelSpec = codec.TypeSpec{
	Name:       TransitionModelType,
	Version:    2,
	MinVersion: 1,
	Fields: []codec.FieldSpec{
		{Name: "lagtime", Kind: codec.KindInt},
		{Name: "reversible", Kind: codec.KindBool},
		{Name: "state_labels", Kind: codec.KindStrings, Optional: true},
		{Name: "matrix", Kind: codec.KindArray, Optional: true},
	},
	New: func() codec.Persistable { return &TransitionModel{} },
	Migrations: map[int]codec.Migration{
		1: migrateTransitionV1,
	},
}

// migrateTransitionV1 renames lag to lagtime. v1 only wrote non-reversible models.
func migrateTransitionV1(rec *codec.Record) error {
	if !rec.Rename("lag", "lagtime") {
		return errors.New("v1 record has no lag field")
	}
	return rec.Set("reversible", false)
}
