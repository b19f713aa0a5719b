// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package persist saves fitted estimators to named slots in single-file containers.
//
// # Overview
//
// A container file holds any number of named models. Each model stores a self-describing
// payload (type tag, schema version, attributes and typed arrays) plus lightweight
// metadata that can be listed without reading payloads:
//   - Creation time and content digest
//   - Canonical and constructor-style textual forms
//   - Producing software version
//   - Whether the upstream producer chain was captured
//
// # Basic Usage
//
//	import (
//	    "github.com/JIMMY-KSU/modelstore/estimators"
//	    "github.com/JIMMY-KSU/modelstore/persist"
//	)
//
//	msm := estimators.NewTransitionModel(10)
//	msm.Fit(dtraj)
//
//	// Save under the default name; fails with a ConflictError if it exists
//	err := persist.Save(msm, "models.msc", persist.SaveOptions{})
//
//	// Save another version next to it, along with its upstream producers
//	err = persist.Save(msm, "models.msc", persist.SaveOptions{Name: "lag10", SaveChain: true})
//
//	obj, err := persist.Load("models.msc", "lag10")
//	models, err := persist.ListModels("models.msc")
//
// # Custom Types
//
// Any type can be persisted by implementing [Persistable] and registering a [TypeSpec]
// that declares its fields. Schema changes bump the version and add a [Migration] from
// the previous one; payloads newer than the running software are rejected.
package persist
