// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package estimators provides small persistable estimators for use with modelstore.
//
// The estimators keep configuration plus fitted arrays and implement only simple fits.
// Each one can record the estimator that produced its input, which is what chain capture
// follows when saving with SaveChain.
//
// # Basic Usage
//
//	std := estimators.NewStandardizer()
//	std.Fit(data)
//
//	disc := estimators.NewDiscretizer(3)
//	disc.SetUpstream(std)
//	disc.Fit(std.Transform(data))
//
//	err := persist.Save(disc, "pipeline.msc", persist.SaveOptions{SaveChain: true})
package estimators
