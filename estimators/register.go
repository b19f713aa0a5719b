// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package estimators

import "github.com/JIMMY-KSU/modelstore/internal/codec"

// Register adds the estimator types to reg.
func Register(reg *codec.Registry) error {
	for _, spec := range []codec.TypeSpec{standardizerSpec, discretizerSpec, transitionModelSpec} {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	if err := Register(codec.Default); err != nil {
		panic(err)
	}
}
