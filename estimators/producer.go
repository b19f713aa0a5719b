// Copyright 2025 The modelstore Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package estimators

import "github.com/JIMMY-KSU/modelstore/internal/codec"

// producer is embedded by estimators that remember their upstream producer.
type producer struct {
	upstream codec.Persistable
}

// Upstream returns the estimator that produced this one's input, or nil.
func (p *producer) Upstream() codec.Persistable {
	return p.upstream
}

// SetUpstream records the estimator that produced this one's input.
func (p *producer) SetUpstream(up codec.Persistable) {
	p.upstream = up
}
