package store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/version"
)

// Load reads a model and, if it was saved with its chain, every upstream producer.
// Ancestors are rebuilt oldest first and attached to their consumers with SetUpstream.
func (s *Store) Load(ctx context.Context, path, name string) (obj codec.Persistable, err error) {
	name = s.nameOrDefault(name)
	ctx, span := s.start(ctx, spanLoad, path, name)
	defer func() { s.finish(ctx, span, "load", err) }()

	f, err := container.Open(path, s.containerOptions(true))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l := &chainLoader{s: s, f: f, visiting: make(map[string]bool)}
	obj, err = l.load(ctx, name, "")
	span.SetAttributes(attribute.Int(attrChain, max(l.loaded-1, 0)))
	if err != nil {
		return nil, err
	}
	return obj, nil
}

type chainLoader struct {
	s        *Store
	f        *container.File
	visiting map[string]bool
	loaded   int
}

// load rebuilds group name. referrer is the group whose payload linked to it, empty for
// the requested model.
func (l *chainLoader) load(ctx context.Context, name, referrer string) (codec.Persistable, error) {
	path := l.f.Path()
	if l.visiting[name] {
		return nil, &BrokenChainError{Path: path, Group: name, Referrer: referrer, Err: ErrChainCycle}
	}
	l.visiting[name] = true

	if !l.f.HasGroup(name) {
		if referrer != "" {
			return nil, &BrokenChainError{Path: path, Group: name, Referrer: referrer}
		}
		return nil, &container.NotFoundError{Path: path, Name: name}
	}

	payload, err := l.f.ReadPayload(name)
	if err != nil {
		return nil, err
	}
	rec, err := codec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("load %q from %s: %w", name, path, err)
	}
	if version.IsNewer(rec.Producer) {
		l.s.log.WarnContext(ctx, "model was written by a newer release",
			"path", path, "name", name, "producer", rec.Producer, "running", version.String())
	}

	var upstream codec.Persistable
	if rec.Upstream != "" {
		upstream, err = l.load(ctx, rec.Upstream, name)
		if err != nil {
			return nil, err
		}
	}

	obj, err := l.s.reg.Deserialize(rec)
	if err != nil {
		return nil, fmt.Errorf("load %q from %s: %w", name, path, err)
	}
	if upstream != nil {
		if p, ok := obj.(codec.Producer); ok {
			p.SetUpstream(upstream)
		} else {
			l.s.log.WarnContext(ctx, "upstream producer dropped: type cannot hold one",
				"path", path, "name", name, "type", rec.Type)
		}
	}

	l.loaded++
	l.s.metrics.RecordLoad(ctx, int64(len(payload)), referrer != "")
	return obj, nil
}
