// Package store saves and loads persistable objects to container files.
//
// A model is saved under a name (DefaultName when none is given). Saving with the chain
// stores every upstream producer in the same file as "<name>@upstream<N>", oldest first,
// in a single commit; loading rebuilds the producers and reattaches them.
//
//	s := store.New(store.WithCompression(true))
//	err := s.Save(ctx, model, "models.msc", store.SaveOptions{Name: "msm", SaveChain: true})
//	obj, err := s.Load(ctx, "models.msc", "msm")
//	models, err := s.ListModels(ctx, "models.msc", store.ListOptions{})
package store
