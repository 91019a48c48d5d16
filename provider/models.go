package provider

import (
	"context"
	"sort"

	"github.com/sahilm/fuzzy"

	"seqassist/model"
)

// AvailableModels enumerates the models a provider offers, keyed by
// model id. An empty provider id yields an empty mapping, not an
// error: a settings form with nothing selected has nothing to list.
func AvailableModels(ctx context.Context, cfg Config, resolve CredentialResolver) (map[string]model.ModelInfo, error) {
	if cfg.ID == "" {
		return map[string]model.ModelInfo{}, nil
	}

	p, err := Setup(ctx, cfg, resolve)
	if err != nil {
		return nil, err
	}

	list, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]model.ModelInfo, len(list))
	for _, info := range list {
		result[info.ID] = info
	}
	return result, nil
}

// SearchModels fuzzy-filters a model mapping by query, best matches
// first. An empty query returns everything in id order.
func SearchModels(query string, models map[string]model.ModelInfo) []model.ModelInfo {
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if query == "" {
		result := make([]model.ModelInfo, 0, len(ids))
		for _, id := range ids {
			result = append(result, models[id])
		}
		return result
	}

	matches := fuzzy.Find(query, ids)
	result := make([]model.ModelInfo, 0, len(matches))
	for _, m := range matches {
		result = append(result, models[m.Str])
	}
	return result
}
