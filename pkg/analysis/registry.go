package analysis

import "log/slog"

// Registry owns the set of discoverable analyzers and their probe status.
// It performs no analysis itself. A Registry is built once at process
// start and is effectively immutable afterwards, so it is safe for
// concurrent reads across requests.
type Registry struct {
	order       []string
	descriptors map[string]Descriptor
	analyzers   map[string]Analyzer
	logger      *slog.Logger
}

// NewRegistry probes every registration and records the outcome. A single
// registration's construction failure is caught and recorded as status
// "error"; it never prevents other analyzers from loading and never
// aborts startup.
func NewRegistry(registrations []Registration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "analysis.registry")

	r := &Registry{
		order:       make([]string, 0, len(registrations)),
		descriptors: make(map[string]Descriptor, len(registrations)),
		analyzers:   make(map[string]Analyzer, len(registrations)),
	}
	r.logger = logger

	for _, reg := range registrations {
		if reg.ID == "" || reg.New == nil {
			logger.Warn("skipping malformed analyzer registration", "id", reg.ID)
			continue
		}
		if _, dup := r.descriptors[reg.ID]; dup {
			logger.Warn("duplicate analyzer registration ignored", "id", reg.ID)
			continue
		}

		r.order = append(r.order, reg.ID)
		r.descriptors[reg.ID] = probe(reg, r.analyzers, logger)
	}

	logger.Info("analyzer registry probed",
		"total", len(r.order),
		"active", r.countStatus(StatusActive),
		"available", r.countStatus(StatusAvailable),
		"errored", r.countStatus(StatusError),
	)

	return r
}

// probe runs one registration's constructor, converting failures and
// panics into descriptor state.
func probe(reg Registration, analyzers map[string]Analyzer, logger *slog.Logger) (desc Descriptor) {
	desc = Descriptor{ID: reg.ID, Tags: reg.Tags}

	defer func() {
		if r := recover(); r != nil {
			desc.Status = StatusError
			desc.Err = "constructor panicked"
			logger.Error("analyzer constructor panicked", "id", reg.ID, "panic", r)
		}
	}()

	analyzer, err := reg.New()
	switch {
	case err != nil:
		desc.Status = StatusError
		desc.Err = err.Error()
		logger.Warn("analyzer failed to construct", "id", reg.ID, "error", err)
	case analyzer == nil:
		desc.Status = StatusAvailable
		logger.Debug("analyzer registered without callable implementation", "id", reg.ID)
	default:
		desc.Status = StatusActive
		analyzers[reg.ID] = analyzer
	}

	return desc
}

// Descriptors returns all descriptors in registry order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

// Get returns the descriptor for an id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	desc, ok := r.descriptors[id]
	return desc, ok
}

// analyzer returns the callable implementation for an active id.
func (r *Registry) analyzer(id string) (Analyzer, bool) {
	a, ok := r.analyzers[id]
	return a, ok
}

// Resolve returns the ordered descriptor list for a processing level.
//
// LevelBasic resolves to an empty list. LevelStandard resolves the fixed
// standard ids against the live registry, dropping ids with no matching
// descriptor (logged, never fatal). LevelDetailed appends every remaining
// active analyzer in registry order.
func (r *Registry) Resolve(level Level) []Descriptor {
	if level == LevelBasic {
		return nil
	}

	selected := make([]Descriptor, 0, len(r.order))
	seen := make(map[string]bool, len(StandardAnalyzers))

	for _, id := range StandardAnalyzers {
		desc, ok := r.descriptors[id]
		if !ok {
			r.logger.Warn("configured analyzer missing from registry, skipping", "id", id)
			continue
		}
		selected = append(selected, desc)
		seen[id] = true
	}

	if level == LevelDetailed {
		for _, id := range r.order {
			if seen[id] {
				continue
			}
			desc := r.descriptors[id]
			if desc.Status != StatusActive {
				continue
			}
			selected = append(selected, desc)
		}
	}

	return selected
}

func (r *Registry) countStatus(status Status) int {
	n := 0
	for _, desc := range r.descriptors {
		if desc.Status == status {
			n++
		}
	}
	return n
}
