package policy

import (
	"fmt"
	"sort"
)

// Gate evaluates the fixed, priority-ordered layer list against one text
// payload. A Gate is immutable after construction and safe for concurrent
// use by any number of requests.
type Gate struct {
	layers []Layer
}

// NewGate builds a gate over the built-in rule sets extended by the given
// rule packs. Passing no packs yields the default gate.
func NewGate(packs ...*Pack) (*Gate, error) {
	rules, err := mergePacks(packs)
	if err != nil {
		return nil, err
	}
	return newGateFromLayers(buildLayers(rules)), nil
}

// newGateFromLayers wraps explicit layers, sorted by priority. Used by
// tests to inject faulty predicates.
func newGateFromLayers(layers []Layer) *Gate {
	sorted := make([]Layer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Gate{layers: sorted}
}

// Layers returns the gate's layers in evaluation order, for introspection.
func (g *Gate) Layers() []Layer {
	out := make([]Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

// Evaluate runs the layers in priority order against text and returns the
// full compliance record. Evaluation stops at the first non-compliant
// layer; lower-priority layers are never run.
//
// Evaluate performs no I/O and is deterministic for the same text and
// context. It never returns an error: a predicate that panics is recorded
// as a non-compliant verdict for its layer (fail-closed).
func (g *Gate) Evaluate(text string, ectx *EvalContext) *ComplianceRecord {
	if ectx == nil {
		ectx = &EvalContext{Source: SourcePre}
	}

	record := &ComplianceRecord{
		PerLayer: make([]LayerVerdict, 0, len(g.layers)),
		Source:   ectx.Source,
	}

	for _, layer := range g.layers {
		verdict := evaluateLayer(layer, text, ectx)
		record.PerLayer = append(record.PerLayer, LayerVerdict{
			Layer:   layer.ID,
			Verdict: verdict,
		})

		if !verdict.Compliant {
			record.OverallCompliant = false
			record.BlockingLayer = layer.ID
			record.BlockingAction = layer.Action
			record.Reason = verdict.Reason
			return record
		}
	}

	record.OverallCompliant = true
	return record
}

// evaluateLayer invokes one predicate, converting a panic into a
// non-compliant verdict.
func evaluateLayer(layer Layer, text string, ectx *EvalContext) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Compliant: false,
				Reason:    fmt.Sprintf("layer %s failed internally: %v", layer.ID, r),
			}
		}
	}()
	return layer.Predicate(text, ectx)
}
