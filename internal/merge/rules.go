package merge

import (
	"strings"

	"github.com/dfcoelho/cri-extractor/constants"
)

// EnforcePrecedence re-checks the model's merge against the deterministic
// precedence rules: a placeholder in the new record never overwrites a real
// prior value, prior-only keys survive, and list elements keyed by "nome"
// are deep-merged without duplication. The model's output is the starting
// point; rule violations are corrected field by field.
func EnforcePrecedence(prior, newRec, merged map[string]any) map[string]any {
	out := make(map[string]any, len(merged))
	for k, v := range merged {
		out[k] = v
	}

	for k, nv := range newRec {
		pv, hasPrior := prior[k]
		out[k] = resolveValue(pv, hasPrior, nv, out[k])
	}
	for k, pv := range prior {
		if _, inNew := newRec[k]; !inNew {
			out[k] = pv
		}
	}
	return out
}

func resolveValue(prior any, hasPrior bool, newVal, mergedVal any) any {
	switch nv := newVal.(type) {
	case map[string]any:
		pm, _ := prior.(map[string]any)
		mm, _ := mergedVal.(map[string]any)
		if pm == nil {
			pm = map[string]any{}
		}
		if mm == nil {
			mm = map[string]any{}
		}
		return EnforcePrecedence(pm, nv, mm)
	case []any:
		pl, _ := prior.([]any)
		return mergeLists(pl, nv)
	default:
		if constants.IsPlaceholder(newVal) {
			if hasPrior && !constants.IsPlaceholder(prior) {
				return prior
			}
			if mergedVal != nil {
				return mergedVal
			}
			return newVal
		}
		return newVal
	}
}

// mergeLists deep-merges named elements and appends new names, preserving
// the prior order. Elements without a usable name are kept as-is from the
// prior side and appended from the new side.
func mergeLists(prior, newList []any) []any {
	out := make([]any, len(prior))
	copy(out, prior)

	byName := make(map[string]int, len(prior))
	for i, el := range prior {
		if name := elementName(el); name != "" {
			byName[name] = i
		}
	}

	for _, el := range newList {
		name := elementName(el)
		if name == "" {
			out = append(out, el)
			continue
		}
		if i, ok := byName[name]; ok {
			pm, pok := out[i].(map[string]any)
			nm, nok := el.(map[string]any)
			if pok && nok {
				out[i] = EnforcePrecedence(pm, nm, nm)
			} else {
				out[i] = el
			}
			continue
		}
		byName[name] = len(out)
		out = append(out, el)
	}
	return out
}

func elementName(el any) string {
	m, ok := el.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := m["nome"].(string)
	return strings.TrimSpace(name)
}
