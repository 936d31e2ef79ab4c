package render

// EleUpdate is an element id and the operations to apply to it.
type EleUpdate struct {
	EleId string `json:"EleId"`
	// Op keys are attribute names, except "textContent" which sets the
	// element text.
	Ops []Op `json:"Ops"`
}

type Op struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Frame is one batch of updates. A non-zero DurationMS asks the client to
// transition to the new attributes over that many milliseconds.
type Frame struct {
	DurationMS int64       `json:"DurationMS"`
	Updates    []EleUpdate `json:"Updates"`
}

// merge folds later updates over earlier ones, keeping the first-seen order
// of element ids and the latest value per attribute.
func merge(updates []EleUpdate) []EleUpdate {
	order := make([]string, 0, len(updates))
	byID := make(map[string][]Op, len(updates))
	for _, u := range updates {
		ops, seen := byID[u.EleId]
		if !seen {
			order = append(order, u.EleId)
		}
	next:
		for _, op := range u.Ops {
			for i := range ops {
				if ops[i].Key == op.Key {
					ops[i].Value = op.Value
					continue next
				}
			}
			ops = append(ops, op)
		}
		byID[u.EleId] = ops
	}

	out := make([]EleUpdate, 0, len(order))
	for _, id := range order {
		out = append(out, EleUpdate{EleId: id, Ops: byID[id]})
	}
	return out
}
