package conversation

// ApplyHandoffContext shapes history for a flare-switch turn. window is the
// number of most-recent pairs to retain; -1 skips trimming but still runs
// the full pairing and reassembly path, so stray messages outside any pair
// are dropped either way.
//
// The system message is always re-included regardless of window size.
// Pairing is adjacency-based lookahead: a user message immediately followed
// by an assistant message forms a pair; a user message followed by anything
// else forms a single-element pair that is retained as-is. This deliberately
// differs from ApplyContextWindow's pending-pair rule; the two can diverge
// on histories with consecutive same-role messages.
func ApplyHandoffContext(messages Conversation, window int) Conversation {
	var system *Message
	rest := make(Conversation, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system == nil {
				system = m
			}
			continue
		}
		rest = append(rest, m)
	}

	var current *Message
	if len(rest) > 0 {
		current = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	var pairs []Conversation
	for i := 0; i < len(rest); i++ {
		m := rest[i]
		if m.Role != RoleUser {
			continue
		}
		if i+1 < len(rest) && rest[i+1].Role == RoleAssistant {
			pairs = append(pairs, Conversation{m, rest[i+1]})
			i++
			continue
		}
		pairs = append(pairs, Conversation{m})
	}

	if window != -1 && window < len(pairs) {
		pairs = pairs[len(pairs)-window:]
	}

	out := make(Conversation, 0, len(messages))
	if system != nil {
		out = append(out, system)
	}
	for _, pair := range pairs {
		out = append(out, pair...)
	}
	if current != nil {
		out = append(out, current)
	}

	return out
}
