package conversation

// ApplyContextWindow bounds the history sent to a backend on ordinary
// (non-flare-switch) turns. window is the number of most-recent completed
// (user, assistant) pairs to retain; -1 means no trimming.
//
// The most recent system message is kept and re-inserted at the front. The
// last non-system message is treated as the current in-flight message and is
// excluded from pairing. A user message that never received an assistant
// reply is dropped once another user message arrives.
func ApplyContextWindow(messages Conversation, window int) Conversation {
	if window == -1 || len(messages) == 0 {
		return messages
	}

	var system *Message
	rest := make(Conversation, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			// keep overwriting so the most recent system message wins
			system = m
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
	var pending Conversation
	for _, m := range rest {
		switch m.Role {
		case RoleUser:
			// a new user message flushes any unanswered pending pair
			pending = Conversation{m}
		case RoleAssistant:
			if len(pending) == 1 {
				pairs = append(pairs, Conversation{pending[0], m})
				pending = nil
			}
		}
	}

	if window < len(pairs) {
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
