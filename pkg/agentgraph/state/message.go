package state

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry in the state's message history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages returns the normalized message history.
// After a JSON round trip the history is stored as []any of generic maps;
// this converts it back to typed messages. Returns an empty slice when
// the history is missing or malformed.
func (s State) Messages() []Message {
	return normalizeMessages(s[KeyMessages])
}

// AppendMessage appends a message to the history in place.
func (s State) AppendMessage(role, content string) {
	s[KeyMessages] = append(s.Messages(), Message{Role: role, Content: content})
}

// LastMessage returns the most recent message and whether one exists.
func (s State) LastMessage() (Message, bool) {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// normalizeMessages converts any supported message history representation
// into []Message. Unrecognized entries are dropped.
func normalizeMessages(v any) []Message {
	switch val := v.(type) {
	case nil:
		return []Message{}
	case []Message:
		out := make([]Message, len(val))
		copy(out, val)
		return out
	case Message:
		return []Message{val}
	case []any:
		out := make([]Message, 0, len(val))
		for _, item := range val {
			switch m := item.(type) {
			case Message:
				out = append(out, m)
			case map[string]any:
				role, _ := m["role"].(string)
				content, _ := m["content"].(string)
				out = append(out, Message{Role: role, Content: content})
			}
		}
		return out
	case map[string]any:
		role, _ := val["role"].(string)
		content, _ := val["content"].(string)
		return []Message{{Role: role, Content: content}}
	default:
		return []Message{}
	}
}
