package feedstore

import "github.com/marcus/vscroll/internal/vscroll"

// Message is the feed's entity type: it implements vscroll.Item (so the
// scroll core can treat it as a row) and selection.Entity (so the Selection
// DSL can filter and order by its fields) through the same Value/FieldValue
// pair the selection evaluator expects.
type Message struct {
	ID        string
	Channel   string
	Sender    string
	Body      string
	Timestamp int64
	Seq       int64
}

// EntityID implements vscroll.Item.
func (m Message) EntityID() vscroll.EntityId { return vscroll.EntityId(m.ID) }

// FieldValue implements vscroll.Item, used by the core to build cursor
// predicates over the ORDER BY field.
func (m Message) FieldValue(field string) (any, bool) {
	return m.Value(field)
}

// Value implements selection.Entity so a Message can be matched against a
// compiled predicate directly.
func (m Message) Value(field string) (any, bool) {
	switch field {
	case "id":
		return m.ID, true
	case "channel":
		return m.Channel, true
	case "sender":
		return m.Sender, true
	case "body":
		return m.Body, true
	case "timestamp":
		return float64(m.Timestamp), true
	case "seq":
		return float64(m.Seq), true
	default:
		return nil, false
	}
}
