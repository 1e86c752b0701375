package feedstore

import (
	"database/sql"
	"fmt"
)

// Append inserts a message, assigning it the next sequence number if Seq is
// unset. Grounded on the teacher's CreateIssue: a plain, unlogged insert —
// feedstore has no action log to mirror, so there is no *Logged variant.
func (s *Store) Append(m Message) (Message, error) {
	err := s.withWriteLock(func() error {
		if m.Seq == 0 {
			var maxSeq sql.NullInt64
			if err := s.conn.QueryRow(`SELECT MAX(seq) FROM messages`).Scan(&maxSeq); err != nil {
				return fmt.Errorf("next seq: %w", err)
			}
			m.Seq = maxSeq.Int64 + 1
		}
		_, err := s.conn.Exec(`
			INSERT INTO messages (id, channel, sender, body, timestamp, seq)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, m.Channel, m.Sender, m.Body, m.Timestamp, m.Seq)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// scanMessages drains rows into a slice, closing rows on return.
func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Channel, &m.Sender, &m.Body, &m.Timestamp, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// All returns every message, unordered, for use by a resultSource that
// applies the Selection's predicate/order/limit itself.
func (s *Store) All() ([]Message, error) {
	rows, err := s.conn.Query(`SELECT id, channel, sender, body, timestamp, seq FROM messages`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

// Count returns the number of stored messages.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}
