package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/templetwo/breakthrough/internal/engine"
)

// exportRecord is one JSONL line: the session with its archive id.
type exportRecord struct {
	ID      int64           `json:"id"`
	Session *engine.Session `json:"session"`
}

// ExportTo writes every archived session to w as JSON lines, oldest
// first, and returns the number of lines written.
func (s *Store) ExportTo(w io.Writer) (int, error) {
	rows, err := s.db.Query(`SELECT id, data FROM sessions ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return 0, fmt.Errorf("archive: export query: %w", err)
	}
	defer rows.Close()

	bw := bufio.NewWriter(w)
	count := 0
	for rows.Next() {
		var id int64
		var blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return count, fmt.Errorf("archive: export scan: %w", err)
		}

		var session engine.Session
		if err := json.Unmarshal([]byte(blob), &session); err != nil {
			return count, fmt.Errorf("archive: export decode id %d: %w", id, err)
		}

		line, err := json.Marshal(exportRecord{ID: id, Session: &session})
		if err != nil {
			return count, fmt.Errorf("archive: export encode id %d: %w", id, err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return count, fmt.Errorf("archive: export write: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	return count, bw.Flush()
}

// ImportFrom reads JSON lines previously produced by ExportTo and
// re-archives the sessions. Returns how many sessions were imported.
func (s *Store) ImportFrom(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record exportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return count, fmt.Errorf("archive: import line %d: %w", count+1, err)
		}
		if record.Session == nil {
			continue
		}
		if _, err := s.SaveSession(record.Session); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("archive: import read: %w", err)
	}
	return count, nil
}
