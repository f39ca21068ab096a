package audit

import (
	"bytes"
	"encoding/csv"
	"time"
)

// WriteCSV encodes rows with a header line.
func WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"login_time", "session_id", "user_id", "email", "role", "ip_address", "user_agent"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.LoginTime.UTC().Format(time.RFC3339),
			row.SessionID,
			row.UserID,
			row.Email,
			row.Role,
			row.IPAddress,
			row.UserAgent,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
