package telemetry

import "time"

// MQTT payloads.

type dayMessage struct {
	Date           string    `json:"date"`
	Points         int       `json:"points"`
	QueryDurationS float64   `json:"query_duration_s"`
	WriteDurationS float64   `json:"write_duration_s"`
	TotalDurationS float64   `json:"total_duration_s"`
	Timestamp      time.Time `json:"timestamp"`
}

type progressMessage struct {
	Completed   int       `json:"completed"`
	Remaining   int       `json:"remaining"`
	Total       int       `json:"total"`
	PctComplete float64   `json:"pct_complete"`
	TotalPoints int       `json:"total_points"`
	Timestamp   time.Time `json:"timestamp"`
}

type errorMessage struct {
	Date      string    `json:"date"`
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type passMessage struct {
	DaysImported  int       `json:"days_imported"`
	DaysFailed    int       `json:"days_failed"`
	DaysRemaining int       `json:"days_remaining"`
	Points        int       `json:"points"`
	NetworkLost   bool      `json:"network_lost"`
	Interrupted   bool      `json:"interrupted"`
	Timestamp     time.Time `json:"timestamp"`
}

type connectivityMessage struct {
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp"`
}
