package domain

import "time"

// RunMetrics represents reader performance counters for a single report run
type RunMetrics struct {
	FilesProcessed   uint32
	LinesRead        uint64
	BlankLines       uint64
	DecodeErrors     uint64 // malformed JSON, logged
	SkippedLines     uint64 // missing fields, bad response_time, date mismatch
	RecordsParsed    uint64
	StartTime        time.Time
	EndTime          time.Time
	ParsingTimeMs    uint64
	RecordsPerSecond float64
}

// Finish stamps the end time and derives the timing fields
func (m *RunMetrics) Finish(end time.Time) {
	m.EndTime = end
	elapsed := end.Sub(m.StartTime)
	m.ParsingTimeMs = uint64(elapsed.Milliseconds())
	if elapsed > 0 {
		m.RecordsPerSecond = float64(m.RecordsParsed) / elapsed.Seconds()
	}
}
