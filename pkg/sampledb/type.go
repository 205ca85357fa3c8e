package sampledb

type DbSession struct {
	ID           string   `db:"id"`
	Device       string   `db:"device"`
	StartedAt    int64    `db:"started_at"`
	EndedAt      *int64   `db:"ended_at"`
	SampleCount  int      `db:"sample_count"`
	MeanAbsError *float64 `db:"mean_abs_error"`
	RMSError     *float64 `db:"rms_error"`
}

type DbGainPush struct {
	SessionID   string  `db:"session_id"`
	TimestampMs int64   `db:"timestamp_ms"`
	Kp          float32 `db:"kp"`
	Ki          float32 `db:"ki"`
	Kd          float32 `db:"kd"`
	Setpoint    float32 `db:"setpoint"`
	Trigger     string  `db:"push_trigger"`
	Error       *string `db:"push_error"`
}
