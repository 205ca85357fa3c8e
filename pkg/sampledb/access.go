package sampledb

import (
	"time"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/aggregator"
	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
	"github.com/google/uuid"
)

// StartSession registers a new run and returns its id.
func (s *SampleDB) StartSession(device string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, device, started_at) VALUES (?, ?, ?)",
		id,
		device,
		startedAt.UnixMilli(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SampleDB) InsertSample(sessionID string, sample *types.Sample) error {
	_, err := s.db.Exec(
		"INSERT INTO samples "+
			"(session_id, timestamp_ms, tick, measured, setpoint, kp, ki, kd) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sessionID,
		sample.Timestamp.UnixMilli(),
		int64(sample.Tick),
		float64(sample.Measured),
		float64(sample.Setpoint),
		float64(sample.Kp),
		float64(sample.Ki),
		float64(sample.Kd),
	)
	return err
}

func (s *SampleDB) InsertGainPush(sessionID string, at time.Time, g types.Gains, trigger string, pushErr error) error {
	var errText *string
	if pushErr != nil {
		text := pushErr.Error()
		errText = &text
	}
	_, err := s.db.Exec(
		"INSERT INTO gain_pushes "+
			"(session_id, timestamp_ms, kp, ki, kd, setpoint, push_trigger, push_error) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		sessionID,
		at.UnixMilli(),
		float64(g.Kp),
		float64(g.Ki),
		float64(g.Kd),
		float64(g.Setpoint),
		trigger,
		errText,
	)
	return err
}

// EndSession stores the summary of a finished run.
func (s *SampleDB) EndSession(sessionID string, endedAt time.Time, summary aggregator.Summary) error {
	_, err := s.db.Exec(
		"UPDATE sessions SET ended_at = ?, sample_count = ?, mean_abs_error = ?, rms_error = ? WHERE id = ?",
		endedAt.UnixMilli(),
		summary.Count,
		summary.MeanAbsError,
		summary.RMSError,
		sessionID,
	)
	return err
}

func (s *SampleDB) GetSession(sessionID string) (*DbSession, error) {
	var session DbSession
	err := s.db.QueryRow(
		"SELECT id, device, started_at, ended_at, sample_count, mean_abs_error, rms_error "+
			"FROM sessions WHERE id = ?",
		sessionID,
	).Scan(
		&session.ID,
		&session.Device,
		&session.StartedAt,
		&session.EndedAt,
		&session.SampleCount,
		&session.MeanAbsError,
		&session.RMSError,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionSamples returns the samples of a run in arrival order.
func (s *SampleDB) SessionSamples(sessionID string) ([]*types.Sample, error) {
	rows, err := s.db.Query(
		"SELECT timestamp_ms, tick, measured, setpoint, kp, ki, kd FROM samples "+
			"WHERE session_id = ? ORDER BY rowid",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*types.Sample
	for rows.Next() {
		var timestampMs, tick int64
		var measured, setpoint, kp, ki, kd float64
		if err := rows.Scan(&timestampMs, &tick, &measured, &setpoint, &kp, &ki, &kd); err != nil {
			return nil, err
		}
		samples = append(samples, &types.Sample{
			Timestamp: time.UnixMilli(timestampMs),
			Tick:      uint32(tick),
			Measured:  float32(measured),
			Setpoint:  float32(setpoint),
			Kp:        float32(kp),
			Ki:        float32(ki),
			Kd:        float32(kd),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *SampleDB) SessionPushes(sessionID string) ([]DbGainPush, error) {
	rows, err := s.db.Query(
		"SELECT session_id, timestamp_ms, kp, ki, kd, setpoint, push_trigger, push_error "+
			"FROM gain_pushes WHERE session_id = ? ORDER BY rowid",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pushes []DbGainPush
	for rows.Next() {
		var push DbGainPush
		var kp, ki, kd, setpoint float64
		if err := rows.Scan(&push.SessionID, &push.TimestampMs, &kp, &ki, &kd, &setpoint, &push.Trigger, &push.Error); err != nil {
			return nil, err
		}
		push.Kp, push.Ki, push.Kd, push.Setpoint = float32(kp), float32(ki), float32(kd), float32(setpoint)
		pushes = append(pushes, push)
	}
	return pushes, rows.Err()
}
