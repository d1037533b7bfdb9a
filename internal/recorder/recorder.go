// Package recorder 飞行记录仪：把遥测帧与状态码事件落盘 SQLite，
// 作为回收后复盘的黑匣子。记录路径不能阻塞下行热路径，
// 写入经由缓冲通道异步落盘，积压时丢弃并计数。
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const (
	busyTimeout = 5 * time.Second
	eventBuffer = 256
)

const schema = `
CREATE TABLE IF NOT EXISTS flights (
	id         TEXT PRIMARY KEY,
	callsign   TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS telemetry (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	flight_id TEXT NOT NULL REFERENCES flights(id),
	at        TIMESTAMP NOT NULL,
	sentence  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS status_events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	flight_id TEXT NOT NULL REFERENCES flights(id),
	at        TIMESTAMP NOT NULL,
	code      INTEGER NOT NULL,
	info      TEXT NOT NULL
);
`

type eventKind int

const (
	eventTelemetry eventKind = iota
	eventStatus
)

type event struct {
	kind     eventKind
	at       time.Time
	sentence string
	code     uint16
	info     string
}

// Recorder 飞行记录仪。零值与 nil 都安全：所有记录方法退化为空操作。
type Recorder struct {
	db       *sql.DB
	flightID string
	log      *zap.Logger

	events chan event
	done   chan struct{}
}

// Open 打开（或创建）记录数据库并登记一次新的飞行
func Open(path, callsign string, log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), busyTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: apply schema: %w", err)
	}

	flightID := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		"INSERT INTO flights (id, callsign, started_at) VALUES (?, ?, ?)",
		flightID, callsign, time.Now().UTC()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: register flight: %w", err)
	}

	r := &Recorder{
		db:       db,
		flightID: flightID,
		log:      log,
		events:   make(chan event, eventBuffer),
		done:     make(chan struct{}),
	}
	go r.writer()

	log.Info("flight recorder opened",
		zap.String("path", path),
		zap.String("flight_id", flightID))
	return r, nil
}

// FlightID 本次飞行的记录编号
func (r *Recorder) FlightID() string {
	if r == nil {
		return ""
	}
	return r.flightID
}

// RecordTelemetry 追加一条遥测帧记录，满载时丢弃
func (r *Recorder) RecordTelemetry(sentence string) {
	if r == nil {
		return
	}
	r.offer(event{kind: eventTelemetry, at: time.Now().UTC(), sentence: sentence})
}

// RecordStatus 追加一条状态码记录，满载时丢弃
func (r *Recorder) RecordStatus(code uint16, info string) {
	if r == nil {
		return
	}
	r.offer(event{kind: eventStatus, at: time.Now().UTC(), code: code, info: info})
}

func (r *Recorder) offer(ev event) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("flight recorder backlog full, event dropped")
	}
}

// Close 停止写入协程、排空积压并关闭数据库
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	close(r.events)
	<-r.done
	return r.db.Close()
}

func (r *Recorder) writer() {
	defer close(r.done)
	for ev := range r.events {
		var err error
		switch ev.kind {
		case eventTelemetry:
			_, err = r.db.Exec(
				"INSERT INTO telemetry (flight_id, at, sentence) VALUES (?, ?, ?)",
				r.flightID, ev.at, ev.sentence)
		case eventStatus:
			_, err = r.db.Exec(
				"INSERT INTO status_events (flight_id, at, code, info) VALUES (?, ?, ?, ?)",
				r.flightID, ev.at, ev.code, ev.info)
		}
		if err != nil {
			r.log.Warn("flight recorder write failed", zap.Error(err))
		}
	}
}
