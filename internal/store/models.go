package store

import (
	"database/sql"
	"time"

	"eventbot/internal/domain"
)

// flagColumns maps each lead time to its events-table column, in the order
// used by every SELECT and UPDATE. Stored 1 = armed, 0 = resolved.
var flagColumns = []struct {
	lead domain.LeadTime
	col  string
}{
	{domain.Lead7Days, "remind_7d"},
	{domain.Lead3Days, "remind_3d"},
	{domain.Lead2Days, "remind_2d"},
	{domain.Lead1Day, "remind_1d"},
	{domain.Lead6Hours, "remind_6h"},
	{domain.Lead2Hours, "remind_2h"},
	{domain.Lead1Hour, "remind_1h"},
	{domain.Lead45Min, "remind_45m"},
	{domain.Lead30Min, "remind_30m"},
	{domain.Lead15Min, "remind_15m"},
}

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flagToInt(s domain.FlagState) int {
	if s == domain.Armed {
		return 1
	}
	return 0
}

func intToFlag(v int) domain.FlagState {
	if v != 0 {
		return domain.Armed
	}
	return domain.Resolved
}
