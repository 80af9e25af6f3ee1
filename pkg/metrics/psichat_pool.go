package metrics

import (
	"database/sql"
	"time"
)

// PoolHealthStatus indicates the health of a connection pool.
type PoolHealthStatus string

const (
	PoolHealthy   PoolHealthStatus = "healthy"
	PoolDegraded  PoolHealthStatus = "degraded"
	PoolUnhealthy PoolHealthStatus = "unhealthy"
)

// PoolHealth is the readiness view of a database pool.
type PoolHealth struct {
	Status          PoolHealthStatus `json:"status"`
	OpenConnections int              `json:"open_connections"`
	InUse           int              `json:"in_use"`
	Utilization     float64          `json:"utilization"`
	WaitCount       int64            `json:"wait_count"`
	Message         string           `json:"message,omitempty"`
}

// AssessPool grades a pool from its sql.DBStats.
func AssessPool(stats sql.DBStats) PoolHealth {
	h := PoolHealth{
		Status:          PoolHealthy,
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		WaitCount:       stats.WaitCount,
		Message:         "pool operating normally",
	}
	if stats.MaxOpenConnections > 0 {
		h.Utilization = float64(stats.InUse) / float64(stats.MaxOpenConnections)
	}

	switch {
	case h.Utilization >= 0.95:
		h.Status, h.Message = PoolUnhealthy, "pool nearly exhausted"
	case h.Utilization >= 0.80:
		h.Status, h.Message = PoolDegraded, "high pool utilization"
	case stats.WaitCount > 0 && stats.WaitDuration > 5*time.Second:
		h.Status, h.Message = PoolDegraded, "elevated connection wait times"
	}
	return h
}

// DBPoolHealth grades a live pool. A nil db reports unhealthy.
func DBPoolHealth(db *sql.DB) PoolHealth {
	if db == nil {
		return PoolHealth{Status: PoolUnhealthy, Message: "not configured"}
	}
	return AssessPool(db.Stats())
}
