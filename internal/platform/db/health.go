package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is a JSON view of pgxpool.Stat.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// SchemaState counts applied and pending migrations.
type SchemaState struct {
	Applied int  `json:"applied"`
	Pending int  `json:"pending"`
	Current bool `json:"current"`
}

func NewSchemaState(statuses []MigrationStatus) SchemaState {
	var s SchemaState
	for _, st := range statuses {
		if st.Applied {
			s.Applied++
		} else {
			s.Pending++
		}
	}
	s.Current = s.Pending == 0
	return s
}

// HealthHandler reports database reachability and whether the run schema is
// migrated. A nil pool means persistence is disabled.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if pool == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"status":   "healthy",
				"database": "disabled",
			})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   GetPoolStats(pool),
			})
		}

		body := map[string]interface{}{
			"status": "healthy",
			"pool":   GetPoolStats(pool),
		}
		statuses, err := NewMigrator(pool, Migrations()).Status(ctx)
		if err != nil {
			body["schema_error"] = err.Error()
		} else {
			schema := NewSchemaState(statuses)
			body["schema"] = schema
			if !schema.Current {
				body["status"] = "degraded"
			}
		}
		return c.JSON(http.StatusOK, body)
	}
}
