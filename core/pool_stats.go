package core

import (
	"encoding/json"
	"fmt"
)

// PoolStats reports hit-rate statistics for the pools an Engine keeps
// warm across requests: the pooled Context values it hands to handlers.
// Request pooling and read-buffer pooling live in core/http and
// core/pools respectively and are not tracked here since neither carries
// per-instance statistics worth surfacing separately.
type PoolStats struct {
	Context SmartPoolStats `json:"context"`
}

type SmartPoolStats struct {
	Gets    uint64  `json:"gets"`
	Puts    uint64  `json:"puts"`
	HitRate float64 `json:"hit_rate"`
}

// GetPoolStats returns statistics for the engine's memory pools.
func (e *Engine) GetPoolStats() PoolStats {
	ctxStats := e.contextPool.Stats()
	return PoolStats{
		Context: SmartPoolStats{
			Gets:    ctxStats.Gets,
			Puts:    ctxStats.Puts,
			HitRate: ctxStats.HitRate,
		},
	}
}

// GetPoolStatsJSON returns pool statistics as a JSON string.
func (e *Engine) GetPoolStatsJSON() string {
	data, _ := json.MarshalIndent(e.GetPoolStats(), "", "  ")
	return string(data)
}

// GetPoolStatsText returns pool statistics as human-readable text.
func (e *Engine) GetPoolStatsText() string {
	stats := e.GetPoolStats()
	return fmt.Sprintf(`Memory Pool Statistics
======================

Context Pool:
  Gets:     %d
  Puts:     %d
  Hit Rate: %.2f%%
`,
		stats.Context.Gets, stats.Context.Puts, stats.Context.HitRate*100,
	)
}
