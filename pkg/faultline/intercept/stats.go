// stats.go derives error statistics from the Logger's history.

package intercept

import "github.com/strongdm/faultline/pkg/faultline"

// recentLimit is how many entries Statistics.RecentErrors keeps.
const recentLimit = 10

// Statistics summarizes ERROR and FATAL entries in the log history.
type Statistics struct {
	TotalErrors   int               `json:"totalErrors"`
	ErrorsByLevel map[string]int    `json:"errorsByLevel"`
	RecentErrors  []faultline.Entry `json:"recentErrors"`
}

// Statistics is recomputed from the Logger's history on every call.
func (i *Interceptor) Statistics() Statistics {
	return ComputeStatistics(i.logger.Logs())
}

// ComputeStatistics aggregates entries, oldest first. RecentErrors holds the
// last ten errors in the same order.
func ComputeStatistics(entries []faultline.Entry) Statistics {
	stats := Statistics{
		ErrorsByLevel: map[string]int{},
		RecentErrors:  []faultline.Entry{},
	}
	for _, e := range entries {
		if e.Level > faultline.SeverityError {
			continue
		}
		stats.TotalErrors++
		stats.ErrorsByLevel[e.Level.String()]++
		stats.RecentErrors = append(stats.RecentErrors, e)
	}
	if n := len(stats.RecentErrors); n > recentLimit {
		stats.RecentErrors = stats.RecentErrors[n-recentLimit:]
	}
	return stats
}

// ErrorStatistics is the package-level form of Interceptor.Statistics.
func ErrorStatistics() Statistics {
	return current().Statistics()
}
