package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrors counts failed queries by operation.
	DatabaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_database_errors_total",
		Help: "Total number of failed database queries",
	}, []string{"operation"})

	// FeedRequests counts rendered feed pages by feed kind.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_feed_requests_total",
		Help: "Feed pages assembled, by feed kind",
	}, []string{"feed"})

	// PostsWritten counts post mutations by action (create, update, delete).
	PostsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_posts_written_total",
		Help: "Post mutations by action",
	}, []string{"action"})

	// CommentsCreated counts stored comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_comments_created_total",
		Help: "Total number of comments created",
	})

	// FollowChanges counts follow graph mutations by action (follow, unfollow, rejected).
	FollowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_follow_changes_total",
		Help: "Follow graph mutations by action",
	}, []string{"action"})

	// CacheLookups counts read-through cache lookups by keyspace and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_cache_lookups_total",
		Help: "Read-through cache lookups by keyspace and result",
	}, []string{"keyspace", "result"})
)

// ObserveQuery records the latency of one SQL statement.
func ObserveQuery(sql string, elapsed time.Duration, err error) {
	op, table := sqlOperation(sql)
	DatabaseQueryLatency.WithLabelValues(op, table).Observe(elapsed.Seconds())
	if err != nil {
		DatabaseErrors.WithLabelValues(op).Inc()
	}
}

// sqlOperation extracts a coarse operation and table from a statement,
// keeping label cardinality bounded.
func sqlOperation(sql string) (string, string) {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown", "unknown"
	}

	op := strings.ToLower(fields[0])
	var marker string
	switch op {
	case "select", "delete":
		marker = "from"
	case "insert":
		marker = "into"
	case "update":
		return op, cleanTable(fieldAt(fields, 1))
	default:
		return "other", "unknown"
	}

	for i, f := range fields {
		if strings.EqualFold(f, marker) {
			return op, cleanTable(fieldAt(fields, i+1))
		}
	}
	return op, "unknown"
}

func fieldAt(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func cleanTable(name string) string {
	name = strings.Trim(name, "\"`();,")
	if name == "" || strings.HasPrefix(name, "(") {
		return "unknown"
	}
	return strings.ToLower(name)
}
