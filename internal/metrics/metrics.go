package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub Metrics
var (
	// HubPublishedTotal tracks values published per hub
	HubPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_published_total",
			Help: "Total values published by hub",
		},
		[]string{"hub"},
	)

	// HubConsumerPanicsTotal tracks consumer invocations that panicked
	HubConsumerPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_consumer_panics_total",
			Help: "Total consumer panics recovered by hub",
		},
		[]string{"hub"},
	)

	// HubReentrantPublishesTotal tracks rejected reentrant publishes
	HubReentrantPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_reentrant_publishes_total",
			Help: "Total publishes rejected because a consumer published on its own hub",
		},
		[]string{"hub"},
	)
)

// Clock Sync Metrics
var (
	// ClockSyncUpdatesTotal tracks wall-clock updates by result
	ClockSyncUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clock_sync_updates_total",
			Help: "System time messages handled by result (applied/throttled/decode_error/set_error)",
		},
		[]string{"result"},
	)

	// ClockSyncLastUpdate tracks the unix time of the last applied update
	ClockSyncLastUpdate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clock_sync_last_update_timestamp_seconds",
			Help: "Unix timestamp applied by the last successful clock update",
		},
	)
)

// Connection Metrics
var (
	// ConnectionsCurrent tracks live TCP client connections
	ConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connections_current",
			Help: "Current number of live TCP client connections",
		},
	)

	// ConnectionsAcceptedTotal tracks accepted client connections
	ConnectionsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connections_accepted_total",
			Help: "Total TCP client connections promoted to the live set",
		},
	)

	// ConnectionsRemovedTotal tracks removed connections by reason
	ConnectionsRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connections_removed_total",
			Help: "Total TCP client connections removed by reason (closed/kicked/write_failed/shutdown)",
		},
		[]string{"reason"},
	)

	// ConnectionsRejectedTotal tracks connections refused before entering the live set
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connections_rejected_total",
			Help: "Total TCP client connections rejected by reason (rate_limit)",
		},
		[]string{"reason"},
	)

	// ConnectionsDeferredTotal tracks accept attempts skipped at capacity
	ConnectionsDeferredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connections_deferred_total",
			Help: "Total accept passes skipped because the live set was at capacity",
		},
	)

	// ConnectionCapacity tracks live set utilization as percentage
	ConnectionCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connection_capacity_percent",
			Help: "Current live set utilization (0-100%)",
		},
	)

	// ConnectionDuration tracks how long clients stayed connected
	ConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "connection_duration_seconds",
			Help:    "TCP client connection duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)
)

// Broadcast Metrics
var (
	// BroadcastLinesTotal tracks lines fanned out by format
	BroadcastLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_lines_total",
			Help: "Total lines broadcast by format (seasmart/nmea0183)",
		},
		[]string{"format"},
	)

	// BroadcastWritesTotal tracks per-client writes by result
	BroadcastWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_writes_total",
			Help: "Total per-client line writes by result (queued/failed)",
		},
		[]string{"result"},
	)

	// EncoderSkippedTotal tracks messages an encoder produced no output for
	EncoderSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encoder_skipped_total",
			Help: "Total messages an encoder produced no line for, by format",
		},
		[]string{"format"},
	)

	// ClientWriteDuration tracks socket write latency
	ClientWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "client_write_duration_seconds",
			Help:    "TCP client line write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)
)

// Bus Metrics
var (
	// BusFramesTotal tracks CAN frames read from the bus source
	BusFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_frames_total",
			Help: "Total CAN frames read from the bus source",
		},
	)

	// BusMessagesTotal tracks decoded messages by outcome
	BusMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_messages_total",
			Help: "Total decoded NMEA 2000 messages by outcome (queued/filtered/dropped)",
		},
		[]string{"outcome"},
	)

	// BusParseErrorsTotal tracks unreadable source lines
	BusParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_parse_errors_total",
			Help: "Total bus source lines that could not be parsed as CAN frames",
		},
	)

	// BusFastPacketErrorsTotal tracks discarded fast-packet sequences
	BusFastPacketErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_fast_packet_errors_total",
			Help: "Total fast-packet sequences discarded (out of order or incomplete)",
		},
	)

	// BusFramesSentTotal tracks frames written to the bus sink
	BusFramesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bus_frames_sent_total",
			Help: "Total CAN frames written to the bus sink",
		},
	)
)

// Scheduler Metrics
var (
	// SchedulerTickDuration tracks gateway pass duration
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Gateway loop pass duration in seconds",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// SchedulerSlowTicksTotal tracks passes that exceeded the tick interval
	SchedulerSlowTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_slow_ticks_total",
			Help: "Gateway loop passes that took longer than the tick interval",
		},
	)

	// SchedulerPanicsTotal tracks gateway loop panic recoveries
	SchedulerPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_panics_total",
			Help: "Total gateway loop panic recoveries",
		},
	)

	// SchedulerCommandChannelDepth tracks pending admin commands
	SchedulerCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_command_channel_depth",
			Help: "Current command channel depth",
		},
	)
)

// Relay Metrics
var (
	// RelayPublishedTotal tracks Redis relay publishes by status
	RelayPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_published_total",
			Help: "Total sentences relayed to Redis by status (success/error/circuit_open)",
		},
		[]string{"status"},
	)

	// RelayDroppedTotal tracks sentences dropped because the relay queue was full
	RelayDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_dropped_total",
			Help: "Total sentences dropped because the relay queue was full",
		},
	)

	// RedisOpsTotal tracks Redis commands issued by the relay
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis command latency
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed dials to Redis
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks breaker transitions by component and new state
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
