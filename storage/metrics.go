package storage

import (
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus.Collector exposing both the underlying pebble
// engine's own statistics (compaction, memtable, WAL) and counters for the
// revision-tree operations a Store performs on top of it. A Store's
// Metrics() is meant to be registered with the caller's own registry.
type Metrics struct {
	db *pebble.DB

	compactionCount         *prometheus.Desc
	compactionDefaultCount  *prometheus.Desc
	compactionElisionOnly   *prometheus.Desc
	compactionMove          *prometheus.Desc
	compactionRead          *prometheus.Desc
	compactionRewrite       *prometheus.Desc
	compactionMultiLevel    *prometheus.Desc
	compactionEstimatedDebt *prometheus.Desc
	compactionInProgress    *prometheus.Desc
	compactionMarkedFiles   *prometheus.Desc

	memtableSize        *prometheus.Desc
	memtableCount       *prometheus.Desc
	memtableZombieSize  *prometheus.Desc
	memtableZombieCount *prometheus.Desc

	walFiles         *prometheus.Desc
	walObsoleteFiles *prometheus.Desc
	walSize          *prometheus.Desc
	walBytesIn       *prometheus.Desc
	walBytesWritten  *prometheus.Desc

	inserts      *prometheus.CounterVec
	conflicts    prometheus.Counter
	prunedRevs   prometheus.Counter
	purgedRevs   prometheus.Counter
	compressions prometheus.Counter
}

func NewMetrics(db *pebble.DB) *Metrics {
	return &Metrics{
		db: db,

		compactionCount: prometheus.NewDesc(
			"revtree_pebble_compaction_count_total",
			"Total number of compactions performed",
			nil, nil,
		),
		compactionDefaultCount: prometheus.NewDesc(
			"revtree_pebble_compaction_default_count_total",
			"Total number of default compactions performed",
			nil, nil,
		),
		compactionElisionOnly: prometheus.NewDesc(
			"revtree_pebble_compaction_elision_only_total",
			"Total number of elision-only compactions performed",
			nil, nil,
		),
		compactionMove: prometheus.NewDesc(
			"revtree_pebble_compaction_move_total",
			"Total number of move compactions performed",
			nil, nil,
		),
		compactionRead: prometheus.NewDesc(
			"revtree_pebble_compaction_read_total",
			"Total number of read compactions performed",
			nil, nil,
		),
		compactionRewrite: prometheus.NewDesc(
			"revtree_pebble_compaction_rewrite_total",
			"Total number of rewrite compactions performed",
			nil, nil,
		),
		compactionMultiLevel: prometheus.NewDesc(
			"revtree_pebble_compaction_multilevel_total",
			"Total number of multi-level compactions performed",
			nil, nil,
		),
		compactionEstimatedDebt: prometheus.NewDesc(
			"revtree_pebble_compaction_estimated_debt_bytes",
			"Estimated number of bytes that need to be compacted to reach a stable state",
			nil, nil,
		),
		compactionInProgress: prometheus.NewDesc(
			"revtree_pebble_compaction_in_progress_bytes",
			"Number of bytes being compacted currently",
			nil, nil,
		),
		compactionMarkedFiles: prometheus.NewDesc(
			"revtree_pebble_compaction_marked_files_total",
			"Number of files marked for compaction",
			nil, nil,
		),

		memtableSize: prometheus.NewDesc(
			"revtree_pebble_memtable_size_bytes",
			"Current size of the memtable in bytes",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"revtree_pebble_memtable_count_total",
			"Current count of memtables",
			nil, nil,
		),
		memtableZombieSize: prometheus.NewDesc(
			"revtree_pebble_memtable_zombie_size_bytes",
			"Size of zombie memtables in bytes",
			nil, nil,
		),
		memtableZombieCount: prometheus.NewDesc(
			"revtree_pebble_memtable_zombie_count_total",
			"Count of zombie memtables",
			nil, nil,
		),

		walFiles: prometheus.NewDesc(
			"revtree_pebble_wal_files_total",
			"Number of live WAL files",
			nil, nil,
		),
		walObsoleteFiles: prometheus.NewDesc(
			"revtree_pebble_wal_obsolete_files_total",
			"Number of obsolete WAL files",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"revtree_pebble_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, nil,
		),
		walBytesIn: prometheus.NewDesc(
			"revtree_pebble_wal_bytes_in_total",
			"Total logical bytes written to the WAL",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"revtree_pebble_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, nil,
		),

		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "revtree_inserts_total",
			Help: "Total number of revision insert attempts, by resulting HTTP-style status code",
		}, []string{"status"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revtree_conflicts_total",
			Help: "Total number of inserts rejected or branched due to a conflict",
		}),
		prunedRevs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revtree_pruned_revisions_total",
			Help: "Total number of revisions removed by Prune",
		}),
		purgedRevs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revtree_purged_revisions_total",
			Help: "Total number of revisions removed by Purge",
		}),
		compressions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "revtree_compressions_total",
			Help: "Total number of revisions successfully delta-compressed",
		}),
	}
}

// ObserveInsert records an Insert/InsertByParentID outcome.
// status is the returned HTTP-style status code (201, 200, 409, 400...).
func (m *Metrics) ObserveInsert(status int) {
	m.inserts.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveConflict records an insert that hit a conflict.
func (m *Metrics) ObserveConflict() { m.conflicts.Inc() }

// ObservePrune records n revisions removed by a Prune call.
func (m *Metrics) ObservePrune(n int) { m.prunedRevs.Add(float64(n)) }

// ObservePurge records n revisions removed by a Purge call.
func (m *Metrics) ObservePurge(n int) { m.purgedRevs.Add(float64(n)) }

// ObserveCompression records a successful Compress call.
func (m *Metrics) ObserveCompression() { m.compressions.Inc() }

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.compactionCount
	ch <- m.compactionDefaultCount
	ch <- m.compactionElisionOnly
	ch <- m.compactionMove
	ch <- m.compactionRead
	ch <- m.compactionRewrite
	ch <- m.compactionMultiLevel
	ch <- m.compactionEstimatedDebt
	ch <- m.compactionInProgress
	ch <- m.compactionMarkedFiles

	ch <- m.memtableSize
	ch <- m.memtableCount
	ch <- m.memtableZombieSize
	ch <- m.memtableZombieCount

	ch <- m.walFiles
	ch <- m.walObsoleteFiles
	ch <- m.walSize
	ch <- m.walBytesIn
	ch <- m.walBytesWritten

	m.inserts.Describe(ch)
	ch <- m.conflicts.Desc()
	ch <- m.prunedRevs.Desc()
	ch <- m.purgedRevs.Desc()
	ch <- m.compressions.Desc()
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	s := m.db.Metrics()

	ch <- prometheus.MustNewConstMetric(m.compactionCount, prometheus.CounterValue, float64(s.Compact.Count))
	ch <- prometheus.MustNewConstMetric(m.compactionDefaultCount, prometheus.CounterValue, float64(s.Compact.DefaultCount))
	ch <- prometheus.MustNewConstMetric(m.compactionElisionOnly, prometheus.CounterValue, float64(s.Compact.ElisionOnlyCount))
	ch <- prometheus.MustNewConstMetric(m.compactionMove, prometheus.CounterValue, float64(s.Compact.MoveCount))
	ch <- prometheus.MustNewConstMetric(m.compactionRead, prometheus.CounterValue, float64(s.Compact.ReadCount))
	ch <- prometheus.MustNewConstMetric(m.compactionRewrite, prometheus.CounterValue, float64(s.Compact.RewriteCount))
	ch <- prometheus.MustNewConstMetric(m.compactionMultiLevel, prometheus.CounterValue, float64(s.Compact.MultiLevelCount))
	ch <- prometheus.MustNewConstMetric(m.compactionEstimatedDebt, prometheus.GaugeValue, float64(s.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(m.compactionInProgress, prometheus.GaugeValue, float64(s.Compact.InProgressBytes))
	ch <- prometheus.MustNewConstMetric(m.compactionMarkedFiles, prometheus.GaugeValue, float64(s.Compact.MarkedFiles))

	ch <- prometheus.MustNewConstMetric(m.memtableSize, prometheus.GaugeValue, float64(s.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(m.memtableCount, prometheus.GaugeValue, float64(s.MemTable.Count))
	ch <- prometheus.MustNewConstMetric(m.memtableZombieSize, prometheus.GaugeValue, float64(s.MemTable.ZombieSize))
	ch <- prometheus.MustNewConstMetric(m.memtableZombieCount, prometheus.GaugeValue, float64(s.MemTable.ZombieCount))

	ch <- prometheus.MustNewConstMetric(m.walFiles, prometheus.GaugeValue, float64(s.WAL.Files))
	ch <- prometheus.MustNewConstMetric(m.walObsoleteFiles, prometheus.GaugeValue, float64(s.WAL.ObsoleteFiles))
	ch <- prometheus.MustNewConstMetric(m.walSize, prometheus.GaugeValue, float64(s.WAL.Size))
	ch <- prometheus.MustNewConstMetric(m.walBytesIn, prometheus.CounterValue, float64(s.WAL.BytesIn))
	ch <- prometheus.MustNewConstMetric(m.walBytesWritten, prometheus.CounterValue, float64(s.WAL.BytesWritten))

	m.inserts.Collect(ch)
	ch <- m.conflicts
	ch <- m.prunedRevs
	ch <- m.purgedRevs
	ch <- m.compressions
}
