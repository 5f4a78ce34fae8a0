package opsmetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Snapshot holds point-in-time gauges recomputed from the database before
// each push. Values are authoritative reads, never incremented in place.
type Snapshot struct {
	registry *prometheus.Registry
	log      *zap.Logger

	campaignsByStatus     *prometheus.GaugeVec
	messagesByStatus      *prometheus.GaugeVec
	conversationsTotal    prometheus.Gauge
	conversationsBillable prometheus.Gauge
	ledgerTotalCost       prometheus.Gauge
	memorySys             prometheus.Gauge
}

func NewSnapshot(log *zap.Logger) *Snapshot {
	if log == nil {
		log = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	s := &Snapshot{
		registry: registry,
		log:      log.Named("ops.metrics"),
		campaignsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blastwave_campaigns",
			Help: "Campaigns by status.",
		}, []string{"status"}),
		messagesByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "blastwave_campaign_messages",
			Help: "Campaign messages by status.",
		}, []string{"status"}),
		conversationsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastwave_conversations_total",
			Help: "Conversations opened by campaign sends.",
		}),
		conversationsBillable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastwave_conversations_billable",
			Help: "Billable conversations.",
		}),
		ledgerTotalCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastwave_ledger_total_cost",
			Help: "Sum of ledger entry amounts.",
		}),
		memorySys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blastwave_memory_sys_bytes",
			Help: "Bytes of memory obtained from the OS.",
		}),
	}

	registry.MustRegister(
		s.campaignsByStatus,
		s.messagesByStatus,
		s.conversationsTotal,
		s.conversationsBillable,
		s.ledgerTotalCost,
		s.memorySys,
	)
	return s
}

func (s *Snapshot) Registry() *prometheus.Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Refresh recomputes every gauge from the database. Query errors are
// logged and leave the previous value in place.
func (s *Snapshot) Refresh(ctx context.Context, db *gorm.DB) {
	if s == nil || db == nil {
		return
	}

	type statusCount struct {
		Status string
		Total  int64
	}

	var campaigns []statusCount
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS total FROM campaigns GROUP BY status`,
	).Scan(&campaigns).Error
	if err != nil {
		s.log.Warn("refresh campaign counts failed", zap.Error(err))
	} else {
		s.campaignsByStatus.Reset()
		for _, row := range campaigns {
			s.campaignsByStatus.WithLabelValues(row.Status).Set(float64(row.Total))
		}
	}

	var messages []statusCount
	err = db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS total FROM campaign_messages GROUP BY status`,
	).Scan(&messages).Error
	if err != nil {
		s.log.Warn("refresh message counts failed", zap.Error(err))
	} else {
		s.messagesByStatus.Reset()
		for _, row := range messages {
			s.messagesByStatus.WithLabelValues(row.Status).Set(float64(row.Total))
		}
	}

	var conversations struct {
		Total    int64
		Billable int64
	}
	err = db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS total,
		        COUNT(CASE WHEN billable THEN 1 END) AS billable
		 FROM conversations`,
	).Scan(&conversations).Error
	if err != nil {
		s.log.Warn("refresh conversation counts failed", zap.Error(err))
	} else {
		s.conversationsTotal.Set(float64(conversations.Total))
		s.conversationsBillable.Set(float64(conversations.Billable))
	}

	var totalCost float64
	err = db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries`,
	).Scan(&totalCost).Error
	if err != nil {
		s.log.Warn("refresh ledger total failed", zap.Error(err))
	} else {
		s.ledgerTotalCost.Set(totalCost)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.memorySys.Set(float64(m.Sys))
}
