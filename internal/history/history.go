// Package history keeps a local record of every scan and probe capture in
// <data_dir>/history.db so earlier surveys can be compared without the board.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/D3h420/janos-app/internal/janos"
)

// DBFileName is the history database file under the data dir.
const DBFileName = "history.db"

// ScanRecord is one scan_networks run.
type ScanRecord struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	SessionID    string        `gorm:"index" json:"session_id"`
	Device       string        `gorm:"index" json:"device"`
	StartedAt    time.Time     `gorm:"index" json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Completed    bool          `json:"completed"`
	NetworkCount int           `json:"network_count"`

	Networks []NetworkRecord `gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE" json:"networks,omitempty"`
}

// NetworkRecord is one access point seen by a scan.
type NetworkRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ScanID   uint   `gorm:"index" json:"scan_id"`
	Position int    `json:"position"` // index printed by the firmware
	SSID     string `json:"ssid"`
	Vendor   string `json:"vendor"`
	BSSID    string `gorm:"index" json:"bssid"`
	Channel  string `json:"channel"`
	Auth     string `json:"auth"`
	RSSI     int    `json:"rssi"`
	Band     string `json:"band"`
}

// ProbeRecord is one probe request from show_probes.
type ProbeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"index" json:"session_id"`
	Device     string    `json:"device"`
	CapturedAt time.Time `gorm:"index" json:"captured_at"`
	MAC        string    `gorm:"index" json:"mac"`
	SSID       string    `json:"ssid"`
	RSSI       string    `json:"rssi"`
	Timestamp  string    `json:"timestamp"`
}

// Store is the history database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty history path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir history dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.AutoMigrate(&ScanRecord{}, &NetworkRecord{}, &ProbeRecord{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInDataDir opens <dataDir>/history.db.
func OpenInDataDir(dataDir string) (*Store, error) {
	return Open(filepath.Join(dataDir, DBFileName))
}

// Close releases the database handle.
func (s *Store) Close() error {
	return closeDB(s.db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordScan stores a scan and its networks in one transaction.
func (s *Store) RecordScan(ctx context.Context, sessionID, device string, started time.Time,
	duration time.Duration, completed bool, networks []janos.Network) (*ScanRecord, error) {
	rec := &ScanRecord{
		SessionID:    sessionID,
		Device:       device,
		StartedAt:    started,
		Duration:     duration,
		Completed:    completed,
		NetworkCount: len(networks),
	}
	for _, n := range networks {
		rec.Networks = append(rec.Networks, networkRecord(n))
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}
	return rec, nil
}

func networkRecord(n janos.Network) NetworkRecord {
	pos, _ := strconv.Atoi(strings.TrimSpace(n.Index))
	rssi, _ := janos.ParseRSSI(n.RSSI)
	return NetworkRecord{
		Position: pos,
		SSID:     n.SSID,
		Vendor:   n.Vendor,
		BSSID:    n.BSSID,
		Channel:  n.Channel,
		Auth:     n.Auth,
		RSSI:     rssi,
		Band:     n.Band,
	}
}

// RecordProbes stores a batch of probe requests captured at the same time.
func (s *Store) RecordProbes(ctx context.Context, sessionID, device string, captured time.Time, probes []janos.Probe) error {
	if len(probes) == 0 {
		return nil
	}
	recs := make([]ProbeRecord, len(probes))
	for i, p := range probes {
		recs[i] = ProbeRecord{
			SessionID:  sessionID,
			Device:     device,
			CapturedAt: captured,
			MAC:        p.MAC,
			SSID:       p.SSID,
			RSSI:       p.RSSI,
			Timestamp:  p.Timestamp,
		}
	}
	if err := s.db.WithContext(ctx).Create(&recs).Error; err != nil {
		return fmt.Errorf("record probes: %w", err)
	}
	return nil
}

// RecentScans returns the newest scans first, without their networks.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	var scans []ScanRecord
	q := s.db.WithContext(ctx).Order("started_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}

// Networks returns the networks of one scan in index order.
func (s *Store) Networks(ctx context.Context, scanID uint) ([]NetworkRecord, error) {
	var nets []NetworkRecord
	if err := s.db.WithContext(ctx).Where("scan_id = ?", scanID).Order("position asc, id asc").Find(&nets).Error; err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	return nets, nil
}

// Probes returns the newest probe records first.
func (s *Store) Probes(ctx context.Context, limit int) ([]ProbeRecord, error) {
	var probes []ProbeRecord
	q := s.db.WithContext(ctx).Order("captured_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&probes).Error; err != nil {
		return nil, fmt.Errorf("list probes: %w", err)
	}
	return probes, nil
}

// Prune deletes scans, their networks and probes recorded before cutoff.
// It returns the number of scans and probes removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (scans, probes int64, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&ScanRecord{}).Select("id").Where("started_at < ?", cutoff)
		if err := tx.Where("scan_id IN (?)", old).Delete(&NetworkRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("started_at < ?", cutoff).Delete(&ScanRecord{})
		if res.Error != nil {
			return res.Error
		}
		scans = res.RowsAffected

		res = tx.Where("captured_at < ?", cutoff).Delete(&ProbeRecord{})
		if res.Error != nil {
			return res.Error
		}
		probes = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("prune history: %w", err)
	}
	return scans, probes, nil
}

// PruneDataDir applies a retention period to the history in dataDir. A zero
// retention keeps everything and a missing database is left alone.
func PruneDataDir(ctx context.Context, dataDir string, retention time.Duration) (scans, probes int64, err error) {
	if retention <= 0 {
		return 0, 0, nil
	}
	path := filepath.Join(dataDir, DBFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	s, err := Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer s.Close()
	return s.Prune(ctx, time.Now().Add(-retention))
}
