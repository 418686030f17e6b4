package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	instrument  interfaces.InstrumentStorage
	series      interfaces.SeriesStorage
	quarterly   interfaces.QuarterlyStorage
	publication interfaces.PublicationStorage
	metric      interfaces.MetricStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		instrument:  NewInstrumentStorage(db, logger),
		series:      NewSeriesStorage(db, logger),
		quarterly:   NewQuarterlyStorage(db, logger),
		publication: NewPublicationStorage(db, logger),
		metric:      NewMetricStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// InstrumentStorage returns the Instrument storage interface
func (m *Manager) InstrumentStorage() interfaces.InstrumentStorage {
	return m.instrument
}

// SeriesStorage returns the Series storage interface
func (m *Manager) SeriesStorage() interfaces.SeriesStorage {
	return m.series
}

// QuarterlyStorage returns the Quarterly storage interface
func (m *Manager) QuarterlyStorage() interfaces.QuarterlyStorage {
	return m.quarterly
}

// PublicationStorage returns the Publication storage interface
func (m *Manager) PublicationStorage() interfaces.PublicationStorage {
	return m.publication
}

// MetricStorage returns the Metric storage interface
func (m *Manager) MetricStorage() interfaces.MetricStorage {
	return m.metric
}

// RunGC runs a value-log garbage collection cycle
func (m *Manager) RunGC() error {
	return m.db.RunGC()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
