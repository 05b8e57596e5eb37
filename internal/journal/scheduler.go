package journal

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"msd/internal/journal/interfaces"
	"msd/internal/providers"
	"msd/internal/services"
	"msd/internal/structures"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	reports     services.ReportServiceInterface
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	interval := s.config.Persistence.SaveInterval
	dayCloseInterval := s.config.Migration.DayCloseInterval
	if dayCloseInterval <= 0 {
		dayCloseInterval = time.Hour
	}

	s.cron.AddFunc(gron.Every(interval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
		s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
	})

	s.cron.AddFunc(gron.Every(dayCloseInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		m, err := s.reports.CloseCurrentDay()
		if err != nil {
			s.logger.Debugf(providers.TypeApp, "No day to close: %s", err)
			return
		}
		s.logger.Infof(providers.TypeApp, "Closed day %d at %.0f%%", m.DayIndex, m.PercentComplete)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
	if err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting migration state to file...")
	start := time.Now()
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, reports services.ReportServiceInterface, fileManager *FileManager, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		reports:     reports,
		fileManager: fileManager,
		metrics:     metrics,
	}
}
