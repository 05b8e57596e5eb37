package journal

import (
	"os"

	json "github.com/goccy/go-json"

	"msd/internal/journal/interfaces"
	"msd/internal/models"
	"msd/internal/providers"
	"msd/internal/services"
)

type FileManager struct {
	service    services.MigrationServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.MigrationServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	storage := f.service.GetSnapshot()

	jsonData, err := json.Marshal(storage)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	// Try current format (versioned envelope)
	var storage models.StorageV2
	if err := json.Unmarshal(decompressedData, &storage); err == nil && storage.Version >= 2 {
		if storage.Migrations == nil {
			storage.Migrations = make(map[string]*models.MigrationData)
		}
		f.service.PutData(storage)
		return nil
	}

	// Try old format v1 (bare migrations map, no adoption data)
	f.logger.Warnf(providers.TypeApp, "Inconsistent DB found, try to migrate from old data format")
	var migrations map[string]*models.MigrationData
	if err := json.Unmarshal(decompressedData, &migrations); err != nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return err
	}
	f.logger.Warnf(providers.TypeApp, "Migration from v1 format successful")
	f.service.PutData(models.StorageV2{Version: 2, Migrations: migrations})

	return nil
}
