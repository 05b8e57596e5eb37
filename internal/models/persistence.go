package models

// AdoptionData is the persistence shape of the adoption tracker.
type AdoptionData struct {
	People   []Person                                  `json:"people"`
	Statuses map[string]map[Capability]*AdoptionStatus `json:"statuses"`
}

// StorageV2 is the persistence envelope with an explicit version field.
// V1 files (a bare migrations map without version or adoption data)
// unmarshal with Version zero and are migrated on load.
type StorageV2 struct {
	Version    int                       `json:"version"`
	Migrations map[string]*MigrationData `json:"migrations"`
	Adoption   AdoptionData              `json:"adoption"`
}
