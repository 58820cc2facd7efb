package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/BOSS-tools/boplot/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&BoplotInfo{},
	&SharedBuild{},
}

// BoplotInfo records the schema version of a database.
type BoplotInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	CreatedBy     string `json:"createdBy" gorm:"size:127"`
}

func (*BoplotInfo) TableName() string {
	return "boplot_infos"
}

// SharedBuild is a configuration string saved for a share link, with the
// engine export that was generated from it.
type SharedBuild struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Config    string         `json:"config" gorm:"type:text;not null"`
	Export    datatypes.JSON `json:"export"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index:idx_shared_builds_created_at"`
}

func (*SharedBuild) TableName() string {
	return "shared_builds"
}

// SharedBuildFromCore converts the domain type to its row.
func SharedBuildFromCore(b *core.SharedBuild) SharedBuild {
	return SharedBuild{
		ID:        b.ID,
		Config:    b.Config,
		Export:    datatypes.JSON(b.Export),
		CreatedAt: b.CreatedAt,
	}
}

// ToCore converts the row back to the domain type.
func (s SharedBuild) ToCore() core.SharedBuild {
	var export json.RawMessage
	if len(s.Export) > 0 {
		export = json.RawMessage(s.Export)
	}
	return core.SharedBuild{
		ID:        s.ID,
		Config:    s.Config,
		Export:    export,
		CreatedAt: s.CreatedAt,
	}
}
