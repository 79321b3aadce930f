/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package gorm

import (
	"time"

	"github.com/sabouaram/barsys/index"
	gormdb "gorm.io/gorm"
)

// uuidModel, entityModel, storageModel, entryModel and historyModel are
// the gorm-tagged row shapes backing index.UUID/Entity/Storage/Entry/
// History; the domain package stays free of any gorm import so a
// non-gorm Store implementation remains possible. to/from converters
// translate between the two on every read/write.
type uuidModel struct {
	ID          string `gorm:"primaryKey"`
	JobUUID     string `gorm:"uniqueIndex;not null"`
	Name        string
	Locked      bool
	EntityCount int64
	TotalBytes  int64
	LastRunAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (uuidModel) TableName() string { return "index_uuids" }

type entityModel struct {
	ID           string `gorm:"primaryKey"`
	UUIDID       string `gorm:"index;not null"`
	ScheduleUUID string
	ArchiveType  uint8
	StorageCount int64
	EntryCount   int64
	TotalBytes   int64
	Deleted      bool `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (entityModel) TableName() string { return "index_entities" }

type storageModel struct {
	ID         string `gorm:"primaryKey"`
	EntityID   string `gorm:"index;not null"`
	UUIDID     string `gorm:"index;not null"`
	Name       string `gorm:"index"`
	Size       int64
	State      uint8
	Mode       uint8
	EntryCount int64
	Deleted    bool `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (storageModel) TableName() string { return "index_storages" }

type entryModel struct {
	ID        string `gorm:"primaryKey"`
	StorageID string `gorm:"index;not null"`
	EntityID  string `gorm:"index;not null"`
	UUIDID    string `gorm:"index;not null"`
	Kind      uint8
	Name      string `gorm:"index"`
	Size      int64
	Mtime     time.Time
	Newest    bool `gorm:"index"`
	CreatedAt time.Time
}

func (entryModel) TableName() string { return "index_entries" }

type historyModel struct {
	ID        string `gorm:"primaryKey"`
	UUIDID    string `gorm:"index;not null"`
	EntityID  string `gorm:"index;not null"`
	Outcome   string
	Message   string
	StartedAt time.Time
	EndedAt   time.Time
}

func (historyModel) TableName() string { return "index_histories" }

// migrate creates or updates every table this package owns.
func migrate(db *gormdb.DB) error {
	return db.AutoMigrate(
		&uuidModel{},
		&entityModel{},
		&storageModel{},
		&entryModel{},
		&historyModel{},
	)
}

func (m uuidModel) toDomain() index.UUID {
	return index.UUID{
		ID:          m.ID,
		JobUUID:     m.JobUUID,
		Name:        m.Name,
		Locked:      m.Locked,
		EntityCount: m.EntityCount,
		TotalBytes:  m.TotalBytes,
		LastRunAt:   m.LastRunAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (m entityModel) toDomain() index.Entity {
	return index.Entity{
		ID:           m.ID,
		UUIDID:       m.UUIDID,
		ScheduleUUID: m.ScheduleUUID,
		ArchiveType:  index.ArchiveType(m.ArchiveType),
		StorageCount: m.StorageCount,
		EntryCount:   m.EntryCount,
		TotalBytes:   m.TotalBytes,
		Deleted:      m.Deleted,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m storageModel) toDomain() index.Storage {
	return index.Storage{
		ID:         m.ID,
		EntityID:   m.EntityID,
		UUIDID:     m.UUIDID,
		Name:       m.Name,
		Size:       m.Size,
		State:      index.StorageState(m.State),
		Mode:       index.StorageMode(m.Mode),
		EntryCount: m.EntryCount,
		Deleted:    m.Deleted,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (m entryModel) toDomain() index.Entry {
	return index.Entry{
		ID:        m.ID,
		StorageID: m.StorageID,
		EntityID:  m.EntityID,
		UUIDID:    m.UUIDID,
		Kind:      index.EntryKind(m.Kind),
		Name:      m.Name,
		Size:      m.Size,
		Mtime:     m.Mtime,
		Newest:    m.Newest,
		CreatedAt: m.CreatedAt,
	}
}

func (m historyModel) toDomain() index.History {
	return index.History{
		ID:        m.ID,
		UUIDID:    m.UUIDID,
		EntityID:  m.EntityID,
		Outcome:   m.Outcome,
		Message:   m.Message,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
}
