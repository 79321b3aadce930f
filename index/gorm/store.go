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
	"errors"
	"time"

	liberr "github.com/sabouaram/barsys/errors"
	"github.com/sabouaram/barsys/index"
	gormdb "gorm.io/gorm"
)

// store is the sole index.Store implementation, backed by gorm.
type store struct {
	db *gormdb.DB
}

// New opens cfg's connection, migrates the catalogue schema, and
// returns a ready-to-use Store.
func New(cfg *Config) (index.Store, liberr.Error) {
	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	db, e := cfg.open()
	if e != nil {
		return nil, e
	}

	if err := migrate(db); err != nil {
		return nil, ErrorMigrate.Error(err)
	}

	return &store{db: db}, nil
}

func newID() (string, liberr.Error) {
	id, err := index.NewID()
	if err != nil {
		return "", ErrorGenerateID.Error(err)
	}
	return id, nil
}

func (s *store) Close() liberr.Error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return ErrorDatabaseOpen.Error(err)
	}
	if err = sqlDB.Close(); err != nil {
		return ErrorDatabaseOpen.Error(err)
	}
	return nil
}

func (s *store) FindUUID(jobUUID string) (index.UUID, bool, liberr.Error) {
	var m uuidModel

	err := s.db.Where("job_uuid = ?", jobUUID).First(&m).Error
	if errors.Is(err, gormdb.ErrRecordNotFound) {
		return index.UUID{}, false, nil
	} else if err != nil {
		return index.UUID{}, false, ErrorNotFound.Error(err)
	}

	return m.toDomain(), true, nil
}

func (s *store) FindUUIDWithStats(jobUUID string) (index.UUID, bool, liberr.Error) {
	return s.FindUUID(jobUUID)
}

func (s *store) NewUUID(jobUUID, name string) (index.UUID, liberr.Error) {
	id, e := newID()
	if e != nil {
		return index.UUID{}, e
	}

	now := time.Now()
	m := uuidModel{
		ID:        id,
		JobUUID:   jobUUID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Create(&m).Error; err != nil {
		return index.UUID{}, ErrorTransaction.Error(err)
	}

	return m.toDomain(), nil
}

func (s *store) NewEntity(uuidID, scheduleUUID string, archiveType index.ArchiveType) (index.Entity, liberr.Error) {
	id, e := newID()
	if e != nil {
		return index.Entity{}, e
	}

	now := time.Now()
	m := entityModel{
		ID:           id,
		UUIDID:       uuidID,
		ScheduleUUID: scheduleUUID,
		ArchiveType:  uint8(archiveType),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.Transaction(func(tx *gormdb.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return tx.Model(&uuidModel{}).Where("id = ?", uuidID).
			Updates(map[string]interface{}{"locked": true, "last_run_at": now}).Error
	})
	if err != nil {
		return index.Entity{}, ErrorTransaction.Error(err)
	}

	return m.toDomain(), nil
}

func (s *store) NewStorage(entityID, name string, mode index.StorageMode) (index.Storage, liberr.Error) {
	var ent entityModel
	if err := s.db.First(&ent, "id = ?", entityID).Error; err != nil {
		return index.Storage{}, ErrorNotFound.Error(err)
	}

	id, e := newID()
	if e != nil {
		return index.Storage{}, e
	}

	now := time.Now()
	m := storageModel{
		ID:        id,
		EntityID:  entityID,
		UUIDID:    ent.UUIDID,
		Name:      name,
		State:     uint8(index.StorageCreate),
		Mode:      uint8(mode),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Create(&m).Error; err != nil {
		return index.Storage{}, ErrorTransaction.Error(err)
	}

	return m.toDomain(), nil
}

// addEntry is the shared implementation behind every AddXxx method: it
// inserts the entry and, inside the same transaction, clears Newest on
// any prior entry sharing (UUIDID, Name) before setting it on the new
// row — the catalogue never holds two "newest" rows for the same path.
func (s *store) addEntry(storageID string, kind index.EntryKind, p index.NewEntryParams) (index.Entry, liberr.Error) {
	var st storageModel
	if err := s.db.First(&st, "id = ?", storageID).Error; err != nil {
		return index.Entry{}, ErrorNotFound.Error(err)
	}

	id, e := newID()
	if e != nil {
		return index.Entry{}, e
	}

	m := entryModel{
		ID:        id,
		StorageID: storageID,
		EntityID:  st.EntityID,
		UUIDID:    st.UUIDID,
		Kind:      uint8(kind),
		Name:      p.Name,
		Size:      p.Size,
		Mtime:     p.Mtime,
		Newest:    true,
		CreatedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gormdb.DB) error {
		if err := tx.Model(&entryModel{}).
			Where("uuid_id = ? AND name = ? AND newest = ?", st.UUIDID, p.Name, true).
			Update("newest", false).Error; err != nil {
			return err
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return index.Entry{}, ErrorTransaction.Error(err)
	}

	return m.toDomain(), nil
}

func (s *store) AddFile(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntryFile, p)
}

func (s *store) AddImage(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntryImage, p)
}

func (s *store) AddDirectory(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntryDirectory, p)
}

func (s *store) AddLink(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntrySymlink, p)
}

func (s *store) AddHardlink(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntryHardlink, p)
}

func (s *store) AddSpecial(storageID string, p index.NewEntryParams) (index.Entry, liberr.Error) {
	return s.addEntry(storageID, index.EntrySpecial, p)
}

func (s *store) SetStorageState(storageID string, state index.StorageState) liberr.Error {
	err := s.db.Model(&storageModel{}).Where("id = ?", storageID).
		Updates(map[string]interface{}{"state": uint8(state), "updated_at": time.Now()}).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) UpdateStorage(storageID string, size int64, mode index.StorageMode) liberr.Error {
	err := s.db.Model(&storageModel{}).Where("id = ?", storageID).
		Updates(map[string]interface{}{"size": size, "mode": uint8(mode), "updated_at": time.Now()}).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) UpdateStorageInfos(storageID string) liberr.Error {
	var count int64
	if err := s.db.Model(&entryModel{}).Where("storage_id = ?", storageID).Count(&count).Error; err != nil {
		return ErrorTransaction.Error(err)
	}

	err := s.db.Model(&storageModel{}).Where("id = ?", storageID).
		Updates(map[string]interface{}{"entry_count": count, "updated_at": time.Now()}).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) UpdateEntityInfos(entityID string) liberr.Error {
	var ent entityModel
	if err := s.db.First(&ent, "id = ?", entityID).Error; err != nil {
		return ErrorNotFound.Error(err)
	}

	var storageCount int64
	var totalSize int64
	var entryCount int64

	if err := s.db.Model(&storageModel{}).Where("entity_id = ? AND deleted = ?", entityID, false).
		Count(&storageCount).Error; err != nil {
		return ErrorTransaction.Error(err)
	}

	row := s.db.Model(&storageModel{}).Where("entity_id = ? AND deleted = ?", entityID, false).
		Select("COALESCE(SUM(size), 0)").Row()
	if err := row.Scan(&totalSize); err != nil {
		return ErrorTransaction.Error(err)
	}

	if err := s.db.Model(&entryModel{}).Where("entity_id = ?", entityID).Count(&entryCount).Error; err != nil {
		return ErrorTransaction.Error(err)
	}

	err := s.db.Transaction(func(tx *gormdb.DB) error {
		now := time.Now()
		if err := tx.Model(&entityModel{}).Where("id = ?", entityID).
			Updates(map[string]interface{}{
				"storage_count": storageCount,
				"entry_count":   entryCount,
				"total_bytes":   totalSize,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		var entityCount int64
		if err := tx.Model(&entityModel{}).Where("uuid_id = ? AND deleted = ?", ent.UUIDID, false).
			Count(&entityCount).Error; err != nil {
			return err
		}

		var uuidTotal int64
		r := tx.Model(&entityModel{}).Where("uuid_id = ? AND deleted = ?", ent.UUIDID, false).
			Select("COALESCE(SUM(total_bytes), 0)").Row()
		if err := r.Scan(&uuidTotal); err != nil {
			return err
		}

		return tx.Model(&uuidModel{}).Where("id = ?", ent.UUIDID).
			Updates(map[string]interface{}{
				"entity_count": entityCount,
				"total_bytes":  uuidTotal,
				"updated_at":   now,
			}).Error
	})
	if err != nil {
		return ErrorTransaction.Error(err)
	}

	return nil
}

func (s *store) PurgeStorage(storageID string) liberr.Error {
	err := s.db.Model(&storageModel{}).Where("id = ?", storageID).
		Update("deleted", true).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) PurgeAllStoragesByID(entityID string) liberr.Error {
	err := s.db.Model(&storageModel{}).Where("entity_id = ?", entityID).
		Update("deleted", true).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) PurgeAllStoragesByName(name string) liberr.Error {
	err := s.db.Model(&storageModel{}).Where("name = ?", name).
		Update("deleted", true).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) PurgeEntity(entityID string) liberr.Error {
	err := s.db.Model(&entityModel{}).Where("id = ?", entityID).
		Update("deleted", true).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

// PruneEntity removes entityID only once it is marked deleted and has
// no remaining (live or purged) Storage rows — physically removing a
// row still referenced by Storage would violate the catalogue's
// ancestor-denormalisation invariant.
func (s *store) PruneEntity(entityID string) liberr.Error {
	var ent entityModel
	err := s.db.First(&ent, "id = ?", entityID).Error
	if errors.Is(err, gormdb.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return ErrorNotFound.Error(err)
	}

	if !ent.Deleted {
		return nil
	}

	var count int64
	if err = s.db.Model(&storageModel{}).Where("entity_id = ?", entityID).Count(&count).Error; err != nil {
		return ErrorTransaction.Error(err)
	}
	if count > 0 {
		return nil
	}

	if err = s.db.Where("id = ?", entityID).Delete(&entityModel{}).Error; err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) PurgeUUID(uuidID string) liberr.Error {
	err := s.db.Model(&entityModel{}).Where("uuid_id = ?", uuidID).
		Update("deleted", true).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

// PruneUUID removes uuidID once every Entity beneath it has already
// been pruned away.
func (s *store) PruneUUID(uuidID string) liberr.Error {
	var count int64
	if err := s.db.Model(&entityModel{}).Where("uuid_id = ?", uuidID).Count(&count).Error; err != nil {
		return ErrorTransaction.Error(err)
	}
	if count > 0 {
		return nil
	}

	if err := s.db.Where("id = ?", uuidID).Delete(&uuidModel{}).Error; err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) UnlockEntity(entityID string) liberr.Error {
	var ent entityModel
	if err := s.db.First(&ent, "id = ?", entityID).Error; err != nil {
		return ErrorNotFound.Error(err)
	}

	err := s.db.Model(&uuidModel{}).Where("id = ?", ent.UUIDID).
		Update("locked", false).Error
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) DeleteEntity(entityID string) liberr.Error {
	var ent entityModel
	if err := s.db.First(&ent, "id = ?", entityID).Error; err != nil {
		return ErrorNotFound.Error(err)
	}

	var u uuidModel
	if err := s.db.First(&u, "id = ?", ent.UUIDID).Error; err != nil {
		return ErrorNotFound.Error(err)
	}
	if u.Locked {
		return index.ErrorLocked.Error(nil)
	}

	err := s.db.Transaction(func(tx *gormdb.DB) error {
		var storageIDs []string
		if err := tx.Model(&storageModel{}).Where("entity_id = ?", entityID).
			Pluck("id", &storageIDs).Error; err != nil {
			return err
		}
		if len(storageIDs) > 0 {
			if err := tx.Where("storage_id IN ?", storageIDs).Delete(&entryModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("entity_id = ?", entityID).Delete(&storageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", entityID).Delete(&entityModel{}).Error
	})
	if err != nil {
		return ErrorTransaction.Error(err)
	}
	return nil
}

func (s *store) NewHistory(h index.History) (index.History, liberr.Error) {
	if h.ID == "" {
		id, e := newID()
		if e != nil {
			return index.History{}, e
		}
		h.ID = id
	}

	m := historyModel{
		ID:        h.ID,
		UUIDID:    h.UUIDID,
		EntityID:  h.EntityID,
		Outcome:   h.Outcome,
		Message:   h.Message,
		StartedAt: h.StartedAt,
		EndedAt:   h.EndedAt,
	}

	if err := s.db.Create(&m).Error; err != nil {
		return index.History{}, ErrorTransaction.Error(err)
	}

	return m.toDomain(), nil
}

func (s *store) ListStoragesForEntity(entityID string) ([]index.Storage, liberr.Error) {
	var ms []storageModel
	if err := s.db.Where("entity_id = ? AND deleted = ?", entityID, false).Find(&ms).Error; err != nil {
		return nil, ErrorTransaction.Error(err)
	}

	out := make([]index.Storage, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *store) ListEntriesForStorage(storageID string) ([]index.Entry, liberr.Error) {
	var ms []entryModel
	if err := s.db.Where("storage_id = ?", storageID).Find(&ms).Error; err != nil {
		return nil, ErrorTransaction.Error(err)
	}

	out := make([]index.Entry, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (s *store) ListNewestEntriesMatching(uuidID, pattern string) ([]index.Entry, liberr.Error) {
	var ms []entryModel
	err := s.db.Where("uuid_id = ? AND newest = ? AND name LIKE ?", uuidID, true, pattern).Find(&ms).Error
	if err != nil {
		return nil, ErrorTransaction.Error(err)
	}

	out := make([]index.Entry, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.toDomain())
	}
	return out, nil
}
