package gorm_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/barsys/index"
	idxgorm "github.com/sabouaram/barsys/index/gorm"
)

func openStore(dir string) index.Store {
	cfg := &idxgorm.Config{
		Driver: idxgorm.DriverSQLite,
		DSN:    filepath.Join(dir, "catalogue.db"),
	}
	st, err := idxgorm.New(cfg)
	Expect(err).To(BeNil())
	return st
}

var _ = Describe("Catalogue store", func() {
	var (
		dir string
		st  index.Store
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "barsys-index-gorm-")
		Expect(err).To(BeNil())
		st = openStore(dir)
	})

	AfterEach(func() {
		_ = st.Close()
		_ = os.RemoveAll(dir)
	})

	It("creates and finds a UUID identity", func() {
		_, ok, err := st.FindUUID("job-1")
		Expect(err).To(BeNil())
		Expect(ok).To(BeFalse())

		u, err := st.NewUUID("job-1", "nightly-backup")
		Expect(err).To(BeNil())
		Expect(u.ID).NotTo(BeEmpty())

		found, ok, err := st.FindUUID("job-1")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(found.Name).To(Equal("nightly-backup"))
	})

	It("walks a full run: uuid -> entity -> storage -> entries", func() {
		u, err := st.NewUUID("job-2", "weekly-backup")
		Expect(err).To(BeNil())

		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveFull)
		Expect(err).To(BeNil())
		Expect(ent.UUIDID).To(Equal(u.ID))

		stor, err := st.NewStorage(ent.ID, "backup-000001.bar", index.ModeAuto)
		Expect(err).To(BeNil())
		Expect(stor.EntityID).To(Equal(ent.ID))
		Expect(stor.UUIDID).To(Equal(u.ID))

		now := time.Now()
		_, err = st.AddFile(stor.ID, index.NewEntryParams{Name: "etc/passwd", Size: 1024, Mtime: now})
		Expect(err).To(BeNil())
		_, err = st.AddDirectory(stor.ID, index.NewEntryParams{Name: "etc", Mtime: now})
		Expect(err).To(BeNil())

		entries, err := st.ListEntriesForStorage(stor.ID)
		Expect(err).To(BeNil())
		Expect(entries).To(HaveLen(2))

		Expect(st.SetStorageState(stor.ID, index.StorageOK)).To(BeNil())
		Expect(st.UpdateStorageInfos(stor.ID)).To(BeNil())
		Expect(st.UpdateEntityInfos(ent.ID)).To(BeNil())

		storages, err := st.ListStoragesForEntity(ent.ID)
		Expect(err).To(BeNil())
		Expect(storages).To(HaveLen(1))
		Expect(storages[0].EntryCount).To(Equal(int64(2)))
	})

	It("keeps only the latest entry marked newest for a repeated path", func() {
		u, err := st.NewUUID("job-3", "daily-backup")
		Expect(err).To(BeNil())
		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveIncremental)
		Expect(err).To(BeNil())

		stor1, err := st.NewStorage(ent.ID, "backup-000001.bar", index.ModeAuto)
		Expect(err).To(BeNil())
		first, err := st.AddFile(stor1.ID, index.NewEntryParams{Name: "var/log/app.log", Size: 10, Mtime: time.Now()})
		Expect(err).To(BeNil())
		Expect(first.Newest).To(BeTrue())

		stor2, err := st.NewStorage(ent.ID, "backup-000002.bar", index.ModeAuto)
		Expect(err).To(BeNil())
		second, err := st.AddFile(stor2.ID, index.NewEntryParams{Name: "var/log/app.log", Size: 20, Mtime: time.Now()})
		Expect(err).To(BeNil())
		Expect(second.Newest).To(BeTrue())

		matches, err := st.ListNewestEntriesMatching(u.ID, "%app.log%")
		Expect(err).To(BeNil())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].ID).To(Equal(second.ID))
	})

	It("locks a UUID while an entity is open and unlocks it on request", func() {
		u, err := st.NewUUID("job-4", "hourly-backup")
		Expect(err).To(BeNil())

		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveFull)
		Expect(err).To(BeNil())

		locked, ok, err := st.FindUUID("job-4")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(locked.Locked).To(BeTrue())

		Expect(st.UnlockEntity(ent.ID)).To(BeNil())

		unlocked, ok, err := st.FindUUID("job-4")
		Expect(err).To(BeNil())
		Expect(ok).To(BeTrue())
		Expect(unlocked.Locked).To(BeFalse())
	})

	It("refuses DeleteEntity while the owning UUID is locked", func() {
		u, err := st.NewUUID("job-5", "monthly-backup")
		Expect(err).To(BeNil())
		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveFull)
		Expect(err).To(BeNil())

		err = st.DeleteEntity(ent.ID)
		Expect(err).NotTo(BeNil())

		Expect(st.UnlockEntity(ent.ID)).To(BeNil())
		Expect(st.DeleteEntity(ent.ID)).To(BeNil())

		storages, lerr := st.ListStoragesForEntity(ent.ID)
		Expect(lerr).To(BeNil())
		Expect(storages).To(BeEmpty())
	})

	It("purges then prunes an entity only once it has no remaining storage", func() {
		u, err := st.NewUUID("job-6", "archival-backup")
		Expect(err).To(BeNil())
		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveFull)
		Expect(err).To(BeNil())
		stor, err := st.NewStorage(ent.ID, "backup-000001.bar", index.ModeManual)
		Expect(err).To(BeNil())

		Expect(st.PurgeEntity(ent.ID)).To(BeNil())
		Expect(st.PruneEntity(ent.ID)).To(BeNil())

		storages, err := st.ListStoragesForEntity(ent.ID)
		Expect(err).To(BeNil())
		Expect(storages).To(HaveLen(1), "prune must not remove an entity that still owns storage")

		Expect(st.PurgeAllStoragesByID(ent.ID)).To(BeNil())
		Expect(st.PruneEntity(ent.ID)).To(BeNil())

		_ = stor
	})

	It("records history independent of entity lifecycle", func() {
		u, err := st.NewUUID("job-7", "history-backup")
		Expect(err).To(BeNil())
		ent, err := st.NewEntity(u.ID, "sched-1", index.ArchiveFull)
		Expect(err).To(BeNil())

		h, err := st.NewHistory(index.History{
			UUIDID:    u.ID,
			EntityID:  ent.ID,
			Outcome:   "success",
			Message:   fmt.Sprintf("archived %d bytes", 4096),
			StartedAt: time.Now(),
			EndedAt:   time.Now(),
		})
		Expect(err).To(BeNil())
		Expect(h.ID).NotTo(BeEmpty())
		Expect(h.Outcome).To(Equal("success"))
	})
})
