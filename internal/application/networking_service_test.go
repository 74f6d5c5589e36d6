package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/internal/infrastructure/memory"
	"github.com/avinay/ntc-blueprint/pkg/validation"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestService(store repo.KeyValueStore) *Service {
	svc := NewService(store, nil, "", nil, false)
	svc.Now = func() time.Time { return fixedNow }
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

// faultyStore fails reads or writes on demand.
type faultyStore struct {
	*memory.KVStore
	failGet bool
	failSet bool
}

var errDisk = errors.New("disk on fire")

func (f *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errDisk
	}
	return f.KVStore.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errDisk
	}
	return f.KVStore.Set(ctx, key, value)
}

// gatedStore parks the first Get of slot after arm until release is closed.
type gatedStore struct {
	*memory.KVStore
	slot    string
	once    sync.Once
	armed   bool
	reached chan struct{}
	release chan struct{}
}

func newGatedStore(slot string) *gatedStore {
	return &gatedStore{
		KVStore: memory.NewKVStore(0),
		slot:    slot,
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := g.KVStore.Get(ctx, key)
	if g.armed && strings.HasSuffix(key, g.slot) {
		g.once.Do(func() {
			close(g.reached)
			<-g.release
		})
	}
	return v, ok, err
}

// waitsFor runs fn while the gated reader holds the service lock and fails if
// fn completes before the reader is released.
func waitsFor(t *testing.T, g *gatedStore, reader func() error, fn func() error) {
	t.Helper()
	readerDone := make(chan error, 1)
	go func() { readerDone <- reader() }()
	<-g.reached

	fnDone := make(chan error, 1)
	go func() { fnDone <- fn() }()
	select {
	case err := <-fnDone:
		t.Fatalf("write finished while a read-modify-write was in flight (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	if err := <-readerDone; err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	if err := <-fnDone; err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func contact(id, name, company, email string) entity.Profile {
	return entity.Profile{
		ID:        id,
		Name:      name,
		Role:      "Engineer",
		Company:   company,
		Phone:     "+1 555 010 0000",
		Email:     email,
		CreatedAt: "2026-10-01T09:30:00.000Z",
	}
}

func ashaInput() ProfileInput {
	return ProfileInput{
		Name:    "Asha Rao",
		Role:    "PM",
		Company: "Acme",
		Phone:   "+911234567890",
		Email:   "asha@acme.com",
	}
}

func TestMyProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	if p := svc.GetMyProfile(ctx); p != nil {
		t.Fatalf("expected no profile, got %+v", p)
	}
	if _, err := svc.MyProfilePayload(ctx); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	p, created, err := svc.UpsertMyProfile(ctx, ashaInput())
	if err != nil {
		t.Fatalf("UpsertMyProfile failed: %v", err)
	}
	if !created || p.ID != "id-1" || p.CreatedAt != "2026-10-18T12:00:00.000Z" {
		t.Fatalf("unexpected created profile %+v (created=%v)", p, created)
	}

	svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	in := ashaInput()
	in.Role = "Director"
	p2, created, err := svc.UpsertMyProfile(ctx, in)
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if created || p2.ID != p.ID || p2.CreatedAt != p.CreatedAt || p2.Role != "Director" {
		t.Fatalf("update should keep id and createdAt, got %+v (created=%v)", p2, created)
	}

	got := svc.GetMyProfile(ctx)
	if got == nil || *got != *p2 {
		t.Fatalf("GetMyProfile = %+v, want %+v", got, p2)
	}

	if err := svc.DeleteMyProfile(ctx); err != nil {
		t.Fatalf("DeleteMyProfile failed: %v", err)
	}
	if svc.GetMyProfile(ctx) != nil {
		t.Fatal("profile should be gone")
	}
	if err := svc.DeleteMyProfile(ctx); err != nil {
		t.Fatalf("deleting an absent profile failed: %v", err)
	}
}

func TestUpsertMyProfileValidation(t *testing.T) {
	svc := newTestService(memory.NewKVStore(0))
	in := ashaInput()
	in.Phone = "123"
	in.Email = "nope"

	_, _, err := svc.UpsertMyProfile(context.Background(), in)
	if err == nil {
		t.Fatal("expected validation error")
	}
	details := validation.ToDetails(err)
	if details["phone"] == "" || details["email"] == "" {
		t.Errorf("expected phone and email details, got %v", details)
	}
	if svc.GetMyProfile(context.Background()) != nil {
		t.Error("invalid input must not be stored")
	}
}

func TestCorruptSlotsReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore(0)
	svc := newTestService(store)

	_ = store.Set(ctx, repo.MyProfileSlot, "{not json")
	_ = store.Set(ctx, repo.ContactsSlot, "[{")

	if svc.GetMyProfile(ctx) != nil {
		t.Error("corrupt profile should read as absent")
	}
	if got := svc.GetContacts(ctx); got == nil || len(got) != 0 {
		t.Errorf("corrupt contacts should read as empty list, got %#v", got)
	}
	// a corrupt list is replaced on the next save
	if err := svc.SaveContact(ctx, contact("c1", "Bo", "Init", "bo@init.io")); err != nil {
		t.Fatalf("SaveContact failed: %v", err)
	}
	if n := len(svc.GetContacts(ctx)); n != 1 {
		t.Errorf("expected 1 contact, got %d", n)
	}
}

func TestSaveContactRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	if err := svc.SaveContact(ctx, contact("c1", "Bo", "Init", "Bo@Init.io")); err != nil {
		t.Fatalf("SaveContact failed: %v", err)
	}
	err := svc.SaveContact(ctx, contact("c2", "Robert", "Other", "bo@init.IO"))
	if !errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("expected ErrDuplicateContact, got %v", err)
	}
	contacts := svc.GetContacts(ctx)
	if len(contacts) != 1 || contacts[0].ID != "c1" {
		t.Fatalf("list changed after duplicate: %+v", contacts)
	}
}

func TestScanContactEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	me, _, err := svc.UpsertMyProfile(ctx, ashaInput())
	if err != nil {
		t.Fatalf("UpsertMyProfile failed: %v", err)
	}
	payload, err := svc.MyProfilePayload(ctx)
	if err != nil {
		t.Fatalf("MyProfilePayload failed: %v", err)
	}

	other := newTestService(memory.NewKVStore(0))
	other.Now = func() time.Time { return fixedNow.Add(2 * time.Minute) }

	c, err := other.ScanContact(ctx, payload)
	if err != nil {
		t.Fatalf("ScanContact failed: %v", err)
	}
	if c.ID != me.ID || c.Name != "Asha Rao" || c.ScannedAt != "2026-10-18T12:02:00.000Z" {
		t.Fatalf("unexpected contact %+v", c)
	}

	if _, err := other.ScanContact(ctx, payload); !errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("second scan: expected ErrDuplicateContact, got %v", err)
	}

	hits := other.SearchContacts(ctx, "acme")
	if len(hits) != 1 || hits[0].Email != "asha@acme.com" {
		t.Fatalf("search(acme) = %+v", hits)
	}

	stats := other.GetNetworkingStats(ctx)
	want := entity.NetworkingStats{TotalContacts: 1, RecentScans: 1, CompaniesRepresented: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestScanContactRejectsInvalidPayload(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	cases := []string{
		"not json",
		`{"id":"1","name":"A","role":"R","company":"C","phone":"1","createdAt":"x"}`,
		`{"id":"1","name":"A","role":"R","company":"C","phone":"1","email":"bad","createdAt":"x"}`,
	}
	for _, payload := range cases {
		if _, err := svc.ScanContact(ctx, payload); !errors.Is(err, exchange.ErrInvalidFormat) {
			t.Errorf("ScanContact(%q) = %v, want ErrInvalidFormat", payload, err)
		}
	}
	if n := len(svc.GetContacts(ctx)); n != 0 {
		t.Errorf("invalid scans stored %d contacts", n)
	}
}

func TestScanContactStrict(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))
	svc.StrictScan = true

	weak := contact("c1", "B", "Init", "b@init.io")
	weak.Phone = "12"
	payload, err := exchange.Encode(weak)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := svc.ScanContact(ctx, payload); err == nil {
		t.Fatal("strict scan should reject a short name and phone")
	}

	svc.StrictScan = false
	if _, err := svc.ScanContact(ctx, payload); err != nil {
		t.Fatalf("lenient scan failed: %v", err)
	}
}

func TestDeleteAndClearContacts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))
	for _, c := range []entity.Profile{
		contact("c1", "Ann", "A", "ann@a.io"),
		contact("c2", "Ben", "B", "ben@b.io"),
		contact("c3", "Cat", "C", "cat@c.io"),
	} {
		if err := svc.SaveContact(ctx, c); err != nil {
			t.Fatalf("SaveContact failed: %v", err)
		}
	}

	if err := svc.DeleteContact(ctx, "c2"); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
	if err := svc.DeleteContact(ctx, "missing"); err != nil {
		t.Fatalf("DeleteContact(missing) failed: %v", err)
	}
	got := svc.GetContacts(ctx)
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c3" {
		t.Fatalf("unexpected contacts after delete: %+v", got)
	}
	if _, err := svc.GetContact(ctx, "c2"); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("GetContact(c2) = %v", err)
	}

	if err := svc.ClearContacts(ctx); err != nil {
		t.Fatalf("ClearContacts failed: %v", err)
	}
	if n := len(svc.GetContacts(ctx)); n != 0 {
		t.Fatalf("expected empty list, got %d", n)
	}
}

func TestUpdateContact(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))
	_ = svc.SaveContact(ctx, contact("c1", "Ann", "A", "ann@a.io"))
	_ = svc.SaveContact(ctx, contact("c2", "Ben", "B", "ben@b.io"))

	role := "CTO"
	updated, err := svc.UpdateContact(ctx, "c1", ContactPatch{Role: &role})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if updated.ID != "c1" || updated.Role != "CTO" || updated.Name != "Ann" {
		t.Fatalf("unexpected merge result %+v", updated)
	}
	if c, _ := svc.GetContact(ctx, "c1"); c == nil || c.Role != "CTO" {
		t.Fatalf("update not persisted: %+v", c)
	}

	before := svc.GetContacts(ctx)
	if _, err := svc.UpdateContact(ctx, "nope", ContactPatch{Role: &role}); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("expected ErrContactNotFound, got %v", err)
	}
	if after := svc.GetContacts(ctx); !reflect.DeepEqual(after, before) {
		t.Errorf("list changed by missing-id update:\n got %+v\nwant %+v", after, before)
	}

	taken := "BEN@b.io"
	if _, err := svc.UpdateContact(ctx, "c1", ContactPatch{Email: &taken}); !errors.Is(err, ErrDuplicateContact) {
		t.Errorf("expected ErrDuplicateContact, got %v", err)
	}
	same := "ANN@a.io"
	if _, err := svc.UpdateContact(ctx, "c1", ContactPatch{Email: &same}); err != nil {
		t.Errorf("changing case of own email failed: %v", err)
	}
	bad := "not-an-email"
	if _, err := svc.UpdateContact(ctx, "c1", ContactPatch{Email: &bad}); err == nil {
		t.Error("expected validation error for bad email")
	}
}

func TestStorageFaults(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{KVStore: memory.NewKVStore(0)}
	svc := newTestService(store)
	_ = svc.SaveContact(ctx, contact("c1", "Ann", "A", "ann@a.io"))

	store.failGet = true
	if got := svc.GetContacts(ctx); got == nil || len(got) != 0 {
		t.Errorf("GetContacts on read fault = %#v, want empty", got)
	}
	if svc.GetMyProfile(ctx) != nil {
		t.Error("GetMyProfile on read fault should be nil")
	}
	if err := svc.DeleteContact(ctx, "c1"); !errors.Is(err, ErrStorage) {
		t.Errorf("DeleteContact on read fault = %v, want ErrStorage", err)
	}
	store.failGet = false
	if n := len(svc.GetContacts(ctx)); n != 1 {
		t.Fatalf("read fault must not clobber the list, got %d contacts", n)
	}

	store.failSet = true
	err := svc.SaveContact(ctx, contact("c2", "Ben", "B", "ben@b.io"))
	if !errors.Is(err, ErrStorage) || !errors.Is(err, errDisk) {
		t.Errorf("SaveContact on write fault = %v", err)
	}
	if _, _, err := svc.UpsertMyProfile(ctx, ashaInput()); !errors.Is(err, ErrStorage) {
		t.Errorf("UpsertMyProfile on write fault = %v", err)
	}
}

func TestQuotaSurfacesAsStorageError(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(64))
	err := svc.SaveContact(ctx, contact("c1", "Ann", "A", "ann@a.io"))
	if !errors.Is(err, ErrStorage) || !errors.Is(err, memory.ErrQuotaExceeded) {
		t.Fatalf("expected quota error wrapped in ErrStorage, got %v", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := memory.NewKVStore(0)
	svc := newTestService(store)
	a := repo.WithNamespace(context.Background(), "device-a")
	b := repo.WithNamespace(context.Background(), "device-b")

	_ = svc.SaveContact(a, contact("c1", "Ann", "A", "ann@a.io"))
	if n := len(svc.GetContacts(b)); n != 0 {
		t.Fatalf("device-b sees %d contacts from device-a", n)
	}
	if err := svc.SaveContact(b, contact("c1", "Ann", "A", "ann@a.io")); err != nil {
		t.Fatalf("same email on another device should be allowed: %v", err)
	}
}

func TestNetworkingStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	recent := contact("c1", "Ann", "Acme", "ann@a.io")
	recent.ScannedAt = entity.FormatTimestamp(fixedNow.Add(-24 * time.Hour))
	edge := contact("c2", "Ben", "ACME", "ben@b.io")
	edge.ScannedAt = entity.FormatTimestamp(fixedNow.AddDate(0, 0, -7))
	old := contact("c3", "Cat", "Globex", "cat@c.io")
	old.ScannedAt = entity.FormatTimestamp(fixedNow.AddDate(0, 0, -8))
	manual := contact("c4", "Dan", "Initech", "dan@d.io")

	for _, c := range []entity.Profile{recent, edge, old, manual} {
		if err := svc.SaveContact(ctx, c); err != nil {
			t.Fatalf("SaveContact failed: %v", err)
		}
	}

	got := svc.GetNetworkingStats(ctx)
	want := entity.NetworkingStats{TotalContacts: 4, RecentScans: 2, CompaniesRepresented: 3}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	empty := newTestService(memory.NewKVStore(0)).GetNetworkingStats(ctx)
	if empty != (entity.NetworkingStats{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestSearchContacts(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))
	ann := contact("c1", "Ann Lee", "Acme", "ann@a.io")
	ben := contact("c2", "Ben", "Globex", "ben@acme-mail.com")
	cat := contact("c3", "Cat", "Initech", "cat@c.io")
	cat.Role = "Acme liaison"
	dan := contact("c4", "Dan", "Hooli", "dan@d.io")
	for _, c := range []entity.Profile{ann, ben, cat, dan} {
		_ = svc.SaveContact(ctx, c)
	}

	ids := func(list []entity.Profile) string {
		out := make([]string, len(list))
		for i, c := range list {
			out[i] = c.ID
		}
		return strings.Join(out, ",")
	}

	if got := ids(svc.SearchContacts(ctx, "ACME")); got != "c1,c2,c3" {
		t.Errorf("search(ACME) = %s", got)
	}
	if got := ids(svc.SearchContacts(ctx, "   ")); got != "c1,c2,c3,c4" {
		t.Errorf("blank search = %s", got)
	}
	if got := ids(svc.SearchContacts(ctx, "lee")); got != "c1" {
		t.Errorf("search(lee) = %s", got)
	}
	if got := svc.SearchContacts(ctx, "zzz"); len(got) != 0 {
		t.Errorf("search(zzz) = %v", got)
	}
}

func TestSortContacts(t *testing.T) {
	a := contact("c1", "alice", "Zeta", "a@x.io")
	a.ScannedAt = "2026-10-10T10:00:00.000Z"
	b := contact("c2", "Bob", "acme", "b@x.io")
	b.CreatedAt = "2026-10-12T10:00:00.000Z"
	e := contact("c3", "Émile", "Beta", "e@x.io")
	e.ScannedAt = "2026-10-11T10:00:00.000Z"
	z := contact("c4", "Zed", "Acme", "z@x.io")
	z.CreatedAt = "garbage"

	list := []entity.Profile{z, e, b, a}
	names := func(ps []entity.Profile) string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return strings.Join(out, ",")
	}

	if got := names(SortContacts(list, entity.SortByName)); got != "alice,Bob,Émile,Zed" {
		t.Errorf("by name = %s", got)
	}
	// lowercase sorts ahead of uppercase on an otherwise equal key
	if got := names(SortContacts(list, entity.SortByCompany)); got != "Bob,Zed,Émile,alice" {
		t.Errorf("by company = %s", got)
	}
	if got := names(SortContacts(list, entity.SortByDate)); got != "Bob,Émile,alice,Zed" {
		t.Errorf("by date = %s", got)
	}
	if got := names(SortContacts(list, "bogus")); got != "Zed,Émile,Bob,alice" {
		t.Errorf("unknown criterion = %s", got)
	}
	if names(list) != "Zed,Émile,Bob,alice" {
		t.Error("input slice was mutated")
	}
}

func TestExportContactsAsJSON(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(memory.NewKVStore(0))

	doc, err := svc.ExportContactsAsJSON(ctx)
	if err != nil || doc != "[]" {
		t.Fatalf("empty export = %q, %v", doc, err)
	}

	c := contact("c1", "Ann <Lee>", "A&B", "ann@a.io")
	_ = svc.SaveContact(ctx, c)
	doc, err = svc.ExportContactsAsJSON(ctx)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.HasPrefix(doc, "[\n  {\n    \"id\": \"c1\",") {
		t.Errorf("export not 2-space indented:\n%s", doc)
	}
	if !strings.Contains(doc, `"name": "Ann <Lee>"`) || !strings.Contains(doc, `"company": "A&B"`) {
		t.Errorf("export escaped HTML characters:\n%s", doc)
	}

	var back []entity.Profile
	if err := json.Unmarshal([]byte(doc), &back); err != nil || len(back) != 1 || back[0] != c {
		t.Errorf("export does not parse back: %v %+v", err, back)
	}
}

func TestExportFilenameAndArchiveDisabled(t *testing.T) {
	local := time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	if got := ExportFilename(local); got != "ntc-contacts-2026-10-19.json" {
		t.Errorf("ExportFilename = %s", got)
	}

	svc := newTestService(memory.NewKVStore(0))
	if _, err := svc.ArchiveContacts(context.Background()); !errors.Is(err, ErrArchiveDisabled) {
		t.Errorf("ArchiveContacts without GCS = %v", err)
	}
}

func TestExportContactAsVCard(t *testing.T) {
	svc := newTestService(memory.NewKVStore(0))
	card := svc.ExportContactAsVCard(contact("c1", "Ann", "Acme", "ann@a.io"))
	if !strings.HasPrefix(card, "BEGIN:VCARD\nVERSION:3.0\nFN:Ann\n") || !strings.HasSuffix(card, "END:VCARD") {
		t.Errorf("unexpected vcard:\n%s", card)
	}
}

func TestClearContactsWaitsForSave(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore(repo.ContactsSlot)
	svc := newTestService(store)
	if err := svc.SaveContact(ctx, contact("c1", "Ann", "A", "ann@a.io")); err != nil {
		t.Fatalf("SaveContact failed: %v", err)
	}

	store.armed = true
	waitsFor(t, store,
		func() error { return svc.SaveContact(ctx, contact("c2", "Ben", "B", "ben@b.io")) },
		func() error { return svc.ClearContacts(ctx) },
	)

	if got := svc.GetContacts(ctx); len(got) != 0 {
		t.Errorf("clear was lost, contacts = %+v", got)
	}
}

func TestDeleteMyProfileWaitsForUpsert(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore(repo.MyProfileSlot)
	svc := newTestService(store)
	if _, _, err := svc.UpsertMyProfile(ctx, ashaInput()); err != nil {
		t.Fatalf("UpsertMyProfile failed: %v", err)
	}

	store.armed = true
	waitsFor(t, store,
		func() error {
			in := ashaInput()
			in.Role = "Director"
			_, _, err := svc.UpsertMyProfile(ctx, in)
			return err
		},
		func() error { return svc.DeleteMyProfile(ctx) },
	)

	if p := svc.GetMyProfile(ctx); p != nil {
		t.Errorf("delete was lost, profile = %+v", p)
	}
}
