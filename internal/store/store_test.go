package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/inventory"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC)
	s, err := Open(context.Background(), Options{SQLitePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.now = func() time.Time { return now }
	t.Cleanup(func() { s.Close() })
	return s, &now
}

func mustUser(t *testing.T, s *Store, email string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUser{Email: email, Name: "n"})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()
	s1, err := Open(ctx, Options{SQLitePath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s1.CreateUser(ctx, NewUser{Email: "a@b.c"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, Options{SQLitePath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.UserByEmail(ctx, "A@B.C"); err != nil {
		t.Fatalf("user lost across reopen: %v", err)
	}
}

func TestUsers(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, NewUser{
		Email:               " Founder@Example.com ",
		PasswordHash:        "hash",
		Name:                "Ada",
		VerificationToken:   "tok",
		VerificationExpires: now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "founder@example.com" || u.EmailVerified || u.ProfileCompleted {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.VerificationExpires.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expires = %v", u.VerificationExpires)
	}
	if _, err := s.CreateUser(ctx, NewUser{Email: "founder@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email err = %v", err)
	}
	// Users without an email or token do not collide on the UNIQUE columns.
	if _, err := s.CreateUser(ctx, NewUser{GoogleID: "g1"}); err != nil {
		t.Fatalf("google user: %v", err)
	}
	if _, err := s.CreateUser(ctx, NewUser{GoogleID: "g2"}); err != nil {
		t.Fatalf("second google user: %v", err)
	}

	got, err := s.UserByVerificationToken(ctx, "tok")
	if err != nil || got.ID != u.ID {
		t.Fatalf("by token = %+v, %v", got, err)
	}
	if err := s.MarkEmailVerified(ctx, u.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := s.UserByVerificationToken(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("token should be cleared, err = %v", err)
	}

	p, err := s.CompleteProfile(ctx, u.ID, ProfileUpdate{Company: "Acme", Role: "CEO"})
	if err != nil {
		t.Fatalf("complete profile: %v", err)
	}
	if p.Name != "Ada" || p.Company != "Acme" || !p.ProfileCompleted || !p.EmailVerified || p.PasswordHash != "hash" {
		t.Fatalf("profile = %+v", p)
	}

	linked, err := s.LinkGoogle(ctx, u.ID, "g3", "Other")
	if err != nil {
		t.Fatalf("link google: %v", err)
	}
	if linked.GoogleID != "g3" || linked.Name != "Ada" {
		t.Fatalf("linked = %+v", linked)
	}
	if _, err := s.UserByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}

func TestPlans(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice@x.io")
	bob := mustUser(t, s, "bob@x.io")

	plan := Plan{ID: "p1", UserID: alice.ID, Name: "Cafe", Model: json.RawMessage(`{"name":"Cafe"}`)}
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetPlan(ctx, alice.ID, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tasks != nil || string(got.Model) != `{"name":"Cafe"}` {
		t.Fatalf("plan = %+v", got)
	}

	*now = now.Add(time.Hour)
	plan.Name = "Cafe v2"
	plan.Tasks = json.RawMessage(`[]`)
	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = s.GetPlan(ctx, alice.ID, "p1")
	if got.Name != "Cafe v2" || string(got.Tasks) != "[]" || !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("after upsert = %+v", got)
	}

	if err := s.SavePlan(ctx, Plan{ID: "p1", UserID: bob.ID, Model: json.RawMessage(`{}`)}); !errors.Is(err, ErrConflict) {
		t.Fatalf("foreign upsert err = %v", err)
	}
	if _, err := s.GetPlan(ctx, bob.ID, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get err = %v", err)
	}

	if err := s.UpdatePlanTasks(ctx, alice.ID, "p1", json.RawMessage(`[{"title":"a"}]`)); err != nil {
		t.Fatalf("update tasks: %v", err)
	}
	if err := s.UpdatePlanTasks(ctx, bob.ID, "p1", json.RawMessage(`[]`)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user update err = %v", err)
	}
	list, err := s.ListPlans(ctx, alice.ID)
	if err != nil || len(list) != 1 || string(list[0].Tasks) != `[{"title":"a"}]` {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if err := s.DeletePlan(ctx, alice.ID, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeletePlan(ctx, alice.ID, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestSharesAndCollaborators(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()
	owner := mustUser(t, s, "owner@x.io")
	guest := mustUser(t, s, "guest@x.io")

	first, err := s.CreateShare(ctx, Share{UserID: owner.ID, PlanID: "p1", Name: "One", Model: json.RawMessage(`{"description":"first plan"}`)})
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if _, err := s.CreateShare(ctx, Share{UserID: owner.ID, PlanID: "p1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate share err = %v", err)
	}
	*now = now.Add(time.Minute)
	second, err := s.CreateShare(ctx, Share{UserID: owner.ID, PlanID: "p2", Name: "Two"})
	if err != nil {
		t.Fatalf("share 2: %v", err)
	}

	list, err := s.ListShares(ctx, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].Description != "first plan" {
		t.Fatalf("list = %+v", list)
	}
	got, err := s.GetShare(ctx, first.ID)
	if err != nil || got.Tasks != nil || got.Name != "One" {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if _, err := s.RequestCollaboration(ctx, first.ID, owner.ID, ""); !errors.Is(err, ErrOwnShare) {
		t.Fatalf("self request err = %v", err)
	}
	if _, err := s.RequestCollaboration(ctx, 999, guest.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown share err = %v", err)
	}
	if _, err := s.RequestCollaboration(ctx, first.ID, guest.ID, "hi"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := s.RequestCollaboration(ctx, first.ID, guest.ID, "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate request err = %v", err)
	}

	if _, err := s.ListCollaborators(ctx, guest.ID, first.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner list err = %v", err)
	}
	collabs, err := s.ListCollaborators(ctx, owner.ID, first.ID)
	if err != nil {
		t.Fatalf("collaborators: %v", err)
	}
	if len(collabs) != 1 || collabs[0].Email != "guest@x.io" || collabs[0].Status != "pending" || collabs[0].Message != "hi" {
		t.Fatalf("collaborators = %+v", collabs)
	}
}

func TestGenerations(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "g@x.io")

	models := []businessmodel.BusinessModel{{ID: "1_0", Name: "Direct"}}
	if err := s.RecordGeneration(ctx, u.ID, "coffee (Location: Dhaka)", models); err != nil {
		t.Fatalf("record: %v", err)
	}
	*now = now.Add(time.Second)
	if err := s.RecordGeneration(ctx, u.ID, "tea", models); err != nil {
		t.Fatalf("record 2: %v", err)
	}
	gens, err := s.ListGenerations(ctx, u.ID, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(gens) != 2 || gens[0].Idea != "tea" || gens[1].Idea != "coffee (Location: Dhaka)" {
		t.Fatalf("generations = %+v", gens)
	}
	var decoded []businessmodel.BusinessModel
	if err := json.Unmarshal(gens[0].Models, &decoded); err != nil || decoded[0].Name != "Direct" {
		t.Fatalf("models = %s, %v", gens[0].Models, err)
	}
	if err := s.DeleteGeneration(ctx, u.ID+1, gens[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := s.DeleteGeneration(ctx, u.ID, gens[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func decodeRecords(t *testing.T, s string) []*inventory.Record {
	t.Helper()
	recs, err := inventory.DecodeRecords([]byte(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return recs
}

func TestInventoryItems(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s, "inv@x.io")

	b, err := s.AddInventory(ctx, u.ID, "", decodeRecords(t, `[{"name":"Pen","qty":3},{"name":"Ink","qty":60}]`))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if b.Count != 2 || b.FileName != "uploaded_file" {
		t.Fatalf("batch = %+v", b)
	}

	items, err := s.ListInventoryItems(ctx, u.ID)
	if err != nil || len(items) != 2 {
		t.Fatalf("items = %+v, %v", items, err)
	}
	flat, err := json.Marshal(items[0].Flatten())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"` + ItemID(b.ID, 0) + `","name":"Pen","qty":3,"_source_file":"uploaded_file","_source_id":` +
		jsonInt(b.ID) + `,"_created_at":"2026-02-17T00:00:00Z"}`
	if string(flat) != want {
		t.Fatalf("flatten =\n%s\nwant\n%s", flat, want)
	}

	patch := inventory.NewRecord()
	patch.Set("qty", 4.0)
	patch.Set("price", 1.5)
	if err := s.UpdateInventoryItem(ctx, u.ID, ItemID(b.ID, 0), patch); err != nil {
		t.Fatalf("update: %v", err)
	}
	items, _ = s.ListInventoryItems(ctx, u.ID)
	if diff := cmp.Diff(map[string]any{"name": "Pen", "qty": 4.0, "price": 1.5}, items[0].Record.Map()); diff != "" {
		t.Fatalf("merged record (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"x", ItemID(b.ID, 7), ItemID(b.ID+1, 0), "1_-1"} {
		if err := s.UpdateInventoryItem(ctx, u.ID, bad, patch); !errors.Is(err, ErrNotFound) {
			t.Fatalf("update %q err = %v", bad, err)
		}
	}

	if err := s.DeleteInventoryItem(ctx, u.ID, ItemID(b.ID, 0)); err != nil {
		t.Fatalf("delete 0: %v", err)
	}
	items, _ = s.ListInventoryItems(ctx, u.ID)
	if len(items) != 1 || items[0].ID != ItemID(b.ID, 0) {
		t.Fatalf("after delete = %+v", items)
	}
	if err := s.DeleteInventoryItem(ctx, u.ID, ItemID(b.ID, 0)); err != nil {
		t.Fatalf("delete last: %v", err)
	}
	items, _ = s.ListInventoryItems(ctx, u.ID)
	if len(items) != 0 {
		t.Fatalf("batch should be gone, items = %+v", items)
	}
	if err := s.DeleteInventoryItem(ctx, u.ID, ItemID(b.ID, 0)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete from removed batch err = %v", err)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestParseItemID(t *testing.T) {
	tests := []struct {
		in      string
		batch   int64
		index   int
		wantErr bool
	}{
		{"12_3", 12, 3, false},
		{"0_0", 0, 0, false},
		{"12", 0, 0, true},
		{"a_1", 0, 0, true},
		{"1_b", 0, 0, true},
		{"1_-2", 0, 0, true},
	}
	for _, tt := range tests {
		b, i, err := ParseItemID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseItemID(%q) err = %v", tt.in, err)
		}
		if !tt.wantErr && (b != tt.batch || i != tt.index) {
			t.Fatalf("ParseItemID(%q) = %d, %d", tt.in, b, i)
		}
	}
}

func TestSchemaDialects(t *testing.T) {
	pg := schemaFor(DialectPostgres)
	lite := schemaFor(DialectSQLite)
	for _, want := range []string{"BIGSERIAL PRIMARY KEY", "JSONB", "BOOLEAN NOT NULL DEFAULT false"} {
		if !strings.Contains(pg, want) {
			t.Fatalf("postgres schema missing %q", want)
		}
	}
	if strings.Contains(lite, "JSONB") || !strings.Contains(lite, "AUTOINCREMENT") {
		t.Fatal("sqlite schema should use TEXT documents and AUTOINCREMENT keys")
	}
}
