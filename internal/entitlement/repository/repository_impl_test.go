package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"github.com/lumapag/pixgate/internal/entitlement/repository"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE entitlements (
			user_id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'inactive',
			expires_at TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transactions (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider_tx_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			raw_response TEXT
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func TestGetDefaultsToInactive(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	ent, err := repo.Get(ctx, db, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ent.Status != entitlementdomain.StatusInactive {
		t.Fatalf("expected inactive default, got %s", ent.Status)
	}
	if ent.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %v", ent.ExpiresAt)
	}
}

func TestActivateOverwritesExpiry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := now.Add(30 * 24 * time.Hour)

	if err := repo.Activate(ctx, db, "user-1", first, now); err != nil {
		t.Fatalf("activate: %v", err)
	}

	ent, err := repo.Get(ctx, db, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ent.Status != entitlementdomain.StatusActive {
		t.Fatalf("expected active, got %s", ent.Status)
	}
	if ent.ExpiresAt == nil || !ent.ExpiresAt.Equal(first) {
		t.Fatalf("expected expiry %v, got %v", first, ent.ExpiresAt)
	}

	// A second activation replaces the expiry, it never extends the
	// previous one.
	later := now.Add(time.Hour)
	second := later.Add(30 * 24 * time.Hour)
	if err := repo.Activate(ctx, db, "user-1", second, later); err != nil {
		t.Fatalf("re-activate: %v", err)
	}

	ent, err = repo.Get(ctx, db, "user-1")
	if err != nil {
		t.Fatalf("get after re-activate: %v", err)
	}
	if ent.ExpiresAt == nil || !ent.ExpiresAt.Equal(second) {
		t.Fatalf("expected overwritten expiry %v, got %v", second, ent.ExpiresAt)
	}

	var count int64
	if err := db.Raw("SELECT COUNT(1) FROM entitlements").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single upserted row, got %d", count)
	}
}

func TestDeactivateClearsExpiry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Activate(ctx, db, "user-1", now.Add(24*time.Hour), now); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := repo.Deactivate(ctx, db, "user-1", now); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	ent, err := repo.Get(ctx, db, "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ent.Status != entitlementdomain.StatusInactive {
		t.Fatalf("expected inactive, got %s", ent.Status)
	}
	if ent.ExpiresAt != nil {
		t.Fatalf("expected expiry cleared, got %v", ent.ExpiresAt)
	}
}

func TestGetToleratesCorruptExpiry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := db.Exec(
		`INSERT INTO entitlements (user_id, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		"corrupt-user", string(entitlementdomain.StatusActive), "not-a-timestamp", now, now,
	).Error
	if err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	ent, err := repo.Get(ctx, db, "corrupt-user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ent.Status != entitlementdomain.StatusActive {
		t.Fatalf("expected stored status to survive, got %s", ent.Status)
	}
	if ent.ExpiresAt != nil {
		t.Fatalf("expected unparsable expiry dropped, got %v", ent.ExpiresAt)
	}
}

func TestListActiveReturnsOnlyActive(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Activate(ctx, db, "active-user", now.Add(time.Hour), now); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := repo.Deactivate(ctx, db, "inactive-user", now); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	grants, err := repo.ListActive(ctx, db)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(grants) != 1 || grants[0].UserID != "active-user" {
		t.Fatalf("expected single active grant, got %+v", grants)
	}
	if _, err := entitlementdomain.ParseExpiry(grants[0].ExpiresAt); err != nil {
		t.Fatalf("stored expiry should parse back: %v", err)
	}
}

func TestFindUserByProviderTxNewestRowWins(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, userID := range []string{"first-user", "second-user"} {
		tx := &entitlementdomain.Transaction{
			ID:           node.Generate(),
			UserID:       userID,
			ProviderTxID: "prov-1",
			Status:       entitlementdomain.TxStatusPending,
			CreatedAt:    now,
		}
		if err := repo.InsertTransaction(ctx, db, tx); err != nil {
			t.Fatalf("insert tx for %s: %v", userID, err)
		}
	}

	userID, err := repo.FindUserByProviderTx(ctx, db, "prov-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if userID != "second-user" {
		t.Fatalf("expected newest row to win, got %q", userID)
	}
}

func TestFindUserByProviderTxMissing(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	userID, err := repo.FindUserByProviderTx(ctx, db, "no-such-id")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if userID != "" {
		t.Fatalf("expected empty user id, got %q", userID)
	}
}

func TestUpdateTransactionStatusTouchesAllMatches(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.Provide()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		tx := &entitlementdomain.Transaction{
			ID:           node.Generate(),
			UserID:       "user-1",
			ProviderTxID: "prov-9",
			Status:       entitlementdomain.TxStatusPending,
			CreatedAt:    now,
		}
		if err := repo.InsertTransaction(ctx, db, tx); err != nil {
			t.Fatalf("insert tx: %v", err)
		}
	}

	if err := repo.UpdateTransactionStatus(ctx, db, "prov-9", "paid"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	var count int64
	if err := db.Raw("SELECT COUNT(1) FROM transactions WHERE status = ?", "paid").Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both rows updated, got %d", count)
	}
}
