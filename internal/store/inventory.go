package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MdSium003/AgamiOps/internal/inventory"
)

// InventoryBatch is one uploaded file worth of records.
type InventoryBatch struct {
	ID        int64
	UserID    int64
	FileName  string
	Count     int
	CreatedAt time.Time
}

// InventoryItem is a single record addressed as "<batch>_<index>".
type InventoryItem struct {
	ID         string
	Record     *inventory.Record
	SourceFile string
	SourceID   int64
	CreatedAt  time.Time
}

// Flatten returns the record with its id first and the source columns last.
// A record's own "id" field wins over the composite id.
func (it InventoryItem) Flatten() *inventory.Record {
	out := inventory.NewRecord()
	out.Set("id", it.ID)
	out.Merge(it.Record)
	out.Set("_source_file", it.SourceFile)
	out.Set("_source_id", it.SourceID)
	out.Set("_created_at", it.CreatedAt.Format(time.RFC3339Nano))
	return out
}

func ItemID(batchID int64, index int) string {
	return fmt.Sprintf("%d_%d", batchID, index)
}

// ParseItemID splits a composite item id. Malformed ids yield ErrNotFound.
func ParseItemID(id string) (batchID int64, index int, err error) {
	b, i, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, ErrNotFound
	}
	batchID, err = strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, ErrNotFound
	}
	index, err = strconv.Atoi(i)
	if err != nil || index < 0 {
		return 0, 0, ErrNotFound
	}
	return batchID, index, nil
}

func (s *Store) AddInventory(ctx context.Context, userID int64, fileName string, records []*inventory.Record) (InventoryBatch, error) {
	if fileName == "" {
		fileName = "uploaded_file"
	}
	doc, err := json.Marshal(records)
	if err != nil {
		return InventoryBatch{}, fmt.Errorf("encode inventory: %w", err)
	}
	created := s.stamp()
	b := InventoryBatch{UserID: userID, FileName: fileName, Count: len(records), CreatedAt: parseTime(created)}
	err = s.db.QueryRowxContext(ctx, s.q(`INSERT INTO inventory
		(user_id, data, file_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		userID, string(doc), fileName, created, created,
	).Scan(&b.ID)
	if err != nil {
		return InventoryBatch{}, fmt.Errorf("insert inventory: %w", err)
	}
	return b, nil
}

type inventoryRow struct {
	ID        int64  `db:"id"`
	Data      string `db:"data"`
	FileName  string `db:"file_name"`
	CreatedAt string `db:"created_at"`
}

// ListInventoryItems flattens every batch of the user, newest batch first.
func (s *Store) ListInventoryItems(ctx context.Context, userID int64) ([]InventoryItem, error) {
	var rows []inventoryRow
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT id, data, file_name, created_at
		FROM inventory WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	items := []InventoryItem{}
	for _, r := range rows {
		records, err := inventory.DecodeRecords([]byte(r.Data))
		if err != nil {
			continue
		}
		for i, rec := range records {
			items = append(items, InventoryItem{
				ID:         ItemID(r.ID, i),
				Record:     rec,
				SourceFile: r.FileName,
				SourceID:   r.ID,
				CreatedAt:  parseTime(r.CreatedAt),
			})
		}
	}
	return items, nil
}

// UpdateInventoryItem merges patch into the addressed record.
func (s *Store) UpdateInventoryItem(ctx context.Context, userID int64, itemID string, patch *inventory.Record) error {
	return s.editBatch(ctx, userID, itemID, func(records []*inventory.Record, i int) []*inventory.Record {
		records[i].Merge(patch)
		return records
	})
}

// DeleteInventoryItem removes the addressed record and drops the batch once it
// is empty.
func (s *Store) DeleteInventoryItem(ctx context.Context, userID int64, itemID string) error {
	return s.editBatch(ctx, userID, itemID, func(records []*inventory.Record, i int) []*inventory.Record {
		return append(records[:i], records[i+1:]...)
	})
}

func (s *Store) editBatch(ctx context.Context, userID int64, itemID string, edit func([]*inventory.Record, int) []*inventory.Record) error {
	batchID, index, err := ParseItemID(itemID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.editBatchTx(ctx, tx, userID, batchID, index, edit); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) editBatchTx(ctx context.Context, tx *sqlx.Tx, userID, batchID int64, index int, edit func([]*inventory.Record, int) []*inventory.Record) error {
	var data string
	if err := tx.GetContext(ctx, &data, s.q("SELECT data FROM inventory WHERE id = ? AND user_id = ?"), batchID, userID); err != nil {
		return notFound(err)
	}
	records, err := inventory.DecodeRecords([]byte(data))
	if err != nil || index >= len(records) {
		return ErrNotFound
	}
	records = edit(records, index)
	if len(records) == 0 {
		_, err := tx.ExecContext(ctx, s.q("DELETE FROM inventory WHERE id = ? AND user_id = ?"), batchID, userID)
		return err
	}
	doc, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	_, err = tx.ExecContext(ctx, s.q("UPDATE inventory SET data = ?, updated_at = ? WHERE id = ? AND user_id = ?"),
		string(doc), s.stamp(), batchID, userID)
	return err
}
