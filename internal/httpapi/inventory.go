package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/coerce"
	"github.com/MdSium003/AgamiOps/internal/inventory"
	"github.com/MdSium003/AgamiOps/internal/store"
)

// Columns added by the listing; they are never written back into a record.
var syntheticColumns = []string{"_source_file", "_source_id", "_created_at"}

func decodeUpload(raw json.RawMessage) []*inventory.Record {
	if !present(raw) {
		return nil
	}
	records, err := inventory.DecodeRecords(raw)
	if err != nil {
		return nil
	}
	return records
}

func (s *Server) handleListInventory(c *gin.Context) {
	items, err := s.store.ListInventoryItems(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err, "Failed to fetch inventory")
		return
	}
	out := make([]*inventory.Record, 0, len(items))
	for _, it := range items {
		out = append(out, it.Flatten())
	}
	c.JSON(http.StatusOK, gin.H{"inventory": out})
}

func (s *Server) handleAddInventory(c *gin.Context) {
	var req struct {
		Data     json.RawMessage `json:"data"`
		FileName any             `json:"fileName"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to upload inventory data")
		return
	}
	records := decodeUpload(req.Data)
	if len(records) == 0 {
		respondError(c, *badRequest("Data must be a non-empty array"))
		return
	}
	batch, err := s.store.AddInventory(c.Request.Context(), userID(c), coerce.String(req.FileName, ""), records)
	if err != nil {
		s.writeError(c, err, "Failed to upload inventory data")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"id":         batch.ID,
		"count":      batch.Count,
		"created_at": batch.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (s *Server) handleUpdateInventory(c *gin.Context) {
	patch := inventory.NewRecord()
	if err := readJSON(c, patch); err != nil {
		s.writeError(c, err, "Failed to update inventory item")
		return
	}
	itemID := c.Param("id")
	for _, k := range syntheticColumns {
		patch.Delete(k)
	}
	if v, ok := patch.Get("id"); ok && coerce.String(v, "") == itemID {
		patch.Delete("id")
	}
	s.inventoryResult(c, s.store.UpdateInventoryItem(c.Request.Context(), userID(c), itemID, patch), "Failed to update inventory item")
}

func (s *Server) handleDeleteInventory(c *gin.Context) {
	s.inventoryResult(c, s.store.DeleteInventoryItem(c.Request.Context(), userID(c), c.Param("id")), "Failed to delete inventory item")
}

func (s *Server) inventoryResult(c *gin.Context, err error, fallback string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Inventory item not found"))
		return
	}
	if err != nil {
		s.writeError(c, err, fallback)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleAnalyzeImage(c *gin.Context) {
	var req struct {
		ImageData any `json:"imageData"`
		FileName  any `json:"fileName"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to analyze image")
		return
	}
	dataURL, _ := req.ImageData.(string)
	res, err := s.inventory.AnalyzeImage(c.Request.Context(), dataURL, coerce.String(req.FileName, ""))
	switch {
	case errors.Is(err, inventory.ErrImageRequired):
		respondError(c, *badRequest("imageData (base64 data URL) required"))
	case errors.Is(err, inventory.ErrInvalidImage):
		respondError(c, *badRequest("Invalid image data"))
	case err != nil:
		s.writeError(c, err, "Failed to analyze image")
	default:
		c.JSON(http.StatusOK, res)
	}
}
