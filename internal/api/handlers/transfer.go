package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/prompthive/server/internal/audit"
	"github.com/prompthive/server/internal/auth"
	"github.com/prompthive/server/internal/cache"
	"github.com/prompthive/server/internal/transfer"
)

type TransferHandler struct {
	importer *transfer.Importer
	exporter *transfer.Exporter
	cache    *cache.Cache
	audit    *audit.Service
}

func NewTransferHandler(importer *transfer.Importer, exporter *transfer.Exporter, c *cache.Cache, a *audit.Service) *TransferHandler {
	return &TransferHandler{importer: importer, exporter: exporter, cache: c, audit: a}
}

type importRequest struct {
	// Payload is the raw import document (any supported dialect) or one chunk
	// of its prompts.
	Payload json.RawMessage `json:"payload"`
	// CollectionIDMap threads the structural id map across chunked calls; the
	// core keeps no state between chunks.
	CollectionIDMap map[string]uuid.UUID `json:"collection_id_map,omitempty"`
}

type importResponse struct {
	Count           int                  `json:"count"`
	Skipped         int                  `json:"skipped"`
	CollectionIDMap map[string]uuid.UUID `json:"collection_id_map"`
}

func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Payload) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payload required"})
		return
	}

	doc, err := transfer.ParseDocument(req.Payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ownerID := auth.UserIDFromContext(r.Context())

	idMap := req.CollectionIDMap
	if idMap == nil {
		idMap = make(map[string]uuid.UUID)
	}
	if len(doc.Collections) > 0 {
		structMap, err := h.importer.ImportStructure(r.Context(), ownerID, doc.Collections)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		for k, v := range structMap {
			idMap[k] = v
		}
	}

	res, err := h.importer.Import(r.Context(), ownerID, doc.Prompts, idMap)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.cache != nil {
		_ = h.cache.AddImportProgress(r.Context(), ownerID.String(), res.Count, res.Skipped)
	}
	_ = h.audit.Log(r.Context(), audit.LogEntry{
		Action:       "import",
		ResourceType: "prompts",
		Details:      map[string]interface{}{"format": doc.Format, "count": res.Count, "skipped": res.Skipped},
	})

	writeJSON(w, http.StatusOK, importResponse{Count: res.Count, Skipped: res.Skipped, CollectionIDMap: idMap})
}

func (h *TransferHandler) Progress(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	count, skipped, err := h.cache.ImportProgress(r.Context(), ownerID.String())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count, "skipped": skipped})
}

func (h *TransferHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if err := h.cache.ResetImportProgress(r.Context(), ownerID.String()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	CollectionIDs []uuid.UUID `json:"collection_ids"`
}

func (h *TransferHandler) ExportV2(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ownerID := auth.UserIDFromContext(r.Context())
	doc, err := h.exporter.BuildV2(r.Context(), ownerID, req.CollectionIDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	_ = h.audit.Log(r.Context(), audit.LogEntry{
		Action:       "export",
		ResourceType: "prompts",
		Details:      map[string]interface{}{"variant": "v2", "prompts": len(doc.Prompts)},
	})
	writeJSON(w, http.StatusOK, doc)
}

func (h *TransferHandler) ExportZero(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ownerID := auth.UserIDFromContext(r.Context())
	doc, err := h.exporter.BuildZero(r.Context(), ownerID, req.CollectionIDs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	_ = h.audit.Log(r.Context(), audit.LogEntry{
		Action:       "export",
		ResourceType: "prompts",
		Details:      map[string]interface{}{"variant": "zero", "prompts": len(doc.Prompts)},
	})
	writeJSON(w, http.StatusOK, doc)
}
