package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/qbbc/clubadmin/internal/codec"
	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/overlay"
	"github.com/qbbc/clubadmin/internal/reconcile"
	"github.com/qbbc/clubadmin/internal/store"
	"github.com/qbbc/clubadmin/internal/websocket"
)

const maxImportSize = 8 << 20 // 8 MiB CSV upload cap

type MemberHandler struct {
	members *store.MemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast() {
	if h.hub != nil {
		h.hub.Notify(websocket.EntityMembers)
	}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redactMembers(h.members.Load()))
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m model.Member
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if !h.hashCredential(w, &m) {
		return
	}

	members := h.members.Load()
	if strings.TrimSpace(m.MembershipNumber) == "" {
		m.MembershipNumber = reconcile.GenerateMembershipNumber(members)
	}
	now := reconcile.NowISO()
	if m.CreatedAt == "" {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	reconcile.NormalizeMember(&m)

	members = append(members, m)
	if err := h.members.Save(members); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save member"})
		return
	}

	h.broadcast()
	writeJSON(w, http.StatusCreated, redactMember(m))
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	members := h.members.Load()
	idx := findMemberIndex(members, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	var m model.Member
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	existing := members[idx]
	m.ID = existing.ID
	if m.MembershipNumber == "" {
		m.MembershipNumber = existing.MembershipNumber
	}
	if m.CreatedAt == "" {
		m.CreatedAt = existing.CreatedAt
	}
	// Credentials and role travel outside the edit form; absent means keep.
	if m.Username == "" {
		m.Username = existing.Username
	}
	if m.Password == "" {
		m.Password = existing.Password
	}
	if m.Role == "" {
		m.Role = existing.Role
	}
	if !h.hashCredential(w, &m) {
		return
	}
	m.UpdatedAt = reconcile.NowISO()
	reconcile.NormalizeMember(&m)

	members[idx] = m
	if err := h.members.Save(members); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save member"})
		return
	}

	h.broadcast()
	writeJSON(w, http.StatusOK, redactMember(m))
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	members := h.members.Load()
	idx := findMemberIndex(members, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	members = append(members[:idx], members[idx+1:]...)
	if err := h.members.Save(members); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete member"})
		return
	}

	h.broadcast()
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus marks a member active or inactive. Inactive members keep their
// record and membership number.
func (h *MemberHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "active" && status != "inactive" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be active or inactive"})
		return
	}

	members := h.members.Load()
	idx := findMemberIndex(members, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	members[idx].Status = status
	members[idx].UpdatedAt = reconcile.NowISO()
	if err := h.members.Save(members); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save member"})
		return
	}

	h.broadcast()
	writeJSON(w, http.StatusOK, redactMember(members[idx]))
}

// Toggle flips one of the boolean flags shown as switches in the roster
// table: passSport or insurance.
func (h *MemberHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	field := r.PathValue("field")

	members := h.members.Load()
	idx := findMemberIndex(members, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "member not found"})
		return
	}

	m := &members[idx]
	switch field {
	case "passSport":
		m.PassSport = !m.PassSport
	case "insurance":
		m.Insurance = !m.Insurance
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown toggle field"})
		return
	}
	m.UpdatedAt = reconcile.NowISO()

	if err := h.members.Save(members); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save member"})
		return
	}

	h.broadcast()
	writeJSON(w, http.StatusOK, redactMember(*m))
}

// Export streams the roster as a semicolon-delimited CSV download.
func (h *MemberHandler) Export(w http.ResponseWriter, r *http.Request) {
	data := codec.Export(h.members.Load())
	filename := fmt.Sprintf("qbbc_members_%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import merges an uploaded CSV document into the roster. The document is
// all-or-nothing: a document-level failure leaves the collection untouched.
func (h *MemberHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}

	batch, err := codec.Import(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	merged := reconcile.Merge(h.members.Load(), batch)
	if err := h.members.Save(merged); err != nil {
		h.logger.Error("save members", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save import"})
		return
	}

	h.broadcast()
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(batch), "total": len(merged)})
}

// Stats returns the dashboard counters.
func (h *MemberHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reconcile.ComputeStats(h.members.Load()))
}

// hashCredential replaces a plain-text member password with its bcrypt hash
// before the record is persisted. Reports whether the handler may proceed.
func (h *MemberHandler) hashCredential(w http.ResponseWriter, m *model.Member) bool {
	hash, err := overlay.EnsurePasswordHash(m.Password)
	if err != nil {
		h.logger.Error("hash member password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save member"})
		return false
	}
	m.Password = hash
	return true
}

// redactMember strips the stored credential secret from an API response.
func redactMember(m model.Member) model.Member {
	m.Password = ""
	return m
}

func redactMembers(members []model.Member) []model.Member {
	out := make([]model.Member, len(members))
	for i, m := range members {
		out[i] = redactMember(m)
	}
	return out
}

func findMemberIndex(members []model.Member, id string) int {
	if id == "" {
		return -1
	}
	for i := range members {
		if members[i].ID == id {
			return i
		}
	}
	return -1
}
