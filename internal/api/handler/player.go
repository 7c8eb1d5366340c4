package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/api/sse"
	"github.com/mcoot/dotareg/internal/middleware"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/importer"
	"github.com/mcoot/dotareg/internal/services/parser"
	"github.com/mcoot/dotareg/internal/services/players"
	"github.com/mcoot/dotareg/internal/services/registration"
)

// uploadField is the multipart field holding an import file
const uploadField = "file"

// PlayerHandler handles the admin endpoints of one player list
type PlayerHandler struct {
	list           model.PlayerList
	players        *players.Service
	importer       *importer.Service
	registration   *registration.Service
	events         *sse.Broadcaster
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewPlayerHandler creates a handler for the given list
func NewPlayerHandler(
	list model.PlayerList,
	ps *players.Service,
	imp *importer.Service,
	reg *registration.Service,
	events *sse.Broadcaster,
	logger *slog.Logger,
	maxUploadBytes int64,
) *PlayerHandler {
	return &PlayerHandler{
		list:           list,
		players:        ps,
		importer:       imp,
		registration:   reg,
		events:         events,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// List handles GET /api/v1/admin/{list}
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.PlayerFilter{
		RegistrationSessionID: model.RegistrationSessionID(q.Get("sessionId")),
		Search:                q.Get("search"),
	}

	ps, err := h.players.List(r.Context(), h.list, filter)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.PlayerListResponse{Success: true, Players: response.PlayersFromModel(ps), Count: len(ps)})
}

// Get handles GET /api/v1/admin/{list}/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.players.Get(r.Context(), h.list, playerID(r))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.PlayerResponse{Success: true, Player: response.PlayerFromModel(p)})
}

// Create handles POST /api/v1/admin/{list}
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	p, err := h.players.Create(r.Context(), h.list, players.Submission{
		Name:    string(req.Name),
		Dota2ID: string(req.Dota2ID),
		MMR:     req.MMRValue(),
		Notes:   string(req.Notes),
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.countChanged(r)

	response.OK(w, response.PlayerResponse{Success: true, Player: response.PlayerFromModel(p)})
}

// Update handles PATCH /api/v1/admin/{list}/{id}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	p, err := h.players.Update(r.Context(), h.list, playerID(r), players.Patch{
		Name:    scalarPtr(req.Name),
		Dota2ID: scalarPtr(req.Dota2ID),
		MMR:     scalarPtr(req.MMR),
		Notes:   scalarPtr(req.Notes),
	})
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.OK(w, response.PlayerResponse{Success: true, Player: response.PlayerFromModel(p)})
}

// Delete handles DELETE /api/v1/admin/{list}/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.players.Delete(r.Context(), h.list, playerID(r)); err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.countChanged(r)

	response.OK(w, response.DeleteResponse{Success: true, Deleted: 1})
}

// DeleteAll handles DELETE /api/v1/admin/{list}
func (h *PlayerHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.players.DeleteAll(r.Context(), h.list)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}
	h.countChanged(r)

	response.OK(w, response.DeleteResponse{Success: true, Deleted: n})
}

// Import handles POST /api/v1/admin/{list}/import
func (h *PlayerHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req request.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, uploadError(err, "invalid request body"))
		return
	}

	opts, err := h.importOptions(r, req.SkipDuplicates, req.UpdateExisting)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	var result *model.ImportResult
	if raw := bytes.TrimSpace(req.Players); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		result, err = h.importer.Import(r.Context(), h.list, string(raw), parser.FormatJSON, opts)
	} else {
		var format parser.Format
		format, err = parser.ParseFormat(req.Format)
		if err == nil {
			result, err = h.importer.Import(r.Context(), h.list, req.Text, format, opts)
		}
	}
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	if result.Added > 0 {
		h.countChanged(r)
	}
	writeImportResult(w, r, h.list, result)
}

// ImportFile handles POST /api/v1/admin/{list}/import/file (multipart upload)
func (h *PlayerHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		WriteError(w, uploadError(err, "invalid multipart upload"))
		return
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		WriteError(w, NewInvalidRequestError("missing upload field \""+uploadField+"\""))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, NewInvalidRequestError("could not read upload"))
		return
	}

	opts, err := h.importOptions(r, formBool(r, "skipDuplicates"), formBool(r, "updateExisting"))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	result, err := h.importer.ImportFile(r.Context(), h.list, header.Filename, data, opts)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	if result.Added > 0 {
		h.countChanged(r)
	}
	writeImportResult(w, r, h.list, result)
}

// importOptions attaches registrations imports to the active session
func (h *PlayerHandler) importOptions(r *http.Request, skip, update bool) (importer.Options, error) {
	opts := importer.Options{SkipDuplicates: skip, UpdateExisting: update}
	if h.list != model.ListRegistrations {
		return opts, nil
	}

	status, err := h.registration.PublicStatus(r.Context())
	if err != nil {
		return opts, err
	}
	if status.Session != nil {
		opts.RegistrationSessionID = status.Session.ID
	}
	return opts, nil
}

// countChanged pushes the new public status after the registrations list changes
func (h *PlayerHandler) countChanged(r *http.Request) {
	if h.list == model.ListRegistrations {
		h.events.StatusChanged(r.Context())
	}
}

func writeImportResult(w http.ResponseWriter, r *http.Request, list model.PlayerList, result *model.ImportResult) {
	middleware.AddLogAttrs(r.Context(), slog.Group("import",
		slog.String("list", string(list)),
		slog.Int("added", result.Added),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("rejected", len(result.Errors)),
	))
	status := http.StatusOK
	if result.HasErrors() {
		status = http.StatusBadRequest
	}
	response.JSON(w, status, response.ImportResponseFromModel(result))
}

func playerID(r *http.Request) model.PlayerID {
	return model.PlayerID(mux.Vars(r)["id"])
}

func scalarPtr(s *parser.Scalar) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func formBool(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.FormValue(key))
	return err == nil && b
}

func uploadError(err error, message string) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return NewInvalidRequestError("upload exceeds " + strconv.FormatInt(mbe.Limit, 10) + " bytes")
	}
	return NewInvalidRequestError(message)
}
