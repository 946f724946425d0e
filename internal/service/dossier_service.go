package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reconcileBatch caps how many stale dossiers one reconcile tick repairs.
const reconcileBatch = 100

// ObjectStore keeps dossier file payloads.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// FileDownload is a dossier attachment ready to stream. Callers close Body.
type FileDownload struct {
	FileName    string
	ContentType string
	Body        io.ReadCloser
}

type DossierService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateDossierRequest) (*dto.DossierResponse, error)
	Complete(ctx context.Context, actor Actor, id uuid.UUID) (*dto.DossierResponse, error)
	UpdateDocuments(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateDocumentsRequest) (*dto.DossierResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.DossierResponse, string, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.DossierResponse, error)
	DownloadFile(ctx context.Context, actor Actor, id, fileID uuid.UUID) (*FileDownload, error)

	// RetryCompletion finishes a completion that failed earlier. It is
	// idempotent and performs no authorization.
	RetryCompletion(ctx context.Context, id uuid.UUID) error
	// ReconcileCompleted repairs COMPLETED dossiers whose members were not
	// all moved to PURCHASED and returns how many were repaired.
	ReconcileCompleted(ctx context.Context) (int, error)
}

type dossierService struct {
	repo       repository.DossierRepository
	requests   repository.RequestRepository
	registry   repository.RegistryRepository
	storage    ObjectStore
	dispatcher JobDispatcher
	guard      *ReadGuard
}

func NewDossierService(
	repo repository.DossierRepository,
	requests repository.RequestRepository,
	registry repository.RegistryRepository,
	storage ObjectStore,
	dispatcher JobDispatcher,
	guard *ReadGuard,
) DossierService {
	return &dossierService{
		repo:       repo,
		requests:   requests,
		registry:   registry,
		storage:    storage,
		dispatcher: dispatcher,
		guard:      guard,
	}
}

// ── Create ────────────────────────────────────────────────────────────────────
// The dossier row and the member stamping share one transaction. Members are
// stamped with a conditional update, so a request grabbed by a concurrent
// dossier makes the row count fall short and the whole creation rolls back.

func (s *dossierService) Create(ctx context.Context, actor Actor, req dto.CreateDossierRequest) (*dto.DossierResponse, error) {
	if !actor.Is(model.RoleAdmin, model.RoleProcurement) {
		return nil, forbiddenErr("Bạn không có quyền lập hồ sơ")
	}
	if actor.Role == model.RoleProcurement && actor.UnitID == nil {
		return nil, forbiddenErr("Tài khoản chưa thuộc đơn vị mua sắm nào")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("Tên hồ sơ không được để trống")
	}
	if _, err := s.registry.FindMethodByName(ctx, req.ProcurementMethod); err != nil {
		if isNotFound(err) {
			return nil, validationErr("Phương thức mua sắm không hợp lệ")
		}
		return nil, err
	}

	ids, err := distinctIDs(req.RequestIDs)
	if err != nil {
		return nil, err
	}
	members, err := s.requests.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, notFoundErr("Không tìm thấy một số đề nghị")
	}

	unitID := members[0].TargetUnitID
	amounts := make(map[string]decimal.Decimal, len(members))
	byID := make(map[uuid.UUID]model.ProcurementRequest, len(members))
	for _, m := range members {
		if m.Status != model.StatusReceived || m.DossierID != nil {
			return nil, validationErr(fmt.Sprintf("Đề nghị %q chưa được tiếp nhận hoặc đã thuộc hồ sơ khác", m.Title))
		}
		if actor.Role == model.RoleProcurement && !actor.InUnit(m.TargetUnitID) {
			return nil, forbiddenErr("Chỉ được lập hồ sơ từ đề nghị gửi đơn vị của bạn")
		}
		if m.TargetUnitID != unitID {
			return nil, validationErr("Các đề nghị phải cùng một đơn vị tiếp nhận")
		}
		amounts[m.ID.String()] = m.AmountOrZero()
		byID[m.ID] = m
	}

	// Departments in the order the caller listed the requests.
	var permitted []string
	seen := map[string]bool{}
	for _, id := range ids {
		if dept := byID[id].Department; !seen[dept] {
			seen[dept] = true
			permitted = append(permitted, dept)
		}
	}

	d := &model.ProcurementDossier{
		Name:                 name,
		ProcurementMethod:    req.ProcurementMethod,
		RequestIDs:           ids,
		Status:               model.DossierProcessing,
		Date:                 today(),
		TargetUnitID:         unitID,
		PermittedDepartments: permitted,
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, d); err != nil {
			return err
		}
		n, err := s.requests.AssignDossierTx(tx, ids, d.ID)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return validationErr("Một số đề nghị vừa được đưa vào hồ sơ khác")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := withTotal(dossierSnapshot{Dossier: dossierToResponse(d), Amounts: amounts})
	return &resp, nil
}

func distinctIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, validationErr("Hồ sơ phải có ít nhất một đề nghị")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, validationErr("Mã đề nghị không hợp lệ")
		}
		if seen[id] {
			return nil, validationErr("Danh sách đề nghị bị trùng")
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ── Complete ──────────────────────────────────────────────────────────────────

func (s *dossierService) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*dto.DossierResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hồ sơ")
	}
	if !actor.ManagesUnit(d.TargetUnitID) {
		return nil, forbiddenErr("Bạn không có quyền hoàn thành hồ sơ này")
	}
	if d.Status == model.DossierCompleted {
		return s.respond(ctx, d)
	}

	if err := s.complete(ctx, id); err != nil {
		log.Error().Err(err).Str("dossier_id", id.String()).Msg("dossier: completion failed, scheduling retry")
		if s.dispatcher != nil {
			if qerr := s.dispatcher.EnqueueDossierCompletion(ctx, id); qerr != nil {
				log.Error().Err(qerr).Str("dossier_id", id.String()).Msg("dossier: could not enqueue completion retry")
			}
		}
		return nil, consistencyErr("Hoàn thành hồ sơ chưa được ghi nhận đầy đủ, hệ thống đang tự động thử lại", err)
	}

	d, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hồ sơ")
	}
	return s.respond(ctx, d)
}

// complete locks the dossier, marks it COMPLETED if it is not yet, and moves
// every remaining member to PURCHASED. An existing completion_date is kept.
func (s *dossierService) complete(ctx context.Context, id uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		d, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return err
		}
		if d.Status != model.DossierCompleted {
			now := time.Now().UTC()
			d.Status = model.DossierCompleted
			d.CompletionDate = &now
			if err := s.repo.UpdateTx(tx, d); err != nil {
				return err
			}
		}
		_, err = s.requests.MarkPurchasedTx(tx, id)
		return err
	})
}

func (s *dossierService) RetryCompletion(ctx context.Context, id uuid.UUID) error {
	err := s.complete(ctx, id)
	if isNotFound(err) {
		log.Warn().Str("dossier_id", id.String()).Msg("dossier: completion retry for missing dossier dropped")
		return nil
	}
	return err
}

func (s *dossierService) ReconcileCompleted(ctx context.Context) (int, error) {
	ids, err := s.repo.ListStaleCompleted(ctx, reconcileBatch)
	if err != nil {
		return 0, err
	}
	repaired := 0
	var lastErr error
	for _, id := range ids {
		if err := s.complete(ctx, id); err != nil {
			log.Error().Err(err).Str("dossier_id", id.String()).Msg("dossier: reconcile failed")
			lastErr = err
			continue
		}
		repaired++
	}
	return repaired, lastErr
}

// ── Documents ─────────────────────────────────────────────────────────────────

func (s *dossierService) UpdateDocuments(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateDocumentsRequest) (*dto.DossierResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hồ sơ")
	}
	if !actor.ManagesUnit(d.TargetUnitID) {
		return nil, forbiddenErr("Bạn không có quyền cập nhật hồ sơ này")
	}

	permitted := []string{}
	seen := map[string]bool{}
	for _, dept := range req.PermittedDepartments {
		if !model.IsDepartment(dept) {
			return nil, validationErr("Khoa/phòng không hợp lệ: " + dept)
		}
		if !seen[dept] {
			seen[dept] = true
			permitted = append(permitted, dept)
		}
	}

	previous := make(map[uuid.UUID]model.DossierFile, len(d.Files))
	for _, f := range d.Files {
		previous[f.ID] = f
	}

	files := make([]model.DossierFile, 0, len(req.Files))
	var uploaded []string
	cleanup := func() {
		for _, key := range uploaded {
			if err := s.storage.Remove(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("dossier: orphan object not removed")
			}
		}
	}

	for i, in := range req.Files {
		f := model.DossierFile{
			ID:       uuid.New(),
			Position: i,
			Content:  strings.TrimSpace(in.Content),
			FileName: strings.TrimSpace(in.FileName),
		}
		if keepID, err := parseOptionalID(in.ID); err != nil {
			cleanup()
			return nil, err
		} else if keepID != nil {
			if old, ok := previous[*keepID]; ok {
				f.ID = old.ID
				f.ObjectKey = old.ObjectKey
				f.FileBase64 = old.FileBase64
				if f.FileName == "" {
					f.FileName = old.FileName
				}
			}
		}

		if in.FileBase64 != nil && *in.FileBase64 != "" {
			data, contentType, err := decodePayload(*in.FileBase64)
			if err != nil {
				cleanup()
				return nil, err
			}
			if s.storage != nil {
				key := fmt.Sprintf("dossiers/%s/%s", d.ID, uuid.NewString())
				if err := s.storage.Put(ctx, key, data, contentType); err != nil {
					cleanup()
					return nil, fmt.Errorf("upload %s: %w", f.FileName, err)
				}
				uploaded = append(uploaded, key)
				f.ObjectKey = &key
				f.FileBase64 = nil
			} else {
				enc := base64.StdEncoding.EncodeToString(data)
				f.FileBase64 = &enc
				f.ObjectKey = nil
			}
		}
		files = append(files, f)
	}

	d.PermittedDepartments = permitted
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, d); err != nil {
			return err
		}
		return s.repo.ReplaceFilesTx(tx, d.ID, files)
	})
	if err != nil {
		if s.storage != nil {
			cleanup()
		}
		return nil, err
	}

	s.removeDetached(ctx, d.Files, files)
	d.Files = files
	return s.respond(ctx, d)
}

// removeDetached deletes objects no longer referenced by any file.
func (s *dossierService) removeDetached(ctx context.Context, before, after []model.DossierFile) {
	if s.storage == nil {
		return
	}
	kept := map[string]bool{}
	for _, f := range after {
		if f.ObjectKey != nil {
			kept[*f.ObjectKey] = true
		}
	}
	for _, f := range before {
		if f.ObjectKey == nil || kept[*f.ObjectKey] {
			continue
		}
		if err := s.storage.Remove(ctx, *f.ObjectKey); err != nil {
			log.Warn().Err(err).Str("key", *f.ObjectKey).Msg("dossier: detached object not removed")
		}
	}
}

// decodePayload accepts plain base64 or a data URL.
func decodePayload(raw string) ([]byte, string, error) {
	contentType := ""
	if strings.HasPrefix(raw, "data:") {
		meta, payload, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", validationErr("Dữ liệu tệp không hợp lệ")
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		raw = payload
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, "", validationErr("Dữ liệu tệp không hợp lệ")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// dossierSnapshot is the stored list view of a dossier. Amounts holds the
// member amounts so totals are recomputed whenever it is read.
type dossierSnapshot struct {
	Dossier dto.DossierResponse        `json:"dossier"`
	Amounts map[string]decimal.Decimal `json:"amounts"`
}

func withTotal(s dossierSnapshot) dto.DossierResponse {
	resp := s.Dossier
	total := decimal.Zero
	for _, id := range resp.RequestIDs {
		if a, ok := s.Amounts[id]; ok {
			total = total.Add(a)
		}
	}
	resp.TotalValue = total
	return resp
}

func (s *dossierService) List(ctx context.Context, actor Actor) ([]dto.DossierResponse, string, error) {
	filter, ok := actor.dossierFilter()
	if !ok {
		return []dto.DossierResponse{}, SourcePrimary, nil
	}
	snaps, source, err := readThrough(ctx, s.guard, infra.SnapshotDossiers, func(ctx context.Context) ([]dossierSnapshot, error) {
		dossiers, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return snapshotDossiers(ctx, s.requests, dossiers)
	})
	if err != nil {
		return nil, "", err
	}

	resp := make([]dto.DossierResponse, 0, len(snaps))
	for _, snap := range snaps {
		unitID, _ := uuid.Parse(snap.Dossier.TargetUnitID)
		if !actor.canSeeDossier(unitID, snap.Dossier.PermittedDepartments) {
			continue
		}
		resp = append(resp, withTotal(snap))
	}
	return resp, source, nil
}

func (s *dossierService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.DossierResponse, error) {
	d, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, d)
}

func (s *dossierService) visible(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProcurementDossier, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy hồ sơ")
	}
	if !actor.canSeeDossier(d.TargetUnitID, d.PermittedDepartments) {
		return nil, forbiddenErr("Bạn không có quyền xem hồ sơ này")
	}
	return d, nil
}

func (s *dossierService) respond(ctx context.Context, d *model.ProcurementDossier) (*dto.DossierResponse, error) {
	snaps, err := snapshotDossiers(ctx, s.requests, []model.ProcurementDossier{*d})
	if err != nil {
		return nil, err
	}
	resp := withTotal(snaps[0])
	return &resp, nil
}

// snapshotDossiers attaches the current member amounts to each dossier.
func snapshotDossiers(ctx context.Context, requests repository.RequestRepository, dossiers []model.ProcurementDossier) ([]dossierSnapshot, error) {
	var ids []uuid.UUID
	for _, d := range dossiers {
		ids = append(ids, d.RequestIDs...)
	}
	members, err := requests.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	amounts := make(map[uuid.UUID]decimal.Decimal, len(members))
	for _, m := range members {
		amounts[m.ID] = m.AmountOrZero()
	}

	out := make([]dossierSnapshot, len(dossiers))
	for i := range dossiers {
		d := &dossiers[i]
		snap := dossierSnapshot{Dossier: dossierToResponse(d), Amounts: make(map[string]decimal.Decimal, len(d.RequestIDs))}
		for _, rid := range d.RequestIDs {
			if a, ok := amounts[rid]; ok {
				snap.Amounts[rid.String()] = a
			}
		}
		out[i] = snap
	}
	return out, nil
}

func (s *dossierService) DownloadFile(ctx context.Context, actor Actor, id, fileID uuid.UUID) (*FileDownload, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	f, err := s.repo.FindFile(ctx, id, fileID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy tệp")
	}

	contentType := mime.TypeByExtension(filepath.Ext(f.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	out := &FileDownload{FileName: f.FileName, ContentType: contentType}

	switch {
	case f.ObjectKey != nil:
		if s.storage == nil {
			return nil, errors.New("object storage is not configured")
		}
		body, err := s.storage.Get(ctx, *f.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", *f.ObjectKey, err)
		}
		out.Body = body
	case f.FileBase64 != nil:
		data, err := base64.StdEncoding.DecodeString(*f.FileBase64)
		if err != nil {
			return nil, fmt.Errorf("decode stored file %s: %w", f.ID, err)
		}
		out.Body = io.NopCloser(bytes.NewReader(data))
	default:
		return nil, notFoundErr("Hồ sơ chưa có tệp đính kèm")
	}
	return out, nil
}
