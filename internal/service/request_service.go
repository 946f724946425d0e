package service

import (
	"context"
	"errors"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestService drives the request state machine. PURCHASED is never set
// here; only dossier completion produces it.
type RequestService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateRequestRequest) (*dto.RequestResponse, error)
	ReplaceRequests(ctx context.Context, actor Actor, entries []dto.BulkRequestEntry) ([]dto.RequestResponse, error)
	Accept(ctx context.Context, actor Actor, id uuid.UUID, note string) (*dto.RequestResponse, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, note string) (*dto.RequestResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	List(ctx context.Context, actor Actor, filter dto.RequestFilter) ([]dto.RequestResponse, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.RequestResponse, error)
	SetAmount(ctx context.Context, actor Actor, id uuid.UUID, amount decimal.Decimal) (*dto.RequestResponse, error)
	RecordFeedback(ctx context.Context, actor Actor, id uuid.UUID, req dto.FeedbackRequest) (*dto.RequestResponse, error)
	ListEligibleForDossier(ctx context.Context, actor Actor) ([]dto.RequestResponse, error)
}

type requestService struct {
	repo     repository.RequestRepository
	users    repository.UserRepository
	registry repository.RegistryRepository
}

func NewRequestService(repo repository.RequestRepository, users repository.UserRepository, registry repository.RegistryRepository) RequestService {
	return &requestService{repo: repo, users: users, registry: registry}
}

func (s *requestService) Create(ctx context.Context, actor Actor, req dto.CreateRequestRequest) (*dto.RequestResponse, error) {
	if actor.Is(model.RoleProcurement, model.RoleGuest) {
		return nil, forbiddenErr("Bạn không có quyền tạo đề nghị")
	}
	r, err := s.buildRequest(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	resp := requestToResponse(r)
	return &resp, nil
}

// buildRequest validates a new request and denormalises the requester.
func (s *requestService) buildRequest(ctx context.Context, actor Actor, req dto.CreateRequestRequest) (*model.ProcurementRequest, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validationErr("Vui lòng nhập tiêu đề đề nghị")
	}
	items, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}
	reqType := req.Type
	if reqType == "" {
		reqType = model.RequestPurchase
	}
	if reqType != model.RequestPurchase && reqType != model.RequestRepair {
		return nil, validationErr("Loại đề nghị không hợp lệ")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	unitID, err := uuid.Parse(req.TargetUnitID)
	if err != nil {
		return nil, validationErr("Đơn vị tiếp nhận không hợp lệ")
	}
	if _, err := s.registry.FindUnit(ctx, unitID); err != nil {
		return nil, lookupErr(err, "Không tìm thấy đơn vị tiếp nhận")
	}
	requester, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy người đề nghị")
	}

	return &model.ProcurementRequest{
		Type:          reqType,
		Title:         title,
		RequesterID:   requester.ID,
		RequesterName: requester.Name,
		Department:    requester.Department,
		TargetUnitID:  unitID,
		Status:        model.StatusPending,
		Date:          date,
		Items:         items,
	}, nil
}

// normalizeItems drops unnamed lines and requires one complete line.
func normalizeItems(in []dto.RequestItem) ([]model.RequestItem, error) {
	items := make([]model.RequestItem, 0, len(in))
	complete := false
	for _, it := range in {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := strings.TrimSpace(it.QuantityUnit)
		if qty != "" {
			complete = true
		}
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		items = append(items, model.RequestItem{
			ID:              id,
			Name:            name,
			QuantityUnit:    qty,
			PurposeOrDamage: strings.TrimSpace(it.PurposeOrDamage),
			Note:            strings.TrimSpace(it.Note),
		})
	}
	if !complete {
		return nil, validationErr("Vui lòng nhập ít nhất một thiết bị/vật tư đầy đủ thông tin")
	}
	return items, nil
}

// ── ReplaceRequests ───────────────────────────────────────────────────────────
// Collection upsert. Editable fields are applied; status and dossier_id are
// only echoed and a mismatch aborts the whole batch.

func (s *requestService) ReplaceRequests(ctx context.Context, actor Actor, entries []dto.BulkRequestEntry) ([]dto.RequestResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	parsed := make([]*uuid.UUID, len(entries))
	for i, e := range entries {
		id, err := parseOptionalID(e.ID)
		if err != nil {
			return nil, err
		}
		parsed[i] = id
		if id != nil {
			ids = append(ids, *id)
		}
	}

	var out []model.ProcurementRequest
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDsTx(tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]model.ProcurementRequest, len(existing))
		for _, r := range existing {
			byID[r.ID] = r
		}

		out = make([]model.ProcurementRequest, 0, len(entries))
		for i, e := range entries {
			stored, found := model.ProcurementRequest{}, false
			if parsed[i] != nil {
				stored, found = byID[*parsed[i]]
			}
			if !found {
				r, err := s.newFromEntry(ctx, actor, parsed[i], e)
				if err != nil {
					return err
				}
				if err := s.repo.CreateTx(tx, r); err != nil {
					return err
				}
				out = append(out, *r)
				continue
			}
			if err := applyEntry(&stored, e); err != nil {
				return err
			}
			if err := s.repo.UpdateTx(tx, &stored); err != nil {
				return err
			}
			out = append(out, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := make([]dto.RequestResponse, len(out))
	for i := range out {
		resp[i] = requestToResponse(&out[i])
	}
	return resp, nil
}

func (s *requestService) newFromEntry(ctx context.Context, actor Actor, id *uuid.UUID, e dto.BulkRequestEntry) (*model.ProcurementRequest, error) {
	if (e.Status != "" && e.Status != model.StatusPending) || (e.DossierID != nil && *e.DossierID != "") {
		return nil, validationErr("Đề nghị mới phải ở trạng thái chờ xử lý")
	}
	r, err := s.buildRequest(ctx, actor, e.CreateRequestRequest)
	if err != nil {
		return nil, err
	}
	if id != nil {
		r.ID = *id
	}
	if e.Amount != nil {
		if e.Amount.IsNegative() {
			return nil, validationErr("Số tiền không được âm")
		}
		r.Amount = e.Amount
	}
	r.ProcurementNote = e.ProcurementNote
	return r, nil
}

func applyEntry(r *model.ProcurementRequest, e dto.BulkRequestEntry) error {
	if e.Status != "" && e.Status != r.Status {
		return validationErr("Không thể đổi trạng thái đề nghị qua cập nhật hàng loạt")
	}
	if e.DossierID != nil {
		stored := ""
		if r.DossierID != nil {
			stored = r.DossierID.String()
		}
		if *e.DossierID != stored {
			return validationErr("Không thể đổi hồ sơ của đề nghị qua cập nhật hàng loạt")
		}
	}

	if title := strings.TrimSpace(e.Title); title != "" {
		r.Title = title
	}
	if e.Type != "" {
		r.Type = e.Type
	}
	if e.Date != "" {
		date, err := parseDate(e.Date)
		if err != nil {
			return err
		}
		r.Date = date
	}
	if e.Items != nil {
		items, err := normalizeItems(e.Items)
		if err != nil {
			return err
		}
		r.Items = items
	}
	if e.Amount != nil {
		if e.Amount.IsNegative() {
			return validationErr("Số tiền không được âm")
		}
		if r.Status == model.StatusRejected && (r.Amount == nil || !r.Amount.Equal(*e.Amount)) {
			return validationErr("Không thể cập nhật số tiền của đề nghị đã từ chối")
		}
		r.Amount = e.Amount
	}
	if e.ProcurementNote != nil {
		r.ProcurementNote = e.ProcurementNote
	}
	return nil
}

// ── Accept / Reject ───────────────────────────────────────────────────────────

func (s *requestService) Accept(ctx context.Context, actor Actor, id uuid.UUID, note string) (*dto.RequestResponse, error) {
	return s.decide(ctx, actor, id, model.StatusReceived, note)
}

func (s *requestService) Reject(ctx context.Context, actor Actor, id uuid.UUID, note string) (*dto.RequestResponse, error) {
	return s.decide(ctx, actor, id, model.StatusRejected, note)
}

func (s *requestService) decide(ctx context.Context, actor Actor, id uuid.UUID, to, note string) (*dto.RequestResponse, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy đề nghị")
	}
	if actor.Role != model.RoleProcurement || !actor.InUnit(r.TargetUnitID) {
		return nil, forbiddenErr("Chỉ đơn vị tiếp nhận được xử lý đề nghị này")
	}
	if r.Status != model.StatusPending {
		return nil, validationErr("Đề nghị đã được xử lý")
	}

	notePtr := strPtr(strings.TrimSpace(note))
	n, err := s.repo.TransitionStatus(ctx, id, model.StatusPending, to, notePtr)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, validationErr("Đề nghị đã được xử lý")
	}
	r.Status = to
	r.ProcurementNote = notePtr
	resp := requestToResponse(r)
	return &resp, nil
}

func (s *requestService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupErr(err, "Không tìm thấy đề nghị")
	}
	if actor.Role != model.RoleAdmin && r.RequesterID != actor.UserID {
		return forbiddenErr("Bạn không có quyền xóa đề nghị này")
	}
	if r.Status != model.StatusPending {
		return validationErr("Chỉ được xóa đề nghị đang chờ xử lý")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy đề nghị")
	}
	return nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *requestService) List(ctx context.Context, actor Actor, filter dto.RequestFilter) ([]dto.RequestResponse, error) {
	scope, ok := actor.requestScope()
	if !ok {
		return []dto.RequestResponse{}, nil
	}
	reqs, err := s.repo.List(ctx, repository.RequestFilter{
		Scope:      scope,
		Department: filter.Department,
		Status:     filter.Status,
	})
	if err != nil {
		return nil, err
	}
	return requestsToResponse(reqs), nil
}

func (s *requestService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*dto.RequestResponse, error) {
	r, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := requestToResponse(r)
	return &resp, nil
}

func (s *requestService) visible(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProcurementRequest, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy đề nghị")
	}
	if !actor.canSeeRequest(r) {
		return nil, forbiddenErr("Bạn không có quyền xem đề nghị này")
	}
	return r, nil
}

func (s *requestService) ListEligibleForDossier(ctx context.Context, actor Actor) ([]dto.RequestResponse, error) {
	filter := repository.RequestFilter{Status: model.StatusReceived, Unassigned: true}
	switch {
	case actor.Role == model.RoleAdmin:
	case actor.Role == model.RoleProcurement && actor.UnitID != nil:
		filter.TargetUnitID = actor.UnitID
	default:
		return nil, forbiddenErr("Bạn không có quyền lập hồ sơ")
	}
	reqs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return requestsToResponse(reqs), nil
}

// ── Amount / feedback ─────────────────────────────────────────────────────────

func (s *requestService) SetAmount(ctx context.Context, actor Actor, id uuid.UUID, amount decimal.Decimal) (*dto.RequestResponse, error) {
	if amount.IsNegative() {
		return nil, validationErr("Số tiền không được âm")
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy đề nghị")
	}
	if !actor.ManagesUnit(r.TargetUnitID) {
		return nil, forbiddenErr("Bạn không có quyền cập nhật số tiền")
	}
	if r.Status == model.StatusRejected {
		return nil, validationErr("Không thể cập nhật số tiền của đề nghị đã từ chối")
	}
	n, err := s.repo.SetAmount(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, validationErr("Không thể cập nhật số tiền của đề nghị đã từ chối")
	}
	r.Amount = &amount
	resp := requestToResponse(r)
	return &resp, nil
}

func (s *requestService) RecordFeedback(ctx context.Context, actor Actor, id uuid.UUID, req dto.FeedbackRequest) (*dto.RequestResponse, error) {
	if req.Accepted == nil {
		return nil, validationErr("Vui lòng chọn chấp nhận hoặc từ chối")
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Không tìm thấy đề nghị")
	}
	if r.RequesterID != actor.UserID {
		return nil, forbiddenErr("Chỉ người đề nghị được phản hồi")
	}
	if r.Status != model.StatusPurchased {
		return nil, validationErr("Chỉ phản hồi được đề nghị đã mua sắm")
	}

	to := model.StatusUserRejected
	if *req.Accepted {
		to = model.StatusUserAccepted
	}
	feedback := strPtr(strings.TrimSpace(req.Feedback))
	n, err := s.repo.SetFeedback(ctx, id, to, feedback)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, validationErr("Chỉ phản hồi được đề nghị đã mua sắm")
	}
	r.Status = to
	r.UserFeedback = feedback
	resp := requestToResponse(r)
	return &resp, nil
}

func requestsToResponse(reqs []model.ProcurementRequest) []dto.RequestResponse {
	resp := make([]dto.RequestResponse, len(reqs))
	for i := range reqs {
		resp[i] = requestToResponse(&reqs[i])
	}
	return resp
}

// isNotFound is shared by services that tolerate missing rows.
func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
