package service

import (
	"context"
	"errors"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistryService manages procurement units and methods. List reads report
// which store served them (SourcePrimary or SourceSnapshot).
type RegistryService interface {
	ListUnits(ctx context.Context) ([]dto.UnitResponse, string, error)
	AddUnit(ctx context.Context, actor Actor, req dto.CreateUnitRequest) (*dto.UnitResponse, error)
	RemoveUnit(ctx context.Context, actor Actor, id uuid.UUID) error
	ListMethods(ctx context.Context) ([]dto.MethodResponse, string, error)
	AddMethod(ctx context.Context, actor Actor, req dto.CreateMethodRequest) (*dto.MethodResponse, error)
	RemoveMethod(ctx context.Context, actor Actor, id uuid.UUID) error
	ListDepartments() []string
}

type registryService struct {
	repo     repository.RegistryRepository
	users    repository.UserRepository
	requests repository.RequestRepository
	guard    *ReadGuard
}

func NewRegistryService(
	repo repository.RegistryRepository,
	users repository.UserRepository,
	requests repository.RequestRepository,
	guard *ReadGuard,
) RegistryService {
	return &registryService{repo: repo, users: users, requests: requests, guard: guard}
}

func (s *registryService) ListUnits(ctx context.Context) ([]dto.UnitResponse, string, error) {
	return readThrough(ctx, s.guard, infra.SnapshotUnits, s.loadUnits)
}

func (s *registryService) loadUnits(ctx context.Context) ([]dto.UnitResponse, error) {
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UnitResponse, len(units))
	for i := range units {
		resp[i] = unitToResponse(&units[i])
	}
	return resp, nil
}

func (s *registryService) AddUnit(ctx context.Context, actor Actor, req dto.CreateUnitRequest) (*dto.UnitResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("Tên đơn vị không được để trống")
	}
	if _, err := s.repo.FindUnitByName(ctx, name); err == nil {
		return nil, validationErr("Đơn vị đã tồn tại")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	unit := &model.ProcurementUnit{Name: name}
	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationErr("Đơn vị đã tồn tại")
		}
		return nil, err
	}
	resp := unitToResponse(unit)
	return &resp, nil
}

func (s *registryService) RemoveUnit(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.FindUnit(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy đơn vị")
	}
	users, err := s.users.CountByUnit(ctx, id)
	if err != nil {
		return err
	}
	reqs, err := s.requests.CountByUnit(ctx, id)
	if err != nil {
		return err
	}
	if users > 0 || reqs > 0 {
		return validationErr("Đơn vị đang được sử dụng, không thể xóa")
	}
	if err := s.repo.DeleteUnit(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy đơn vị")
	}
	return nil
}

func (s *registryService) ListMethods(ctx context.Context) ([]dto.MethodResponse, string, error) {
	return readThrough(ctx, s.guard, infra.SnapshotMethods, s.loadMethods)
}

func (s *registryService) loadMethods(ctx context.Context) ([]dto.MethodResponse, error) {
	methods, err := s.repo.ListMethods(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.MethodResponse, len(methods))
	for i := range methods {
		resp[i] = methodToResponse(&methods[i])
	}
	return resp, nil
}

// AddMethod is idempotent: an existing name returns the stored record.
func (s *registryService) AddMethod(ctx context.Context, actor Actor, req dto.CreateMethodRequest) (*dto.MethodResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("Tên phương thức không được để trống")
	}
	if existing, err := s.repo.FindMethodByName(ctx, name); err == nil {
		resp := methodToResponse(existing)
		return &resp, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	methods, err := s.repo.ListMethods(ctx)
	if err != nil {
		return nil, err
	}
	position := 0
	for _, m := range methods {
		if m.Position >= position {
			position = m.Position + 1
		}
	}

	method := &model.ProcurementMethod{Name: name, Position: position}
	if err := s.repo.CreateMethod(ctx, method); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, ferr := s.repo.FindMethodByName(ctx, name); ferr == nil {
				resp := methodToResponse(existing)
				return &resp, nil
			}
		}
		return nil, err
	}
	resp := methodToResponse(method)
	return &resp, nil
}

func (s *registryService) RemoveMethod(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteMethod(ctx, id); err != nil {
		return lookupErr(err, "Không tìm thấy phương thức")
	}
	return nil
}

func (s *registryService) ListDepartments() []string {
	return append([]string(nil), model.Departments...)
}
