package service

import (
	"context"
	"strings"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/pkg/util"
)

// RecordServiceDependencies wires the lookup-record service.
type RecordServiceDependencies struct {
	ServiceTypes repository.ServiceTypeRepository
	Templates    repository.TemplateRepository
}

// RecordService manages the small admin-maintained lookup records:
// service types for the intake dropdown and task templates.
type RecordService struct {
	deps RecordServiceDependencies
}

// NewRecordService creates the record service.
func NewRecordService(deps RecordServiceDependencies) *RecordService {
	return &RecordService{deps: deps}
}

// CreateServiceType adds an intake dropdown entry. Admin-level only.
func (s *RecordService) CreateServiceType(ctx context.Context, actor *domain.User, name string, active bool) (*domain.TypeOfService, error) {
	if !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("record management is admin-only")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	st := &domain.TypeOfService{Name: name, IsActive: active}
	if err := s.deps.ServiceTypes.Create(ctx, st); err != nil {
		return nil, util.MapError(err)
	}
	return st, nil
}

// UpdateServiceType renames or toggles an entry. Admin-level only.
func (s *RecordService) UpdateServiceType(ctx context.Context, actor *domain.User, id, name string, active bool) (*domain.TypeOfService, error) {
	if !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("record management is admin-only")
	}
	st, err := s.deps.ServiceTypes.GetByID(ctx, id)
	if err != nil {
		return nil, util.MapError(err)
	}
	if name = strings.TrimSpace(name); name != "" {
		st.Name = name
	}
	st.IsActive = active
	if err := s.deps.ServiceTypes.Update(ctx, st); err != nil {
		return nil, util.MapError(err)
	}
	return st, nil
}

// ListServiceTypes returns dropdown entries; non-admins only see active
// ones.
func (s *RecordService) ListServiceTypes(ctx context.Context, actor *domain.User) ([]domain.TypeOfService, error) {
	activeOnly := !actor.Role.IsAdminLevel()
	records, err := s.deps.ServiceTypes.List(ctx, activeOnly)
	return records, util.MapError(err)
}

// CreateTemplate adds a task template. Admin-level only.
func (s *RecordService) CreateTemplate(ctx context.Context, actor *domain.User, name, steps string) (*domain.Template, error) {
	if !actor.Role.IsAdminLevel() {
		return nil, util.NewForbidden("record management is admin-only")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.NewValidationError("name is required", nil)
	}
	tpl := &domain.Template{Name: name, Steps: steps}
	if err := s.deps.Templates.Create(ctx, tpl); err != nil {
		return nil, util.MapError(err)
	}
	return tpl, nil
}

// ListTemplates returns all task templates for staff.
func (s *RecordService) ListTemplates(ctx context.Context, actor *domain.User) ([]domain.Template, error) {
	if actor.Role == domain.RoleClient {
		return nil, util.NewForbidden("templates are staff-only")
	}
	templates, err := s.deps.Templates.List(ctx)
	return templates, util.MapError(err)
}
